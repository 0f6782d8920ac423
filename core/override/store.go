// Package override - Versioned override store
package override

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hostcost/core/types"
	"hostcost/internal/errors"
	"hostcost/internal/logging"
)

// collectionKey partitions the store into one collection per
// (scope, provider) pair
type collectionKey struct {
	scope    Scope
	provider types.Provider
}

// Store is the versioned override log. Every mutation bumps a single
// monotonic version; that version pairs with a snapshot fingerprint to
// key memoized composition results, so any change invalidates exactly
// the affected cache entries.
//
// The store is safe for concurrent use. Callers must not mutate an
// override's Value after handing it to Add.
type Store struct {
	mu          sync.RWMutex
	collections map[collectionKey][]*Override
	version     uint64
}

// NewStore creates an empty override store
func NewStore() *Store {
	return &Store{
		collections: make(map[collectionKey][]*Override),
	}
}

// Add records a correction. The record's path and scope are validated
// here, once; an existing override at the same canonical path within
// the same collection is superseded. The stored record is returned with
// its assigned ID, timestamp and version.
func (s *Store) Add(o *Override) (*Override, error) {
	if o == nil {
		return nil, errors.Validation("nil override")
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	path, err := o.Compile()
	if err != nil {
		return nil, err
	}
	canonical := path.String()

	record := o.clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.AppliedAt.IsZero() {
		record.AppliedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	record.Version = s.version

	key := collectionKey{scope: record.Scope, provider: record.Provider}
	col := s.collections[key]
	for i, existing := range col {
		ep, cerr := existing.Compile()
		if cerr == nil && ep.String() == canonical {
			logging.Debug("override superseded",
				zap.String("path", canonical),
				zap.String("scope", record.Scope.String()),
				zap.String("provider", record.Provider.String()),
				zap.String("supersededId", existing.ID))
			col = append(col[:i], col[i+1:]...)
			break
		}
	}
	s.collections[key] = append(col, record)

	return record, nil
}

// Remove deletes the override at a path from one collection. It reports
// whether a record was removed.
func (s *Store) Remove(scope Scope, provider types.Provider, rawPath string) (bool, error) {
	path, err := ParsePath(rawPath)
	if err != nil {
		return false, err
	}
	canonical := path.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := collectionKey{scope: scope, provider: provider}
	col := s.collections[key]
	for i, existing := range col {
		ep, cerr := existing.Compile()
		if cerr == nil && ep.String() == canonical {
			s.collections[key] = append(col[:i], col[i+1:]...)
			s.version++
			return true, nil
		}
	}

	return false, nil
}

// List returns one collection in insertion order
func (s *Store) List(scope Scope, provider types.Provider) []*Override {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.collections[collectionKey{scope: scope, provider: provider}]
	out := make([]*Override, len(col))
	copy(out, col)
	return out
}

// Layer returns one collection in application order: stable-sorted by
// ascending priority so higher-priority records apply later and win
// path conflicts, with insertion order breaking ties.
func (s *Store) Layer(scope Scope, provider types.Provider) []*Override {
	out := s.List(scope, provider)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Layers returns the three ordered override arrays for composing a
// provider's pricing: global, then provider, then local.
func (s *Store) Layers(provider types.Provider) [][]*Override {
	return [][]*Override{
		s.Layer(ScopeGlobal, ""),
		s.Layer(ScopeProvider, provider),
		s.Layer(ScopeLocal, provider),
	}
}

// All returns every stored override, ordered by scope precedence, then
// provider, then insertion
func (s *Store) All() []*Override {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]collectionKey, 0, len(s.collections))
	for k := range s.collections {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].scope.Rank() != keys[j].scope.Rank() {
			return keys[i].scope.Rank() < keys[j].scope.Rank()
		}
		return keys[i].provider < keys[j].provider
	})

	var out []*Override
	for _, k := range keys {
		out = append(out, s.collections[k]...)
	}
	return out
}

// Version returns the current store version. It changes on every
// mutation and never decreases.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Load replaces the store contents with persisted records, in order.
// Record IDs and timestamps are preserved; versions are reassigned from
// a fresh counter since versions only key in-process memoization.
func (s *Store) Load(records []*Override) error {
	for _, o := range records {
		if o == nil {
			return errors.Validation("nil override in load set")
		}
		if err := o.validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections = make(map[collectionKey][]*Override)
	for _, o := range records {
		record := o.clone()
		s.version++
		record.Version = s.version
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.AppliedAt.IsZero() {
			record.AppliedAt = time.Now().UTC()
		}
		key := collectionKey{scope: record.Scope, provider: record.Provider}
		s.collections[key] = append(s.collections[key], record)
	}

	return nil
}

// clone copies the record so the store never aliases caller memory.
// Value is shared; overrides treat values as immutable.
func (o *Override) clone() *Override {
	dup := *o
	return &dup
}
