// Package archive persists pricing snapshots and override collections
// on disk. Snapshot files are write-once and content-hashed; adopting
// new pricing never rewrites an archived file, it adds one and repoints
// the per-provider current marker.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"hostcost/core/types"
	"hostcost/internal/errors"
	"hostcost/internal/logging"
)

// ErrImmutabilityViolation is returned when a write would touch an
// existing snapshot file
var ErrImmutabilityViolation = errors.New(errors.TypeStorage, "archived snapshots are write-once")

// ErrHashMismatch is returned when a file's content no longer matches
// its recorded hash
var ErrHashMismatch = errors.New(errors.TypeStorage, "snapshot content hash mismatch")

const indexFileName = "index.json"

// Entry is the index record for one archived snapshot
type Entry struct {
	// ID uniquely identifies the archived snapshot
	ID string `json:"id"`

	// Provider the snapshot describes
	Provider string `json:"provider"`

	// Fingerprint is the sha256 hex of the archived file bytes
	Fingerprint string `json:"fingerprint"`

	// CapturedAt is the snapshot's own lastUpdated stamp
	CapturedAt time.Time `json:"capturedAt"`

	// ArchivedAt is when the snapshot was adopted here
	ArchivedAt time.Time `json:"archivedAt"`

	// Source carries the snapshot's provenance note
	Source string `json:"source,omitempty"`

	// Size is the archived file size in bytes
	Size int64 `json:"size"`

	// File is the archived file name, relative to the archive root
	File string `json:"file"`
}

// Archive is the on-disk snapshot store of record
type Archive struct {
	mu       sync.RWMutex
	basePath string

	// index holds every archived snapshot by ID
	index map[string]*Entry

	// current maps provider to the snapshot of record
	current map[string]string

	log *zap.Logger
}

// New opens an archive rooted at basePath, creating it if needed
func New(basePath string) (*Archive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Storage("creating snapshot archive directory", err)
	}

	a := &Archive{
		basePath: basePath,
		index:    make(map[string]*Entry),
		current:  make(map[string]string),
		log:      logging.Named("archive"),
	}
	if err := a.loadIndex(); err != nil {
		return nil, err
	}
	return a, nil
}

// Adopt archives a snapshot and makes it the provider's snapshot of
// record. Adopting content that is already archived repoints the
// current marker without writing anything.
func (a *Archive) Adopt(snapshot *types.PricingSnapshot) (*Entry, error) {
	if snapshot == nil || snapshot.Provider == "" {
		return nil, errors.Validation("snapshot with a provider required")
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, errors.Storage("serializing snapshot", err)
	}
	sum := sha256.Sum256(data)
	fingerprint := hex.EncodeToString(sum[:])
	provider := strings.ToLower(snapshot.Provider.String())
	id := fmt.Sprintf("%s-%s", provider, fingerprint[:12])

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.index[id]; ok {
		if existing.Fingerprint != fingerprint {
			return nil, errors.Wrapf(errors.TypeStorage, ErrImmutabilityViolation,
				"archive id %s exists with different content", id)
		}
		a.current[provider] = id
		a.log.Info("Snapshot already archived, repointed current",
			zap.String("provider", provider),
			zap.String("id", id))
		return existing, a.saveIndex()
	}

	fileName := id + ".json"
	filePath := filepath.Join(a.basePath, fileName)
	if _, err := os.Stat(filePath); err == nil {
		return nil, errors.Wrapf(errors.TypeStorage, ErrImmutabilityViolation,
			"file %s already exists outside the index", fileName)
	}
	if err := os.WriteFile(filePath, data, 0444); err != nil {
		return nil, errors.Storage("writing snapshot file", err)
	}

	entry := &Entry{
		ID:          id,
		Provider:    provider,
		Fingerprint: fingerprint,
		CapturedAt:  snapshot.LastUpdated,
		ArchivedAt:  time.Now().UTC(),
		Source:      snapshot.Source,
		Size:        int64(len(data)),
		File:        fileName,
	}
	a.index[id] = entry
	a.current[provider] = id

	if err := a.saveIndex(); err != nil {
		return nil, err
	}
	a.log.Info("Adopted pricing snapshot",
		zap.String("provider", provider),
		zap.String("id", id),
		zap.Int64("bytes", entry.Size))
	return entry, nil
}

// Current returns the provider's snapshot of record
func (a *Archive) Current(provider types.Provider) (*types.PricingSnapshot, error) {
	a.mu.RLock()
	id, ok := a.current[strings.ToLower(provider.String())]
	a.mu.RUnlock()

	if !ok {
		return nil, errors.NotFound("pricing snapshot", provider.String())
	}
	return a.Get(id)
}

// CurrentEntry returns the index entry behind the provider's snapshot
// of record
func (a *Archive) CurrentEntry(provider types.Provider) (*Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	id, ok := a.current[strings.ToLower(provider.String())]
	if !ok {
		return nil, errors.NotFound("pricing snapshot", provider.String())
	}
	entry, ok := a.index[id]
	if !ok {
		return nil, errors.NotFound("archived snapshot", id)
	}
	return entry, nil
}

// Get reads an archived snapshot by ID, verifying its content hash
func (a *Archive) Get(id string) (*types.PricingSnapshot, error) {
	a.mu.RLock()
	entry, ok := a.index[id]
	a.mu.RUnlock()

	if !ok {
		return nil, errors.NotFound("archived snapshot", id)
	}

	data, err := os.ReadFile(filepath.Join(a.basePath, entry.File))
	if err != nil {
		return nil, errors.Storage("reading archived snapshot", err)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != entry.Fingerprint {
		return nil, errors.Wrapf(errors.TypeStorage, ErrHashMismatch, "snapshot %s", id)
	}

	var snapshot types.PricingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Parsing("decoding archived snapshot", err)
	}
	return &snapshot, nil
}

// History lists a provider's archived snapshots, newest first
func (a *Archive) History(provider types.Provider) []*Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	key := strings.ToLower(provider.String())
	var out []*Entry
	for _, entry := range a.index {
		if entry.Provider == key {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ArchivedAt.Equal(out[j].ArchivedAt) {
			return out[i].ArchivedAt.After(out[j].ArchivedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Providers lists every provider with a snapshot of record, sorted
func (a *Archive) Providers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.current))
	for provider := range a.current {
		out = append(out, provider)
	}
	sort.Strings(out)
	return out
}

// VerifyIntegrity re-hashes every archived file and describes the ones
// that no longer match the index
func (a *Archive) VerifyIntegrity() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.index))
	for id := range a.index {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var corrupted []string
	for _, id := range ids {
		entry := a.index[id]
		data, err := os.ReadFile(filepath.Join(a.basePath, entry.File))
		if err != nil {
			corrupted = append(corrupted, fmt.Sprintf("%s: file missing", id))
			continue
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != entry.Fingerprint {
			corrupted = append(corrupted, fmt.Sprintf("%s: hash mismatch", id))
		}
	}
	return corrupted
}

// indexFile is the persisted shape of the archive index
type indexFile struct {
	Snapshots map[string]*Entry `json:"snapshots"`
	Current   map[string]string `json:"current"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (a *Archive) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(a.basePath, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Storage("reading archive index", err)
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return errors.Parsing("decoding archive index", err)
	}
	if idx.Snapshots != nil {
		a.index = idx.Snapshots
	}
	if idx.Current != nil {
		a.current = idx.Current
	}
	return nil
}

// saveIndex persists the index atomically via temp file and rename
func (a *Archive) saveIndex() error {
	idx := indexFile{
		Snapshots: a.index,
		Current:   a.current,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errors.Storage("serializing archive index", err)
	}

	indexPath := filepath.Join(a.basePath, indexFileName)
	tempPath := indexPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return errors.Storage("writing archive index", err)
	}
	if err := os.Rename(tempPath, indexPath); err != nil {
		return errors.Storage("replacing archive index", err)
	}
	return nil
}

// ReadSnapshotFile decodes a pricing snapshot from a JSON file
func ReadSnapshotFile(path string) (*types.PricingSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Storage("reading snapshot file", err)
	}
	var snapshot types.PricingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Parsing("decoding snapshot file", err)
	}
	return &snapshot, nil
}
