// Package override - Override records and scopes
package override

import (
	"time"

	"hostcost/core/types"
	"hostcost/internal/errors"
)

// Scope is the precedence bucket an override belongs to. Layers apply
// in ascending precedence: global, then provider, then local.
type Scope string

const (
	// ScopeGlobal applies to every provider
	ScopeGlobal Scope = "global"

	// ScopeProvider applies to one provider
	ScopeProvider Scope = "provider"

	// ScopeLocal is this installation's own corrections for one
	// provider, highest precedence
	ScopeLocal Scope = "local"
)

// String returns the string representation
func (s Scope) String() string {
	return string(s)
}

// IsValid checks if the scope is a known scope
func (s Scope) IsValid() bool {
	switch s {
	case ScopeGlobal, ScopeProvider, ScopeLocal:
		return true
	default:
		return false
	}
}

// Rank orders scopes by precedence, lowest first
func (s Scope) Rank() int {
	switch s {
	case ScopeGlobal:
		return 0
	case ScopeProvider:
		return 1
	case ScopeLocal:
		return 2
	default:
		return -1
	}
}

// Scopes lists all scopes in ascending precedence order
var Scopes = []Scope{ScopeGlobal, ScopeProvider, ScopeLocal}

// Override is one operator-supplied correction: the value at Path is
// replaced wholesale by Value during composition. Records are immutable
// except for explicit removal; adding a second override at an identical
// path supersedes the first.
type Override struct {
	// ID uniquely identifies this record
	ID string `json:"id"`

	// Path addresses the field being corrected
	Path string `json:"path"`

	// Value is the replacement value
	Value interface{} `json:"value"`

	// Scope is the precedence bucket
	Scope Scope `json:"scope"`

	// Provider the correction applies to, empty for global scope
	Provider types.Provider `json:"provider,omitempty"`

	// Priority breaks ties within a layer, higher wins
	Priority int `json:"priority,omitempty"`

	// Reason documents why the correction exists
	Reason string `json:"reason,omitempty"`

	// AppliedAt is when the correction was recorded
	AppliedAt time.Time `json:"appliedAt"`

	// Version is the store version this record was added at
	Version uint64 `json:"version,omitempty"`

	// parsed caches the compiled path
	parsed Path
}

// Compile parses and caches the override's path. The first call
// validates; later calls return the cached form.
func (o *Override) Compile() (Path, error) {
	if o.parsed != nil {
		return o.parsed, nil
	}
	p, err := ParsePath(o.Path)
	if err != nil {
		return nil, err
	}
	o.parsed = p
	return p, nil
}

// validate checks the record is well-formed for its scope
func (o *Override) validate() error {
	if !o.Scope.IsValid() {
		return errors.Newf(errors.TypeValidation, "unknown override scope %q", o.Scope).
			WithContext("scope", string(o.Scope))
	}
	if o.Scope == ScopeGlobal && o.Provider != "" {
		return errors.Validation("global overrides must not name a provider").
			WithContext("provider", o.Provider.String())
	}
	if o.Scope != ScopeGlobal && o.Provider == "" {
		return errors.Newf(errors.TypeValidation, "%s overrides must name a provider", o.Scope).
			WithContext("scope", string(o.Scope))
	}
	if _, err := o.Compile(); err != nil {
		return err
	}
	return nil
}
