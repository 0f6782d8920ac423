// Package pricing composes override layers onto immutable base
// snapshots and validates the result.
// Base snapshots are never mutated; composition operates on a full
// copy, so re-running the same layers over the same base always yields
// the same effective pricing.
package pricing

import (
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"hostcost/core/override"
	"hostcost/core/types"
	"hostcost/internal/errors"
	"hostcost/internal/logging"
)

// Compose applies ordered override layers to a base snapshot, lowest
// precedence first (global, then provider, then local); within a layer,
// overrides apply in list order, so later records win path conflicts.
//
// Each override is applied independently: a malformed path or a value
// the pricing schema cannot absorb voids that one override and is
// reported in the result's Issues, never aborting the rest. Composition
// never reads its own prior output.
func Compose(base *types.PricingSnapshot, layers [][]*override.Override) (*EffectivePricing, error) {
	if base == nil {
		return nil, errors.Validation("nil base snapshot")
	}

	doc, err := toDocument(base)
	if err != nil {
		return nil, errors.Internal("serializing base snapshot", err)
	}

	eff := &EffectivePricing{
		BaseFingerprint: Fingerprint(base),
		ComposedAt:      time.Now().UTC(),
	}

	log := logging.Named("compose")

	for _, layer := range layers {
		applied := make(map[string]bool)
		for _, o := range layer {
			if o == nil {
				continue
			}

			path, cerr := o.Compile()
			if cerr != nil {
				issue := errors.MalformedPath(o.Path, string(o.Scope), cerr)
				eff.Issues = append(eff.Issues, issue)
				log.Warn("skipping override with malformed path",
					zap.String("path", o.Path),
					zap.String("scope", o.Scope.String()))
				continue
			}
			canonical := path.String()

			if applied[canonical] {
				log.Warn("duplicate override path within one layer, last wins",
					zap.String("path", canonical),
					zap.String("scope", o.Scope.String()))
			}

			checkpoint := copyDocument(doc)
			if perr := applyPatch(doc, path, o.Value); perr != nil {
				doc = checkpoint
				issue := errors.MalformedPath(canonical, string(o.Scope), perr)
				eff.Issues = append(eff.Issues, issue)
				log.Warn("override path does not match document shape",
					zap.String("path", canonical),
					zap.String("scope", o.Scope.String()),
					zap.Error(perr))
				continue
			}

			if _, verr := fromDocument(doc); verr != nil {
				doc = checkpoint
				issue := errors.InvalidValue(canonical, string(o.Scope), verr)
				eff.Issues = append(eff.Issues, issue)
				log.Warn("override value rejected by pricing schema",
					zap.String("path", canonical),
					zap.String("scope", o.Scope.String()),
					zap.Error(verr))
				continue
			}

			applied[canonical] = true
			eff.OverridesApplied++
		}
	}

	snapshot, err := fromDocument(doc)
	if err != nil {
		return nil, errors.Internal("decoding composed snapshot", err)
	}
	eff.Snapshot = *snapshot

	log.Debug("composition complete",
		zap.String("provider", snapshot.Provider.String()),
		zap.Int("applied", eff.OverridesApplied),
		zap.Int("issues", len(eff.Issues)))

	return eff, nil
}

// toDocument converts a snapshot to a generic JSON document. The round
// trip through bytes guarantees the working copy shares no memory with
// the base.
func toDocument(s *types.PricingSnapshot) (map[string]interface{}, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// fromDocument decodes a generic document back into the typed snapshot,
// rejecting values the schema cannot absorb
func fromDocument(doc map[string]interface{}) (*types.PricingSnapshot, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var s types.PricingSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// applyPatch walks the document along the path, creating missing
// containers on demand (objects for named segments, arrays for indexed
// ones), and replaces the terminal value wholesale.
func applyPatch(doc map[string]interface{}, path override.Path, value interface{}) error {
	current := doc

	for i, seg := range path {
		terminal := i == len(path)-1

		if !seg.Indexed() {
			if terminal {
				current[seg.Field] = value
				return nil
			}
			child, ok := current[seg.Field]
			if !ok || child == nil {
				next := make(map[string]interface{})
				current[seg.Field] = next
				current = next
				continue
			}
			next, ok := child.(map[string]interface{})
			if !ok {
				return errors.Newf(errors.TypeParsing, "segment %q is not an object", seg.Field)
			}
			current = next
			continue
		}

		arr, err := arrayAt(current, seg.Field)
		if err != nil {
			return err
		}
		for len(arr) <= seg.Index {
			arr = append(arr, make(map[string]interface{}))
		}
		current[seg.Field] = arr

		if terminal {
			arr[seg.Index] = value
			return nil
		}

		slot := arr[seg.Index]
		next, ok := slot.(map[string]interface{})
		if !ok {
			if slot != nil {
				return errors.Newf(errors.TypeParsing, "segment %q is not an object", seg.String())
			}
			next = make(map[string]interface{})
			arr[seg.Index] = next
		}
		current = next
	}

	return nil
}

// arrayAt fetches a field as an array, creating it when absent
func arrayAt(m map[string]interface{}, field string) ([]interface{}, error) {
	child, ok := m[field]
	if !ok || child == nil {
		return []interface{}{}, nil
	}
	arr, ok := child.([]interface{})
	if !ok {
		return nil, errors.Newf(errors.TypeParsing, "segment %q is not an array", field)
	}
	return arr, nil
}

// copyDocument deep-copies a generic document so a failed patch can be
// rolled back without touching the good state
func copyDocument(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyDocument(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}
