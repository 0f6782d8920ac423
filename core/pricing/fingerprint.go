// Package pricing - Snapshot content fingerprints
package pricing

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/goccy/go-json"

	"hostcost/core/types"
)

// Fingerprint returns a content hash identifying a snapshot's exact
// data. Identical pricing data always fingerprints identically, so the
// hash doubles as a snapshot version for memoization and archive
// integrity checks.
func Fingerprint(s *types.PricingSnapshot) string {
	data, err := json.Marshal(s)
	if err != nil {
		// Snapshots are plain data; marshaling only fails on corrupt
		// in-memory state
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
