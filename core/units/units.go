// Package units normalizes human-authored quantity strings to canonical
// base units. Data sizes normalize to gigabytes, counts to plain numbers.
package units

import (
	"strconv"
	"strings"

	"hostcost/internal/errors"
)

// Canonical base units and conversion factors.
const (
	// GB is the canonical data-size unit
	GB float64 = 1

	// MB in gigabytes
	MB = GB / 1024

	// TB in gigabytes
	TB = GB * 1024

	// PB in gigabytes
	PB = TB * 1024

	// Thousand, Million and Billion expand count suffixes
	Thousand float64 = 1e3
	Million  float64 = 1e6
	Billion  float64 = 1e9

	// Unlimited is the large-but-finite sentinel for "unlimited"
	// quantities. Arithmetic never involves true infinity; any realistic
	// usage stays far below this value.
	Unlimited float64 = 1e15

	// HoursPerMonth is the standard billing month
	HoursPerMonth float64 = 730

	// DaysPerMonth is the standard billing month in days
	DaysPerMonth float64 = 30

	// MonthsPerYear converts monthly estimates to yearly
	MonthsPerYear float64 = 12
)

// suffixes maps unit suffixes to multipliers, longest first so "tb"
// is not read as a count suffix "b" on "1t".
var suffixes = []struct {
	suffix string
	factor float64
}{
	{"pb", PB},
	{"tb", TB},
	{"gb", GB},
	{"mb", MB},
	{"kb", MB / 1024},
	{"k", Thousand},
	{"m", Million},
	{"b", Billion},
}

// unlimitedWords are the accepted spellings of the unlimited sentinel
var unlimitedWords = map[string]bool{
	"unlimited": true,
	"infinite":  true,
	"inf":       true,
	"∞":         true,
}

// Parse normalizes a quantity string to its canonical numeric value.
// Data sizes ("100gb", "1tb") normalize to gigabytes; count suffixes
// ("250k", "5m") expand; "unlimited" maps to the Unlimited sentinel.
// Plain numbers pass through unchanged.
func Parse(raw string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "_", "")

	if s == "" {
		return 0, errors.New(errors.TypeParsing, "empty quantity")
	}

	if unlimitedWords[s] {
		return Unlimited, nil
	}

	factor := 1.0
	for _, u := range suffixes {
		if strings.HasSuffix(s, u.suffix) {
			factor = u.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	if s == "" {
		return 0, errors.Newf(errors.TypeParsing, "quantity %q has no numeric part", raw)
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.TypeParsing, err, "unrecognized quantity %q", raw)
	}

	return value * factor, nil
}

// IsUnlimited reports whether a value is at or beyond the unlimited
// sentinel
func IsUnlimited(v float64) bool {
	return v >= Unlimited
}
