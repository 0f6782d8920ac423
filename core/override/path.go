// Package override - Path-addressed pricing corrections
// Overrides target one field of a pricing document by path and replace
// its value wholesale. Paths are validated once at creation time, not
// re-parsed on every composition.
package override

import (
	"strconv"
	"strings"

	"hostcost/internal/errors"
)

// Segment is one step of an override path: a field name, optionally
// with an array index.
type Segment struct {
	// Field is the named field this segment descends into
	Field string

	// Index is the array slot within the field, -1 when the segment
	// is not indexed
	Index int
}

// Indexed reports whether the segment addresses an array slot
func (s Segment) Indexed() bool {
	return s.Index >= 0
}

// String returns the authored form of the segment
func (s Segment) String() string {
	if s.Indexed() {
		return s.Field + "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Field
}

// Path is a parsed override target, e.g. tiers[2].basePrice
type Path []Segment

// String returns the canonical authored form
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// ParsePath parses a dot-separated path with optional array indexes.
// Grammar: segment ("." segment)*, segment = field | field "[" digits "]".
func ParsePath(raw string) (Path, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New(errors.TypeMalformedOverridePath, "empty override path").
			WithContext("path", raw)
	}

	parts := strings.Split(trimmed, ".")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeMalformedOverridePath, err, "override path %q", raw).
				WithContext("path", raw)
		}
		path = append(path, seg)
	}

	return path, nil
}

func parseSegment(part string) (Segment, error) {
	if part == "" {
		return Segment{}, errors.New(errors.TypeParsing, "empty path segment")
	}

	field := part
	index := -1

	if open := strings.IndexByte(part, '['); open >= 0 {
		if !strings.HasSuffix(part, "]") {
			return Segment{}, errors.Newf(errors.TypeParsing, "segment %q has an unclosed index", part)
		}
		field = part[:open]
		idxStr := part[open+1 : len(part)-1]

		n, err := strconv.Atoi(idxStr)
		if err != nil || n < 0 {
			return Segment{}, errors.Newf(errors.TypeParsing, "segment %q has an invalid index %q", part, idxStr)
		}
		index = n
	}

	if !validField(field) {
		return Segment{}, errors.Newf(errors.TypeParsing, "segment %q has an invalid field name", part)
	}

	return Segment{Field: field, Index: index}, nil
}

// validField accepts identifier-shaped field names
func validField(field string) bool {
	if field == "" {
		return false
	}
	for i, r := range field {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
