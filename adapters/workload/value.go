// Package workload - safe literal conversion
// Authored values are NEVER blindly passed through.
// Unknown values MUST be explicitly handled.
package workload

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"hostcost/core/types"
	"hostcost/internal/errors"
)

// LiteralKind indicates the shape of an authored value
type LiteralKind int

const (
	KindInvalid LiteralKind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// String returns the kind name
func (k LiteralKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Literal is a safely-converted authored value
type Literal struct {
	// The Go value (if known)
	Value interface{}

	// Is this value known?
	Known bool

	// Is this value null?
	Null bool

	// Shape of the value
	Kind LiteralKind

	// Original cty type name
	CtyType string
}

// FromCty safely converts a cty.Value to a Literal.
// This never loses type information or unknown status.
func FromCty(val cty.Value) Literal {
	result := Literal{
		CtyType: val.Type().FriendlyName(),
	}

	// Check for unknown FIRST
	if !val.IsKnown() {
		result.Kind = KindInvalid
		return result
	}

	if val.IsNull() {
		result.Known = true
		result.Null = true
		result.Kind = KindNull
		return result
	}

	result.Known = true

	switch {
	case val.Type() == cty.String:
		result.Kind = KindString
		result.Value = val.AsString()

	case val.Type() == cty.Number:
		result.Kind = KindNumber
		f, _ := val.AsBigFloat().Float64()
		result.Value = f

	case val.Type() == cty.Bool:
		result.Kind = KindBool
		result.Value = val.True()

	case val.Type().IsListType() || val.Type().IsSetType() || val.Type().IsTupleType():
		result.Kind = KindList
		result.Value = convertList(val)

	case val.Type().IsMapType() || val.Type().IsObjectType():
		result.Kind = KindMap
		result.Value = convertMap(val)

	default:
		result.Known = false
		result.Kind = KindInvalid
	}

	return result
}

func convertList(val cty.Value) []interface{} {
	if !val.CanIterateElements() {
		return nil
	}

	result := make([]interface{}, 0, val.LengthInt())
	iter := val.ElementIterator()
	for iter.Next() {
		_, v := iter.Element()
		lit := FromCty(v)
		if lit.Known && !lit.Null {
			result = append(result, lit.Value)
		} else {
			result = append(result, nil)
		}
	}
	return result
}

func convertMap(val cty.Value) map[string]interface{} {
	if !val.CanIterateElements() {
		return nil
	}

	result := make(map[string]interface{})
	iter := val.ElementIterator()
	for iter.Next() {
		k, v := iter.Element()
		lit := FromCty(v)
		if lit.Known && !lit.Null {
			result[k.AsString()] = lit.Value
		} else {
			result[k.AsString()] = nil
		}
	}
	return result
}

// AsString returns the value as a string, or empty if not a string
func (l Literal) AsString() string {
	if !l.Known || l.Null || l.Kind != KindString {
		return ""
	}
	if s, ok := l.Value.(string); ok {
		return s
	}
	return ""
}

// AsFloat returns the value as a float64, or 0 if not a number
func (l Literal) AsFloat() float64 {
	if !l.Known || l.Null || l.Kind != KindNumber {
		return 0
	}
	if f, ok := l.Value.(float64); ok {
		return f
	}
	return 0
}

// AsBool returns the value as a bool
func (l Literal) AsBool() bool {
	if !l.Known || l.Null || l.Kind != KindBool {
		return false
	}
	if b, ok := l.Value.(bool); ok {
		return b
	}
	return false
}

// AsQuantity interprets the value as a usage quantity: numbers are
// taken as-is, strings go through suffix parsing (5m, 100gb,
// unlimited). The dimension names the quantity in error context.
func (l Literal) AsQuantity(dimension string) (types.Quantity, error) {
	switch l.Kind {
	case KindNumber:
		return types.QuantityOf(l.AsFloat()), nil
	case KindString:
		return types.ParseQuantity(l.AsString()), nil
	default:
		return types.Quantity{}, errors.InvalidQuantity(dimension, l.describe(),
			fmt.Errorf("expected a number or string, got %s", l.Kind))
	}
}

// AsWeights interprets the value as a region weight map. The second
// return lists keys whose values were not numbers.
func (l Literal) AsWeights() (map[string]float64, []string) {
	if !l.Known || l.Null || l.Kind != KindMap {
		return nil, nil
	}
	raw, ok := l.Value.(map[string]interface{})
	if !ok {
		return nil, nil
	}

	weights := make(map[string]float64, len(raw))
	var rejected []string
	for key, value := range raw {
		f, isNumber := value.(float64)
		if !isNumber {
			rejected = append(rejected, key)
			continue
		}
		weights[key] = f
	}
	sort.Strings(rejected)
	return weights, rejected
}

func (l Literal) describe() string {
	if !l.Known {
		return "(unknown)"
	}
	if l.Null {
		return "(null)"
	}
	return fmt.Sprintf("%v", l.Value)
}
