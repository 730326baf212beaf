// Package feature defines the values stored per data point: named feature
// values, the ordered feature mapping and the raw/transformed label pair.
package feature

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind.
	KindInvalid Kind = iota
	// KindNumber is a scalar float64.
	KindNumber
	// KindString is a string.
	KindString
	// KindVector is a fixed-length 1-D numeric array.
	KindVector
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	default:
		return "invalid"
	}
}

// Value is a single feature or label value.
//
// Scalars occupy one column when materialized, vectors occupy len(Vec)
// columns in element order.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Vec  []float64
}

// Number returns a scalar value.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// Int returns a scalar value holding n.
func Int(n int64) Value {
	return Value{Kind: KindNumber, Num: float64(n)}
}

// String returns a string value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Vector returns a vector value. The input slice is copied.
func Vector(v []float64) Value {
	vec := make([]float64, len(v))
	copy(vec, v)
	return Value{Kind: KindVector, Vec: vec}
}

// Parse turns a raw text field into a Value: numeric text becomes a number,
// anything else stays a string.
func Parse(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && trimmed != "" {
		return Number(f)
	}
	return String(raw)
}

// IsValid reports whether v holds one of the known kinds.
func (v Value) IsValid() bool {
	return v.Kind == KindNumber || v.Kind == KindString || v.Kind == KindVector
}

// Width is the number of matrix columns v occupies.
func (v Value) Width() int {
	if v.Kind == KindVector {
		return len(v.Vec)
	}
	return 1
}

// Float returns the scalar as float64. Strings are parsed; vectors fail.
func (v Value) Float() (float64, error) {
	switch v.Kind {
	case KindNumber:
		return v.Num, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return math.NaN(), fmt.Errorf("value %q is not numeric", v.Str)
		}
		return f, nil
	default:
		return math.NaN(), fmt.Errorf("%s value has no scalar form", v.Kind)
	}
}

// Flatten appends the numeric columns of v to dst.
func (v Value) Flatten(dst []float64) ([]float64, error) {
	if v.Kind == KindVector {
		return append(dst, v.Vec...), nil
	}
	f, err := v.Float()
	if err != nil {
		return dst, err
	}
	return append(dst, f), nil
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num || (math.IsNaN(v.Num) && math.IsNaN(o.Num))
	case KindString:
		return v.Str == o.Str
	case KindVector:
		if len(v.Vec) != len(o.Vec) {
			return false
		}
		for i := range v.Vec {
			if v.Vec[i] != o.Vec[i] && !(math.IsNaN(v.Vec[i]) && math.IsNaN(o.Vec[i])) {
				return false
			}
		}
		return true
	}
	return true
}

// Interface returns the Go value held by v (float64, string or []float64).
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindVector:
		return v.Vec
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindVector:
		parts := make([]string, len(v.Vec))
		for i, f := range v.Vec {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return "<invalid>"
	}
}
