package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which member of the Value union is set
type Kind uint8

const (
	KindNull   Kind = iota // No value
	KindString             // Free text
	KindInt                // 64-bit signed integer
	KindFloat              // 64-bit float
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "null"
	}
}

// Value is a tagged union of the scalar types a client attribute can hold.
// The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// Null returns the null value
func Null() Value { return Value{} }

// String wraps a string
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int wraps an integer
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind reports which member is set
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string member and whether it is set
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int64 returns the integer member and whether it is set
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInt }

// Float64 returns the float member and whether it is set
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat }

// Interface returns the value as a plain Go value (nil, string, int64 or float64)
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return "null"
	}
}

// MarshalJSON encodes the value as a bare JSON scalar. Floats always carry a
// fraction or exponent so they decode back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("unsupported float value: %v", v.f)
		}
		format := byte('f')
		if abs := math.Abs(v.f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
			format = 'e'
		}
		s := strconv.FormatFloat(v.f, format, -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Numbers without a fraction or exponent
// become integers when they fit in int64, every other number becomes a float.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}

	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("invalid literal %q", data)
		}
		*v = Null()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case '{', '[', 't', 'f':
		return fmt.Errorf("unsupported attribute value %s", data)
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	parsed, err := valueFromNumber(n)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromNumber(n json.Number) (Value, error) {
	raw := n.String()
	if !strings.ContainsAny(raw, ".eE") {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{}, fmt.Errorf("parse number %q: %w", raw, err)
	}
	return Float(f), nil
}
