package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Attributes is a string-keyed mapping of Values that remembers insertion order.
// Setting an existing key replaces its value in place.
type Attributes struct {
	keys   []string
	values map[string]Value
}

// NewAttributes returns an empty mapping with room for n keys
func NewAttributes(n int) *Attributes {
	return &Attributes{
		keys:   make([]string, 0, n),
		values: make(map[string]Value, n),
	}
}

// Set stores value under key
func (a *Attributes) Set(key string, value Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored under key
func (a *Attributes) Get(key string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key is present
func (a *Attributes) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Len returns the number of keys
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Keys returns the keys in insertion order
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Merge overlays every key of other onto a, overwriting existing keys
func (a *Attributes) Merge(other *Attributes) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		a.Set(k, other.values[k])
	}
}

// Map returns the attributes as plain Go values
func (a *Attributes) Map() map[string]any {
	out := make(map[string]any, a.Len())
	if a == nil {
		return out
	}
	for _, k := range a.keys {
		out[k] = a.values[k].Interface()
	}
	return out
}

// MarshalJSON encodes the attributes as a JSON object in key order
func (a *Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if a != nil {
		for i, k := range a.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := a.values[k].MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object of scalars, keeping key order
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("attributes must be a JSON object, got %v", tok)
	}

	out := NewAttributes(0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		out.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after attributes object")
	}

	*a = *out
	return nil
}

// EncodeAttributes serializes attributes to the text blob persisted with a record
func EncodeAttributes(a *Attributes) (string, error) {
	data, err := a.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeAttributes materializes a persisted blob. A blank blob is an empty mapping.
func DecodeAttributes(blob string) (*Attributes, error) {
	out := NewAttributes(0)
	if strings.TrimSpace(blob) == "" {
		return out, nil
	}
	if err := out.UnmarshalJSON([]byte(blob)); err != nil {
		return nil, err
	}
	return out, nil
}
