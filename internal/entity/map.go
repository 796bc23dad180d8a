package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Map is an insertion-ordered mapping from placeholder token to original
// value. One map is built per cloak call and owns the only record of how to
// reverse that call. Iteration and JSON serialization both preserve the
// order in which entries were added.
//
// Map is not safe for concurrent mutation; once built it is read-only and
// safe to share.
type Map struct {
	keys   []string
	values map[string]string
}

// NewMap returns an empty entity map.
func NewMap() *Map {
	return &Map{values: make(map[string]string)}
}

// Set adds or updates an entry. New keys keep insertion order.
func (m *Map) Set(placeholder, value string) {
	if _, ok := m.values[placeholder]; !ok {
		m.keys = append(m.keys, placeholder)
	}
	m.values[placeholder] = value
}

// Get returns the original value for a placeholder.
func (m *Map) Get(placeholder string) (string, bool) {
	v, ok := m.values[placeholder]
	return v, ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Placeholders returns the placeholder keys in insertion order.
func (m *Map) Placeholders() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *Map) Range(fn func(placeholder, value string) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// MarshalJSON encodes the map as a JSON object preserving entry order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("entity map: expected JSON object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("entity map: non-string key %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("entity map: value for %q: %w", key, err)
		}
		m.Set(key, value)
	}
	_, err = dec.Token() // closing brace
	return err
}
