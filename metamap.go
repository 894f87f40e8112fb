package listfile

import "fmt"

// MetaMap is an ordered dictionary of user-supplied metadata, written once
// into a listfile's header and never mutated afterward. Keys are unique,
// non-empty strings; values are opaque byte strings. Insertion order is
// preserved across a write/read round trip.
type MetaMap struct {
	keys   []string
	values map[string][]byte
}

// NewMetaMap returns an empty metadata map.
func NewMetaMap() *MetaMap {
	return &MetaMap{values: make(map[string][]byte)}
}

// Set adds or overwrites key's value. key must be non-empty.
func (m *MetaMap) Set(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("listfile: metadata key must not be empty")
	}
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.values[key] = cp
	return nil
}

// Get returns key's value and whether it was present.
func (m *MetaMap) Get(key string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries.
func (m *MetaMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the metadata keys in insertion order.
func (m *MetaMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// entries returns (key, value) pairs in insertion order, for encoding.
func (m *MetaMap) entries() [][2][]byte {
	if m == nil {
		return nil
	}
	out := make([][2][]byte, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, [2][]byte{[]byte(k), m.values[k]})
	}
	return out
}
