package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Mapping is an insertion-ordered map of configuration keys to values.
//
// Values are one of: *Mapping, []any, string, int, float64, bool, or nil.
// This is the discriminated representation every component works on; there
// is no runtime type probing beyond switching on these shapes.
type Mapping struct {
	keys   []string
	values map[string]any
}

// NewMapping returns an empty ordered mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]any)}
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
// The returned slice is a copy and safe to modify.
func (m *Mapping) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Get returns the value for key and whether it is present.
func (m *Mapping) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. A new key is appended at the end;
// an existing key keeps its position.
func (m *Mapping) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key if present.
func (m *Mapping) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// GetMapping returns the nested mapping under key, or nil if the key is
// absent or holds a non-mapping value.
func (m *Mapping) GetMapping(key string) *Mapping {
	if v, ok := m.values[key]; ok {
		if sub, ok := v.(*Mapping); ok {
			return sub
		}
	}
	return nil
}

// GetString returns the string under key, or "" if absent or not a string.
func (m *Mapping) GetString(key string) string {
	if v, ok := m.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ToPlain converts the mapping to plain map[string]any / []any values,
// suitable for schema validation or encoding with encoding/json.
// Key order is not represented in the result.
func (m *Mapping) ToPlain() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = toPlainValue(m.values[k])
	}
	return out
}

func toPlainValue(v any) any {
	switch val := v.(type) {
	case *Mapping:
		return val.ToPlain()
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = toPlainValue(e)
		}
		return out
	default:
		return v
	}
}

// sortedCopy returns a deep copy with keys sorted lexically at every level.
func (m *Mapping) sortedCopy() *Mapping {
	out := NewMapping()
	keys := m.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		out.Set(k, sortedValue(m.values[k]))
	}
	return out
}

func sortedValue(v any) any {
	switch val := v.(type) {
	case *Mapping:
		return val.sortedCopy()
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = sortedValue(e)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the mapping as a JSON object in key insertion order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the mapping as a YAML mapping node in key
// insertion order.
func (m *Mapping) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		keyNode := &yaml.Node{}
		keyNode.SetString(k)
		valNode := &yaml.Node{}
		if err := valNode.Encode(m.values[k]); err != nil {
			return nil, fmt.Errorf("encode value for key %q: %w", k, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// UnmarshalYAML implements yaml.Unmarshaler so a Mapping can be decoded
// directly from a YAML node, preserving key order.
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	v, err := fromYAMLNode(node)
	if err != nil {
		return err
	}
	sub, ok := v.(*Mapping)
	if !ok {
		return fmt.Errorf("cannot unmarshal %T into a mapping", v)
	}
	*m = *sub
	return nil
}

// fromYAMLNode converts a parsed YAML node into the mapping representation.
func fromYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return fromYAMLNode(node.Alias)
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: non-scalar mapping key", node.Content[i].Line)
			}
			val, err := fromYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			val, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind", node.Line)
	}
}
