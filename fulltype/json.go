package fulltype

import (
	"bytes"
	"encoding/json"
	"sort"
)

// JSON serialization support for FullType values.
// All types include a "type" field for discrimination.

// MarshalJSON implements json.Marshaler for Primitive.
func (p *Primitive) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type string `json:"type"`
	}{
		Type: string(p.Name),
	})
}

// MarshalJSON implements json.Marshaler for Array.
func (a *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type    string   `json:"type"`
		Element FullType `json:"element"`
	}{
		Type:    "array",
		Element: a.Element,
	})
}

// MarshalJSON implements json.Marshaler for Set.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type    string   `json:"type"`
		Element FullType `json:"element"`
	}{
		Type:    "set",
		Element: s.Element,
	})
}

// MarshalJSON implements json.Marshaler for Object.
// Properties are written in declaration order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object","properties":{`)
	var optional []string
	for i, p := range o.Properties {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeProperty(&buf, p.Name, p.Type); err != nil {
			return nil, err
		}
		if p.Optional {
			optional = append(optional, p.Name)
		}
	}
	buf.WriteByte('}')
	if len(optional) > 0 {
		buf.WriteString(`,"optional":`)
		b, err := json.Marshal(optional)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Union.
func (u *Union) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type  string     `json:"type"`
		Types []FullType `json:"types"`
	}{
		Type:  "union",
		Types: u.Types,
	})
}

func writeProperty(buf *bytes.Buffer, name string, t FullType) error {
	k, err := json.Marshal(name)
	if err != nil {
		return err
	}
	v, err := json.Marshal(t)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// Key returns the canonical serialization of t. Two types are structurally
// equal iff their keys are equal. Object properties are sorted by name so
// declaration order does not affect equality.
func Key(t FullType) string {
	var buf bytes.Buffer
	writeKey(&buf, t)
	return buf.String()
}

func writeKey(buf *bytes.Buffer, t FullType) {
	switch t := t.(type) {
	case nil:
		buf.WriteString("?")
	case *Primitive:
		buf.WriteString(string(t.Name))
	case *Array:
		buf.WriteString("array<")
		writeKey(buf, t.Element)
		buf.WriteByte('>')
	case *Set:
		buf.WriteString("set<")
		writeKey(buf, t.Element)
		buf.WriteByte('>')
	case *Object:
		props := make([]Property, len(t.Properties))
		copy(props, t.Properties)
		sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
		buf.WriteByte('{')
		for i, p := range props {
			if i > 0 {
				buf.WriteByte(';')
			}
			name, _ := json.Marshal(p.Name)
			buf.Write(name)
			if p.Optional {
				buf.WriteByte('?')
			}
			buf.WriteByte(':')
			writeKey(buf, p.Type)
		}
		buf.WriteByte('}')
	case *Union:
		keys := make([]string, len(t.Types))
		for i, m := range t.Types {
			keys[i] = Key(m)
		}
		sort.Strings(keys)
		buf.WriteString("union(")
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte('|')
			}
			buf.WriteString(k)
		}
		buf.WriteByte(')')
	}
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b FullType) bool {
	return Key(a) == Key(b)
}

// Dedupe returns the members of types with structural duplicates removed.
// The first occurrence of each shape is kept.
func Dedupe(types []FullType) []FullType {
	seen := make(map[string]bool, len(types))
	out := make([]FullType, 0, len(types))
	for _, t := range types {
		k := Key(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}
