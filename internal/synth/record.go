package synth

import (
	"bytes"
	"encoding/json"

	"github.com/automatique/autoapi/fulltype"
)

// Method is the HTTP method of a synthesized route.
type Method string

const (
	GET  Method = "get"
	POST Method = "post"
)

// Param describes one parameter of a route.
type Param struct {
	Name     string            `json:"-"`
	Type     fulltype.FullType `json:"type"`
	Optional bool              `json:"optional"`
	Inline   bool              `json:"inline"`
	Doc      string            `json:"doc,omitempty"`
}

// Doc is the documentation attached to a route.
type Doc struct {
	Text   string `json:"text,omitempty"`
	Return string `json:"return,omitempty"`
}

// RouteRecord is the metadata for one synthesized route.
type RouteRecord struct {
	Alias  string
	Method Method
	Path   string
	Params []Param
	Return fulltype.FullType
	Doc    Doc
}

// Param returns the parameter called name.
func (r *RouteRecord) Param(name string) (Param, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// MarshalJSON writes the record with params keyed by name in declaration
// order.
func (r *RouteRecord) MarshalJSON() ([]byte, error) {
	var params bytes.Buffer
	params.WriteByte('{')
	for i, p := range r.Params {
		if i > 0 {
			params.WriteByte(',')
		}
		if err := writeMember(&params, p.Name, p); err != nil {
			return nil, err
		}
	}
	params.WriteByte('}')

	return json.Marshal(&struct {
		Type   string            `json:"type"`
		Alias  string            `json:"alias"`
		Method Method            `json:"method"`
		Path   string            `json:"path"`
		Params json.RawMessage   `json:"params"`
		Return fulltype.FullType `json:"return"`
		Doc    Doc               `json:"doc"`
	}{
		Type:   "func",
		Alias:  r.Alias,
		Method: r.Method,
		Path:   r.Path,
		Params: params.Bytes(),
		Return: r.Return,
		Doc:    r.Doc,
	})
}

// RouteEntry is one named member of a MultiRoute: either a nested tree or a
// route record.
type RouteEntry struct {
	Key    string
	Export *MultiRoute
	Route  *RouteRecord
}

// MultiRoute mirrors the export tree, with route records at the leaves.
type MultiRoute struct {
	Entries []RouteEntry
}

// Lookup returns the entry stored under key.
func (m *MultiRoute) Lookup(key string) (RouteEntry, bool) {
	for _, e := range m.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return RouteEntry{}, false
}

// Records returns every route record in depth-first order.
func (m *MultiRoute) Records() []*RouteRecord {
	var out []*RouteRecord
	var walk func(*MultiRoute)
	walk = func(m *MultiRoute) {
		for _, e := range m.Entries {
			if e.Route != nil {
				out = append(out, e.Route)
			} else if e.Export != nil {
				walk(e.Export)
			}
		}
	}
	walk(m)
	return out
}

// MarshalJSON writes nested trees as {"type":"export","export":{...}} and
// records as {"type":"func",...}, keyed in entry order.
func (m *MultiRoute) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		var v any
		if e.Route != nil {
			v = e.Route
		} else {
			v = &struct {
				Type   string      `json:"type"`
				Export *MultiRoute `json:"export"`
			}{Type: "export", Export: orEmpty(e.Export)}
		}
		if err := writeMember(&buf, e.Key, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func orEmpty(m *MultiRoute) *MultiRoute {
	if m == nil {
		return &MultiRoute{}
	}
	return m
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
