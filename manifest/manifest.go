// Package manifest reads, validates and composes package.json manifests.
//
// A Package keeps every field of the caller's manifest verbatim and in its
// original order. Only the dependencies and devDependencies fields are
// decoded and rewritten.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/go-playground/validator/v10"
)

const (
	keyDependencies    = "dependencies"
	keyDevDependencies = "devDependencies"
)

// Package is a package.json manifest.
type Package struct {
	Dependencies    map[string]string
	DevDependencies map[string]string

	// fields holds every top-level member in source order, including the
	// dependency fields as originally written.
	fields []field
}

type field struct {
	key   string
	value json.RawMessage
}

// Parse decodes a package.json document. The document must be a JSON object.
func Parse(data []byte) (*Package, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("parse package.json: top level must be an object")
	}

	p := &Package{}
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse package.json: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parse package.json: unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("parse package.json: field %q: %w", key, err)
		}
		// Later duplicates replace earlier ones, as JSON.parse does.
		if i, dup := seen[key]; dup {
			p.fields[i].value = value
		} else {
			seen[key] = len(p.fields)
			p.fields = append(p.fields, field{key: key, value: value})
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}

	for _, f := range p.fields {
		var target *map[string]string
		switch f.key {
		case keyDependencies:
			target = &p.Dependencies
		case keyDevDependencies:
			target = &p.DevDependencies
		default:
			continue
		}
		if err := json.Unmarshal(f.value, target); err != nil {
			return nil, fmt.Errorf("parse package.json: %s must map names to version strings: %w", f.key, err)
		}
	}
	return p, nil
}

// Read parses the package.json file at path.
func Read(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Field returns the raw JSON value of a top-level field.
func (p *Package) Field(key string) (json.RawMessage, bool) {
	for _, f := range p.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// Keys returns the top-level field names in output order.
func (p *Package) Keys() []string {
	var keys []string
	hasDeps, hasDev := false, false
	for _, f := range p.fields {
		keys = append(keys, f.key)
		hasDeps = hasDeps || f.key == keyDependencies
		hasDev = hasDev || f.key == keyDevDependencies
	}
	if !hasDeps && p.Dependencies != nil {
		keys = append(keys, keyDependencies)
	}
	if !hasDev && p.DevDependencies != nil {
		keys = append(keys, keyDevDependencies)
	}
	return keys
}

// Name returns the package name, or "" when absent or not a string.
func (p *Package) Name() string { return p.stringField("name") }

// Version returns the package version, or "" when absent or not a string.
func (p *Package) Version() string { return p.stringField("version") }

func (p *Package) stringField(key string) string {
	raw, ok := p.Field(key)
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// Clone returns a deep copy of p.
func (p *Package) Clone() *Package {
	if p == nil {
		return &Package{}
	}
	c := &Package{
		Dependencies:    maps.Clone(p.Dependencies),
		DevDependencies: maps.Clone(p.DevDependencies),
		fields:          make([]field, len(p.fields)),
	}
	for i, f := range p.fields {
		c.fields[i] = field{key: f.key, value: append(json.RawMessage(nil), f.value...)}
	}
	return c
}

// MarshalJSON writes the fields in source order. Dependency fields are
// rewritten from the maps; they are appended when the source lacked them.
func (p *Package) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		var value []byte
		switch key {
		case keyDependencies:
			value, err = json.Marshal(p.Dependencies)
		case keyDevDependencies:
			value, err = json.Marshal(p.DevDependencies)
		default:
			value, _ = p.Field(key)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Indent renders p as indented JSON with a trailing newline.
func (p *Package) Indent() ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// view is the validated projection of a manifest.
type view struct {
	Name            string            `validate:"omitempty,max=214,printascii,lowercase"`
	Dependencies    map[string]string `validate:"dive,keys,required,max=214,endkeys,required"`
	DevDependencies map[string]string `validate:"dive,keys,required,max=214,endkeys,required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the fields the composer relies on: the package name, when
// present, must be a legal npm name, and dependency entries must have
// non-empty names and version ranges.
func (p *Package) Validate() error {
	return validate.Struct(view{
		Name:            p.Name(),
		Dependencies:    p.Dependencies,
		DevDependencies: p.DevDependencies,
	})
}
