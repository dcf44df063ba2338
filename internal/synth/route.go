// Package synth turns exported functions into Express route handlers and
// route metadata.
package synth

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/fulltype"
	"github.com/automatique/autoapi/internal/decompile"
	"github.com/automatique/autoapi/internal/exports"
	"github.com/automatique/autoapi/oracle"
)

// RootAlias is the name the generated server binds the imported module to.
const RootAlias = "__API"

// DefaultDebugEnv is the environment variable that enables error detail in
// generated handlers.
const DefaultDebugEnv = "DEBUG"

// Synthesizer generates routes for the leaves of one export tree.
type Synthesizer struct {
	Checker oracle.Checker

	// Typed selects TypeScript annotations in emitted code.
	Typed bool

	// DebugEnv names the environment variable checked by generated handlers.
	// Empty means DefaultDebugEnv.
	DebugEnv string

	Logger *slog.Logger
}

// Route is the output of synthesizing one leaf.
type Route struct {
	Code   string
	Record *RouteRecord

	// Promise reports whether the handler carries the runtime promise branch.
	Promise bool
}

// Route synthesizes the handler for leaf, served at path and invoked through
// alias. Errors are attributed to alias.
func (s *Synthesizer) Route(leaf *exports.Leaf, alias, path string) (*Route, error) {
	fn := leaf.Func

	raw := s.Checker.ReturnType(fn)
	promise := isPromiseBearing(raw)
	ret, err := decompile.Decompile(raw, false, true)
	if err != nil {
		return nil, apierr.Attribute(apierr.From(err).WithDetail("position", "return"), alias)
	}

	params := make([]Param, 0, len(fn.Params))
	for i, p := range fn.Params {
		if p.Rest || p.Destructured {
			return nil, apierr.Errorf(apierr.CodeUnsupportedParameter,
				"Parameter %s cannot be read from a request; use a named parameter", p.Name).
				WithDetail("parameter", p.Name).
				WithFunction(alias)
		}
		ft, err := decompile.Decompile(s.Checker.ParamType(fn, i), true, false)
		if err != nil {
			return nil, apierr.Attribute(apierr.From(err).WithDetail("parameter", p.Name), alias)
		}
		docParam, _ := fn.Doc.Param(p.Name)
		optional := p.Optional || p.HasDefault || docParam.Optional
		if optional {
			ft = dropVoid(ft)
		}
		params = append(params, Param{
			Name:     p.Name,
			Type:     ft,
			Optional: optional,
			Inline:   fulltype.IsInlineable(ft),
			Doc:      docParam.Text,
		})
	}

	method := POST
	if len(params) < 2 && allInline(params) {
		method = GET
	}
	for i := range params {
		params[i].Inline = method == GET
	}

	record := &RouteRecord{
		Alias:  alias,
		Method: method,
		Path:   path,
		Params: params,
		Return: ret,
	}
	if fn.Doc != nil {
		record.Doc.Text = fn.Doc.Text
		if fn.Doc.Returns != nil {
			record.Doc.Return = fn.Doc.Returns.Text
		}
	}

	code, err := s.handler(record, promise)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, err, "render handler").WithFunction(alias)
	}
	return &Route{Code: docBlock(record) + code, Record: record, Promise: promise}, nil
}

func (s *Synthesizer) debugEnv() string {
	if s.DebugEnv == "" {
		return DefaultDebugEnv
	}
	return s.DebugEnv
}

func (s *Synthesizer) handler(r *RouteRecord, promise bool) (string, error) {
	taken := make(map[string]bool)
	data := handlerData{
		Method:   r.Method,
		Path:     r.Path,
		Typed:    s.Typed,
		Promise:  promise,
		DebugVar: member("process.env", s.debugEnv()),
	}
	args := make([]string, len(r.Params))
	for i, p := range r.Params {
		source := "req.body"
		if p.Inline {
			source = "req.query"
		}
		hp := handlerParam{
			Name:     p.Name,
			Local:    localName(p.Name, taken),
			Source:   member(source, p.Name),
			Optional: p.Optional,
		}
		if p.Inline {
			hp.Coerce = coercion(p.Type)
		}
		args[i] = hp.Local
		data.Params = append(data.Params, hp)
	}
	data.Call = r.Alias + "(" + strings.Join(args, ", ") + ")"

	var buf bytes.Buffer
	if err := handlerTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// isPromiseBearing reports whether the undecompiled return type is a Promise,
// or a union with a Promise member.
func isPromiseBearing(t oracle.Type) bool {
	if t == nil {
		return false
	}
	t = oracle.Resolve(t)
	switch t.Kind() {
	case oracle.KindReference:
		return t.Name() == "Promise"
	case oracle.KindUnion:
		for _, m := range t.Types() {
			if m == nil {
				continue
			}
			if m = oracle.Resolve(m); m.Kind() == oracle.KindReference && m.Name() == "Promise" {
				return true
			}
		}
	}
	return false
}

// dropVoid removes the void member an optional parameter's type may carry.
func dropVoid(t fulltype.FullType) fulltype.FullType {
	u, ok := t.(*fulltype.Union)
	if !ok {
		return t
	}
	keep := make([]fulltype.FullType, 0, len(u.Types))
	for _, m := range u.Types {
		if p, ok := m.(*fulltype.Primitive); ok && p.Name == fulltype.NameVoid {
			continue
		}
		keep = append(keep, m)
	}
	if len(keep) == 0 {
		return t
	}
	return fulltype.Simplify(keep)
}

func allInline(params []Param) bool {
	for _, p := range params {
		if !p.Inline {
			return false
		}
	}
	return true
}

func coercion(t fulltype.FullType) string {
	p, ok := t.(*fulltype.Primitive)
	if !ok {
		return ""
	}
	switch p.Name {
	case fulltype.NameNumber:
		return "number"
	case fulltype.NameBoolean:
		return "boolean"
	}
	return ""
}
