package treesitter

import (
	"strings"

	"github.com/automatique/autoapi/oracle"
)

// tsType is the concrete oracle.Type for annotated and inferred types.
// Object properties may be computed lazily so recursive declarations
// resolve to a single shared value.
type tsType struct {
	kind    oracle.TypeKind
	name    string
	text    string
	args    []oracle.Type
	members []oracle.Type

	props     []oracle.PropertySymbol
	propsFunc func() []oracle.PropertySymbol
}

func (t *tsType) Kind() oracle.TypeKind        { return t.kind }
func (t *tsType) Name() string                 { return t.name }
func (t *tsType) TypeArguments() []oracle.Type { return t.args }
func (t *tsType) Types() []oracle.Type         { return t.members }
func (t *tsType) String() string               { return t.text }

func (t *tsType) Properties() []oracle.PropertySymbol {
	if t.propsFunc != nil {
		f := t.propsFunc
		t.propsFunc = nil
		t.props = f()
	}
	return t.props
}

// aliasType defers resolution of a named declaration until first use.
// The alias itself is the cached value, so self-references inside the
// declaration see the same handle.
type aliasType struct {
	name      string
	resolve   func() oracle.Type
	target    oracle.Type
	resolving bool
}

func (a *aliasType) get() oracle.Type {
	if a.target != nil {
		return a.target
	}
	if a.resolving {
		// Direct self-reference such as `type A = A`.
		return &tsType{kind: oracle.KindAny, text: a.name}
	}
	a.resolving = true
	t := a.resolve()
	a.resolving = false
	if t == nil {
		t = anyType()
	}
	a.target = t
	return t
}

func (a *aliasType) Kind() oracle.TypeKind               { return a.get().Kind() }
func (a *aliasType) Name() string                        { return a.name }
func (a *aliasType) TypeArguments() []oracle.Type        { return a.get().TypeArguments() }
func (a *aliasType) Types() []oracle.Type                { return a.get().Types() }
func (a *aliasType) Properties() []oracle.PropertySymbol { return a.get().Properties() }
func (a *aliasType) String() string                      { return a.name }
func (a *aliasType) Target() oracle.Type                 { return a.get() }

func primitive(kind oracle.TypeKind, text string) *tsType {
	return &tsType{kind: kind, text: text}
}

func anyType() *tsType       { return primitive(oracle.KindAny, "any") }
func stringType() *tsType    { return primitive(oracle.KindString, "string") }
func numberType() *tsType    { return primitive(oracle.KindNumber, "number") }
func booleanType() *tsType   { return primitive(oracle.KindBoolean, "boolean") }
func voidType() *tsType      { return primitive(oracle.KindVoid, "void") }
func undefinedType() *tsType { return primitive(oracle.KindUndefined, "undefined") }
func nullType() *tsType      { return primitive(oracle.KindNull, "null") }

func reference(name string, args ...oracle.Type) *tsType {
	text := name
	if len(args) > 0 {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		text += "<" + strings.Join(parts, ", ") + ">"
	}
	return &tsType{kind: oracle.KindReference, name: name, text: text, args: args}
}

func arrayOf(elem oracle.Type) *tsType   { return reference("Array", elem) }
func promiseOf(elem oracle.Type) *tsType { return reference("Promise", elem) }
func setOf(elem oracle.Type) *tsType     { return reference("Set", elem) }

func objectType(name string, props []oracle.PropertySymbol) *tsType {
	t := &tsType{kind: oracle.KindObject, name: name, props: props}
	if name != "" {
		t.text = name
	} else {
		t.text = objectText(props)
	}
	return t
}

func objectText(props []oracle.PropertySymbol) string {
	if len(props) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{ ")
	for i, p := range props {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(p.Name)
		if p.Optional {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		b.WriteString(p.Type.String())
	}
	b.WriteString(" }")
	return b.String()
}

func functionType(text string) *tsType {
	return &tsType{kind: oracle.KindFunction, text: text}
}

// unionOf builds a union, flattening nested unions and dropping members
// with identical text. A single survivor is returned unwrapped.
func unionOf(members ...oracle.Type) oracle.Type {
	var flat []oracle.Type
	seen := make(map[string]bool)
	for _, m := range members {
		if m == nil {
			continue
		}
		var parts []oracle.Type
		if m.Kind() == oracle.KindUnion {
			parts = m.Types()
		} else {
			parts = []oracle.Type{m}
		}
		for _, p := range parts {
			if seen[p.String()] {
				continue
			}
			seen[p.String()] = true
			flat = append(flat, p)
		}
	}
	switch len(flat) {
	case 0:
		return primitive(oracle.KindNever, "never")
	case 1:
		return flat[0]
	}
	texts := make([]string, len(flat))
	for i, m := range flat {
		texts[i] = m.String()
	}
	return &tsType{kind: oracle.KindUnion, text: strings.Join(texts, " | "), members: flat}
}

// widen converts literal types to their base primitive, as inference of an
// unannotated return type does.
func widen(t oracle.Type) oracle.Type {
	switch t.Kind() {
	case oracle.KindStringLiteral:
		return stringType()
	case oracle.KindNumberLiteral:
		return numberType()
	case oracle.KindBooleanLiteral:
		return booleanType()
	case oracle.KindUnion:
		members := t.Types()
		widened := make([]oracle.Type, len(members))
		for i, m := range members {
			widened[i] = widen(m)
		}
		return unionOf(widened...)
	}
	return t
}

// isPromise reports whether t is a Promise reference.
func isPromise(t oracle.Type) bool {
	return t != nil && isReference(t, "Promise")
}

// awaited unwraps one level of Promise.
func awaited(t oracle.Type) oracle.Type {
	if isPromise(t) {
		if args := oracle.Resolve(t).TypeArguments(); len(args) == 1 {
			return args[0]
		}
		return anyType()
	}
	return t
}

// builtinTypes are global type names that need no declaration.
var builtinTypes = map[string]bool{
	"Array": true, "ReadonlyArray": true, "Promise": true, "PromiseLike": true,
	"Set": true, "ReadonlySet": true, "Map": true, "ReadonlyMap": true,
	"WeakMap": true, "WeakSet": true, "Date": true, "RegExp": true, "Error": true,
	"Record": true, "Partial": true, "Required": true, "Readonly": true,
	"Pick": true, "Omit": true, "Exclude": true, "Extract": true,
	"NonNullable": true, "ReturnType": true, "Parameters": true, "Awaited": true,
	"Object": true, "String": true, "Number": true, "Boolean": true,
	"Function": true, "Symbol": true, "BigInt": true, "Buffer": true,
	"Uint8Array": true, "ArrayBuffer": true, "Iterable": true, "Iterator": true,
	"AsyncIterable": true, "Generator": true, "AsyncGenerator": true,
	"Element": true, "HTMLElement": true, "Event": true, "Response": true,
	"Request": true, "URL": true, "JSON": true,
}

// canonicalReference maps read-only and promise-like builtins onto the
// reference names the decompiler understands.
func canonicalReference(name string) string {
	switch name {
	case "ReadonlyArray":
		return "Array"
	case "ReadonlySet":
		return "Set"
	case "PromiseLike":
		return "Promise"
	}
	return name
}
