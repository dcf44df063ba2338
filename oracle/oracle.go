// Package oracle defines the boundary between the route synthesis engine and
// the type-checking front end that parses and type-checks a module.
//
// The engine consumes a Program: the module's top-level statements, a Checker
// for parameter and return type lookup, and the diagnostics reported while
// loading. Any non-empty diagnostics list is fatal to a build.
package oracle

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Language selects the source dialect of a module.
type Language string

const (
	TypeScript Language = "typescript"
	JavaScript Language = "javascript"
)

// Typed reports whether the language carries static type annotations.
func (l Language) Typed() bool { return l == TypeScript }

// Ext returns the source file extension for the language.
func (l Language) Ext() string {
	if l == TypeScript {
		return ".ts"
	}
	return ".js"
}

// LanguageFromPath infers the language from a file extension.
func LanguageFromPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return TypeScript, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return JavaScript, true
	}
	return "", false
}

// Oracle loads and type-checks a module.
type Oracle interface {
	// Load parses and type-checks entry (relative to root). A Program is
	// returned even when it carries diagnostics; the error result is reserved
	// for failures to run the front end at all.
	Load(ctx context.Context, root, entry string, lang Language) (*Program, error)
}

// Program is a loaded module together with its type information.
// It is read-only once returned by Load.
type Program struct {
	Root        string
	Entry       string
	Language    Language
	Module      *Module
	Checker     Checker
	Diagnostics []Diagnostic
}

// Checker answers type questions about functions in a Program.
type Checker interface {
	// ParamType returns the declared type of the i-th parameter of fn.
	// Unannotated parameters report a KindAny type.
	ParamType(fn *Function, i int) Type

	// ReturnType returns the declared or inferred return type of fn.
	ReturnType(fn *Function) Type

	// TypeToString renders t for diagnostics.
	TypeToString(t Type) string
}

// Diagnostic is a compile error reported by the front end.
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return d.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
}

// TypeKind identifies the shape of a Type.
type TypeKind int

const (
	KindAny TypeKind = iota
	KindUnknown
	KindNever
	KindString
	KindNumber
	KindBoolean
	KindBigInt
	KindSymbol
	KindVoid
	KindUndefined
	KindNull
	KindStringLiteral
	KindNumberLiteral
	KindBooleanLiteral
	KindUnion
	KindIntersection
	KindObject    // object literal type or interface
	KindReference // named generic or class instance: Array<T>, Promise<T>, Set<T>, Date, ...
	KindTuple
	KindFunction
	KindTypeParameter
	KindEnum
)

var kindNames = [...]string{
	KindAny:            "any",
	KindUnknown:        "unknown",
	KindNever:          "never",
	KindString:         "string",
	KindNumber:         "number",
	KindBoolean:        "boolean",
	KindBigInt:         "bigint",
	KindSymbol:         "symbol",
	KindVoid:           "void",
	KindUndefined:      "undefined",
	KindNull:           "null",
	KindStringLiteral:  "string literal",
	KindNumberLiteral:  "number literal",
	KindBooleanLiteral: "boolean literal",
	KindUnion:          "union",
	KindIntersection:   "intersection",
	KindObject:         "object",
	KindReference:      "reference",
	KindTuple:          "tuple",
	KindFunction:       "function",
	KindTypeParameter:  "type parameter",
	KindEnum:           "enum",
}

func (k TypeKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Type is an opaque type handle produced by a Checker.
// Implementations must be comparable so callers can track visited types.
type Type interface {
	Kind() TypeKind

	// Name is the symbol name of a reference, interface or alias, e.g.
	// "Promise", "Array", "Set", "Date" or "User". Empty for anonymous types.
	Name() string

	// TypeArguments returns the type arguments of a reference.
	TypeArguments() []Type

	// Types returns union or intersection members, or tuple elements.
	Types() []Type

	// Properties returns the own properties of an object type.
	Properties() []PropertySymbol

	// String renders the type as source text.
	String() string
}

// Aliased is implemented by types that stand for another type, such as a
// named type alias. Name and String report the alias; Target is the type it
// denotes.
type Aliased interface {
	Type
	Target() Type
}

// maxAliasChain bounds Resolve on alias cycles.
const maxAliasChain = 64

// Resolve follows alias chains to the underlying type. Name-based checks
// ("is this a Promise?") must run on the resolved type.
func Resolve(t Type) Type {
	for range maxAliasChain {
		a, ok := t.(Aliased)
		if !ok {
			return t
		}
		next := a.Target()
		if next == nil || next == t {
			return t
		}
		t = next
	}
	return t
}

// PropertySymbol is a named member of an object type.
type PropertySymbol struct {
	Name     string
	Type     Type
	Optional bool
}
