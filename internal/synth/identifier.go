package synth

import (
	"strings"
	"unicode"
)

// JavaScript reserved words. Keys that match one are reached with bracket
// access, and parameter locals that match one are renamed.
var reservedWords = map[string]bool{
	"await":      true,
	"break":      true,
	"case":       true,
	"catch":      true,
	"class":      true,
	"const":      true,
	"continue":   true,
	"debugger":   true,
	"default":    true,
	"delete":     true,
	"do":         true,
	"else":       true,
	"enum":       true,
	"export":     true,
	"extends":    true,
	"false":      true,
	"finally":    true,
	"for":        true,
	"function":   true,
	"if":         true,
	"implements": true,
	"import":     true,
	"in":         true,
	"instanceof": true,
	"interface":  true,
	"let":        true,
	"new":        true,
	"null":       true,
	"package":    true,
	"private":    true,
	"protected":  true,
	"public":     true,
	"return":     true,
	"static":     true,
	"super":      true,
	"switch":     true,
	"this":       true,
	"throw":      true,
	"true":       true,
	"try":        true,
	"typeof":     true,
	"var":        true,
	"void":       true,
	"while":      true,
	"with":       true,
	"yield":      true,
}

// handlerNames are bound inside every generated handler or at the top of the
// server file, so parameter locals must not reuse them.
var handlerNames = map[string]bool{
	"req":        true,
	"res":        true,
	"response":   true,
	"app":        true,
	"express":    true,
	"bodyParser": true,
	"morgan":     true,
	"isPromise":  true,
	RootAlias:    true,
}

// isIdentifier reports whether name can follow a dot in a member expression.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	return !reservedWords[name]
}

// member returns base.key, or base["key"] when key is not a plain identifier.
func member(base, key string) string {
	if isIdentifier(key) {
		return base + "." + key
	}
	return base + "[" + quote(key) + "]"
}

// Alias builds the call expression for the leaf reached by keys.
func Alias(keys []string) string {
	alias := RootAlias
	for _, k := range keys {
		alias = member(alias, k)
	}
	return alias
}

// localName returns a variable name for a parameter that does not collide with
// names the handler already binds.
func localName(name string, taken map[string]bool) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsLetter(r) || r == '_' || r == '$' || (i > 0 && unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	local := b.String()
	if local == "" {
		local = "_"
	}
	for reservedWords[local] || handlerNames[local] || taken[local] {
		local += "_"
	}
	taken[local] = true
	return local
}
