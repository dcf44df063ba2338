package treesitter

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/automatique/autoapi/oracle"
)

// typeEnv binds type parameter names to types.
type typeEnv map[string]oracle.Type

func (e typeEnv) with(name string, t oracle.Type) typeEnv {
	out := make(typeEnv, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	out[name] = t
	return out
}

// resolver turns type annotation syntax into oracle.Type values.
type resolver struct {
	src     []byte
	decls   map[string]*sitter.Node // interfaces, aliases, classes, enums
	imports map[string]bool
	cache   map[string]oracle.Type
	jsdoc   map[string]oracle.Type
}

func newResolver(src []byte) *resolver {
	return &resolver{
		src:     src,
		decls:   make(map[string]*sitter.Node),
		imports: make(map[string]bool),
		cache:   make(map[string]oracle.Type),
		jsdoc:   make(map[string]oracle.Type),
	}
}

// index records every named type declaration in the tree, at any depth, so
// lookups and name diagnostics see ambient and exported declarations alike.
func (r *resolver) index(root *sitter.Node) {
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "interface_declaration", "type_alias_declaration", "class_declaration",
			"abstract_class_declaration", "enum_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				if _, dup := r.decls[content(name, r.src)]; !dup {
					r.decls[content(name, r.src)] = n
				}
			}
		case "import_statement":
			for _, name := range importedNames(n, r.src) {
				r.imports[name] = true
			}
			return
		}
		for _, c := range namedChildren(n) {
			walk(c)
		}
	}
	walk(root)
}

// typeParams extends env with the parameters declared by a
// type_parameters node.
func (r *resolver) typeParams(n *sitter.Node, src []byte, env typeEnv) typeEnv {
	for _, p := range namedChildren(n) {
		if p.Type() != "type_parameter" {
			continue
		}
		name := content(p.ChildByFieldName("name"), src)
		if name == "" {
			continue
		}
		env = env.with(name, &tsType{kind: oracle.KindTypeParameter, name: name, text: name})
	}
	return env
}

func (r *resolver) resolve(n *sitter.Node, src []byte, env typeEnv) oracle.Type {
	if n == nil {
		return anyType()
	}
	switch n.Type() {
	case "type_annotation", "opting_type_annotation", "omitting_type_annotation",
		"parenthesized_type", "readonly_type", "default_type", "constraint":
		return r.resolve(firstNamed(n), src, env)
	case "predefined_type":
		return predefined(content(n, src))
	case "literal_type":
		return r.literal(n, src)
	case "template_literal_type":
		return primitive(oracle.KindString, content(n, src))
	case "type_identifier":
		return r.lookup(content(n, src), nil, env)
	case "generic_type":
		var args []oracle.Type
		for _, a := range namedChildren(n.ChildByFieldName("type_arguments")) {
			args = append(args, r.resolve(a, src, env))
		}
		name := n.ChildByFieldName("name")
		if name != nil && name.Type() == "type_identifier" {
			return r.lookup(content(name, src), args, env)
		}
		return reference(content(name, src), args...)
	case "array_type":
		return arrayOf(r.resolve(firstNamed(n), src, env))
	case "union_type":
		var members []oracle.Type
		for _, c := range namedChildren(n) {
			members = append(members, r.resolve(c, src, env))
		}
		return unionOf(members...)
	case "intersection_type":
		var members []oracle.Type
		for _, c := range namedChildren(n) {
			members = append(members, r.resolve(c, src, env))
		}
		return &tsType{kind: oracle.KindIntersection, members: members, text: compact(content(n, src))}
	case "object_type":
		body := n
		t := objectType("", nil)
		t.text = compact(content(n, src))
		t.propsFunc = func() []oracle.PropertySymbol { return r.signatures(body, src, env) }
		return t
	case "tuple_type":
		var members []oracle.Type
		for _, c := range namedChildren(n) {
			members = append(members, r.resolve(c, src, env))
		}
		return &tsType{kind: oracle.KindTuple, members: members, text: compact(content(n, src))}
	case "function_type", "constructor_type":
		return functionType(compact(content(n, src)))
	}
	return &tsType{kind: oracle.KindUnknown, text: compact(content(n, src))}
}

func predefined(text string) oracle.Type {
	switch text {
	case "string":
		return stringType()
	case "number":
		return numberType()
	case "boolean":
		return booleanType()
	case "void":
		return voidType()
	case "undefined":
		return undefinedType()
	case "null":
		return nullType()
	case "any":
		return anyType()
	case "unknown":
		return primitive(oracle.KindUnknown, "unknown")
	case "never":
		return primitive(oracle.KindNever, "never")
	case "bigint":
		return primitive(oracle.KindBigInt, "bigint")
	case "symbol", "unique symbol":
		return primitive(oracle.KindSymbol, text)
	case "object":
		return &tsType{kind: oracle.KindUnknown, text: "object"}
	}
	return &tsType{kind: oracle.KindUnknown, text: text}
}

func (r *resolver) literal(n *sitter.Node, src []byte) oracle.Type {
	text := content(n, src)
	c := firstNamed(n)
	if c == nil {
		return predefined(text)
	}
	switch c.Type() {
	case "string":
		return primitive(oracle.KindStringLiteral, text)
	case "number", "unary_expression":
		return primitive(oracle.KindNumberLiteral, text)
	case "true", "false":
		return primitive(oracle.KindBooleanLiteral, text)
	case "null":
		return nullType()
	case "undefined":
		return undefinedType()
	}
	return predefined(text)
}

func (r *resolver) lookup(name string, args []oracle.Type, env typeEnv) oracle.Type {
	if t, ok := env[name]; ok {
		return t
	}
	if decl, ok := r.decls[name]; ok {
		return r.declared(name, decl, args)
	}
	if builtinTypes[name] {
		switch name {
		case "Readonly", "NonNullable":
			if len(args) == 1 {
				return args[0]
			}
		case "Awaited":
			if len(args) == 1 {
				return awaited(args[0])
			}
		}
		return reference(canonicalReference(name), args...)
	}
	if r.imports[name] {
		return reference(name, args...)
	}
	return &tsType{kind: oracle.KindUnknown, name: name, text: name}
}

// declared resolves a locally declared type name, caching by instantiation
// so recursive references share one handle.
func (r *resolver) declared(name string, decl *sitter.Node, args []oracle.Type) oracle.Type {
	key := name
	if len(args) > 0 {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		key = name + "<" + strings.Join(parts, ", ") + ">"
	}
	if t, ok := r.cache[key]; ok {
		return t
	}

	switch decl.Type() {
	case "class_declaration", "abstract_class_declaration":
		t := reference(name, args...)
		r.cache[key] = t
		return t
	case "enum_declaration":
		t := &tsType{kind: oracle.KindEnum, name: name, text: name}
		r.cache[key] = t
		return t
	}

	env := r.bind(decl.ChildByFieldName("type_parameters"), args)
	alias := &aliasType{name: key}
	alias.resolve = func() oracle.Type {
		if decl.Type() == "interface_declaration" {
			return r.interfaceType(key, decl, env)
		}
		return r.resolve(decl.ChildByFieldName("value"), r.src, env)
	}
	r.cache[key] = alias
	return alias
}

// bind maps declared type parameters onto args, falling back to defaults
// and then to any.
func (r *resolver) bind(params *sitter.Node, args []oracle.Type) typeEnv {
	env := typeEnv{}
	i := 0
	for _, p := range namedChildren(params) {
		if p.Type() != "type_parameter" {
			continue
		}
		name := content(p.ChildByFieldName("name"), r.src)
		switch {
		case i < len(args):
			env[name] = args[i]
		case p.ChildByFieldName("value") != nil:
			env[name] = r.resolve(p.ChildByFieldName("value"), r.src, env)
		default:
			env[name] = anyType()
		}
		i++
	}
	return env
}

func (r *resolver) interfaceType(name string, decl *sitter.Node, env typeEnv) oracle.Type {
	t := objectType(name, nil)
	t.propsFunc = func() []oracle.PropertySymbol {
		own := r.signatures(decl.ChildByFieldName("body"), r.src, env)
		var inherited []oracle.PropertySymbol
		for _, c := range namedChildren(decl) {
			if c.Type() != "extends_type_clause" {
				continue
			}
			for _, base := range namedChildren(c) {
				inherited = append(inherited, r.resolve(base, r.src, env).Properties()...)
			}
		}
		return mergeProps(inherited, own)
	}
	return t
}

// mergeProps appends own after inherited, letting own members override.
func mergeProps(inherited, own []oracle.PropertySymbol) []oracle.PropertySymbol {
	if len(inherited) == 0 {
		return own
	}
	overridden := make(map[string]bool, len(own))
	for _, p := range own {
		overridden[p.Name] = true
	}
	var out []oracle.PropertySymbol
	for _, p := range inherited {
		if !overridden[p.Name] {
			out = append(out, p)
		}
	}
	return append(out, own...)
}

func (r *resolver) signatures(body *sitter.Node, src []byte, env typeEnv) []oracle.PropertySymbol {
	var props []oracle.PropertySymbol
	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "property_signature":
			name, _ := propertyKey(c.ChildByFieldName("name"), src)
			typ := oracle.Type(anyType())
			if tn := c.ChildByFieldName("type"); tn != nil {
				typ = r.resolve(tn, src, env)
			}
			props = append(props, oracle.PropertySymbol{Name: name, Type: typ, Optional: hasToken(c, "?")})
		case "method_signature":
			name, _ := propertyKey(c.ChildByFieldName("name"), src)
			props = append(props, oracle.PropertySymbol{
				Name:     name,
				Type:     functionType(compact(content(c, src))),
				Optional: hasToken(c, "?"),
			})
		}
	}
	return props
}

// jsdocType resolves the text of a JSDoc {type} by parsing it as the
// right-hand side of a TypeScript type alias.
func (r *resolver) jsdocType(ctx context.Context, text string) oracle.Type {
	text = normalizeJSDocType(text)
	if t, ok := r.jsdoc[text]; ok {
		return t
	}
	t := r.parseJSDocType(ctx, text)
	r.jsdoc[text] = t
	return t
}

func (r *resolver) parseJSDocType(ctx context.Context, text string) oracle.Type {
	if text == "*" || text == "" {
		return anyType()
	}
	src := []byte(fmt.Sprintf("type __T = %s;", text))
	parser := sitter.NewParser()
	parser.SetLanguage(typescript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return anyType()
	}
	root := tree.RootNode()
	if root == nil || root.HasError() {
		return &tsType{kind: oracle.KindUnknown, text: text}
	}
	decl := firstNamed(root)
	if decl == nil || decl.Type() != "type_alias_declaration" {
		return &tsType{kind: oracle.KindUnknown, text: text}
	}
	return r.resolve(decl.ChildByFieldName("value"), src, nil)
}

// normalizeJSDocType rewrites Closure-style syntax into TypeScript syntax.
func normalizeJSDocType(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "=")
	text = strings.ReplaceAll(text, ".<", "<")
	switch {
	case strings.HasPrefix(text, "?") && len(text) > 1:
		text = text[1:] + " | null"
	case strings.HasPrefix(text, "!"):
		text = text[1:]
	}
	switch text {
	case "Object", "object", "Function", "function":
		return "*"
	}
	return text
}

// undeclaredNames reports type names used in annotations that resolve to
// nothing, the way a type checker reports "Cannot find name".
func (r *resolver) undeclaredNames(root *sitter.Node, file string) []oracle.Diagnostic {
	typeParams := make(map[string]bool)
	var collect func(*sitter.Node)
	collect = func(n *sitter.Node) {
		if n.Type() == "type_parameter" {
			typeParams[content(n.ChildByFieldName("name"), r.src)] = true
		}
		for _, c := range namedChildren(n) {
			collect(c)
		}
	}
	collect(root)

	var diags []oracle.Diagnostic
	seen := make(map[string]bool)
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "nested_type_identifier", "type_query", "import_statement":
			return
		case "type_identifier":
			name := content(n, r.src)
			if r.knownType(name) || typeParams[name] || isDeclarationName(n) || seen[name] {
				return
			}
			seen[name] = true
			p := pos(n)
			diags = append(diags, oracle.Diagnostic{
				File:    file,
				Line:    p.Line,
				Column:  p.Column,
				Message: fmt.Sprintf("Cannot find name '%s'.", name),
			})
			return
		}
		for _, c := range namedChildren(n) {
			walk(c)
		}
	}
	walk(root)
	return diags
}

func (r *resolver) knownType(name string) bool {
	_, declared := r.decls[name]
	return declared || builtinTypes[name] || r.imports[name]
}

func isDeclarationName(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	return sameNode(parent.ChildByFieldName("name"), n)
}
