package treesitter

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/automatique/autoapi/oracle"
)

// funcInfo links an oracle.Function back to its syntax.
type funcInfo struct {
	node   *sitter.Node
	src    []byte
	params []paramInfo
	scope  *scope // scope enclosing the function definition
	env    typeEnv

	ret     oracle.Type
	retBusy bool
}

type paramInfo struct {
	typeNode    *sitter.Node
	defaultNode *sitter.Node
	rest        bool
}

// builder converts a syntax tree into the oracle module model.
type builder struct {
	parse context.Context // bounds JSDoc type parsing
	src   []byte
	path  string
	lang  oracle.Language
	funcs map[*oracle.Function]*funcInfo
	top   *scope
	types *resolver
}

func newBuilder(ctx context.Context, path string, src []byte, lang oracle.Language, types *resolver) *builder {
	b := &builder{
		parse: ctx,
		src:   src,
		path:  path,
		lang:  lang,
		funcs: make(map[*oracle.Function]*funcInfo),
		types: types,
	}
	b.top = newScope(nil)
	return b
}

func (b *builder) ctx() context.Context {
	if b.parse == nil {
		return context.Background()
	}
	return b.parse
}

func (b *builder) module(root *sitter.Node) *oracle.Module {
	m := &oracle.Module{Path: b.path}
	for _, n := range namedChildren(root) {
		m.Statements = append(m.Statements, b.statement(n)...)
	}
	return m
}

func (b *builder) statement(n *sitter.Node) []oracle.Statement {
	switch n.Type() {
	case "export_statement":
		return b.exportStatement(n)
	case "expression_statement":
		if s := b.moduleExports(n); s != nil {
			return []oracle.Statement{s}
		}
	case "function_declaration", "generator_function_declaration":
		return []oracle.Statement{b.functionDecl(n, false)}
	case "lexical_declaration", "variable_declaration":
		return []oracle.Statement{b.varDecl(n)}
	case "class_declaration", "abstract_class_declaration":
		return []oracle.Statement{b.classDecl(n)}
	case "import_statement":
		return []oracle.Statement{b.importDecl(n)}
	}
	return []oracle.Statement{&oracle.OtherStatement{Kind: n.Type(), Pos: pos(n)}}
}

func (b *builder) exportStatement(n *sitter.Node) []oracle.Statement {
	isDefault := hasToken(n, "default")
	decl := n.ChildByFieldName("declaration")

	if decl != nil {
		if !isDefault {
			stmts := b.statement(decl)
			if len(stmts) == 1 {
				if fd, ok := stmts[0].(*oracle.FunctionDecl); ok {
					fd.Exported = true
				}
			}
			return stmts
		}
		export := &oracle.ExportStatement{Form: oracle.ExportDefault, Pos: pos(n)}
		switch decl.Type() {
		case "function_declaration", "generator_function_declaration":
			fd := b.functionDecl(decl, false)
			export.Value = &oracle.FunctionExpr{Func: fd.Func}
			return []oracle.Statement{fd, export}
		case "class_declaration", "abstract_class_declaration":
			cd := b.classDecl(decl)
			export.Value = &oracle.OtherExpr{Kind: "class", Text: cd.Name, Pos: pos(decl)}
			return []oracle.Statement{cd, export}
		default:
			export.Value = &oracle.OtherExpr{Kind: decl.Type(), Text: compact(content(decl, b.src)), Pos: pos(decl)}
			return []oracle.Statement{export}
		}
	}

	if value := n.ChildByFieldName("value"); value != nil && isDefault {
		return []oracle.Statement{&oracle.ExportStatement{
			Form:  oracle.ExportDefault,
			Value: b.expr(value),
			Pos:   pos(n),
		}}
	}

	if hasToken(n, "=") {
		if value := firstNamed(n); value != nil {
			return []oracle.Statement{&oracle.ExportStatement{
				Form:  oracle.ExportEquals,
				Value: b.expr(value),
				Pos:   pos(n),
			}}
		}
	}

	// export { local as default }
	for _, c := range namedChildren(n) {
		if c.Type() != "export_clause" {
			continue
		}
		for _, spec := range namedChildren(c) {
			alias := spec.ChildByFieldName("alias")
			name := spec.ChildByFieldName("name")
			if alias != nil && name != nil && content(alias, b.src) == "default" {
				return []oracle.Statement{&oracle.ExportStatement{
					Form:  oracle.ExportDefault,
					Value: &oracle.Ident{Name: content(name, b.src), Pos: pos(name)},
					Pos:   pos(n),
				}}
			}
		}
	}
	return []oracle.Statement{&oracle.OtherStatement{Kind: "export", Pos: pos(n)}}
}

// moduleExports recognizes `module.exports = <expr>`.
func (b *builder) moduleExports(n *sitter.Node) oracle.Statement {
	assign := firstNamed(n)
	if assign == nil || assign.Type() != "assignment_expression" {
		return nil
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "member_expression" {
		return nil
	}
	if strings.Join(strings.Fields(content(left, b.src)), "") != "module.exports" {
		return nil
	}
	return &oracle.ExportStatement{
		Form:  oracle.ModuleExports,
		Value: b.expr(assign.ChildByFieldName("right")),
		Pos:   pos(n),
	}
}

func (b *builder) functionDecl(n *sitter.Node, exported bool) *oracle.FunctionDecl {
	fn := b.function(n, b.top)
	if fn.Name != "" {
		b.top.define(fn.Name, &binding{fn: fn, b: b})
	}
	return &oracle.FunctionDecl{Func: fn, Exported: exported}
}

func (b *builder) varDecl(n *sitter.Node) *oracle.VarDecl {
	vd := &oracle.VarDecl{Pos: pos(n)}
	if kw := n.Child(0); kw != nil {
		vd.Keyword = kw.Type()
	}
	for _, c := range namedChildren(n) {
		if c.Type() != "variable_declarator" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			// Destructuring declarations bind nothing exportable by name.
			continue
		}
		d := &oracle.Declarator{Name: content(nameNode, b.src), Pos: pos(c)}
		bind := &binding{b: b, scope: b.top, typeNode: c.ChildByFieldName("type"), src: b.src}
		if value := c.ChildByFieldName("value"); value != nil {
			d.Init = b.expr(value)
			bind.value = value
			if fe, ok := d.Init.(*oracle.FunctionExpr); ok {
				bind.fn = fe.Func
			}
		}
		b.top.define(d.Name, bind)
		vd.Declarators = append(vd.Declarators, d)
	}
	return vd
}

func (b *builder) classDecl(n *sitter.Node) *oracle.ClassDecl {
	name := content(n.ChildByFieldName("name"), b.src)
	if name != "" {
		b.top.define(name, &binding{b: b, typ: functionType("typeof " + name)})
	}
	return &oracle.ClassDecl{Name: name, Pos: pos(n)}
}

func (b *builder) importDecl(n *sitter.Node) *oracle.ImportDecl {
	d := &oracle.ImportDecl{Pos: pos(n)}
	if src := n.ChildByFieldName("source"); src != nil {
		d.Source = unquote(content(src, b.src))
	}
	for _, name := range importedNames(n, b.src) {
		d.Names = append(d.Names, name)
		b.top.define(name, &binding{b: b, typ: anyType()})
	}
	return d
}

// importedNames lists the local names bound by an import statement.
func importedNames(n *sitter.Node, src []byte) []string {
	var names []string
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "import_specifier":
			if alias := n.ChildByFieldName("alias"); alias != nil {
				names = append(names, content(alias, src))
			} else if name := n.ChildByFieldName("name"); name != nil {
				names = append(names, content(name, src))
			}
			return
		case "identifier":
			names = append(names, content(n, src))
			return
		case "string":
			return
		}
		for _, c := range namedChildren(n) {
			walk(c)
		}
	}
	for _, c := range namedChildren(n) {
		if c.Type() == "import_clause" {
			walk(c)
		}
	}
	return names
}

func (b *builder) expr(n *sitter.Node) oracle.Expr {
	n = unwrapExpression(n)
	if n == nil {
		return &oracle.OtherExpr{Kind: "empty"}
	}
	switch n.Type() {
	case "object":
		return b.object(n)
	case "identifier":
		return &oracle.Ident{Name: content(n, b.src), Pos: pos(n)}
	case "arrow_function", "function", "function_expression", "generator_function", "generator_function_expression":
		return &oracle.FunctionExpr{Func: b.function(n, b.top)}
	}
	return &oracle.OtherExpr{Kind: exprKind(n), Text: compact(content(n, b.src)), Pos: pos(n)}
}

func exprKind(n *sitter.Node) string {
	switch n.Type() {
	case "number", "string", "template_string", "true", "false", "null", "undefined", "regex":
		return "literal"
	case "class":
		return "class"
	case "array":
		return "array"
	case "call_expression":
		return "call"
	case "new_expression":
		return "new"
	case "member_expression", "subscript_expression":
		return "member access"
	default:
		return strings.ReplaceAll(n.Type(), "_", " ")
	}
}

func (b *builder) object(n *sitter.Node) *oracle.ObjectLit {
	obj := &oracle.ObjectLit{Pos: pos(n)}
	for _, c := range namedChildren(n) {
		p := &oracle.Property{Pos: pos(c)}
		switch c.Type() {
		case "pair":
			p.Key, p.Computed = propertyKey(c.ChildByFieldName("key"), b.src)
			p.Value = b.expr(c.ChildByFieldName("value"))
		case "shorthand_property_identifier":
			p.Key = content(c, b.src)
			p.Shorthand = true
			p.Value = &oracle.Ident{Name: p.Key, Pos: pos(c)}
		case "method_definition":
			p.Key, p.Computed = propertyKey(c.ChildByFieldName("name"), b.src)
			if hasToken(c, "get") || hasToken(c, "set") {
				p.Value = &oracle.OtherExpr{Kind: "accessor", Text: p.Key, Pos: pos(c)}
				break
			}
			p.Method = true
			p.Value = &oracle.FunctionExpr{Func: b.function(c, b.top)}
		case "spread_element":
			p.Spread = true
			p.Key = compact(content(c, b.src))
			p.Value = &oracle.OtherExpr{Kind: "spread", Text: p.Key, Pos: pos(c)}
		default:
			continue
		}
		obj.Props = append(obj.Props, p)
	}
	return obj
}

// function converts any function-like node and registers it with the checker.
func (b *builder) function(n *sitter.Node, sc *scope) *oracle.Function {
	fn := &oracle.Function{
		Name:      content(n.ChildByFieldName("name"), b.src),
		Async:     hasToken(n, "async"),
		Generator: hasToken(n, "*") || strings.HasPrefix(n.Type(), "generator_"),
		Arrow:     n.Type() == "arrow_function",
		Doc:       docComment(n, b.src),
		Pos:       pos(n),
	}
	info := &funcInfo{node: n, src: b.src, scope: sc}
	info.env = b.types.typeParams(n.ChildByFieldName("type_parameters"), b.src, nil)

	if single := n.ChildByFieldName("parameter"); single != nil {
		fn.Params = append(fn.Params, &oracle.Param{Name: content(single, b.src), Pos: pos(single)})
		info.params = append(info.params, paramInfo{})
	} else {
		for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
			param, pi, ok := b.param(p)
			if !ok {
				continue
			}
			fn.Params = append(fn.Params, param)
			info.params = append(info.params, pi)
		}
	}
	b.funcs[fn] = info
	return fn
}

func (b *builder) param(n *sitter.Node) (*oracle.Param, paramInfo, bool) {
	p := &oracle.Param{Pos: pos(n)}
	var pi paramInfo
	pattern := n
	switch n.Type() {
	case "required_parameter", "optional_parameter":
		pattern = n.ChildByFieldName("pattern")
		pi.typeNode = n.ChildByFieldName("type")
		pi.defaultNode = n.ChildByFieldName("value")
		p.Optional = n.Type() == "optional_parameter"
	case "assignment_pattern":
		pattern = n.ChildByFieldName("left")
		pi.defaultNode = n.ChildByFieldName("right")
	}
	if pattern == nil {
		return nil, pi, false
	}
	switch pattern.Type() {
	case "this":
		return nil, pi, false
	case "identifier":
		p.Name = content(pattern, b.src)
	case "rest_pattern":
		p.Rest = true
		pi.rest = true
		p.Name = content(firstNamed(pattern), b.src)
	case "assignment_pattern":
		// TypeScript wraps defaults on destructured params this way.
		pi.defaultNode = pattern.ChildByFieldName("right")
		left := pattern.ChildByFieldName("left")
		p.Name = content(left, b.src)
		p.Destructured = left != nil && left.Type() != "identifier"
	default:
		p.Destructured = true
		p.Name = compact(content(pattern, b.src))
	}
	p.HasDefault = pi.defaultNode != nil
	return p, pi, true
}

// docComment finds the /** */ block attached to a function. The comment may
// precede the function itself or the declaration, property or export that
// holds it.
func docComment(n *sitter.Node, src []byte) *oracle.DocComment {
	for cur := n; cur != nil; cur = cur.Parent() {
		if prev := cur.PrevNamedSibling(); prev != nil && prev.Type() == "comment" {
			if doc := oracle.ParseDocComment(content(prev, src)); doc != nil {
				return doc
			}
		}
		parent := cur.Parent()
		if parent == nil {
			return nil
		}
		switch parent.Type() {
		case "variable_declarator", "lexical_declaration", "variable_declaration",
			"export_statement", "pair", "parenthesized_expression", "as_expression",
			"satisfies_expression", "assignment_expression", "expression_statement":
		default:
			return nil
		}
	}
	return nil
}
