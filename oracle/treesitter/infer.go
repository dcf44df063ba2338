package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/automatique/autoapi/oracle"
)

// scope maps value names to lazily typed bindings.
type scope struct {
	parent *scope
	names  map[string]*binding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]*binding)}
}

func (s *scope) define(name string, b *binding) {
	if _, exists := s.names[name]; !exists {
		s.names[name] = b
	}
}

func (s *scope) lookup(name string) *binding {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.names[name]; ok {
			return b
		}
	}
	return nil
}

// binding is a value name whose type is computed on first use.
type binding struct {
	b        *builder
	scope    *scope
	src      []byte
	typeNode *sitter.Node // declared annotation, if any
	value    *sitter.Node // initializer, if any
	fn       *oracle.Function
	typ      oracle.Type
	param    func() oracle.Type
	busy     bool
}

func (bd *binding) get() oracle.Type {
	if bd.typ != nil {
		return bd.typ
	}
	if bd.busy {
		return anyType()
	}
	bd.busy = true
	defer func() { bd.busy = false }()

	var t oracle.Type
	switch {
	case bd.param != nil:
		t = bd.param()
	case bd.typeNode != nil:
		t = bd.b.types.resolve(bd.typeNode, bd.src, nil)
	case bd.fn != nil:
		t = functionType("function")
	case bd.value != nil:
		t = widen(bd.b.infer(bd.value, bd.scope))
	default:
		t = undefinedType()
	}
	bd.typ = t
	return t
}

// returnType computes the return type of fn, from its annotation, its JSDoc
// @returns tag, or its body.
func (b *builder) returnType(fn *oracle.Function) oracle.Type {
	info, ok := b.funcs[fn]
	if !ok {
		return anyType()
	}
	if info.ret != nil {
		return info.ret
	}
	if info.retBusy {
		// Recursive call without an annotation.
		return anyType()
	}
	info.retBusy = true
	defer func() { info.retBusy = false }()

	var t oracle.Type
	if rt := info.node.ChildByFieldName("return_type"); rt != nil {
		t = b.types.resolve(rt, info.src, info.env)
	} else if !b.lang.Typed() && fn.Doc != nil && fn.Doc.Returns != nil && fn.Doc.Returns.Type != "" {
		t = b.types.jsdocType(b.ctx(), fn.Doc.Returns.Type)
	} else {
		t = b.inferBody(fn, info)
		if fn.Async {
			t = promiseOf(awaited(t))
		}
	}
	if fn.Generator {
		t = reference("Generator", t)
	} else if fn.Async && !isPromise(t) {
		t = promiseOf(t)
	}
	info.ret = t
	return t
}

// paramType computes the declared type of the i-th parameter of fn.
func (b *builder) paramType(fn *oracle.Function, i int) oracle.Type {
	info, ok := b.funcs[fn]
	if !ok || i < 0 || i >= len(info.params) {
		return anyType()
	}
	pi := info.params[i]
	if pi.typeNode != nil {
		return b.types.resolve(pi.typeNode, info.src, info.env)
	}
	if !b.lang.Typed() {
		if dp, ok := fn.Doc.Param(fn.Params[i].Name); ok && dp.Type != "" {
			return b.types.jsdocType(b.ctx(), dp.Type)
		}
	}
	if pi.defaultNode != nil {
		return widen(b.infer(pi.defaultNode, info.scope))
	}
	return anyType()
}

func (b *builder) inferBody(fn *oracle.Function, info *funcInfo) oracle.Type {
	body := info.node.ChildByFieldName("body")
	if body == nil {
		return voidType()
	}
	sc := newScope(info.scope)
	for i, p := range fn.Params {
		if p.Destructured {
			continue
		}
		fn, i := fn, i
		sc.define(p.Name, &binding{b: b, param: func() oracle.Type { return b.paramType(fn, i) }})
	}

	if body.Type() != "statement_block" {
		return widen(b.infer(body, sc))
	}

	b.declareLocals(body, sc)
	var returns []oracle.Type
	walkReturns(body, func(ret *sitter.Node) {
		if v := firstNamed(ret); v != nil {
			returns = append(returns, widen(b.infer(v, sc)))
		} else {
			returns = append(returns, undefinedType())
		}
	})
	if len(returns) == 0 {
		return voidType()
	}
	return unionOf(returns...)
}

// declareLocals binds the variables and functions declared anywhere in a
// function body, without descending into nested functions.
func (b *builder) declareLocals(n *sitter.Node, sc *scope) {
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "lexical_declaration", "variable_declaration":
			for _, d := range namedChildren(c) {
				name := d.ChildByFieldName("name")
				if d.Type() != "variable_declarator" || name == nil || name.Type() != "identifier" {
					continue
				}
				bd := &binding{
					b:        b,
					scope:    sc,
					src:      b.src,
					typeNode: d.ChildByFieldName("type"),
					value:    d.ChildByFieldName("value"),
				}
				if v := unwrapExpression(bd.value); v != nil && isFunctionNode(v.Type()) {
					bd.fn = b.function(v, sc)
				}
				sc.define(content(name, b.src), bd)
			}
			continue
		case "function_declaration", "generator_function_declaration":
			fn := b.function(c, sc)
			sc.define(fn.Name, &binding{b: b, fn: fn})
			continue
		}
		if isFunctionNode(c.Type()) || c.Type() == "class" || c.Type() == "class_declaration" {
			continue
		}
		b.declareLocals(c, sc)
	}
}

func walkReturns(n *sitter.Node, visit func(*sitter.Node)) {
	for _, c := range namedChildren(n) {
		if c.Type() == "return_statement" {
			visit(c)
			continue
		}
		if isFunctionNode(c.Type()) || c.Type() == "class" || c.Type() == "class_declaration" {
			continue
		}
		walkReturns(c, visit)
	}
}

// infer computes the type of an expression the way a checker would for an
// unannotated declaration. Literal types are widened by callers.
func (b *builder) infer(n *sitter.Node, sc *scope) oracle.Type {
	if n == nil {
		return anyType()
	}
	switch n.Type() {
	case "string", "template_string":
		return stringType()
	case "number":
		return numberType()
	case "true", "false":
		return booleanType()
	case "null":
		return nullType()
	case "undefined":
		return undefinedType()
	case "regex":
		return reference("RegExp")
	case "parenthesized_expression", "non_null_expression", "satisfies_expression":
		return b.infer(firstNamed(n), sc)
	case "as_expression":
		if children := namedChildren(n); len(children) >= 2 {
			return b.types.resolve(children[len(children)-1], b.src, nil)
		}
		return b.infer(firstNamed(n), sc)
	case "identifier":
		name := content(n, b.src)
		if name == "undefined" {
			return undefinedType()
		}
		if bd := sc.lookup(name); bd != nil {
			return bd.get()
		}
		return anyType()
	case "array":
		var elems []oracle.Type
		for _, e := range namedChildren(n) {
			if e.Type() == "spread_element" {
				elems = append(elems, elementOf(b.infer(firstNamed(e), sc)))
				continue
			}
			elems = append(elems, widen(b.infer(e, sc)))
		}
		if len(elems) == 0 {
			return arrayOf(anyType())
		}
		return arrayOf(unionOf(elems...))
	case "object":
		return b.inferObject(n, sc)
	case "arrow_function", "function", "function_expression", "generator_function", "generator_function_expression":
		return functionType(compact(content(n, b.src)))
	case "await_expression":
		return awaited(b.infer(firstNamed(n), sc))
	case "ternary_expression":
		return unionOf(widen(b.infer(n.ChildByFieldName("consequence"), sc)), widen(b.infer(n.ChildByFieldName("alternative"), sc)))
	case "binary_expression":
		return b.inferBinary(n, sc)
	case "unary_expression":
		switch op := n.ChildByFieldName("operator"); content(op, b.src) {
		case "!", "delete":
			return booleanType()
		case "typeof":
			return stringType()
		case "void":
			return undefinedType()
		default:
			return numberType()
		}
	case "update_expression":
		return numberType()
	case "assignment_expression", "augmented_assignment_expression":
		return b.infer(n.ChildByFieldName("right"), sc)
	case "sequence_expression":
		return b.infer(lastNamed(n), sc)
	case "new_expression":
		return b.inferNew(n, sc)
	case "call_expression":
		return b.inferCall(n, sc)
	case "member_expression":
		prop := content(n.ChildByFieldName("property"), b.src)
		obj := b.infer(n.ChildByFieldName("object"), sc)
		if prop == "length" && (obj.Kind() == oracle.KindString || isReference(obj, "Array")) {
			return numberType()
		}
		if prop == "size" && isReference(obj, "Set") {
			return numberType()
		}
		for _, p := range propertiesOf(obj) {
			if p.Name == prop {
				return p.Type
			}
		}
		return anyType()
	case "subscript_expression":
		obj := b.infer(n.ChildByFieldName("object"), sc)
		if isReference(obj, "Array") {
			return elementOf(obj)
		}
		return anyType()
	}
	return anyType()
}

func (b *builder) inferObject(n *sitter.Node, sc *scope) oracle.Type {
	var props []oracle.PropertySymbol
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "pair":
			name, computed := propertyKey(c.ChildByFieldName("key"), b.src)
			if computed {
				continue
			}
			props = append(props, oracle.PropertySymbol{Name: name, Type: widen(b.infer(c.ChildByFieldName("value"), sc))})
		case "shorthand_property_identifier":
			name := content(c, b.src)
			t := oracle.Type(anyType())
			if bd := sc.lookup(name); bd != nil {
				t = widen(bd.get())
			}
			props = append(props, oracle.PropertySymbol{Name: name, Type: t})
		case "method_definition":
			name, _ := propertyKey(c.ChildByFieldName("name"), b.src)
			props = append(props, oracle.PropertySymbol{Name: name, Type: functionType(name)})
		case "spread_element":
			props = mergeProps(props, propertiesOf(b.infer(firstNamed(c), sc)))
		}
	}
	return objectType("", props)
}

func (b *builder) inferBinary(n *sitter.Node, sc *scope) oracle.Type {
	op := content(n.ChildByFieldName("operator"), b.src)
	left := func() oracle.Type { return widen(b.infer(n.ChildByFieldName("left"), sc)) }
	right := func() oracle.Type { return widen(b.infer(n.ChildByFieldName("right"), sc)) }
	switch op {
	case "+":
		l, r := left(), right()
		if l.Kind() == oracle.KindString || r.Kind() == oracle.KindString {
			return stringType()
		}
		if l.Kind() == oracle.KindNumber && r.Kind() == oracle.KindNumber {
			return numberType()
		}
		return anyType()
	case "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>", ">>>":
		return numberType()
	case "==", "!=", "===", "!==", "<", ">", "<=", ">=", "instanceof", "in":
		return booleanType()
	case "&&":
		return right()
	case "||":
		return unionOf(left(), right())
	case "??":
		return unionOf(nonNullable(left()), right())
	}
	return anyType()
}

func (b *builder) inferNew(n *sitter.Node, sc *scope) oracle.Type {
	ctor := n.ChildByFieldName("constructor")
	args := namedChildren(n.ChildByFieldName("arguments"))
	name := content(ctor, b.src)
	switch name {
	case "Set":
		if len(args) > 0 {
			return setOf(elementOf(b.infer(args[0], sc)))
		}
		return setOf(anyType())
	case "Array":
		return arrayOf(anyType())
	case "Promise":
		return promiseOf(anyType())
	case "Map", "Date", "Error", "RegExp", "URL", "WeakMap", "WeakSet":
		return reference(name)
	}
	if ctor != nil && ctor.Type() == "identifier" {
		return reference(name)
	}
	return anyType()
}

var (
	stringMethods = map[string]bool{
		"toUpperCase": true, "toLowerCase": true, "trim": true, "trimStart": true,
		"trimEnd": true, "padStart": true, "padEnd": true, "repeat": true,
		"replace": true, "replaceAll": true, "substring": true, "substr": true,
		"charAt": true, "toString": true, "toFixed": true, "toPrecision": true,
		"toISOString": true, "toLocaleString": true, "toDateString": true,
		"toJSON": true, "join": true, "normalize": true,
	}
	booleanMethods = map[string]bool{
		"includes": true, "startsWith": true, "endsWith": true, "some": true,
		"every": true, "has": true, "test": true, "isArray": true, "isInteger": true,
		"isFinite": true, "isNaN": true, "delete": true,
	}
	numberMethods = map[string]bool{
		"indexOf": true, "lastIndexOf": true, "push": true, "unshift": true,
		"charCodeAt": true, "findIndex": true, "getTime": true, "localeCompare": true,
		"now": true, "valueOf": true, "codePointAt": true, "search": true,
	}
	globalFuncs = map[string]oracle.TypeKind{
		"String": oracle.KindString, "encodeURIComponent": oracle.KindString,
		"decodeURIComponent": oracle.KindString, "encodeURI": oracle.KindString,
		"decodeURI": oracle.KindString,
		"Number": oracle.KindNumber, "parseInt": oracle.KindNumber, "parseFloat": oracle.KindNumber,
		"Boolean": oracle.KindBoolean, "isNaN": oracle.KindBoolean, "isFinite": oracle.KindBoolean,
	}
)

func (b *builder) inferCall(n *sitter.Node, sc *scope) oracle.Type {
	callee := n.ChildByFieldName("function")
	args := namedChildren(n.ChildByFieldName("arguments"))
	if callee == nil {
		return anyType()
	}

	switch callee.Type() {
	case "identifier":
		name := content(callee, b.src)
		if bd := sc.lookup(name); bd != nil {
			if bd.fn != nil {
				return b.returnType(bd.fn)
			}
			return anyType()
		}
		switch globalFuncs[name] {
		case oracle.KindString:
			return stringType()
		case oracle.KindNumber:
			return numberType()
		case oracle.KindBoolean:
			return booleanType()
		}
		return anyType()
	case "member_expression":
	default:
		return anyType()
	}

	object := callee.ChildByFieldName("object")
	method := content(callee.ChildByFieldName("property"), b.src)
	switch content(object, b.src) {
	case "Math":
		return numberType()
	case "JSON":
		if method == "stringify" {
			return stringType()
		}
		return anyType()
	case "Object":
		switch method {
		case "keys":
			return arrayOf(stringType())
		case "assign":
			if len(args) > 0 {
				return b.infer(args[0], sc)
			}
		}
		return anyType()
	case "Promise":
		switch method {
		case "resolve":
			if len(args) == 0 {
				return promiseOf(voidType())
			}
			return promiseOf(awaited(widen(b.infer(args[0], sc))))
		case "reject":
			return promiseOf(primitive(oracle.KindNever, "never"))
		}
		return promiseOf(anyType())
	case "Array":
		if method == "isArray" {
			return booleanType()
		}
		return arrayOf(anyType())
	case "Date":
		if method == "now" {
			return numberType()
		}
	}

	switch {
	case stringMethods[method]:
		return stringType()
	case booleanMethods[method]:
		return booleanType()
	case numberMethods[method]:
		return numberType()
	}

	recv := b.infer(object, sc)
	switch method {
	case "map", "flatMap":
		if len(args) > 0 {
			return arrayOf(widen(b.callbackResult(args[0], sc)))
		}
	case "filter", "slice", "concat", "sort", "reverse", "splice":
		if isReference(recv, "Array") || method == "filter" {
			return recv
		}
		if recv.Kind() == oracle.KindString {
			return stringType()
		}
	case "find", "pop", "shift", "at":
		if isReference(recv, "Array") {
			return elementOf(recv)
		}
	case "split":
		return arrayOf(stringType())
	case "then":
		if len(args) > 0 {
			return promiseOf(awaited(widen(b.callbackResult(args[0], sc))))
		}
		return recv
	case "catch", "finally":
		return recv
	}
	return anyType()
}

// callbackResult infers the result of an inline callback argument.
func (b *builder) callbackResult(n *sitter.Node, sc *scope) oracle.Type {
	n = unwrapExpression(n)
	if n == nil || !isFunctionNode(n.Type()) {
		return anyType()
	}
	fn := b.function(n, sc)
	return b.returnType(fn)
}

func isReference(t oracle.Type, name string) bool {
	t = oracle.Resolve(t)
	return t.Kind() == oracle.KindReference && t.Name() == name
}

func elementOf(t oracle.Type) oracle.Type {
	t = oracle.Resolve(t)
	if (isReference(t, "Array") || isReference(t, "Set")) && len(t.TypeArguments()) == 1 {
		return t.TypeArguments()[0]
	}
	return anyType()
}

func propertiesOf(t oracle.Type) []oracle.PropertySymbol {
	if t.Kind() != oracle.KindObject {
		return nil
	}
	return t.Properties()
}

func nonNullable(t oracle.Type) oracle.Type {
	if t.Kind() != oracle.KindUnion {
		return t
	}
	var keep []oracle.Type
	for _, m := range t.Types() {
		if m.Kind() == oracle.KindNull || m.Kind() == oracle.KindUndefined {
			continue
		}
		keep = append(keep, m)
	}
	return unionOf(keep...)
}
