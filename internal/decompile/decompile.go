// Package decompile converts oracle type handles into closed-form FullType
// descriptions.
package decompile

import (
	"fmt"

	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/fulltype"
	"github.com/automatique/autoapi/oracle"
)

// MaxDepth bounds nesting of array, set and object shapes.
const MaxDepth = 64

// Decompile converts t into a FullType.
//
// allowUnion permits a union with more than one distinct structural member
// at the top level of t; nested positions always permit unions only as far
// as allowUnion does. allowPromise permits one Promise wrapper at the top
// level; a promise anywhere else fails with a nested promise error.
func Decompile(t oracle.Type, allowUnion, allowPromise bool) (fulltype.FullType, error) {
	d := &decompiler{onPath: make(map[oracle.Type]bool)}
	return d.decompile(t, allowUnion, allowPromise, 0)
}

type decompiler struct {
	// onPath holds named and object types currently being expanded.
	onPath map[oracle.Type]bool
}

func (d *decompiler) decompile(t oracle.Type, allowUnion, allowPromise bool, depth int) (fulltype.FullType, error) {
	if t == nil {
		return nil, apierr.New(apierr.CodeUnsupportedType, "missing type")
	}
	if depth > MaxDepth {
		return nil, unsupported(t, "nesting exceeds %d levels", MaxDepth)
	}

	switch t.Kind() {
	case oracle.KindString, oracle.KindStringLiteral:
		return fulltype.String(), nil
	case oracle.KindNumber, oracle.KindNumberLiteral:
		return fulltype.Number(), nil
	case oracle.KindBoolean, oracle.KindBooleanLiteral:
		return fulltype.Boolean(), nil
	case oracle.KindVoid, oracle.KindUndefined:
		return fulltype.Void(), nil
	case oracle.KindNull:
		return fulltype.Null(), nil
	case oracle.KindUnion:
		return d.union(t, allowUnion, allowPromise, depth)
	case oracle.KindReference:
		return d.reference(t, allowUnion, allowPromise, depth)
	case oracle.KindObject:
		return d.object(t, allowUnion, depth)
	}
	return nil, unsupported(t, "")
}

func (d *decompiler) union(t oracle.Type, allowUnion, allowPromise bool, depth int) (fulltype.FullType, error) {
	members := t.Types()
	out := make([]fulltype.FullType, 0, len(members))
	for _, m := range members {
		ft, err := d.decompile(m, allowUnion, allowPromise, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	simplified := fulltype.Simplify(out)
	if _, isUnion := simplified.(*fulltype.Union); isUnion && !allowUnion {
		return nil, apierr.Errorf(apierr.CodeUnsupportedUnion,
			"Union types are not supported here: %s resolves to %s", t.String(), simplified.String()).
			WithDetail("type", t.String())
	}
	return simplified, nil
}

func (d *decompiler) reference(t oracle.Type, allowUnion, allowPromise bool, depth int) (fulltype.FullType, error) {
	// Aliases such as `type Names = string[]` report their own name.
	t = oracle.Resolve(t)
	args := t.TypeArguments()
	switch t.Name() {
	case "Promise":
		if !allowPromise {
			return nil, apierr.Errorf(apierr.CodeNestedPromise,
				"Promise type %s is not allowed in this position", t.String()).
				WithDetail("type", t.String())
		}
		if len(args) != 1 {
			return nil, unsupported(t, "expected one type argument")
		}
		return d.decompile(args[0], allowUnion, false, depth+1)
	case "Array", "Set":
		if len(args) != 1 {
			return nil, unsupported(t, "expected one type argument")
		}
		elem, err := d.decompile(args[0], allowUnion, false, depth+1)
		if err != nil {
			return nil, err
		}
		if t.Name() == "Set" {
			return fulltype.NewSet(elem), nil
		}
		return fulltype.NewArray(elem), nil
	}
	return nil, unsupported(t, "")
}

func (d *decompiler) object(t oracle.Type, allowUnion bool, depth int) (fulltype.FullType, error) {
	if d.onPath[t] {
		return nil, unsupported(t, "recursive type")
	}
	d.onPath[t] = true
	defer delete(d.onPath, t)

	props := t.Properties()
	obj := &fulltype.Object{Properties: make([]fulltype.Property, 0, len(props))}
	for _, p := range props {
		pt := p.Type
		if p.Optional {
			pt = stripUndefined(pt)
		}
		ft, err := d.decompile(pt, allowUnion, false, depth+1)
		if err != nil {
			return nil, withProperty(err, p.Name)
		}
		obj.Properties = append(obj.Properties, fulltype.Property{
			Name:     p.Name,
			Type:     ft,
			Optional: p.Optional,
		})
	}
	return obj, nil
}

// stripUndefined removes the undefined member an optional property carries.
func stripUndefined(t oracle.Type) oracle.Type {
	if t.Kind() != oracle.KindUnion {
		return t
	}
	var keep []oracle.Type
	for _, m := range t.Types() {
		if m.Kind() != oracle.KindUndefined {
			keep = append(keep, m)
		}
	}
	if len(keep) == 1 {
		return keep[0]
	}
	return t
}

func unsupported(t oracle.Type, format string, args ...any) *apierr.Error {
	msg := fmt.Sprintf("Unsupported type %s (%s)", t.String(), t.Kind())
	if format != "" {
		msg += ": " + fmt.Sprintf(format, args...)
	}
	return apierr.New(apierr.CodeUnsupportedType, msg).WithDetail("type", t.String())
}

func withProperty(err error, name string) error {
	e := apierr.From(err)
	if path, ok := e.Details["property"].(string); ok {
		return e.WithDetail("property", name+"."+path)
	}
	return e.WithDetail("property", name)
}
