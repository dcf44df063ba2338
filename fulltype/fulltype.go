// Package fulltype defines the closed structural type description produced by
// decompiling a function's parameter and return types.
//
// A FullType is one of:
//   - *Primitive: string, number, boolean, void or null
//   - *Array: array<T>
//   - *Set: set<T>
//   - *Object: named properties, each with its own FullType
//   - *Union: two or more structurally distinct members
package fulltype

// Kind identifies the category of a FullType.
type Kind int

const (
	KindPrimitive Kind = iota
	KindArray
	KindSet
	KindObject
	KindUnion
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindArray:
		return "Array"
	case KindSet:
		return "Set"
	case KindObject:
		return "Object"
	case KindUnion:
		return "Union"
	default:
		return "Unknown"
	}
}

// FullType is the base interface for all structural type descriptions.
type FullType interface {
	// Kind returns the kind for type switching.
	Kind() Kind

	// String renders the type in TypeScript notation.
	String() string

	// Ensure only types in this package can implement FullType.
	sealed()
}

// PrimitiveName names a primitive type.
type PrimitiveName string

const (
	NameString  PrimitiveName = "string"
	NameNumber  PrimitiveName = "number"
	NameBoolean PrimitiveName = "boolean"
	NameVoid    PrimitiveName = "void"
	NameNull    PrimitiveName = "null"
)

// Primitive is a built-in scalar type.
type Primitive struct {
	Name PrimitiveName
}

func (*Primitive) Kind() Kind { return KindPrimitive }
func (*Primitive) sealed()    {}

// String returns a Primitive for string.
func String() *Primitive { return &Primitive{Name: NameString} }

// Number returns a Primitive for number.
func Number() *Primitive { return &Primitive{Name: NameNumber} }

// Boolean returns a Primitive for boolean.
func Boolean() *Primitive { return &Primitive{Name: NameBoolean} }

// Void returns a Primitive for void. Undefined decompiles to void as well.
func Void() *Primitive { return &Primitive{Name: NameVoid} }

// Null returns a Primitive for null.
func Null() *Primitive { return &Primitive{Name: NameNull} }

// Array is an ordered collection of a single element type.
type Array struct {
	Element FullType
}

func (*Array) Kind() Kind { return KindArray }
func (*Array) sealed()    {}

// NewArray returns an Array of element.
func NewArray(element FullType) *Array { return &Array{Element: element} }

// Set is an unordered collection of distinct values of a single element type.
type Set struct {
	Element FullType
}

func (*Set) Kind() Kind { return KindSet }
func (*Set) sealed()    {}

// NewSet returns a Set of element.
func NewSet(element FullType) *Set { return &Set{Element: element} }

// Property is a named member of an Object.
type Property struct {
	Name     string
	Type     FullType
	Optional bool
}

// Object is a plain object shape. Properties keep declaration order.
type Object struct {
	Properties []Property
}

func (*Object) Kind() Kind { return KindObject }
func (*Object) sealed()    {}

// NewObject returns an Object with the given properties.
func NewObject(props ...Property) *Object { return &Object{Properties: props} }

// Prop is shorthand for a required Property.
func Prop(name string, t FullType) Property { return Property{Name: name, Type: t} }

// Lookup returns the property with the given name.
func (o *Object) Lookup(name string) (Property, bool) {
	for _, p := range o.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Union is a set of structurally distinct member types.
// Use Simplify to build one; it enforces the distinctness invariant.
type Union struct {
	Types []FullType
}

func (*Union) Kind() Kind { return KindUnion }
func (*Union) sealed()    {}

// Simplify deduplicates members by structural equality and flattens nested
// unions. If a single distinct member survives it is returned as is;
// otherwise a *Union is returned.
func Simplify(members []FullType) FullType {
	flat := make([]FullType, 0, len(members))
	for _, m := range members {
		if u, ok := m.(*Union); ok {
			flat = append(flat, u.Types...)
			continue
		}
		flat = append(flat, m)
	}
	distinct := Dedupe(flat)
	if len(distinct) == 1 {
		return distinct[0]
	}
	return &Union{Types: distinct}
}

// IsInlineable reports whether t can be carried in a query string:
// string, number or boolean.
func IsInlineable(t FullType) bool {
	p, ok := t.(*Primitive)
	if !ok {
		return false
	}
	switch p.Name {
	case NameString, NameNumber, NameBoolean:
		return true
	}
	return false
}
