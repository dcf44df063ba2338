package fulltype

import "strings"

func (p *Primitive) String() string { return string(p.Name) }

func (a *Array) String() string {
	if needsParens(a.Element) {
		return "(" + a.Element.String() + ")[]"
	}
	return a.Element.String() + "[]"
}

func (s *Set) String() string { return "Set<" + s.Element.String() + ">" }

func (o *Object) String() string {
	if len(o.Properties) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{ ")
	for i, p := range o.Properties {
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

func (u *Union) String() string {
	parts := make([]string, len(u.Types))
	for i, t := range u.Types {
		parts[i] = t.String()
	}
	return strings.Join(parts, " | ")
}

func needsParens(t FullType) bool {
	_, ok := t.(*Union)
	return ok
}
