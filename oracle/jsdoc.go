package oracle

import "strings"

// DocComment is a parsed /** ... */ block.
type DocComment struct {
	// Text is the free-form description preceding the first tag.
	Text    string
	Params  []DocParam
	Returns *DocReturn
}

// DocParam is an @param tag.
type DocParam struct {
	Name     string
	Type     string // text between braces, empty if absent
	Text     string
	Optional bool // [name] or [name=default]
}

// DocReturn is an @returns tag.
type DocReturn struct {
	Type string
	Text string
}

// Param returns the @param entry for name.
func (d *DocComment) Param(name string) (DocParam, bool) {
	if d == nil {
		return DocParam{}, false
	}
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return DocParam{}, false
}

// ParseDocComment parses the raw text of a block comment. It returns nil if
// raw is not a doc comment (it must start with "/**").
//
// Recognized tags:
//   - @param {Type} name description
//   - @param {Type} [name=default] description
//   - @returns {Type} description (also @return)
//
// Other tags are ignored. Continuation lines extend the preceding tag.
func ParseDocComment(raw string) *DocComment {
	if !strings.HasPrefix(raw, "/**") || raw == "/**/" {
		return nil
	}
	body := strings.TrimPrefix(raw, "/**")
	body = strings.TrimSuffix(body, "*/")

	doc := &DocComment{}
	var text []string
	var cur *string // text of the tag being continued
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)

		if !strings.HasPrefix(line, "@") {
			switch {
			case cur != nil && line != "":
				*cur = strings.TrimSpace(*cur + " " + line)
			case cur == nil:
				text = append(text, line)
			}
			continue
		}

		tag, rest, _ := strings.Cut(line[1:], " ")
		rest = strings.TrimSpace(rest)
		switch tag {
		case "param", "arg", "argument":
			p := parseParamTag(rest)
			if p.Name == "" {
				cur = nil
				continue
			}
			doc.Params = append(doc.Params, p)
			cur = &doc.Params[len(doc.Params)-1].Text
		case "returns", "return":
			typ, desc := splitBraces(rest)
			doc.Returns = &DocReturn{Type: typ, Text: desc}
			cur = &doc.Returns.Text
		default:
			cur = nil
		}
	}
	doc.Text = strings.TrimSpace(strings.Join(text, "\n"))
	return doc
}

func parseParamTag(s string) DocParam {
	var p DocParam
	p.Type, s = splitBraces(s)
	name, desc, _ := strings.Cut(s, " ")
	if strings.HasPrefix(name, "[") {
		p.Optional = true
		name = strings.TrimPrefix(name, "[")
		name, _, _ = strings.Cut(name, "]")
		name, _, _ = strings.Cut(name, "=")
	}
	p.Name = strings.TrimSpace(name)
	desc = strings.TrimSpace(desc)
	desc = strings.TrimPrefix(desc, "- ")
	p.Text = desc
	return p
}

// splitBraces splits "{Type} rest" into its parts, honoring nested braces.
func splitBraces(s string) (typ, rest string) {
	if !strings.HasPrefix(s, "{") {
		return "", s
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), strings.TrimSpace(s[i+1:])
			}
		}
	}
	return "", s
}
