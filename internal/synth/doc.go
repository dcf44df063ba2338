package synth

import (
	"bytes"
	"strings"
)

// docBlock renders an apidoc comment for a route.
func docBlock(r *RouteRecord) string {
	var buf bytes.Buffer
	buf.WriteString("/**\n")
	buf.WriteString(" * @api {")
	buf.WriteString(string(r.Method))
	buf.WriteString("} ")
	buf.WriteString(r.Path)
	if title := strings.TrimPrefix(r.Alias, RootAlias+"."); title != RootAlias {
		buf.WriteString(" ")
		buf.WriteString(title)
	}
	buf.WriteString("\n")

	if r.Doc.Text != "" {
		lines := strings.Split(r.Doc.Text, "\n")
		buf.WriteString(" * @apiDescription ")
		buf.WriteString(sanitizeComment(lines[0]))
		buf.WriteString("\n")
		for _, line := range lines[1:] {
			buf.WriteString(" *   ")
			buf.WriteString(sanitizeComment(line))
			buf.WriteString("\n")
		}
	}

	for _, p := range r.Params {
		buf.WriteString(" * @apiParam {")
		buf.WriteString(sanitizeComment(p.Type.String()))
		buf.WriteString("} ")
		if p.Optional {
			buf.WriteString("[" + p.Name + "]")
		} else {
			buf.WriteString(p.Name)
		}
		if p.Doc != "" {
			buf.WriteString(" ")
			buf.WriteString(sanitizeComment(oneLine(p.Doc)))
		}
		buf.WriteString("\n")
	}

	buf.WriteString(" * @apiSuccess {")
	buf.WriteString(sanitizeComment(r.Return.String()))
	buf.WriteString("} response")
	if r.Doc.Return != "" {
		buf.WriteString(" ")
		buf.WriteString(sanitizeComment(oneLine(r.Doc.Return)))
	}
	buf.WriteString("\n */\n")
	return buf.String()
}

// sanitizeComment keeps text from closing the surrounding block comment.
func sanitizeComment(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "*/", "*\\/"))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
