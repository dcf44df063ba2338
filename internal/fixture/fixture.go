// Package fixture holds multi-file JavaScript and TypeScript projects stored
// as txtar archives, and expands them into directories for tests.
//
// An archive's comment may carry "key: value" metadata lines; "entry" names
// the module entry file.
package fixture

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"
)

//go:embed testdata/*.txtar
var archives embed.FS

// Project is a parsed fixture archive.
type Project struct {
	Name    string
	Comment string
	Meta    map[string]string
	Files   map[string][]byte
}

// Entry returns the entry file named by the "entry" metadata, or "index.ts".
func (p *Project) Entry() string {
	if e := p.Meta["entry"]; e != "" {
		return e
	}
	return "index.ts"
}

// Names lists the embedded fixtures.
func Names() []string {
	entries, err := archives.ReadDir("testdata")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".txtar"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Load returns the embedded fixture called name.
func Load(name string) (*Project, error) {
	data, err := archives.ReadFile(path.Join("testdata", name+".txtar"))
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", name, err)
	}
	return Parse(name, data), nil
}

// Parse decodes a txtar archive into a Project.
func Parse(name string, data []byte) *Project {
	a := txtar.Parse(data)
	p := &Project{
		Name:  name,
		Meta:  make(map[string]string),
		Files: make(map[string][]byte, len(a.Files)),
	}
	var comment []string
	sc := bufio.NewScanner(bytes.NewReader(a.Comment))
	for sc.Scan() {
		line := sc.Text()
		if k, v, ok := strings.Cut(line, ":"); ok && !strings.ContainsAny(k, " \t") && k != "" {
			p.Meta[k] = strings.TrimSpace(v)
			continue
		}
		comment = append(comment, line)
	}
	p.Comment = strings.TrimSpace(strings.Join(comment, "\n"))
	for _, f := range a.Files {
		p.Files[f.Name] = f.Data
	}
	return p
}

// Format renders p back into txtar form.
func (p *Project) Format() []byte {
	a := &txtar.Archive{}
	var comment bytes.Buffer
	if p.Comment != "" {
		comment.WriteString(p.Comment)
		comment.WriteByte('\n')
	}
	keys := make([]string, 0, len(p.Meta))
	for k := range p.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&comment, "%s: %s\n", k, p.Meta[k])
	}
	a.Comment = comment.Bytes()

	names := make([]string, 0, len(p.Files))
	for name := range p.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.Files = append(a.Files, txtar.File{Name: name, Data: p.Files[name]})
	}
	return txtar.Format(a)
}

// WriteTo writes every file of p below dir.
func (p *Project) WriteTo(dir string) error {
	for name, data := range p.Files {
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("fixture %s: file %q escapes the project directory", p.Name, name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
