package synth

import (
	"bytes"
	"path"
	"strings"
	"time"
)

// DefaultPort is the port the generated server listens on when PORT is unset.
const DefaultPort = 3000

// ServerConfig configures the generated server file.
type ServerConfig struct {
	// Typed selects ES module imports; otherwise require is used.
	Typed bool

	// Entry is the entry file, relative to the output directory.
	Entry string

	Port           int
	RequestLogging bool
	Generated      time.Time
}

// ImportPath returns the module specifier for entry: a relative path with the
// extension removed, e.g. "./src/index".
func ImportPath(entry string) string {
	p := path.Clean(strings.ReplaceAll(entry, "\\", "/"))
	p = strings.TrimSuffix(p, path.Ext(p))
	if !strings.HasPrefix(p, "../") && !strings.HasPrefix(p, "/") {
		p = "./" + p
	}
	return p
}

// RenderServer renders the complete server source for asm.
func RenderServer(asm *Assembly, cfg ServerConfig) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	data := serverData{
		Generated:      cfg.Generated.UTC().Format(time.RFC1123),
		Typed:          cfg.Typed,
		Import:         ImportPath(cfg.Entry),
		Post:           asm.Post,
		Promise:        asm.Promise,
		RequestLogging: cfg.RequestLogging,
		Routes:         asm.Code,
		Port:           port,
	}
	var buf bytes.Buffer
	if err := serverTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
