package autoapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/automatique/autoapi/internal/synth"
	"github.com/automatique/autoapi/manifest"
	"github.com/automatique/autoapi/oracle"
	"github.com/automatique/autoapi/sink"
)

// Artifact file names, besides the server file.
const (
	ManifestFile = "package.json"
	RoutesFile   = "routes.json"
	TSConfigFile = "tsconfig.json"
)

type (
	// MultiRoute is the route metadata tree; it mirrors the export tree.
	MultiRoute = synth.MultiRoute

	// RouteRecord describes one synthesized route.
	RouteRecord = synth.RouteRecord

	// Method is GET or POST.
	Method = synth.Method
)

// Result is the output of a successful build.
type Result struct {
	Language oracle.Language

	// ServerFile is the name the server source is written under.
	ServerFile string

	// Server is the generated server source, unformatted.
	Server string

	// Manifest is the caller's package.json with the server's dependencies
	// added.
	Manifest *manifest.Package

	Routes *MultiRoute

	// TSConfig is nil for JavaScript builds.
	TSConfig *manifest.TSConfig
}

// Artifact is one generated file.
type Artifact struct {
	Name    string
	Content []byte
}

// Artifacts renders every generated file: the server, package.json,
// routes.json and, for TypeScript, tsconfig.json.
func (r *Result) Artifacts() ([]Artifact, error) {
	pkg, err := r.Manifest.Indent()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ManifestFile, err)
	}
	routes, err := json.MarshalIndent(r.Routes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", RoutesFile, err)
	}
	out := []Artifact{
		{Name: r.ServerFile, Content: []byte(r.Server)},
		{Name: ManifestFile, Content: pkg},
		{Name: RoutesFile, Content: append(routes, '\n')},
	}
	if r.TSConfig != nil {
		cfg, err := json.MarshalIndent(r.TSConfig, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", TSConfigFile, err)
		}
		out = append(out, Artifact{Name: TSConfigFile, Content: append(cfg, '\n')})
	}
	return out, nil
}

// Artifact returns the generated file called name.
func (r *Result) Artifact(name string) (Artifact, bool, error) {
	all, err := r.Artifacts()
	if err != nil {
		return Artifact{}, false, err
	}
	for _, a := range all {
		if a.Name == name {
			return a, true, nil
		}
	}
	return Artifact{}, false, nil
}

// WriteTo writes every artifact to s.
func (r *Result) WriteTo(ctx context.Context, s sink.OutputSink) error {
	all, err := r.Artifacts()
	if err != nil {
		return err
	}
	for _, a := range all {
		if err := s.WriteFile(ctx, a.Name, a.Content); err != nil {
			return fmt.Errorf("write %s: %w", a.Name, err)
		}
	}
	return nil
}
