package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/automatique/autoapi"
	"github.com/automatique/autoapi/cmd/autoapi/internal/cli"
)

type Cmd struct {
	Project cli.Project `embed:""`
}

func (c *Cmd) Run(g *cli.Globals) error {
	res, err := build(g, &c.Project)
	if err != nil {
		cli.Report(g.Out(), err)
		return err
	}

	out := g.Out()
	records := res.Routes.Records()
	fmt.Fprintf(out, "✓ Found %d exported functions\n", len(records))
	for _, r := range records {
		fmt.Fprintf(out, "  %-4s %s\n", strings.ToUpper(string(r.Method)), r.Path)
	}
	fmt.Fprintln(out, "✓ All parameter and return types serializable")
	return nil
}

// RoutesCmd prints the route tree.
type RoutesCmd struct {
	Project cli.Project `embed:""`
}

func (c *RoutesCmd) Run(g *cli.Globals) error {
	res, err := build(g, &c.Project)
	if err != nil {
		return err
	}
	a, _, err := res.Artifact(autoapi.RoutesFile)
	if err != nil {
		return err
	}
	_, err = g.Out().Write(a.Content)
	return err
}

func build(g *cli.Globals, p *cli.Project) (*autoapi.Result, error) {
	cfg, err := g.LoadConfig()
	if err != nil {
		return nil, err
	}
	opts := p.Options(cfg)
	opts.Logger = g.Logger()
	return autoapi.Build(context.Background(), opts)
}
