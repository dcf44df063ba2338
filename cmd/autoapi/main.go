package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/automatique/autoapi/cmd/autoapi/internal/build"
	"github.com/automatique/autoapi/cmd/autoapi/internal/check"
	"github.com/automatique/autoapi/cmd/autoapi/internal/cli"
	"github.com/automatique/autoapi/cmd/autoapi/internal/serve"
)

type CLI struct {
	Globals cli.Globals `embed:""`

	Version VersionCmd      `cmd:"" help:"Print version information."`
	Build   build.Cmd       `cmd:"" help:"Generate the server, package.json and routes.json."`
	Check   check.Cmd       `cmd:"" help:"Validate the default export without writing files."`
	Routes  check.RoutesCmd `cmd:"" help:"Print the route tree as JSON."`
	Serve   serve.Cmd       `cmd:"" help:"Build continuously and serve the devtools API."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(g *cli.Globals) error {
	fmt.Fprintln(g.Out(), Version())
	return nil
}

func main() {
	c := &CLI{}
	ctx := kong.Parse(c,
		kong.Name("autoapi"),
		kong.Description("Generate an Express server from a module's default export."),
		kong.UsageOnError(),
		kong.Bind(&c.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
