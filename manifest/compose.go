package manifest

import "github.com/automatique/autoapi/oracle"

// Dependency version ranges added by Compose.
const (
	ExpressVersion    = "~4"
	IsPromiseVersion  = "^4"
	BodyParserVersion = "latest"
	MorganVersion     = "^1"
	TypesVersion      = "latest"
	TypeScriptVersion = "latest"
)

// ComposeOptions adds optional server features to the composed manifest.
type ComposeOptions struct {
	// RequestLogging adds morgan.
	RequestLogging bool
}

// Compose returns a copy of caller with the generated server's dependencies
// added. Entries already present in caller are left untouched.
//
// allGet reports whether every route uses GET; body-parser is only needed
// otherwise. TypeScript builds also get type packages and the compiler.
func Compose(caller *Package, lang oracle.Language, allGet bool, opts ComposeOptions) *Package {
	p := caller.Clone()
	if p.Dependencies == nil {
		p.Dependencies = make(map[string]string)
	}
	deps := map[string]string{
		"express":    ExpressVersion,
		"is-promise": IsPromiseVersion,
	}
	if !allGet {
		deps["body-parser"] = BodyParserVersion
	}
	if opts.RequestLogging {
		deps["morgan"] = MorganVersion
	}

	if lang.Typed() {
		deps["@types/express"] = ExpressVersion
		if !allGet {
			deps["@types/body-parser"] = TypesVersion
		}
		if opts.RequestLogging {
			deps["@types/morgan"] = TypesVersion
		}
		if p.DevDependencies == nil {
			p.DevDependencies = make(map[string]string)
		}
		addMissing(p.DevDependencies, map[string]string{
			"typescript":  TypeScriptVersion,
			"@types/node": TypesVersion,
		})
	}
	addMissing(p.Dependencies, deps)
	return p
}

func addMissing(dst, defaults map[string]string) {
	for name, version := range defaults {
		if _, ok := dst[name]; !ok {
			dst[name] = version
		}
	}
}
