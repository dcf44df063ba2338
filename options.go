package autoapi

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/internal/synth"
	"github.com/automatique/autoapi/oracle"
	"github.com/automatique/autoapi/sink"
)

// Options configures a build.
type Options struct {
	// Root is the project directory. It must contain Entry and a package.json.
	Root string `validate:"required"`

	// Entry is the module file whose default export is served, relative to Root.
	Entry string `validate:"required"`

	// Language forces the source dialect. Empty infers it from Entry's
	// extension.
	Language oracle.Language `validate:"omitempty,oneof=typescript javascript"`

	// Port is the fallback listening port when PORT is unset at runtime.
	// Default: 3000
	Port int `validate:"min=1,max=65535"`

	// RequiredFunctions are dotted export paths, e.g. "math.square", that must
	// resolve to functions.
	RequiredFunctions []string `validate:"dive,required,exportpath"`

	// DebugEnv is the environment variable that makes generated handlers
	// include error stacks in 500 responses.
	// Default: "DEBUG"
	DebugEnv string `validate:"envname"`

	// RequestLogging adds morgan request logging to the server.
	RequestLogging bool

	// Output is the server file name, relative to Root.
	// Default: "server.ts" or "server.js"
	Output string `validate:"required"`

	// Clock supplies the generation timestamp. Default: time.Now.
	Clock func() time.Time `validate:"-"`

	// Logger receives build progress. Default: slog.Default().
	Logger *slog.Logger `validate:"-"`

	// Oracle type-checks the entry file. Default: the tree-sitter loader.
	Oracle oracle.Oracle `validate:"-"`
}

var (
	envName    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	exportPath = regexp.MustCompile(`^[^.]+(\.[^.]+)*$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("envname", func(fl validator.FieldLevel) bool {
		return envName.MatchString(fl.Field().String())
	})
	v.RegisterValidation("exportpath", func(fl validator.FieldLevel) bool {
		return exportPath.MatchString(fl.Field().String())
	})
	return v
}

// withDefaults returns a copy of o with defaults applied and the language
// resolved.
func (o Options) withDefaults() (Options, error) {
	if o.Language == "" {
		lang, ok := oracle.LanguageFromPath(o.Entry)
		if !ok && o.Entry != "" {
			return o, apierr.Errorf(apierr.CodeInvalidOptions,
				"Cannot infer the language of %s; set Language", o.Entry).WithDetail("entry", o.Entry)
		}
		o.Language = lang
	}
	if o.Port == 0 {
		o.Port = synth.DefaultPort
	}
	if o.DebugEnv == "" {
		o.DebugEnv = synth.DefaultDebugEnv
	}
	if o.Output == "" {
		o.Output = "server" + o.Language.Ext()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o, nil
}

// Validate reports whether o, after defaults, describes a buildable project.
func (o Options) Validate() error {
	o, err := o.withDefaults()
	if err != nil {
		return err
	}
	return o.validate()
}

func (o Options) validate() error {
	if err := validate.Struct(o); err != nil {
		return apierr.From(err)
	}
	if err := sink.ValidatePath(o.Output); err != nil {
		return apierr.Wrap(apierr.CodeInvalidOptions, err, "Output: "+err.Error()).
			WithDetail("output", o.Output)
	}
	return nil
}
