// Package config loads the autoapi.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/automatique/autoapi"
	"github.com/automatique/autoapi/oracle"
)

// FileName is the project file looked up in the working directory.
const FileName = "autoapi.yaml"

// Config is the project file. Zero values mean "not set"; defaults are
// applied by autoapi.Options.
type Config struct {
	Root              string   `yaml:"root"`
	Entry             string   `yaml:"entry"`
	Language          string   `yaml:"language"`
	Port              int      `yaml:"port"`
	DebugEnv          string   `yaml:"debug_env"`
	RequestLogging    bool     `yaml:"request_logging"`
	Output            string   `yaml:"output"`
	RequiredFunctions []string `yaml:"required_functions"`

	Devtools DevtoolsConfig `yaml:"devtools"`
}

// DevtoolsConfig configures `autoapi serve`.
type DevtoolsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the project file at path. A missing file yields an empty Config
// when optional is set.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			cfg := &Config{}
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a project file. Unknown keys are errors. ${VAR} references
// are expanded from the environment before decoding, and AUTOAPI_PORT and
// AUTOAPI_DEBUG_ENV override the decoded values.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUTOAPI_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("AUTOAPI_DEBUG_ENV"); v != "" {
		cfg.DebugEnv = v
	}
}

// Options converts the file into build options. Fields left unset stay zero
// so that autoapi.Options defaults apply.
func (c *Config) Options() autoapi.Options {
	return autoapi.Options{
		Root:              c.Root,
		Entry:             c.Entry,
		Language:          oracle.Language(c.Language),
		Port:              c.Port,
		DebugEnv:          c.DebugEnv,
		RequestLogging:    c.RequestLogging,
		Output:            c.Output,
		RequiredFunctions: c.RequiredFunctions,
	}
}

// Encode renders c as YAML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
