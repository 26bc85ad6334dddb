// Package config loads rmod.cue project configuration.
//
// The file is validated against an embedded CUE schema that also supplies
// the defaults. RMOD_* environment variables override file values; command
// line flags are applied last by the caller.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v11"

	"github.com/roach88/rmod/internal/resolver"
)

//go:embed schema.cue
var schemaCUE []byte

// FileName is the config file looked up in a project directory.
const FileName = "rmod.cue"

// Config is the decoded project configuration.
type Config struct {
	Root        string   `json:"root,omitempty"`
	Extensions  []string `json:"extensions"`
	SearchPaths []string `json:"searchPaths"`
	Entries     []string `json:"entries"`
	Browser     bool     `json:"browser"`
	RemoveExt   bool     `json:"removeExt"`
	Wait        bool     `json:"wait"`
	Database    string   `json:"database,omitempty"`
}

// envOverrides lists the environment variables that replace file values.
// Unset variables leave the pointer nil.
type envOverrides struct {
	Root        *string  `env:"RMOD_ROOT"`
	Extensions  []string `env:"RMOD_EXTENSIONS" envSeparator:","`
	SearchPaths []string `env:"RMOD_SEARCH_PATHS" envSeparator:","`
	Browser     *bool    `env:"RMOD_BROWSER"`
	Database    *string  `env:"RMOD_DB"`
}

// Default returns the schema defaults.
func Default() *Config {
	cfg, err := Parse(nil, "<default>")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema defaults: %v", err))
	}
	return cfg
}

// Parse validates data against the schema and decodes it.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("internal error: schema definition #Config not found: %w", err)
	}

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, formatError(err, filename)
	}

	unified := def.Unify(user)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatError(err, filename)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, formatError(err, filename)
	}
	return &cfg, nil
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	environment map[string]string
}

// WithEnvironment replaces the process environment, for tests.
func WithEnvironment(environ map[string]string) Option {
	return func(o *loadOptions) {
		o.environment = environ
	}
}

// Load reads dir/rmod.cue, falling back to the defaults when the file does
// not exist, then applies environment overrides. Relative root, search
// path and database entries are made absolute against dir.
func Load(dir string, opts ...Option) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(o.environment); err != nil {
		return nil, err
	}

	cfg.Root = absFrom(dir, cfg.Root)
	cfg.Database = absFrom(dir, cfg.Database)
	for i, p := range cfg.SearchPaths {
		cfg.SearchPaths[i] = absFrom(dir, p)
	}
	return cfg, nil
}

func (c *Config) applyEnv(environ map[string]string) error {
	var o envOverrides
	var err error
	if environ != nil {
		err = env.ParseWithOptions(&o, env.Options{Environment: environ})
	} else {
		err = env.Parse(&o)
	}
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Root != nil {
		c.Root = *o.Root
	}
	if len(o.Extensions) > 0 {
		c.Extensions = o.Extensions
	}
	if len(o.SearchPaths) > 0 {
		c.SearchPaths = o.SearchPaths
	}
	if o.Browser != nil {
		c.Browser = *o.Browser
	}
	if o.Database != nil {
		c.Database = *o.Database
	}
	return nil
}

func absFrom(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// ResolverOptions maps the configuration onto the build-time resolver.
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		Root:        c.Root,
		Extensions:  append([]string(nil), c.Extensions...),
		SearchPaths: append([]string(nil), c.SearchPaths...),
		Browser:     c.Browser,
		RemoveExt:   c.RemoveExt,
	}
}

// formatError renders CUE errors as "<file>: <path>: <message>" lines.
func formatError(err error, filename string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", filename, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		path := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			lines = append(lines, path+": "+msg)
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filename, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filename, strings.Join(lines, "\n  "))
}
