package client

import (
	"io"
	"log/slog"

	"github.com/roach88/rmod/internal/modpath"
)

// DefaultExtensions are stripped from real paths when a definition is not
// found under the exact path.
var DefaultExtensions = modpath.DefaultExtensions

// Factory initializes a module. It receives a require bound to the
// module's logical directory and the module record whose Exports it may
// mutate or replace.
type Factory func(req *Require, module *Module) error

// Definition is a loadable unit: either a factory or a plain value used
// verbatim as exports.
type Definition struct {
	Factory Factory
	Value   any
	isValue bool
}

// IsValue reports whether the definition is a plain value.
func (d Definition) IsValue() bool {
	return d.isValue
}

// Edge is a registered dependency fact. Name is the package identity used
// in real paths; Alias is set when the edge was registered under an
// alternate name.
type Edge struct {
	Name    string
	Version string
	Alias   string
}

// Resolved is the outcome of a resolution.
type Resolved struct {
	LogicalPath string `json:"logicalPath" yaml:"logical"`
	RealPath    string `json:"realPath" yaml:"real"`
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger for resolution and instantiation events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithExtensions replaces the extensions stripped during definition lookup.
func WithExtensions(exts ...string) Option {
	return func(c *Context) {
		c.extensions = append([]string(nil), exts...)
	}
}

// Context owns the registries and the instance cache of one bundle session.
type Context struct {
	definitions  map[string]Definition
	dependencies map[string]Edge
	mains        map[string]string
	remaps       map[string]string
	searchPaths  []modpath.Path

	cache   map[string]*Module
	pending []string

	extensions []string
	logger     *slog.Logger
}

// New creates an empty Context.
func New(opts ...Option) *Context {
	c := &Context{
		definitions:  make(map[string]Definition),
		dependencies: make(map[string]Edge),
		mains:        make(map[string]string),
		remaps:       make(map[string]string),
		cache:        make(map[string]*Module),
		extensions:   DefaultExtensions,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Define registers a factory for realPath. The last registration wins.
func (c *Context) Define(realPath string, factory Factory) {
	c.definitions[modpath.Normalize(realPath)] = Definition{Factory: factory}
}

// DefineValue registers a plain value for realPath. The value becomes the
// module's exports without any invocation.
func (c *Context) DefineValue(realPath string, value any) {
	c.definitions[modpath.Normalize(realPath)] = Definition{Value: value, isValue: true}
}

// RegisterDependency records that parent resolves name to version. When
// alias is non-empty the edge is also reachable as alias, while real paths
// keep name as the package identity.
//
// Re-registering an edge overwrites it.
func (c *Context) RegisterDependency(parent, name, version, alias string) {
	scope := modpath.Parse(parent)
	c.dependencies[modpath.DependencyKey(scope, name)] = Edge{Name: name, Version: version}
	if alias != "" && alias != name {
		c.dependencies[modpath.DependencyKey(scope, alias)] = Edge{Name: name, Version: version, Alias: alias}
	}
}

// RegisterMain binds a directory real path to its entry file.
func (c *Context) RegisterMain(dirRealPath, relEntry string) {
	c.mains[modpath.Normalize(dirRealPath)] = relEntry
}

// RegisterRemap replaces oldRealPath with a file relative to it.
func (c *Context) RegisterRemap(oldRealPath, relTarget string) {
	c.remaps[modpath.Normalize(oldRealPath)] = relTarget
}

// AddSearchPath appends a logical root consulted for bare requests that no
// dependency edge satisfies.
func (c *Context) AddSearchPath(logicalPath string) {
	c.searchPaths = append(c.searchPaths, modpath.Parse(logicalPath).Rooted())
}

// Edge returns the dependency edge registered for name under parent.
func (c *Context) Edge(parent, name string) (Edge, bool) {
	edge, ok := c.dependencies[modpath.DependencyKey(modpath.Parse(parent), name)]
	return edge, ok
}

// Defined reports whether realPath has a definition.
func (c *Context) Defined(realPath string) bool {
	_, ok := c.definitions[realPath]
	return ok
}

// Lookup returns the cached module for a logical path.
func (c *Context) Lookup(logicalPath string) (*Module, bool) {
	m, ok := c.cache[logicalPath]
	return m, ok
}
