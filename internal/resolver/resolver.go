// Package resolver is the build-time half of module resolution.
//
// It walks a real filesystem the way Node does (relative joins, the
// node_modules ascending search, extension trial, package.json main) and
// describes every resolved file or directory as a PathInfo: the logical
// path a bundle will use at runtime, the version-qualified real path used
// for deduplication, and the dependency, main and remap facts the client
// runtime needs to reproduce the same resolution from memory.
//
// Browser field overrides are applied when Options.Browser is set.
//
// Every probe is memoized for the lifetime of a Resolver. Create a new one
// to observe filesystem changes.
package resolver

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/roach88/rmod/internal/modpath"
	"github.com/roach88/rmod/internal/overrides"
	"github.com/roach88/rmod/internal/pkgjson"
	"github.com/roach88/rmod/internal/probe"
)

// maxOverrideDepth bounds chains of browser overrides that lead to files
// which are themselves overridden.
const maxOverrideDepth = 8

// Options configures a Resolver.
type Options struct {
	// Root is the project root. When empty it is discovered per path as
	// the nearest ancestor outside node_modules whose package.json has a
	// name.
	Root string

	// Extensions are tried in order when probing files and are stripped
	// from logical and real paths.
	Extensions []string

	// SearchPaths are extra directories consulted for bare requests after
	// the node_modules chain.
	SearchPaths []string

	// Browser applies package.json browser overrides.
	Browser bool

	// RemoveExt strips a registered extension from file paths.
	RemoveExt bool

	Logger *slog.Logger
}

// DefaultOptions returns options with browser overrides and extension
// stripping enabled.
func DefaultOptions() Options {
	return Options{
		Extensions: modpath.DefaultExtensions,
		Browser:    true,
		RemoveExt:  true,
	}
}

// Resolver resolves requests against the filesystem.
//
// Thread-safety: all methods are safe for concurrent use.
type Resolver struct {
	opts      Options
	fs        *probe.FS
	pkgs      *pkgjson.Reader
	overrides *overrides.Engine
	logger    *slog.Logger

	mu    sync.Mutex
	roots []string
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	if opts.Extensions == nil {
		opts.Extensions = modpath.DefaultExtensions
	}
	if opts.Root != "" {
		if abs, err := filepath.Abs(opts.Root); err == nil {
			opts.Root = abs
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Resolver{
		opts:   opts,
		fs:     probe.New(),
		pkgs:   pkgjson.NewReader(),
		logger: logger,
	}
	r.overrides = overrides.New(r.pkgs, r.findMain, opts.Extensions)
	return r
}

// Options returns the effective options.
func (r *Resolver) Options() Options {
	return r.opts
}
