package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/rmod/internal/ir"
	"github.com/roach88/rmod/internal/resolver"
)

// Options configures a Builder.
type Options struct {
	// IDs generates the bundle ID. Defaults to ir.UUIDv7Generator.
	IDs ir.IDGenerator

	// Clock stamps op sequence numbers. Defaults to a fresh ir.Clock per
	// build.
	Clock ir.Sequencer

	// Wait marks entry runs as deferred until the bundle is ready.
	Wait bool

	// AllowMissing logs unresolvable requires instead of failing. Node
	// core modules are always skipped.
	AllowMissing bool

	Logger *slog.Logger
}

// Builder turns entry requests into a bundle.
type Builder struct {
	resolver *resolver.Resolver
	opts     Options
	logger   *slog.Logger
}

// New creates a Builder resolving through r.
func New(r *resolver.Resolver, opts Options) *Builder {
	if opts.IDs == nil {
		opts.IDs = ir.UUIDv7Generator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{resolver: r, opts: opts, logger: logger}
}

// MissingError reports a require found in a source file that could not be
// resolved.
type MissingError struct {
	Request string
	File    string
	Err     error
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: require(%q): %v", e.File, e.Request, e.Err)
}

func (e *MissingError) Unwrap() error {
	return e.Err
}

// build holds the state of one Build call.
type build struct {
	*Builder
	ctx    context.Context
	clock  ir.Sequencer
	bundle *ir.Bundle

	deps   map[ir.Op]bool
	mains  map[string]bool
	remaps map[string]bool
	defs   map[string]bool // real paths with a def op
	walked map[string]bool // files whose requires were resolved
	runs   []ir.Op
}

// Build resolves each entry request from root and walks everything it
// requires. searchPaths are filesystem directories whose logical paths are
// registered as client search paths.
func (b *Builder) Build(ctx context.Context, root string, entries, searchPaths []string) (*ir.Bundle, error) {
	clock := b.opts.Clock
	if clock == nil {
		clock = ir.NewClock()
	}

	st := &build{
		Builder: b,
		ctx:     ctx,
		clock:   clock,
		bundle:  ir.NewBundle(b.opts.IDs.Generate()),
		deps:    make(map[ir.Op]bool),
		mains:   make(map[string]bool),
		remaps:  make(map[string]bool),
		defs:    make(map[string]bool),
		walked:  make(map[string]bool),
	}
	st.bundle.Entries = append([]string(nil), entries...)

	for _, dir := range searchPaths {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		info, err := b.resolver.PathInfo(dir)
		if err != nil {
			return nil, fmt.Errorf("search path %s: %w", dir, err)
		}
		st.emit(ir.Op{Kind: ir.OpSearchPath, Path: info.LogicalPath})
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := b.resolver.ResolveRequire(entry, root)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry, err)
		}
		if err := st.add(info, true); err != nil {
			return nil, err
		}
	}

	for _, run := range st.runs {
		st.emit(run)
	}

	b.logger.Info("bundle built",
		"bundle_id", st.bundle.ID,
		"entries", len(entries),
		"ops", len(st.bundle.Ops),
		"defs", st.bundle.Count(ir.OpDef))
	return st.bundle, nil
}

func (st *build) emit(op ir.Op) {
	op.Seq = st.clock.Next()
	st.bundle.Ops = append(st.bundle.Ops, op)
}

// add emits the operations for info. entry marks a build entry, whose file
// becomes a run instead of a def.
func (st *build) add(info *resolver.PathInfo, entry bool) error {
	if dep := info.Dep; dep != nil {
		op := ir.Op{
			Kind:    ir.OpDep,
			Path:    dep.ParentPath,
			Name:    dep.ChildName,
			Version: dep.ChildVersion,
			Alias:   dep.Alias,
		}
		if !st.deps[op] {
			st.deps[op] = true
			st.emit(op)
		}
	}

	if remap := info.Remap; remap != nil && !st.remaps[remap.From] {
		st.remaps[remap.From] = true
		st.emit(ir.Op{Kind: ir.OpRemap, Path: remap.From, Target: remap.To})
	}

	if info.IsDir {
		if info.Main == nil {
			return fmt.Errorf("directory %s has no main file", info.FilePath)
		}
		if !st.mains[info.RealPath] {
			st.mains[info.RealPath] = true
			st.emit(ir.Op{Kind: ir.OpMain, Path: info.RealPath, Target: info.Main.Path})
		}
		mainInfo, err := st.resolver.PathInfo(info.Main.FilePath)
		if err != nil {
			return err
		}
		return st.add(mainInfo, entry)
	}

	return st.addFile(info, entry)
}

// addFile walks every physical file once. Copies of the same package
// version share one def, but each copy resolves its own requires so the
// dep edges under every logical path are emitted.
func (st *build) addFile(info *resolver.PathInfo, entry bool) error {
	if st.walked[info.FilePath] {
		return nil
	}
	st.walked[info.FilePath] = true
	defined := st.defs[info.RealPath]
	st.defs[info.RealPath] = true

	data, err := os.ReadFile(info.FilePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", info.FilePath, err)
	}
	source := string(data)

	if filepath.Ext(info.FilePath) == ".json" {
		if defined {
			return nil
		}
		st.emit(ir.Op{Kind: ir.OpDef, Path: info.RealPath, Source: source, Object: true, File: info.FilePath})
		return nil
	}

	if entry {
		st.runs = append(st.runs, ir.Op{
			Kind:   ir.OpRun,
			Path:   info.LogicalPath,
			Source: source,
			Wait:   st.opts.Wait,
			File:   info.FilePath,
		})
	} else if !defined {
		st.emit(ir.Op{Kind: ir.OpDef, Path: info.RealPath, Source: source, File: info.FilePath})
	}

	requests, err := ScanRequires(info.FilePath, source)
	if err != nil {
		return err
	}

	dir := filepath.Dir(info.FilePath)
	for _, request := range requests {
		if err := st.ctx.Err(); err != nil {
			return err
		}

		child, err := st.resolver.ResolveRequire(request, dir)
		if err != nil {
			if !resolver.IsNotFound(err) {
				return &MissingError{Request: request, File: info.FilePath, Err: err}
			}
			if IsBuiltin(request) {
				st.logger.Debug("skipping core module", "request", request, "file", info.FilePath)
				continue
			}
			if st.opts.AllowMissing {
				st.logger.Warn("unresolved require", "request", request, "file", info.FilePath)
				continue
			}
			return &MissingError{Request: request, File: info.FilePath, Err: err}
		}

		if err := st.add(child, false); err != nil {
			var missing *MissingError
			if errors.As(err, &missing) {
				return err
			}
			return fmt.Errorf("%s: require(%q): %w", info.FilePath, request, err)
		}
	}
	return nil
}
