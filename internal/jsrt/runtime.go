package jsrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/roach88/rmod/internal/client"
	"github.com/roach88/rmod/internal/ir"
	"github.com/roach88/rmod/internal/transport"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger console output and load events go to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithGlobal renames the bootstrap global installed for Eval.
func WithGlobal(name string) Option {
	return func(r *Runtime) {
		if name != "" {
			r.global = name
		}
	}
}

// WithClientOptions forwards options to the underlying client.Context.
func WithClientOptions(opts ...client.Option) Option {
	return func(r *Runtime) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// Runtime pairs a goja VM with the client registries.
type Runtime struct {
	vm     *goja.Runtime
	ctx    *client.Context
	logger *slog.Logger
	global string

	clientOpts []client.Option
	jsonParse  goja.Callable
}

// New creates a Runtime with console and the bootstrap global installed.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		vm:     goja.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		global: transport.DefaultGlobal,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.ctx = client.New(append([]client.Option{client.WithLogger(r.logger)}, r.clientOpts...)...)

	parse, ok := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("parse"))
	if !ok {
		return nil, errors.New("jsrt: JSON.parse is not callable")
	}
	r.jsonParse = parse

	if err := r.vm.Set("console", r.console()); err != nil {
		return nil, fmt.Errorf("jsrt: install console: %w", err)
	}
	if err := r.vm.Set(r.global, r.bootstrap()); err != nil {
		return nil, fmt.Errorf("jsrt: install %s: %w", r.global, err)
	}
	return r, nil
}

// Client returns the registries the runtime loads into.
func (r *Runtime) Client() *client.Context {
	return r.ctx
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Load applies every op of b in order. Defs are compiled eagerly, so a
// syntax error fails the load. Runs execute as they are reached unless
// they wait, in which case Ready starts them.
func (r *Runtime) Load(ctx context.Context, b *ir.Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}

	for i, op := range b.Ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.apply(op); err != nil {
			return &LoadError{Index: i, Kind: op.Kind, Path: op.Path, Err: err}
		}
	}

	r.logger.Info("bundle loaded",
		"bundle_id", b.ID,
		"ops", len(b.Ops),
		"defs", b.Count(ir.OpDef),
		"runs", b.Count(ir.OpRun))
	return nil
}

func (r *Runtime) apply(op ir.Op) error {
	switch op.Kind {
	case ir.OpDef:
		if op.Object {
			value, err := r.parseJSON(op.Source)
			if err != nil {
				return err
			}
			r.ctx.DefineValue(op.Path, value)
			return nil
		}
		fn, err := r.compile(sourceName(op), op.Source)
		if err != nil {
			return err
		}
		r.ctx.Define(op.Path, r.factory(fn))

	case ir.OpDep:
		r.ctx.RegisterDependency(op.Path, op.Name, op.Version, op.Alias)

	case ir.OpMain:
		r.ctx.RegisterMain(op.Path, op.Target)

	case ir.OpRemap:
		r.ctx.RegisterRemap(op.Path, op.Target)

	case ir.OpSearchPath:
		r.ctx.AddSearchPath(op.Path)

	case ir.OpRun:
		fn, err := r.compile(sourceName(op), op.Source)
		if err != nil {
			return err
		}
		if _, err := r.ctx.Run(op.Path, r.factory(fn), client.RunOptions{Wait: op.Wait}); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported op kind %q", op.Kind)
	}
	return nil
}

func sourceName(op ir.Op) string {
	if op.File != "" {
		return op.File
	}
	return op.Path
}

// Eval runs script, typically transport output, in the runtime.
func (r *Runtime) Eval(name, script string) error {
	_, err := r.vm.RunScript(name, script)
	return err
}

// Ready starts every waiting run.
func (r *Runtime) Ready() error {
	return r.ctx.Ready()
}

// Require loads request from the logical directory from and returns its
// exports converted to Go values.
func (r *Runtime) Require(request, from string) (any, error) {
	exports, err := r.ctx.Require(request, from)
	if err != nil {
		return nil, err
	}
	return Export(exports), nil
}

// Exports returns the exports of an already instantiated module.
func (r *Runtime) Exports(logicalPath string) (any, bool) {
	m, ok := r.ctx.Lookup(logicalPath)
	if !ok {
		return nil, false
	}
	return Export(m.Exports), true
}

// Export converts JavaScript values to their Go counterparts and leaves
// other values untouched.
func Export(v any) any {
	if value, ok := v.(goja.Value); ok {
		return value.Export()
	}
	return v
}

func (r *Runtime) parseJSON(source string) (goja.Value, error) {
	value, err := r.jsonParse(goja.Undefined(), r.vm.ToValue(source))
	if err != nil {
		return nil, fmt.Errorf("parse object: %w", err)
	}
	return value, nil
}

// compile wraps source in the factory function and evaluates it to a
// callable.
func (r *Runtime) compile(name, source string) (goja.Callable, error) {
	wrapped := "(" + transport.Wrap(source) + ")"
	program, err := goja.Compile(name, wrapped, false)
	if err != nil {
		return nil, err
	}
	value, err := r.vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return nil, fmt.Errorf("%s: factory is not a function", name)
	}
	return fn, nil
}

// factory adapts a compiled JavaScript factory to the client.
func (r *Runtime) factory(fn goja.Callable) client.Factory {
	return func(req *client.Require, m *client.Module) error {
		exports := r.vm.NewObject()
		m.Exports = exports

		module, err := r.moduleObject(m)
		if err != nil {
			return err
		}
		_, err = fn(exports,
			r.requireFunc(req),
			exports,
			module,
			r.vm.ToValue(m.Filename),
			r.vm.ToValue(m.Dirname))
		return err
	}
}

// moduleObject exposes m to JavaScript. exports is an accessor so that
// replacing module.exports is visible to circular requires.
func (r *Runtime) moduleObject(m *client.Module) (*goja.Object, error) {
	obj := r.vm.NewObject()
	_ = obj.Set("id", m.ID)
	_ = obj.Set("filename", m.Filename)

	getExports := r.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(m.Exports)
	})
	setExports := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		m.Exports = call.Argument(0)
		return goja.Undefined()
	})
	if err := obj.DefineAccessorProperty("exports", getExports, setExports, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return nil, err
	}

	loaded := r.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(m.Loaded())
	})
	if err := obj.DefineAccessorProperty("loaded", loaded, nil, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return nil, err
	}
	return obj, nil
}

// requireFunc builds the require function handed to a factory.
func (r *Runtime) requireFunc(req *client.Require) *goja.Object {
	fn := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		exports, err := req.Require(call.Argument(0).String())
		if err != nil {
			r.throw(err)
		}
		return r.vm.ToValue(exports)
	}).(*goja.Object)

	_ = fn.Set("resolve", func(call goja.FunctionCall) goja.Value {
		resolved, err := req.Resolve(call.Argument(0).String())
		if err != nil {
			r.throw(err)
		}
		return r.vm.ToValue(resolved.LogicalPath)
	})
	return fn
}

// throw raises err in JavaScript. Exceptions coming back from nested
// factories are rethrown as is so the original value reaches the caller.
func (r *Runtime) throw(err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex)
	}
	panic(r.vm.NewGoError(err))
}

func (r *Runtime) console() map[string]any {
	logAt := func(level slog.Level) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			r.logger.Log(context.Background(), level, strings.Join(parts, " "), "source", "console")
			return goja.Undefined()
		}
	}
	return map[string]any{
		"log":   logAt(slog.LevelInfo),
		"info":  logAt(slog.LevelInfo),
		"debug": logAt(slog.LevelDebug),
		"warn":  logAt(slog.LevelWarn),
		"error": logAt(slog.LevelError),
	}
}
