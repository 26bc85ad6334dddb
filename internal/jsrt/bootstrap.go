package jsrt

import (
	"github.com/dop251/goja"

	"github.com/roach88/rmod/internal/client"
)

// bootstrap builds the global object transport output calls into.
func (r *Runtime) bootstrap() map[string]any {
	str := func(call goja.FunctionCall, i int) string {
		arg := call.Argument(i)
		if goja.IsUndefined(arg) || goja.IsNull(arg) {
			return ""
		}
		return arg.String()
	}

	return map[string]any{
		"def": func(call goja.FunctionCall) goja.Value {
			path := str(call, 0)
			if fn, ok := goja.AssertFunction(call.Argument(1)); ok {
				r.ctx.Define(path, r.factory(fn))
			} else {
				r.ctx.DefineValue(path, call.Argument(1))
			}
			return goja.Undefined()
		},
		"dep": func(call goja.FunctionCall) goja.Value {
			r.ctx.RegisterDependency(str(call, 0), str(call, 1), str(call, 2), str(call, 3))
			return goja.Undefined()
		},
		"main": func(call goja.FunctionCall) goja.Value {
			r.ctx.RegisterMain(str(call, 0), str(call, 1))
			return goja.Undefined()
		},
		"remap": func(call goja.FunctionCall) goja.Value {
			r.ctx.RegisterRemap(str(call, 0), str(call, 1))
			return goja.Undefined()
		},
		"addSearchPath": func(call goja.FunctionCall) goja.Value {
			r.ctx.AddSearchPath(str(call, 0))
			return goja.Undefined()
		},
		"run": func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(call.Argument(1))
			if !ok {
				panic(r.vm.NewTypeError("run: factory must be a function"))
			}
			var opts client.RunOptions
			if o := call.Argument(2); !goja.IsUndefined(o) && !goja.IsNull(o) {
				opts.Wait = o.ToObject(r.vm).Get("wait").ToBoolean()
			}
			exports, err := r.ctx.Run(str(call, 0), r.factory(fn), opts)
			if err != nil {
				r.throw(err)
			}
			return r.vm.ToValue(exports)
		},
		"ready": func(call goja.FunctionCall) goja.Value {
			if err := r.ctx.Ready(); err != nil {
				r.throw(err)
			}
			return goja.Undefined()
		},
		"require": func(call goja.FunctionCall) goja.Value {
			from := str(call, 1)
			if from == "" {
				from = "/"
			}
			exports, err := r.ctx.Require(str(call, 0), from)
			if err != nil {
				r.throw(err)
			}
			return r.vm.ToValue(exports)
		},
		"resolve": func(call goja.FunctionCall) goja.Value {
			from := str(call, 1)
			if from == "" {
				from = "/"
			}
			resolved, err := r.ctx.Resolve(str(call, 0), from)
			if err != nil {
				r.throw(err)
			}
			return r.vm.ToValue(map[string]any{
				"logicalPath": resolved.LogicalPath,
				"realPath":    resolved.RealPath,
			})
		},
	}
}
