// Package jsrt executes CommonJS sources on a goja runtime backed by a
// client.Context.
//
// A Runtime can be fed either an ir.Bundle through Load, or the textual
// output of package transport through Eval, which calls into the $rmod
// global the Runtime installs. Sources are wrapped in the factory
//
//	function(require, exports, module, __filename, __dirname) { ... }
//
// and registered as client definitions, so resolution, caching and
// circular requires behave exactly as in the Go client.
//
// A Runtime is not safe for concurrent use; goja runtimes are bound to a
// single goroutine at a time.
package jsrt
