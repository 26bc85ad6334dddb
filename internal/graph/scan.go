package graph

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

var astPkgPath = reflect.TypeOf(ast.Program{}).PkgPath()

// ScanRequires parses src and returns the string literal arguments of
// every require(...) call in source order, without duplicates. Dynamic
// requires (non-literal arguments) are ignored.
func ScanRequires(filename, src string) ([]string, error) {
	program, err := parser.ParseFile(nil, filename, src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	s := &scanner{
		seen:    make(map[string]bool),
		visited: make(map[uintptr]bool),
	}
	s.walk(reflect.ValueOf(program))
	return s.requests, nil
}

type scanner struct {
	requests []string
	seen     map[string]bool
	visited  map[uintptr]bool
}

// walk visits every node reachable through exported fields of goja ast
// types. The ast package has no visitor, and its node set is large enough
// that a type switch would silently miss newer node kinds.
func (s *scanner) walk(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			s.walk(v.Elem())
		}
	case reflect.Pointer:
		if v.IsNil() || v.Elem().Kind() != reflect.Struct || v.Elem().Type().PkgPath() != astPkgPath {
			return
		}
		if s.visited[v.Pointer()] {
			return
		}
		s.visited[v.Pointer()] = true
		if call, ok := v.Interface().(*ast.CallExpression); ok {
			s.match(call)
		}
		s.walk(v.Elem())
	case reflect.Struct:
		if v.Type().PkgPath() != astPkgPath {
			return
		}
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				s.walk(v.Field(i))
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			s.walk(v.Index(i))
		}
	}
}

func (s *scanner) match(call *ast.CallExpression) {
	callee, ok := call.Callee.(*ast.Identifier)
	if !ok || callee.Name != "require" || len(call.ArgumentList) == 0 {
		return
	}
	lit, ok := call.ArgumentList[0].(*ast.StringLiteral)
	if !ok {
		return
	}
	request := string(lit.Value)
	if request == "" || s.seen[request] {
		return
	}
	s.seen[request] = true
	s.requests = append(s.requests, request)
}

// builtins are the Node core modules. Requests for them are skipped when
// they cannot be resolved from the filesystem.
var builtins = map[string]bool{
	"assert": true, "async_hooks": true, "buffer": true, "child_process": true,
	"cluster": true, "console": true, "constants": true, "crypto": true,
	"dgram": true, "diagnostics_channel": true, "dns": true, "domain": true,
	"events": true, "fs": true, "http": true, "http2": true, "https": true,
	"inspector": true, "module": true, "net": true, "os": true, "path": true,
	"perf_hooks": true, "process": true, "punycode": true, "querystring": true,
	"readline": true, "repl": true, "stream": true, "string_decoder": true,
	"sys": true, "timers": true, "tls": true, "trace_events": true, "tty": true,
	"url": true, "util": true, "v8": true, "vm": true, "wasi": true,
	"worker_threads": true, "zlib": true,
}

// IsBuiltin reports whether request names a Node core module, with or
// without the "node:" prefix and with or without a subpath.
func IsBuiltin(request string) bool {
	request = strings.TrimPrefix(request, "node:")
	if i := strings.IndexByte(request, '/'); i >= 0 {
		request = request[:i]
	}
	return builtins[request]
}
