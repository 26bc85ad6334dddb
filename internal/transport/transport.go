// Package transport renders a bundle as JavaScript bootstrap statements
// against the client runtime global ($rmod by default).
//
// Every statement is one call on the global:
//
//	$rmod.def(realPath, function(require, exports, module, __filename, __dirname) { ... });
//	$rmod.def(realPath, {"json": "object"});
//	$rmod.dep(parentPath, name, version[, alias]);
//	$rmod.main(dirRealPath, relEntry);
//	$rmod.remap(oldRealPath, relTarget);
//	$rmod.addSearchPath(logicalPath);
//	$rmod.run(logicalPath, function(...) { ... }[, {"wait": true}]);
//	$rmod.ready();
//
// ready is emitted once, after the last statement, when any run waits.
package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/rmod/internal/ir"
)

// DefaultGlobal is the name of the runtime object statements call into.
const DefaultGlobal = "$rmod"

// FactoryParams are the parameters of the wrapper around module sources.
var FactoryParams = []string{"require", "exports", "module", "__filename", "__dirname"}

// Options controls rendering.
type Options struct {
	// Global overrides DefaultGlobal.
	Global string

	// Header writes a leading comment naming the bundle.
	Header bool
}

// Write renders every op of b to w in sequence order.
func Write(w io.Writer, b *ir.Bundle, opts Options) error {
	if b == nil {
		return fmt.Errorf("transport: nil bundle")
	}
	global := opts.Global
	if global == "" {
		global = DefaultGlobal
	}

	bw := bufio.NewWriter(w)
	if opts.Header {
		fmt.Fprintf(bw, "/* rmod bundle %s (format v%s) */\n", b.ID, b.Version)
	}

	wait := false
	for i, op := range b.Ops {
		stmt, err := Statement(global, op)
		if err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		if op.Kind == ir.OpRun && op.Wait {
			wait = true
		}
		bw.WriteString(stmt)
		bw.WriteByte('\n')
	}
	if wait {
		bw.WriteString(global + ".ready();\n")
	}
	return bw.Flush()
}

// Render returns the rendered bundle as a string.
func Render(b *ir.Bundle, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, b, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Statement renders a single op as a call on global.
func Statement(global string, op ir.Op) (string, error) {
	if err := op.Validate(); err != nil {
		return "", err
	}

	switch op.Kind {
	case ir.OpDef:
		if op.Object {
			return call(global, "def", quote(op.Path), strings.TrimSpace(op.Source)), nil
		}
		return call(global, "def", quote(op.Path), Wrap(op.Source)), nil

	case ir.OpDep:
		args := []string{quote(op.Path), quote(op.Name), quote(op.Version)}
		if op.Alias != "" {
			args = append(args, quote(op.Alias))
		}
		return call(global, "dep", args...), nil

	case ir.OpMain:
		return call(global, "main", quote(op.Path), quote(op.Target)), nil

	case ir.OpRemap:
		return call(global, "remap", quote(op.Path), quote(op.Target)), nil

	case ir.OpSearchPath:
		return call(global, "addSearchPath", quote(op.Path)), nil

	case ir.OpRun:
		args := []string{quote(op.Path), Wrap(op.Source)}
		if op.Wait {
			args = append(args, `{"wait": true}`)
		}
		return call(global, "run", args...), nil
	}
	return "", fmt.Errorf("transport: unsupported op kind %q", op.Kind)
}

// Wrap encloses source in the CommonJS factory function. The closing brace
// sits on its own line so a trailing line comment cannot swallow it.
func Wrap(source string) string {
	var sb strings.Builder
	sb.WriteString("function(")
	sb.WriteString(strings.Join(FactoryParams, ", "))
	sb.WriteString(") {\n")
	sb.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString("}")
	return sb.String()
}

func call(global, method string, args ...string) string {
	return global + "." + method + "(" + strings.Join(args, ", ") + ");"
}

// quote renders s as a JavaScript string literal. JSON string syntax is a
// subset of JavaScript once U+2028 and U+2029 are escaped.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	out := strings.TrimSuffix(buf.String(), "\n")
	out = strings.ReplaceAll(out, "\u2028", `\u2028`)
	return strings.ReplaceAll(out, "\u2029", `\u2029`)
}
