package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// Files maps slash-separated paths, relative to a root, to file contents.
type Files map[string]string

// WriteTree writes files under root, creating directories as needed.
// Paths are written in sorted order so failures are reproducible.
func WriteTree(t testing.TB, root string, files Files) {
	t.Helper()

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(files[p]), 0o644))
	}
}

// TempDir returns t.TempDir() with symlinks resolved, so paths computed by
// the resolver compare equal to paths built by the test.
func TempDir(t testing.TB) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

// ProjectFiles is the fixture project used by resolver, graph and cli
// tests. It covers nested installs of the same version, browser overrides
// of every kind, a scoped package and a package installed under a
// directory name that differs from its manifest name.
var ProjectFiles = Files{
	"package.json": `{"name":"test-project","version":"0.0.0"}`,

	"src/main.js":              "var foo = require('foo');\nvar hello = require('./hello-world');\nmodule.exports = foo.name + ':' + hello;\n",
	"src/hello-world/index.js": "module.exports = 'hello world';\n",
	"src/util.js":              "exports.answer = 42;\n",
	"src/data.json":            `{"enabled":true}`,

	"node_modules/foo/package.json":                          `{"name":"foo","version":"1.0.0","main":"lib/index"}`,
	"node_modules/foo/lib/index.js":                          "var baz = require('baz');\nexports.name = 'foo';\nexports.baz = baz;\n",
	"node_modules/foo/node_modules/baz/package.json":         `{"name":"baz","version":"3.0.0","main":"lib/index"}`,
	"node_modules/foo/node_modules/baz/lib/index.js":         "exports.name = 'baz';\n",
	"node_modules/bar/package.json":                          `{"name":"bar","version":"2.0.0","main":"lib/index"}`,
	"node_modules/bar/lib/index.js":                          "exports.baz = require('baz');\n",
	"node_modules/bar/node_modules/baz/package.json":         `{"name":"baz","version":"3.0.0","main":"lib/index"}`,
	"node_modules/bar/node_modules/baz/lib/index.js":         "exports.name = 'baz';\n",
	"node_modules/@scope/pkg/package.json":                   `{"name":"@scope/pkg","version":"1.2.3"}`,
	"node_modules/@scope/pkg/index.js":                       "exports.scoped = true;\n",
	"node_modules/renamed/package.json":                      `{"name":"original-name","version":"4.0.0","main":"main.js"}`,
	"node_modules/renamed/main.js":                           "exports.renamed = true;\n",
	"node_modules/dir-main/package.json":                     `{"name":"dir-main","version":"1.0.0","main":"lib"}`,
	"node_modules/dir-main/lib/index.js":                     "exports.dir = true;\n",
	"node_modules/no-ext-main/package.json":                  `{"name":"no-ext-main","version":"1.0.0","main":"./entry"}`,
	"node_modules/no-ext-main/entry.json":                    `{"entry":true}`,
	"node_modules/browser-overrides/package.json":            `{"name":"browser-overrides","version":"0.0.0"}`,
	"node_modules/browser-overrides/main/sub/package.json":   `{"main":"./sub.js","browser":"./sub_browser.js"}`,
	"node_modules/browser-overrides/main/sub/sub.js":         "module.exports = 'sub';\n",
	"node_modules/browser-overrides/main/sub/sub_browser.js": "module.exports = 'sub_browser';\n",
	"node_modules/browser-overrides/override-files/package.json": `{
  "browser": {
    "./hello.js": "./hello_browser.js",
    "./hello/world.js": "./hello/world_browser.js",
    "./hello-world.js": "hello-world-browserify",
    "hello-world": "hello-world-browserify"
  }
}`,
	"node_modules/browser-overrides/override-files/index.js":                          "module.exports = require('./hello');\n",
	"node_modules/browser-overrides/override-files/hello.js":                          "module.exports = 'hello';\n",
	"node_modules/browser-overrides/override-files/hello_browser.js":                  "module.exports = 'hello_browser';\n",
	"node_modules/browser-overrides/override-files/hello/world.js":                    "module.exports = 'world';\n",
	"node_modules/browser-overrides/override-files/hello/world_browser.js":            "module.exports = 'world_browser';\n",
	"node_modules/browser-overrides/override-files/hello-world.js":                    "module.exports = 'hello-world';\n",
	"node_modules/browser-overrides/node_modules/hello-world-browserify/package.json": `{"name":"hello-world-browserify","version":"9.9.9"}`,
	"node_modules/browser-overrides/node_modules/hello-world-browserify/index.js":     "module.exports = 'hello-world-browserify';\n",
}

// Project writes ProjectFiles into a fresh temporary directory and returns
// its root.
func Project(t testing.TB) string {
	t.Helper()
	root := TempDir(t)
	WriteTree(t, root, ProjectFiles)
	return root
}
