package graph

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmod/internal/ir"
	"github.com/roach88/rmod/internal/resolver"
	"github.com/roach88/rmod/internal/testutil"
)

func newBuilder(t *testing.T, opts Options) (*Builder, string) {
	t.Helper()
	root := testutil.Project(t)
	if opts.IDs == nil {
		opts.IDs = testutil.NewSequentialIDs("")
	}
	if opts.Clock == nil {
		opts.Clock = testutil.NewDeterministicClock()
	}
	return New(resolver.New(resolver.DefaultOptions()), opts), root
}

func TestBuild_EmitsOrderedOps(t *testing.T) {
	b, root := newBuilder(t, Options{})
	abs := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }
	src := func(rel string) string { return testutil.ProjectFiles[rel] }

	bundle, err := b.Build(context.Background(), root, []string{"./src/main"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "bundle-0001", bundle.ID)
	assert.Equal(t, ir.FormatVersion, bundle.Version)
	assert.Equal(t, []string{"./src/main"}, bundle.Entries)
	assert.Equal(t, []ir.Op{
		{Seq: 1, Kind: ir.OpDep, Path: "", Name: "foo", Version: "1.0.0"},
		{Seq: 2, Kind: ir.OpMain, Path: "/foo@1.0.0", Target: "lib/index"},
		{Seq: 3, Kind: ir.OpDef, Path: "/foo@1.0.0/lib/index", Source: src("node_modules/foo/lib/index.js"), File: abs("node_modules/foo/lib/index.js")},
		{Seq: 4, Kind: ir.OpDep, Path: "/$/foo", Name: "baz", Version: "3.0.0"},
		{Seq: 5, Kind: ir.OpMain, Path: "/baz@3.0.0", Target: "lib/index"},
		{Seq: 6, Kind: ir.OpDef, Path: "/baz@3.0.0/lib/index", Source: src("node_modules/foo/node_modules/baz/lib/index.js"), File: abs("node_modules/foo/node_modules/baz/lib/index.js")},
		{Seq: 7, Kind: ir.OpMain, Path: "/src/hello-world", Target: "index"},
		{Seq: 8, Kind: ir.OpDef, Path: "/src/hello-world/index", Source: src("src/hello-world/index.js"), File: abs("src/hello-world/index.js")},
		{Seq: 9, Kind: ir.OpRun, Path: "/src/main", Source: src("src/main.js"), File: abs("src/main.js")},
	}, bundle.Ops)
	require.NoError(t, bundle.Validate())
}

func TestBuild_DeduplicatesSharedVersion(t *testing.T) {
	b, root := newBuilder(t, Options{})
	testutil.WriteTree(t, root, testutil.Files{
		"src/both.js": "require('foo');\nrequire('bar');\n",
	})

	bundle, err := b.Build(context.Background(), root, []string{"./src/both"}, nil)
	require.NoError(t, err)

	var bazDefs int
	for _, op := range bundle.Filter(ir.OpDef) {
		if op.Path == "/baz@3.0.0/lib/index" {
			bazDefs++
		}
	}
	assert.Equal(t, 1, bazDefs)

	var parents []string
	for _, op := range bundle.Filter(ir.OpDep) {
		if op.Name == "baz" {
			parents = append(parents, op.Path)
		}
	}
	assert.Equal(t, []string{"/$/foo", "/$/bar"}, parents)
	assert.Equal(t, 1, len(filterPath(bundle.Filter(ir.OpMain), "/baz@3.0.0")))
}

func TestBuild_WalksEveryInstallOfSharedVersion(t *testing.T) {
	b, root := newBuilder(t, Options{})
	testutil.WriteTree(t, root, testutil.Files{
		"src/both.js": "module.exports = [require('foo').baz.qux, require('bar').baz.qux];\n",
		"node_modules/foo/node_modules/baz/lib/index.js":                  "exports.qux = require('qux');\n",
		"node_modules/foo/node_modules/baz/node_modules/qux/package.json": `{"name":"qux","version":"1.0.0"}`,
		"node_modules/foo/node_modules/baz/node_modules/qux/index.js":     "module.exports = 'qux';\n",
		"node_modules/bar/node_modules/baz/lib/index.js":                  "exports.qux = require('qux');\n",
		"node_modules/bar/node_modules/baz/node_modules/qux/package.json": `{"name":"qux","version":"1.0.0"}`,
		"node_modules/bar/node_modules/baz/node_modules/qux/index.js":     "module.exports = 'qux';\n",
	})

	bundle, err := b.Build(context.Background(), root, []string{"./src/both"}, nil)
	require.NoError(t, err)

	var parents []string
	for _, op := range bundle.Filter(ir.OpDep) {
		if op.Name == "qux" {
			parents = append(parents, op.Path)
		}
	}
	assert.Equal(t, []string{"/$/foo/$/baz", "/$/bar/$/baz"}, parents)
	assert.Len(t, filterPath(bundle.Filter(ir.OpDef), "/qux@1.0.0/index"), 1)
	assert.Len(t, filterPath(bundle.Filter(ir.OpDef), "/baz@3.0.0/lib/index"), 1)
	require.NoError(t, bundle.Validate())
}

func filterPath(ops []ir.Op, path string) []ir.Op {
	var out []ir.Op
	for _, op := range ops {
		if op.Path == path {
			out = append(out, op)
		}
	}
	return out
}

func TestBuild_BrowserOverrides(t *testing.T) {
	b, root := newBuilder(t, Options{})
	testutil.WriteTree(t, root, testutil.Files{
		"src/browser.js": "require('browser-overrides/override-files');\nrequire('browser-overrides/override-files/hello-world');\n",
	})

	bundle, err := b.Build(context.Background(), root, []string{"./src/browser"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []ir.Op{
		{Kind: ir.OpRemap, Path: "/browser-overrides@0.0.0/override-files/hello", Target: "hello_browser"},
		{Kind: ir.OpRemap, Path: "/browser-overrides@0.0.0/override-files/hello-world", Target: "../$/hello-world-browserify/index"},
	}, withoutSeq(bundle.Filter(ir.OpRemap)))

	defs := map[string]bool{}
	for _, op := range bundle.Filter(ir.OpDef) {
		defs[op.Path] = true
	}
	assert.True(t, defs["/browser-overrides@0.0.0/override-files/index"])
	assert.True(t, defs["/browser-overrides@0.0.0/override-files/hello_browser"])
	assert.True(t, defs["/hello-world-browserify@9.9.9/index"])
	assert.False(t, defs["/browser-overrides@0.0.0/override-files/hello"])

	assert.Contains(t, withoutSeq(bundle.Filter(ir.OpDep)), ir.Op{
		Kind: ir.OpDep, Path: "/$/browser-overrides", Name: "hello-world-browserify", Version: "9.9.9",
	})
}

func withoutSeq(ops []ir.Op) []ir.Op {
	out := make([]ir.Op, len(ops))
	for i, op := range ops {
		op.Seq = 0
		op.Source = ""
		op.File = ""
		out[i] = op
	}
	return out
}

func TestBuild_JSONDefsAndSearchPaths(t *testing.T) {
	b, root := newBuilder(t, Options{Wait: true})
	testutil.WriteTree(t, root, testutil.Files{
		"src/cfg.js": "module.exports = require('./data');\n",
	})

	bundle, err := b.Build(context.Background(), root, []string{"./src/cfg"}, []string{"src"})
	require.NoError(t, err)

	require.NotEmpty(t, bundle.Ops)
	assert.Equal(t, ir.Op{Seq: 1, Kind: ir.OpSearchPath, Path: "/src"}, bundle.Ops[0])

	defs := bundle.Filter(ir.OpDef)
	require.Len(t, defs, 1)
	assert.Equal(t, "/src/data", defs[0].Path)
	assert.True(t, defs[0].Object)
	assert.Equal(t, `{"enabled":true}`, defs[0].Source)

	runs := bundle.Filter(ir.OpRun)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Wait)
}

func TestBuild_MissingRequire(t *testing.T) {
	b, root := newBuilder(t, Options{})
	testutil.WriteTree(t, root, testutil.Files{
		"src/missing.js": "require('fs');\nrequire('nope');\n",
	})

	_, err := b.Build(context.Background(), root, []string{"./src/missing"}, nil)
	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "nope", missing.Request)
	assert.True(t, resolver.IsNotFound(err))

	lenient := New(resolver.New(resolver.DefaultOptions()), Options{AllowMissing: true})
	bundle, err := lenient.Build(context.Background(), root, []string{"./src/missing"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.Count(ir.OpRun))
}

func TestBuild_MissingEntry(t *testing.T) {
	b, root := newBuilder(t, Options{})

	_, err := b.Build(context.Background(), root, []string{"./src/absent"}, nil)
	assert.True(t, resolver.IsNotFound(err))
}

func TestBuild_Cancelled(t *testing.T) {
	b, root := newBuilder(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, root, []string{"./src/main"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
