package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*Require, *Module) error { return nil }

func TestResolve_SearchesUpDependencyChain(t *testing.T) {
	c := New()
	c.Define("/baz@3.0.0/lib/index", noop)
	c.RegisterDependency("/$/foo", "baz", "3.0.0", "")

	resolved, err := c.Resolve("baz/lib/index", "/$/foo")
	require.NoError(t, err)
	assert.Equal(t, "/$/foo/$/baz/lib/index", resolved.LogicalPath)
	assert.Equal(t, "/baz@3.0.0/lib/index", resolved.RealPath)

	deeper, err := c.Resolve("baz/lib/index", "/$/foo/some/other/module")
	require.NoError(t, err)
	assert.Equal(t, resolved, deeper)

	_, err = c.Resolve("baz/lib/index", "/some/module")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModuleNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonNoEdge, nf.Reason)
	assert.Equal(t, "baz/lib/index", nf.Request)
	assert.Equal(t, "/some/module", nf.From)
}

func TestResolve_SkipsMarkerBoundaries(t *testing.T) {
	c := New()
	c.Define("/baz@3.0.0/index", noop)
	c.RegisterDependency("/$/foo", "baz", "3.0.0", "")
	c.RegisterDependency("/$/foo", "bar", "2.0.0", "")

	resolved, err := c.Resolve("baz/index", "/$/foo/$/bar/lib")
	require.NoError(t, err)
	assert.Equal(t, "/$/foo/$/baz/index", resolved.LogicalPath)
	assert.Equal(t, "/baz@3.0.0/index", resolved.RealPath)
}

func TestResolve_NearestScopeWins(t *testing.T) {
	c := New()
	c.Define("/baz@1.0.0/index", noop)
	c.Define("/baz@3.0.0/index", noop)
	c.RegisterDependency("", "baz", "1.0.0", "")
	c.RegisterDependency("/$/foo", "baz", "3.0.0", "")

	nested, err := c.Resolve("baz/index", "/$/foo/lib")
	require.NoError(t, err)
	assert.Equal(t, "/baz@3.0.0/index", nested.RealPath)

	top, err := c.Resolve("baz/index", "/src")
	require.NoError(t, err)
	assert.Equal(t, "/$/baz/index", top.LogicalPath)
	assert.Equal(t, "/baz@1.0.0/index", top.RealPath)
}

func TestResolve_AbsolutePaths(t *testing.T) {
	c := New()
	c.Define("/baz@3.0.0/lib/index", noop)
	c.RegisterDependency("/$/foo", "baz", "3.0.0", "")

	resolved, err := c.Resolve("/$/foo/$/baz/lib/index", "/$/foo")
	require.NoError(t, err)
	assert.Equal(t, "/$/foo/$/baz/lib/index", resolved.LogicalPath)
	assert.Equal(t, "/baz@3.0.0/lib/index", resolved.RealPath)

	versioned, err := c.Resolve("/baz@3.0.0/lib/index", "/$/foo")
	require.NoError(t, err)
	assert.Equal(t, "/baz@3.0.0/lib/index", versioned.LogicalPath)
	assert.Equal(t, "/baz@3.0.0/lib/index", versioned.RealPath)

	_, err = c.Resolve("/$/nope/lib/index", "/")
	assert.True(t, IsNotFound(err))
}

func TestResolve_Relative(t *testing.T) {
	c := New()
	c.Define("/src/util", noop)

	resolved, err := c.Resolve("../util", "/src/pages")
	require.NoError(t, err)
	assert.Equal(t, Resolved{LogicalPath: "/src/util", RealPath: "/src/util"}, resolved)
}

func TestResolve_EmptyRequest(t *testing.T) {
	_, err := New().Resolve("", "/src")

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonEmptyRequest, nf.Reason)
}

func TestResolve_MissingDefinition(t *testing.T) {
	c := New()
	c.RegisterDependency("", "foo", "1.0.0", "")

	_, err := c.Resolve("foo/missing", "/src")

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonNoDefinition, nf.Reason)
	assert.Equal(t, "/foo@1.0.0/missing", nf.Path)
}

func TestResolve_StripsRegisteredExtension(t *testing.T) {
	c := New()
	c.Define("/src/util", noop)

	resolved, err := c.Resolve("./util.js", "/src")
	require.NoError(t, err)
	assert.Equal(t, "/src/util", resolved.LogicalPath)
	assert.Equal(t, "/src/util", resolved.RealPath)

	_, err = c.Resolve("./util.css", "/src")
	assert.True(t, IsNotFound(err))
}

func TestResolve_MainBinding(t *testing.T) {
	c := New()
	c.Define("/foo@1.0.0/lib/index", noop)
	c.RegisterDependency("", "foo", "1.0.0", "")
	c.RegisterMain("/foo@1.0.0", "lib/index")

	resolved, err := c.Resolve("foo", "/src/app")
	require.NoError(t, err)
	assert.Equal(t, "/$/foo/lib/index", resolved.LogicalPath)
	assert.Equal(t, "/foo@1.0.0/lib/index", resolved.RealPath)
}

func TestResolve_RemapAppliedAfterMain(t *testing.T) {
	c := New()
	c.Define("/foo@1.0.0/lib/index_browser", noop)
	c.RegisterDependency("", "foo", "1.0.0", "")
	c.RegisterMain("/foo@1.0.0", "lib/index")
	c.RegisterRemap("/foo@1.0.0/lib/index", "index_browser")

	resolved, err := c.Resolve("foo", "/src")
	require.NoError(t, err)
	assert.Equal(t, "/$/foo/lib/index_browser", resolved.LogicalPath)
	assert.Equal(t, "/foo@1.0.0/lib/index_browser", resolved.RealPath)
}

func TestResolve_RemapIntoAnotherPackage(t *testing.T) {
	c := New()
	c.Define("/hello-world-browserify@9.9.9/index", noop)
	c.RegisterDependency("", "browser-overrides", "0.0.0", "")
	c.RegisterDependency("/$/browser-overrides", "hello-world-browserify", "9.9.9", "")
	c.RegisterRemap("/browser-overrides@0.0.0/override-files/hello-world", "../$/hello-world-browserify/index")

	resolved, err := c.Resolve("browser-overrides/override-files/hello-world", "/src")
	require.NoError(t, err)
	assert.Equal(t, "/$/browser-overrides/$/hello-world-browserify/index", resolved.LogicalPath)
	assert.Equal(t, "/hello-world-browserify@9.9.9/index", resolved.RealPath)
}

func TestResolve_RemapCycleIsBounded(t *testing.T) {
	c := New()
	c.RegisterDependency("", "a", "1.0.0", "")
	c.RegisterRemap("/a@1.0.0/x", "../../$/a/x")

	_, err := c.Resolve("a/x", "/src")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remap chain")
	assert.False(t, IsNotFound(err))
}

func TestResolve_AliasEdge(t *testing.T) {
	c := New()
	c.Define("/hello-world-browserify@9.9.9/index", noop)
	c.RegisterDependency("/$/browser-overrides", "hello-world-browserify", "9.9.9", "hello-world")
	c.RegisterMain("/hello-world-browserify@9.9.9", "index")

	resolved, err := c.Resolve("hello-world", "/$/browser-overrides/override-files")
	require.NoError(t, err)
	assert.Equal(t, "/$/browser-overrides/$/hello-world-browserify/index", resolved.LogicalPath)
	assert.Equal(t, "/hello-world-browserify@9.9.9/index", resolved.RealPath)

	direct, err := c.Resolve("hello-world-browserify", "/$/browser-overrides")
	require.NoError(t, err)
	assert.Equal(t, resolved, direct)

	edge, ok := c.Edge("/$/browser-overrides", "hello-world")
	require.True(t, ok)
	assert.Equal(t, Edge{Name: "hello-world-browserify", Version: "9.9.9", Alias: "hello-world"}, edge)
}

func TestResolve_SearchPaths(t *testing.T) {
	c := New()
	c.Define("/src/hello-world/index", noop)
	c.RegisterMain("/src/hello-world", "index")
	c.AddSearchPath("/src")

	resolved, err := c.Resolve("hello-world", "/$/foo/lib")
	require.NoError(t, err)
	assert.Equal(t, "/src/hello-world/index", resolved.LogicalPath)

	_, err = c.Resolve("missing", "/$/foo/lib")
	assert.True(t, IsNotFound(err))
}

func TestRequire_InstantiatesOnce(t *testing.T) {
	type baz struct {
		Filename string
		Dirname  string
	}

	c := New()
	count := 0
	c.Define("/baz@3.0.0/lib/index", func(_ *Require, m *Module) error {
		count++
		m.Exports = &baz{Filename: m.Filename, Dirname: m.Dirname}
		return nil
	})
	c.RegisterDependency("/$/foo", "baz", "3.0.0", "")

	first, err := c.Require("baz/lib/index", "/$/foo")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	exports, ok := first.(*baz)
	require.True(t, ok)
	assert.Equal(t, "/baz@3.0.0/lib/index", exports.Filename)
	assert.Equal(t, "/baz@3.0.0/lib", exports.Dirname)

	second, err := c.Require("baz/lib/index", "/$/foo/other")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Same(t, exports, second)

	m, ok := c.Lookup("/$/foo/$/baz/lib/index")
	require.True(t, ok)
	assert.True(t, m.Loaded())
	assert.Equal(t, StateLoaded, m.State())
}

func TestRequire_SeparateInstancesPerLogicalPath(t *testing.T) {
	c := New()
	count := 0
	c.Define("/baz@3.0.0/index", func(*Require, *Module) error {
		count++
		return nil
	})
	c.RegisterDependency("/$/foo", "baz", "3.0.0", "")
	c.RegisterDependency("/$/bar", "baz", "3.0.0", "")

	_, err := c.Require("baz/index", "/$/foo")
	require.NoError(t, err)
	_, err = c.Require("baz/index", "/$/bar")
	require.NoError(t, err)

	assert.Equal(t, 2, count)
}

func TestRequire_CircularSeesPartialExports(t *testing.T) {
	c := New()
	c.Define("/src/a", func(req *Require, m *Module) error {
		exports := m.Exports.(map[string]any)
		exports["before"] = true

		b, err := req.Require("./b")
		if err != nil {
			return err
		}
		exports["sawB"] = b.(map[string]any)["done"]
		exports["after"] = true
		return nil
	})
	c.Define("/src/b", func(req *Require, m *Module) error {
		exports := m.Exports.(map[string]any)

		a, err := req.Require("./a")
		if err != nil {
			return err
		}
		partial := a.(map[string]any)
		_, hadAfter := partial["after"]
		exports["aBefore"] = partial["before"]
		exports["aHadAfter"] = hadAfter

		mod, ok := c.Lookup("/src/a")
		exports["aState"] = ""
		if ok {
			exports["aState"] = mod.State().String()
		}
		exports["done"] = true
		return nil
	})

	a, err := c.Require("./a", "/src")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"before": true, "sawB": true, "after": true}, a)

	b, err := c.Require("/src/b", "/")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"aBefore":   true,
		"aHadAfter": false,
		"aState":    "instantiating",
		"done":      true,
	}, b)
}

func TestRequire_PlainValue(t *testing.T) {
	c := New()
	value := map[string]any{"name": "config"}
	c.DefineValue("/src/config", value)

	exports, err := c.Require("./config", "/src")
	require.NoError(t, err)
	assert.Equal(t, value, exports)

	m, ok := c.Lookup("/src/config")
	require.True(t, ok)
	assert.True(t, m.Loaded())
}

func TestRequire_FactoryErrorPropagates(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	count := 0
	c.Define("/src/bad", func(*Require, *Module) error {
		count++
		return boom
	})
	c.Define("/src/main", func(req *Require, _ *Module) error {
		_, err := req.Require("./bad")
		return err
	})

	_, err := c.Require("./main", "/src")
	assert.ErrorIs(t, err, boom)

	m, ok := c.Lookup("/src/bad")
	require.True(t, ok)
	assert.Equal(t, StateInstantiating, m.State())

	_, err = c.Require("./bad", "/src")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRequire_ModuleScopedResolve(t *testing.T) {
	c := New()
	c.Define("/baz@3.0.0/index", noop)
	c.RegisterDependency("/$/foo", "baz", "3.0.0", "")

	var got Resolved
	var dir string
	c.Define("/foo@1.0.0/lib/main", func(req *Require, _ *Module) error {
		dir = req.Dir()
		var err error
		got, err = req.Resolve("baz/index")
		return err
	})
	c.RegisterDependency("", "foo", "1.0.0", "")

	_, err := c.Require("foo/lib/main", "/src")
	require.NoError(t, err)
	assert.Equal(t, "/$/foo/lib", dir)
	assert.Equal(t, "/$/foo/$/baz/index", got.LogicalPath)

	_, ok := c.Lookup("/$/foo/$/baz/index")
	assert.False(t, ok)
}

func TestRun(t *testing.T) {
	c := New()
	c.Define("/src/dep", func(_ *Require, m *Module) error {
		m.Exports.(map[string]any)["value"] = 42
		return nil
	})

	exports, err := c.Run("/src/main", func(req *Require, m *Module) error {
		dep, err := req.Require("./dep")
		if err != nil {
			return err
		}
		m.Exports = dep.(map[string]any)["value"]
		return nil
	}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 42, exports)
}

func TestRun_WaitUntilReady(t *testing.T) {
	c := New()
	var order []string
	for _, name := range []string{"/src/first", "/src/second"} {
		name := name
		exports, err := c.Run(name, func(*Require, *Module) error {
			order = append(order, name)
			return nil
		}, RunOptions{Wait: true})
		require.NoError(t, err)
		assert.Nil(t, exports)
	}

	assert.Empty(t, order)
	require.NoError(t, c.Ready())
	assert.Equal(t, []string{"/src/first", "/src/second"}, order)

	require.NoError(t, c.Ready())
	assert.Len(t, order, 2)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "instantiating", StateInstantiating.String())
	assert.Equal(t, "loaded", StateLoaded.String())
}
