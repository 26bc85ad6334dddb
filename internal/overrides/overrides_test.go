package overrides

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmod/internal/pkgjson"
	"github.com/roach88/rmod/internal/testutil"
)

func newEngine(t *testing.T, files testutil.Files, mainOf MainFunc) (*Engine, string) {
	t.Helper()
	root := testutil.TempDir(t)
	testutil.WriteTree(t, root, files)
	return New(pkgjson.NewReader(), mainOf, []string{".js", ".json"}), root
}

func TestLookup_FileAndModuleTargets(t *testing.T) {
	e, root := newEngine(t, testutil.Files{
		"package.json": `{"name":"p","browser":{"./a.js":"./a_browser.js","./lib/b":"./lib/b_browser","fs":false,"x":"y"}}`,
	}, nil)

	hit, err := e.Lookup(root, filepath.Join(root, "a.js"))
	require.NoError(t, err)
	assert.Equal(t, &Target{Kind: KindFile, Value: "./a_browser.js", Dir: root}, hit)

	hit, err = e.Lookup(filepath.Join(root, "lib"), filepath.Join(root, "lib", "b.js"))
	require.NoError(t, err)
	assert.Equal(t, &Target{Kind: KindFile, Value: "./lib/b_browser", Dir: root}, hit)

	hit, err = e.Lookup(root, "x")
	require.NoError(t, err)
	assert.Equal(t, &Target{Kind: KindModule, Value: "y", Dir: root}, hit)

	hit, err = e.Lookup(root, "fs")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestLookup_NearestScopeWins(t *testing.T) {
	e, root := newEngine(t, testutil.Files{
		"package.json":     `{"name":"p","browser":{"x":"outer","z":"outer-z"}}`,
		"sub/package.json": `{"browser":{"x":"inner"}}`,
	}, nil)
	sub := filepath.Join(root, "sub")

	hit, err := e.Lookup(filepath.Join(sub, "deeper"), "x")
	require.NoError(t, err)
	assert.Equal(t, "inner", hit.Value)
	assert.Equal(t, sub, hit.Dir)

	hit, err = e.Lookup(sub, "z")
	require.NoError(t, err)
	assert.Equal(t, "outer-z", hit.Value)
	assert.Equal(t, root, hit.Dir)
}

func TestTable_NamedPackageEndsChain(t *testing.T) {
	e, root := newEngine(t, testutil.Files{
		"package.json":                  `{"name":"p","browser":{"x":"outer"}}`,
		"node_modules/dep/package.json": `{"name":"dep"}`,
		"node_modules/dep/lib/index.js": "",
	}, nil)
	dep := filepath.Join(root, "node_modules", "dep")

	table, err := e.Table(filepath.Join(dep, "lib"))
	require.NoError(t, err)
	require.NotNil(t, table.Parent())
	assert.Equal(t, dep, table.Parent().Dir)
	assert.Nil(t, table.Parent().Parent())

	hit, err := e.Lookup(filepath.Join(dep, "lib"), "x")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestLookup_BrowserStringMapsMain(t *testing.T) {
	var asked []string
	mainOf := func(dir string) (string, bool) {
		asked = append(asked, dir)
		return filepath.Join(dir, "sub.js"), true
	}
	e, root := newEngine(t, testutil.Files{
		"sub/package.json": `{"main":"./sub.js","browser":"sub_browser.js"}`,
		"sub/sub.js":       "",
	}, mainOf)
	sub := filepath.Join(root, "sub")

	hit, err := e.Lookup(sub, filepath.Join(sub, "sub.js"))
	require.NoError(t, err)
	assert.Equal(t, &Target{Kind: KindFile, Value: "./sub_browser.js", Dir: sub}, hit)
	assert.Equal(t, []string{sub}, asked)
}

func TestLookup_Memoized(t *testing.T) {
	e, root := newEngine(t, testutil.Files{
		"package.json": `{"name":"p","browser":{"x":"y"}}`,
	}, nil)

	first, err := e.Lookup(root, "x")
	require.NoError(t, err)
	second, err := e.Lookup(root, "x")
	require.NoError(t, err)
	assert.Same(t, first, second)

	table, err := e.Table(root)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestLookup_MalformedManifest(t *testing.T) {
	e, root := newEngine(t, testutil.Files{"package.json": `{`}, nil)

	_, err := e.Lookup(root, "x")
	var pe *pkgjson.ParseError
	assert.ErrorAs(t, err, &pe)
}
