package pkgjson

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Fields(t *testing.T) {
	pkg, err := Parse("/p", []byte(`{"name":"foo","version":"1.0.0","main":"lib/index","dependencies":{"x":"1"}}`))
	require.NoError(t, err)

	assert.Equal(t, "/p", pkg.Dir)
	assert.Equal(t, "foo", pkg.Name)
	assert.Equal(t, "1.0.0", pkg.Version)
	assert.Equal(t, "lib/index", pkg.Main)
	assert.False(t, pkg.HasBrowser())
}

func TestParse_BrowserString(t *testing.T) {
	pkg, err := Parse("/p", []byte(`{"name":"sub","main":"sub.js","browser":"sub_browser.js"}`))
	require.NoError(t, err)

	assert.Equal(t, "sub_browser.js", pkg.BrowserMain)
	assert.Empty(t, pkg.Browser)
	assert.True(t, pkg.HasBrowser())
}

func TestParse_BrowserObjectKeepsOrderAndDropsFalse(t *testing.T) {
	pkg, err := Parse("/p", []byte(`{
		"browser": {
			"./hello.js": "./hello_browser.js",
			"fs": false,
			"hello-world": "hello-world-browserify"
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []Override{
		{Source: "./hello.js", Target: "./hello_browser.js"},
		{Source: "hello-world", Target: "hello-world-browserify"},
	}, pkg.Browser)
}

func TestParse_BrowserifyFallback(t *testing.T) {
	pkg, err := Parse("/p", []byte(`{"browserify":{"a":"b"}}`))
	require.NoError(t, err)
	assert.Equal(t, []Override{{Source: "a", Target: "b"}}, pkg.Browser)

	pkg, err = Parse("/p", []byte(`{"browser":{"a":"c"},"browserify":{"a":"b"}}`))
	require.NoError(t, err)
	assert.Equal(t, []Override{{Source: "a", Target: "c"}}, pkg.Browser)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"malformed", `{"name":`, errInvalidJSON},
		{"array", `[1,2]`, errNotObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("/p", []byte(tt.data))
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, filepath.Join("/p", FileName), pe.Path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReader_MemoizesPerDirectory(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(manifest, []byte(`{"name":"first"}`), 0o644))

	r := NewReader()
	pkg, err := r.Read(dir)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, "first", pkg.Name)

	require.NoError(t, os.WriteFile(manifest, []byte(`{"name":"second"}`), 0o644))
	again, err := r.Read(dir + string(filepath.Separator))
	require.NoError(t, err)
	assert.Same(t, pkg, again)
}

func TestReader_MissingManifest(t *testing.T) {
	pkg, err := NewReader().Read(t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, pkg)
}

func TestReader_CachesParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`nope`), 0o644))

	r := NewReader()
	_, err := r.Read(dir)
	require.Error(t, err)
	_, again := r.Read(dir)
	assert.Equal(t, err, again)
}
