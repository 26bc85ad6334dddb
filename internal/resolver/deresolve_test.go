package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeresolve(t *testing.T) {
	r, abs := newFixture(t)

	tests := []struct {
		name   string
		target string
		from   string
		want   string
	}{
		{"package main", "node_modules/foo/lib/index.js", "src", "foo"},
		{"scoped main", "node_modules/@scope/pkg/index.js", "src", "@scope/pkg"},
		{"package file", "node_modules/browser-overrides/override-files/hello.js", "src", "browser-overrides/override-files/hello"},
		{"nested install", "node_modules/foo/node_modules/baz/lib/index.js", "node_modules/foo/lib", "baz"},
		{"same package", "src/util.js", "src", "./util"},
		{"same package dir main", "src/hello-world/index.js", "src", "./hello-world"},
		{"parent directory", "src/util.js", "src/hello-world", "../util"},
		{"outside installed package", "src/util.js", "node_modules/foo/lib", "../../../src/util"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Deresolve(abs(tt.target), abs(tt.from))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeresolve_RoundTrip(t *testing.T) {
	r, abs := newFixture(t)

	target := abs("node_modules/foo/node_modules/baz/lib/index.js")
	from := abs("node_modules/foo/lib")

	request, err := r.Deresolve(target, from)
	require.NoError(t, err)

	info, err := r.ResolveRequire(request, from)
	require.NoError(t, err)
	require.NotNil(t, info.Main)
	assert.Equal(t, target, info.Main.FilePath)
}
