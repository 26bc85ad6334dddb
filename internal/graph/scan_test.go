package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanRequires(t *testing.T) {
	src := `
var foo = require('foo');
var dup = require("foo");
function load(name) {
	var inner = require('./inner/' + name);
	return require('./lib/util');
}
module.exports = {
	bar: require('bar/sub'),
	lazy: function() { return [require('@scope/pkg')]; },
	dyn: require(name),
	other: obj.require('not-me'),
	resolved: require.resolve('also-not-me')
};
`
	got, err := ScanRequires("x.js", src)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "./lib/util", "bar/sub", "@scope/pkg"}, got)
}

func TestScanRequires_NoRequires(t *testing.T) {
	got, err := ScanRequires("x.js", "module.exports = 1;")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScanRequires_SyntaxError(t *testing.T) {
	_, err := ScanRequires("bad.js", "var = ;")
	assert.ErrorContains(t, err, "bad.js")
}

func TestIsBuiltin(t *testing.T) {
	assert.True(t, IsBuiltin("fs"))
	assert.True(t, IsBuiltin("node:path"))
	assert.True(t, IsBuiltin("fs/promises"))
	assert.False(t, IsBuiltin("foo"))
	assert.False(t, IsBuiltin("./fs"))
}
