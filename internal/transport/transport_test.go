package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmod/internal/ir"
)

func TestStatement(t *testing.T) {
	tests := []struct {
		name string
		op   ir.Op
		want string
	}{
		{
			name: "dep",
			op:   ir.Op{Kind: ir.OpDep, Path: "/$/foo", Name: "baz", Version: "3.0.0"},
			want: `$rmod.dep("/$/foo", "baz", "3.0.0");`,
		},
		{
			name: "root dep with alias",
			op:   ir.Op{Kind: ir.OpDep, Name: "original-name", Version: "4.0.0", Alias: "renamed"},
			want: `$rmod.dep("", "original-name", "4.0.0", "renamed");`,
		},
		{
			name: "main",
			op:   ir.Op{Kind: ir.OpMain, Path: "/foo@1.0.0", Target: "lib/index"},
			want: `$rmod.main("/foo@1.0.0", "lib/index");`,
		},
		{
			name: "remap",
			op:   ir.Op{Kind: ir.OpRemap, Path: "/a@1.0.0/x", Target: "../$/b/index"},
			want: `$rmod.remap("/a@1.0.0/x", "../$/b/index");`,
		},
		{
			name: "search path",
			op:   ir.Op{Kind: ir.OpSearchPath, Path: "/src"},
			want: `$rmod.addSearchPath("/src");`,
		},
		{
			name: "object def",
			op:   ir.Op{Kind: ir.OpDef, Path: "/src/data", Source: "{\"a\":1}\n", Object: true},
			want: `$rmod.def("/src/data", {"a":1});`,
		},
		{
			name: "def",
			op:   ir.Op{Kind: ir.OpDef, Path: "/foo@1.0.0/lib/index", Source: "exports.x = 1;\n"},
			want: "$rmod.def(\"/foo@1.0.0/lib/index\", function(require, exports, module, __filename, __dirname) {\nexports.x = 1;\n});",
		},
		{
			name: "waiting run",
			op:   ir.Op{Kind: ir.OpRun, Path: "/src/main", Source: "// entry", Wait: true},
			want: "$rmod.run(\"/src/main\", function(require, exports, module, __filename, __dirname) {\n// entry\n}, {\"wait\": true});",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Statement(DefaultGlobal, tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatement_Invalid(t *testing.T) {
	_, err := Statement(DefaultGlobal, ir.Op{Kind: ir.OpMain, Path: "/x"})
	var verr *ir.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = Statement(DefaultGlobal, ir.Op{Kind: "bogus", Path: "/x"})
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"<a&b>"`, quote("<a&b>"))
	assert.Equal(t, `"line\u2028sep"`, quote("line\u2028sep"))
	assert.Equal(t, `"quote\"d\\"`, quote(`quote"d\`))
}

func TestRender(t *testing.T) {
	b := ir.NewBundle("bundle-0001")
	b.Ops = []ir.Op{
		{Seq: 1, Kind: ir.OpDep, Name: "foo", Version: "1.0.0"},
		{Seq: 2, Kind: ir.OpRun, Path: "/src/main", Source: "require('foo');", Wait: true},
	}

	out, err := Render(b, Options{Global: "loader", Header: true})
	require.NoError(t, err)
	assert.Equal(t, "/* rmod bundle bundle-0001 (format v1) */\n"+
		"loader.dep(\"\", \"foo\", \"1.0.0\");\n"+
		"loader.run(\"/src/main\", function(require, exports, module, __filename, __dirname) {\nrequire('foo');\n}, {\"wait\": true});\n"+
		"loader.ready();\n", out)
}

func TestRender_NoReadyWithoutWait(t *testing.T) {
	b := ir.NewBundle("b")
	b.Ops = []ir.Op{{Seq: 1, Kind: ir.OpRun, Path: "/main", Source: "1;"}}

	out, err := Render(b, Options{})
	require.NoError(t, err)
	assert.NotContains(t, out, "ready")
}

func TestWrite_NilBundle(t *testing.T) {
	_, err := Render(nil, Options{})
	assert.Error(t, err)
}
