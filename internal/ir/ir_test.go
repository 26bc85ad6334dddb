package ir

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "a", `"a"`},
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"control", "a\nb\x01", `"a\nb\u0001"`},
		{"quote and backslash", `"\`, `"\"\\"`},
		{"int", 42, `42`},
		{"int64", int64(-7), `-7`},
		{"bool", true, `true`},
		{"strings", []string{"b", "a"}, `["b","a"]`},
		{"sorted keys", map[string]any{"b": 1, "a": []any{"x", false}}, `{"a":["x",false],"b":1}`},
		{"nfc", "e\u0301", "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+FF61 sorts before U+1F600 by UTF-8 bytes but after it by UTF-16 code units.
	got, err := MarshalCanonical(map[string]any{"\U0001F600": 1, "｡": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"｡\":2}", string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	for _, v := range []any{nil, 1.5, float32(1), struct{}{}, map[string]any{"x": nil}} {
		_, err := MarshalCanonical(v)
		assert.Error(t, err, "%#v", v)
	}
}

func sampleBundle() *Bundle {
	b := NewBundle("bundle-0001")
	b.Entries = []string{"./src/main"}
	b.Ops = []Op{
		{Seq: 1, Kind: OpDep, Path: "", Name: "foo", Version: "1.0.0"},
		{Seq: 2, Kind: OpMain, Path: "/foo@1.0.0", Target: "lib/index"},
		{Seq: 3, Kind: OpDef, Path: "/foo@1.0.0/lib/index", Source: "exports.x = 1;", File: "/tmp/a.js"},
		{Seq: 4, Kind: OpRun, Path: "/src/main", Source: "require('foo');", Wait: true},
	}
	return b
}

func TestBundle_HashIgnoresIDAndFile(t *testing.T) {
	a := sampleBundle()
	b := sampleBundle()
	b.ID = "other"
	b.Ops[2].File = "/elsewhere/a.js"

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)

	b.Ops[2].Source = "exports.x = 2;"
	hc, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestSourceHash(t *testing.T) {
	assert.Equal(t, SourceHash("x"), SourceHash("x"))
	assert.NotEqual(t, SourceHash("x"), SourceHash("y"))
}

func TestBundle_Counts(t *testing.T) {
	b := sampleBundle()
	assert.Equal(t, 1, b.Count(OpDef))
	assert.Equal(t, 0, b.Count(OpRemap))
	assert.Equal(t, []Op{b.Ops[1]}, b.Filter(OpMain))
}

func TestOp_Validate(t *testing.T) {
	tests := []struct {
		op    Op
		field string
	}{
		{Op{Kind: OpDef}, "path"},
		{Op{Kind: OpDep, Version: "1"}, "name"},
		{Op{Kind: OpDep, Name: "x"}, "version"},
		{Op{Kind: OpMain, Path: "/x@1"}, "target"},
		{Op{Kind: OpRemap, Target: "y"}, "path"},
		{Op{Kind: OpSearchPath}, "path"},
	}
	for _, tt := range tests {
		err := tt.op.Validate()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "%+v", tt.op)
		assert.Equal(t, tt.field, ve.Field)
	}

	assert.NoError(t, Op{Kind: OpDep, Name: "x", Version: "1"}.Validate())
	assert.ErrorIs(t, Op{Kind: "bogus"}.Validate(), errUnknownKind)
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, sampleBundle(), format))

			got, err := Decode(buf.Bytes(), format)
			require.NoError(t, err)
			assert.Equal(t, sampleBundle(), got)
		})
	}
}

func TestDecode_RejectsInvalid(t *testing.T) {
	_, err := Decode([]byte(`{"version":"1","id":"x","ops":[],"extra":1}`), FormatJSON)
	assert.Error(t, err)

	_, err = Decode([]byte(`{"version":"9","id":"x","ops":[]}`), FormatJSON)
	assert.ErrorContains(t, err, "unsupported version")

	_, err = Decode([]byte("version: \"1\"\nid: x\nops:\n  - kind: dep\n    path: \"\"\n"), FormatYAML)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("b.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("B.YML"))
	assert.Equal(t, FormatJSON, FormatFor("b.json"))
	assert.Equal(t, FormatJSON, FormatFor("b"))
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(1), c.Current())

	resumed := NewClockAt(10)
	assert.Equal(t, int64(11), resumed.Next())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1001), c.Current())
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
