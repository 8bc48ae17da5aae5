package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysByUTF16(t *testing.T) {
	// U+10000 is the surrogate pair D800 DC00 and sorts before U+FF61 in UTF-16,
	// the opposite of the UTF-8 byte order.
	got, err := MarshalCanonical(map[string]any{
		"\U00010000": 1,
		"\uff61":     2,
		"a":          3,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":3,\"\U00010000\":1,\"\uff61\":2}", string(got))
}

func TestMarshalCanonical_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "ok", `"ok"`},
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"int", 42, `42`},
		{"uint32", uint32(0xFFFFFFFF), `4294967295`},
		{"bool", true, `true`},
		{"strings", []string{"x", "y"}, `["x","y"]`},
		{"nested", []any{map[string]any{"b": false, "a": int64(-1)}}, `[{"a":-1,"b":false}]`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash kept", `a\u2028`, `"a\\u2028"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	for _, in := range []any{nil, 1.5, struct{}{}, map[string]any{"k": nil}} {
		_, err := MarshalCanonical(in)
		assert.Error(t, err, "%#v", in)
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := MarshalCanonical("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}
