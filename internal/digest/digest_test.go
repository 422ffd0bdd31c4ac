package digest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_IsStable(t *testing.T) {
	a := Sum([]byte("body { color: red }"))
	b := Sum([]byte("body { color: red }"))
	c := Sum([]byte("body { color: blue }"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.False(t, a.IsZero())
}

func TestParse_RoundTripsBothForms(t *testing.T) {
	h := Sum([]byte("x"))

	withPrefix, err := Parse(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, withPrefix)

	bare, err := Parse(h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, bare)
}

func TestParse_RejectsGarbage(t *testing.T) {
	_, err := Parse("blake3:zz")
	assert.Error(t, err)

	_, err = Parse("blake3:abcd")
	assert.ErrorContains(t, err, "expected 32 bytes")
}

func TestHash_JSONUsesTextForm(t *testing.T) {
	h := Sum([]byte("x"))
	raw, err := json.Marshal(map[string]Hash{"a.js": h})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a.js":"`+h.String()+`"}`, string(raw))

	var back map[string]Hash
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, h, back["a.js"])
}

func TestShort(t *testing.T) {
	h := Sum([]byte("x"))
	assert.Len(t, h.Short(8), 8)
	assert.Equal(t, h.Hex(), h.Short(0))
	assert.Equal(t, h.Hex(), h.Short(1000))
}

func TestBuilder_FieldsAreLengthPrefixed(t *testing.T) {
	a := NewBuilder().String("ab").String("c").Sum()
	b := NewBuilder().String("a").String("bc").Sum()
	assert.NotEqual(t, a, b)

	again := NewBuilder().String("ab").String("c").Sum()
	assert.Equal(t, a, again)
}
