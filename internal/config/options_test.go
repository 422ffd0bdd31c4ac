package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestOptions_Accessors(t *testing.T) {
	t.Parallel()

	opts := Options{
		"minify":  cty.True,
		"level":   cty.NumberIntVal(9),
		"target":  cty.StringVal("es2017"),
		"engines": cty.TupleVal([]cty.Value{cty.StringVal("chrome58"), cty.StringVal("safari11")}),
		"define":  cty.ObjectVal(map[string]cty.Value{"DEBUG": cty.StringVal("false")}),
		"nothing": cty.NullVal(cty.String),
	}

	t.Run("bool", func(t *testing.T) {
		v, err := opts.Bool("minify", false)
		require.NoError(t, err)
		assert.True(t, v)

		v, err = opts.Bool("absent", true)
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("int", func(t *testing.T) {
		v, err := opts.Int("level", 1)
		require.NoError(t, err)
		assert.Equal(t, 9, v)
	})

	t.Run("string with conversion", func(t *testing.T) {
		v, err := opts.String("level", "")
		require.NoError(t, err)
		assert.Equal(t, "9", v)

		v, err = opts.String("nothing", "fallback")
		require.NoError(t, err)
		assert.Equal(t, "fallback", v)
	})

	t.Run("strings from tuple", func(t *testing.T) {
		v, err := opts.Strings("engines")
		require.NoError(t, err)
		assert.Equal(t, []string{"chrome58", "safari11"}, v)
	})

	t.Run("string map from object", func(t *testing.T) {
		v, err := opts.StringMap("define")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"DEBUG": "false"}, v)
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := opts.Bool("target", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `option "target"`)
	})
}

func TestOptions_NamesAndCanonical(t *testing.T) {
	t.Parallel()

	a := Options{"b": cty.StringVal("x"), "a": cty.NumberIntVal(1)}
	b := Options{"a": cty.NumberIntVal(1), "b": cty.StringVal("x")}
	c := Options{"a": cty.NumberIntVal(2), "b": cty.StringVal("x")}

	assert.Equal(t, []string{"a", "b"}, a.Names())
	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.NotEqual(t, a.Canonical(), c.Canonical())
	assert.Equal(t, "", Options(nil).Canonical())
}
