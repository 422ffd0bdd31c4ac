package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/assetgraph/internal/digest"
)

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"html/index.html":    KindMarkup,
		"html/elm-dice.css":  KindStyle,
		"html/elm-dice.js":   KindScript,
		"src/Main.elm":       KindSource,
		"html/die.svg":       KindMarkup,
		"html/favicon.ico":   KindBinary,
		"sounds/roll.OGG":    KindBinary,
		"html/INDEX.HTML":    KindMarkup,
		"no-extension":       KindBinary,
		"html/manifest.json": KindBinary,
	}
	for p, want := range tests {
		t.Run(p, func(t *testing.T) {
			assert.Equal(t, want, KindOf(p))
		})
	}
}

func TestParseKind_RoundTrip(t *testing.T) {
	for _, k := range []Kind{KindBinary, KindScript, KindStyle, KindMarkup, KindSource} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("video")
	assert.Error(t, err)
}

func TestTerminal(t *testing.T) {
	assert.True(t, KindBinary.Terminal())
	assert.False(t, KindStyle.Terminal())
	assert.False(t, KindSource.Terminal())
}

func TestNew_HashesContent(t *testing.T) {
	a := New("a.css", []byte("a{}"))
	assert.Equal(t, "a.css", a.OutPath)
	assert.Equal(t, digest.Sum([]byte("a{}")), a.Hash)
	assert.NotNil(t, a.Refs)

	art := a.Artifact()
	assert.Equal(t, "a.css", art.Path)
	assert.Equal(t, KindStyle, art.Kind)

	renamed := art.WithPath("b.css")
	assert.Equal(t, "a.css", art.Path, "WithPath must not mutate the receiver")
	assert.Equal(t, "b.css", renamed.Path)
}
