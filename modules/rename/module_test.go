package rename

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

func TestExpand(t *testing.T) {
	art := &asset.Artifact{Path: "css/app.css", Data: []byte("body{}")}
	hash := art.Hash().Short(8)

	testCases := []struct {
		name     string
		template string
		path     string
		context  string
		want     string
	}{
		{name: "default hash template", template: DefaultHashTemplate, path: "css/app.css", want: "css/app." + hash + ".css"},
		{name: "top level file", template: DefaultHashTemplate, path: "app.css", want: "app." + hash + ".css"},
		{name: "no extension", template: "[dir]/[name].[ext]", path: "LICENSE", want: "LICENSE"},
		{name: "file-loader style", template: "static/[name].[ext]", path: "img/logo.css", want: "static/logo.css"},
		{name: "leading slash dropped", template: "/assets/[name].[ext]", path: "app.css", want: "assets/app.css"},
		{name: "context stripped from dir", template: "[dir]/[name].[ext]", path: "html/fonts/a.woff2", context: "html", want: "fonts/a.woff2"},
		{name: "file directly in context", template: "[dir]/[name].[ext]", path: "html/a.woff2", context: "html/", want: "a.woff2"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Expand(tc.template, art.WithPath(tc.path), 8, tc.context)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOnContentHashName(t *testing.T) {
	src := asset.New("js/app.js", []byte("let a = 1"))
	in := &registry.StageInput{Artifact: src.Artifact(), Source: src, Options: config.Options{"length": cty.NumberIntVal(4)}}

	out, err := OnContentHashName(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "js/app."+src.Hash.Short(4)+".js", out.Path)
	assert.Equal(t, src.Data, out.Data)
}

func TestOnContentHashName_RequiresHashPlaceholder(t *testing.T) {
	src := asset.New("app.js", nil)
	in := &registry.StageInput{Artifact: src.Artifact(), Source: src, Options: config.Options{"template": cty.StringVal("[name].[ext]")}}

	_, err := OnContentHashName(context.Background(), in)

	assert.ErrorContains(t, err, "[hash]")
}

func TestOnRename_RequiresTemplate(t *testing.T) {
	src := asset.New("app.js", nil)
	_, err := OnRename(context.Background(), &registry.StageInput{Artifact: src.Artifact(), Source: src})
	assert.Error(t, err)
}

func TestOnRename_Context(t *testing.T) {
	src := asset.New("html/fonts/a.woff2", []byte("wOF2"))
	in := &registry.StageInput{Artifact: src.Artifact(), Source: src, Options: config.Options{
		"template": cty.StringVal("[dir]/[name].[ext]"),
		"context":  cty.StringVal("html"),
	}}

	out, err := OnRename(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "fonts/a.woff2", out.Path)

	outside := asset.New("vendor/b.woff2", nil)
	in.Artifact, in.Source = outside.Artifact(), outside
	_, err = OnRename(context.Background(), in)
	assert.ErrorContains(t, err, "outside context")
}
