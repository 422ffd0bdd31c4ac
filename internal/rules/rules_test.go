package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/config"
	"github.com/zclconf/go-cty/cty"
)

func names(rs []*Rule) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}

func TestTable_Match(t *testing.T) {
	t.Parallel()

	table, err := New([]*config.Rule{
		{Name: "vendor-css", Include: []string{"node_modules/**/*.css"}},
		{Name: "css", Include: []string{"*.css"}, Exclude: []string{"node_modules/**"}},
		{Name: "any", Include: []string{"**"}},
	}, Production)
	require.NoError(t, err)

	testCases := []struct {
		path string
		want []string
	}{
		{path: "app.css", want: []string{"css", "any"}},
		{path: "styles/deep/app.css", want: []string{"css", "any"}},
		{path: "node_modules/lib/lib.css", want: []string{"vendor-css", "any"}},
		{path: "index.html", want: []string{"any"}},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, names(table.Match(tc.path)))
		})
	}
}

func TestTable_ModeFiltersStages(t *testing.T) {
	t.Parallel()

	cfg := []*config.Rule{{
		Name:    "js",
		Include: []string{"*.js"},
		Stages: []*config.StageRef{
			{Name: "env_define"},
			{Name: "esbuild_js", When: "production"},
			{Name: "copy", When: "development"},
		},
	}}

	prod, err := New(cfg, Production)
	require.NoError(t, err)
	dev, err := New(cfg, Development)
	require.NoError(t, err)

	stageNames := func(r *Rule) []string {
		var out []string
		for _, s := range r.Stages {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Equal(t, []string{"env_define", "esbuild_js"}, stageNames(prod.Rules()[0]))
	assert.Equal(t, []string{"env_define", "copy"}, stageNames(dev.Rules()[0]))
	assert.NotEqual(t, prod.Rules()[0].Fingerprint(), dev.Rules()[0].Fingerprint())
}

func TestRule_FingerprintTracksOptions(t *testing.T) {
	t.Parallel()

	build := func(minify bool) *Rule {
		table, err := New([]*config.Rule{{
			Name:    "js",
			Include: []string{"*.js"},
			Stages:  []*config.StageRef{{Name: "esbuild_js", Options: config.Options{"minify": cty.BoolVal(minify)}}},
		}}, Production)
		require.NoError(t, err)
		return table.Rules()[0]
	}

	assert.Equal(t, build(true).Fingerprint(), build(true).Fingerprint())
	assert.NotEqual(t, build(true).Fingerprint(), build(false).Fingerprint())
}

func TestTable_Buildable(t *testing.T) {
	t.Parallel()

	table, err := New([]*config.Rule{{Name: "css", Include: []string{"*.css"}}}, Production)
	require.NoError(t, err)

	assert.True(t, table.Buildable(asset.New("a.css", nil)))
	assert.True(t, table.Buildable(asset.New("logo.png", nil)), "binary assets are terminal")
	assert.False(t, table.Buildable(asset.New("app.js", nil)))

	copied := asset.New("app.js", nil)
	copied.Verbatim = true
	assert.True(t, table.Buildable(copied))
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New([]*config.Rule{{Name: "bad", Include: []string{"[a-"}}}, Production)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `rule "bad"`)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Production, m)

	m, err = ParseMode("Development")
	require.NoError(t, err)
	assert.Equal(t, Development, m)

	_, err = ParseMode("staging")
	require.Error(t, err)
}

func TestRule_FingerprintTracksMode(t *testing.T) {
	t.Parallel()

	cfg := []*config.Rule{{Name: "js", Include: []string{"*.js"}, Stages: []*config.StageRef{{Name: "esbuild_js"}}}}
	prod, err := New(cfg, Production)
	require.NoError(t, err)
	dev, err := New(cfg, Development)
	require.NoError(t, err)

	assert.NotEqual(t, prod.Rules()[0].Fingerprint(), dev.Rules()[0].Fingerprint(), "stage defaults such as minify depend on the mode")
}
