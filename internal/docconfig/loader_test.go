package docconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgraph/internal/config"
)

const pipelineYAML = `
entries: [html/index.html]
out_dir: public
resolve:
  search_paths: [node_modules]
  extensions: [.js]
rules:
  - name: scripts
    include: ["**/*.js"]
    exclude: ["vendor/**"]
    stages:
      - name: esbuild_js
        when: production
        options:
          minify: true
          level: 3
          define:
            DEBUG: "false"
copy:
  - from: static
    to: assets
`

const pipelineTOML = `
entries = ["html/index.html"]
out_dir = "public"

[resolve]
search_paths = ["node_modules"]
extensions = [".js"]

[[rules]]
name = "scripts"
include = ["**/*.js"]
exclude = ["vendor/**"]

[[rules.stages]]
name = "esbuild_js"
when = "production"

[rules.stages.options]
minify = true
level = 3
define = { DEBUG = "false" }

[[copy]]
from = "static"
to = "assets"
`

const pipelineJSONC = `{
  // built by CI
  "entries": ["html/index.html"],
  "out_dir": "public",
  "resolve": {"search_paths": ["node_modules"], "extensions": [".js"]},
  "rules": [
    {
      "name": "scripts",
      "include": ["**/*.js"],
      "exclude": ["vendor/**"],
      "stages": [
        {"name": "esbuild_js", "when": "production", "options": {"minify": true, "level": 3, "define": {"DEBUG": "false"}}},
      ],
    },
  ],
  "copy": [{"from": "static", "to": "assets"}]
}`

func TestLoader_FormatsAgree(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		file string
		src  string
	}{
		{file: "assets.yaml", src: pipelineYAML},
		{file: "assets.toml", src: pipelineTOML},
		{file: "assets.jsonc", src: pipelineJSONC},
	}

	var canonical []string
	for _, tc := range testCases {
		t.Run(tc.file, func(t *testing.T) {
			// --- Arrange ---
			dir := t.TempDir()
			path := filepath.Join(dir, tc.file)
			require.NoError(t, os.WriteFile(path, []byte(tc.src), 0o600))
			format, ok := FormatFor(filepath.Ext(path))
			require.True(t, ok)

			// --- Act ---
			model, err := NewLoader(format).Load(context.Background(), path)

			// --- Assert ---
			require.NoError(t, err)
			require.NoError(t, model.Validate())
			assert.Equal(t, []string{"html/index.html"}, model.Entries)
			assert.Equal(t, filepath.Join(dir, "public"), model.OutDir)
			assert.Equal(t, config.DefaultManifestName, model.ManifestName)
			assert.Equal(t, []string{"node_modules"}, model.Resolve.SearchPaths)
			assert.Equal(t, []string{".js"}, model.Resolve.Extensions)

			require.Len(t, model.Rules, 1)
			rule := model.Rules[0]
			assert.Equal(t, "scripts", rule.Name)
			assert.Equal(t, []string{"vendor/**"}, rule.Exclude)
			require.Len(t, rule.Stages, 1)
			stage := rule.Stages[0]
			assert.Equal(t, "production", stage.When)

			level, err := stage.Options.Int("level", 0)
			require.NoError(t, err)
			assert.Equal(t, 3, level)
			define, err := stage.Options.StringMap("define")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"DEBUG": "false"}, define)

			require.Len(t, model.Copies, 1)
			assert.Equal(t, "static", model.Copies[0].From)
			assert.Equal(t, "assets", model.Copies[0].To)

			canonical = append(canonical, stage.Options.Canonical())
		})
	}

	require.Len(t, canonical, 3)
	assert.Equal(t, canonical[0], canonical[1])
	assert.Equal(t, canonical[0], canonical[2])
}

func TestLoader_UnknownFields(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		format Format
		src    string
	}{
		{format: YAML, src: "entries: [a]\nentry_points: [b]\n"},
		{format: TOML, src: "entries = [\"a\"]\nentry_points = [\"b\"]\n"},
		{format: JSON, src: `{"entries": ["a"], "entry_points": ["b"]}`},
	}

	for _, tc := range testCases {
		t.Run(string(tc.format), func(t *testing.T) {
			_, err := NewLoader(tc.format).LoadBytes(context.Background(), []byte(tc.src), "inline")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to decode "+string(tc.format))
		})
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	for ext, want := range map[string]Format{".yml": YAML, ".YAML": YAML, ".toml": TOML, ".json": JSON, ".jsonc": JSON} {
		got, ok := FormatFor(ext)
		assert.True(t, ok, ext)
		assert.Equal(t, want, got, ext)
	}
	_, ok := FormatFor(".hcl")
	assert.False(t, ok)
}
