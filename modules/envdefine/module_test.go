package envdefine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/vk/assetgraph/internal/rules"
	"github.com/zclconf/go-cty/cty"
)

func run(t *testing.T, m *Module, src string, mode rules.Mode, opts config.Options) string {
	t.Helper()
	a := asset.New("app.js", []byte(src))
	out, err := m.OnEnvDefine(context.Background(), &registry.StageInput{
		Artifact: a.Artifact(),
		Source:   a,
		Options:  opts,
		Mode:     mode,
	})
	require.NoError(t, err)
	return string(out.Data)
}

func TestOnEnvDefine(t *testing.T) {
	m := &Module{Environ: func() []string { return []string{"API_URL=https://api.test", "SECRET=s3cr3t"} }}

	testCases := []struct {
		name string
		src  string
		mode rules.Mode
		opts config.Options
		want string
	}{
		{
			name: "node env follows mode",
			src:  `if (process.env.NODE_ENV !== "production") { debug() }`,
			mode: rules.Development,
			want: `if ("development" !== "production") { debug() }`,
		},
		{
			name: "environment value",
			src:  `fetch(process.env.API_URL + "/x")`,
			want: `fetch("https://api.test" + "/x")`,
		},
		{
			name: "missing becomes undefined",
			src:  `const x = process.env.NOPE;`,
			want: `const x = undefined;`,
		},
		{
			name: "vars restricts",
			src:  `a(process.env.SECRET, process.env.API_URL)`,
			opts: config.Options{"vars": cty.ListVal([]cty.Value{cty.StringVal("API_URL")})},
			want: `a(undefined, "https://api.test")`,
		},
		{
			name: "defaults",
			src:  `a(process.env.LEVEL)`,
			opts: config.Options{"defaults": cty.MapVal(map[string]cty.Value{"LEVEL": cty.StringVal("3")})},
			want: `a("3")`,
		},
		{
			name: "member access is untouched",
			src:  `obj.process.env.API_URL; "process.env.API_URL"`,
			want: `obj.process.env.API_URL; "process.env.API_URL"`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mode := tc.mode
			if mode == "" {
				mode = rules.Production
			}
			assert.Equal(t, tc.want, run(t, m, tc.src, mode, tc.opts))
		})
	}
}

func TestKeyInputs(t *testing.T) {
	env := []string{"API_URL=https://api.test", "SECRET=s3cr3t"}
	m := &Module{Environ: func() []string { return env }}
	a := asset.New("app.js", nil)
	in := &registry.StageInput{
		Source:  a,
		Options: config.Options{"vars": cty.ListVal([]cty.Value{cty.StringVal("API_URL")})},
		Mode:    rules.Production,
	}

	got, err := m.KeyInputs(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"API_URL=https://api.test"}, got, "names outside vars are not part of the key")

	env = []string{"API_URL=https://api.test", "SECRET=rotated"}
	unchanged, err := m.KeyInputs(in)
	require.NoError(t, err)
	assert.Equal(t, got, unchanged)

	in.Options = nil
	all, err := m.KeyInputs(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"API_URL=https://api.test", "NODE_ENV=production", "SECRET=rotated"}, all)
}
