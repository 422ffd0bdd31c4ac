// Package envdefine provides the "env_define" stage, which replaces
// process.env.NAME expressions in scripts with string literals taken from
// the build environment. NODE_ENV defaults to the build mode.
package envdefine

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/tdewolff/parse/v2/js"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/vk/assetgraph/internal/scan"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ returns the environment in "key=value" form. Nil means
	// os.Environ.
	Environ func() []string
}

func (m *Module) environ(in *registry.StageInput) (map[string]string, error) {
	envFn := m.Environ
	if envFn == nil {
		envFn = os.Environ
	}

	envMap := map[string]string{"NODE_ENV": string(in.Mode)}
	defaults, err := in.Options.StringMap("defaults")
	if err != nil {
		return nil, err
	}
	for k, v := range defaults {
		envMap[k] = v
	}
	for _, e := range envFn() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}

	allowed, err := in.Options.Strings("vars")
	if err != nil {
		return nil, err
	}
	if len(allowed) > 0 {
		for k := range envMap {
			if !slices.Contains(allowed, k) {
				delete(envMap, k)
			}
		}
	}
	return envMap, nil
}

// OnEnvDefine is the handler for the 'env_define' stage. Names missing from
// the environment become undefined. With a "vars" option only the listed
// names are read from the environment.
func (m *Module) OnEnvDefine(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	logger := ctxlog.FromContext(ctx)

	envMap, err := m.environ(in)
	if err != nil {
		return nil, err
	}
	tokens, err := scan.LexJS(in.Artifact.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Source.Path, err)
	}

	var sig []int
	for i, tok := range tokens {
		if !tok.Trivia() {
			sig = append(sig, i)
		}
	}
	is := func(k int, tt js.TokenType, text string) bool {
		if k >= len(sig) {
			return false
		}
		tok := tokens[sig[k]]
		return tok.Type == tt && (text == "" || string(tok.Text) == text)
	}

	out := make([]byte, 0, len(in.Artifact.Data))
	next := 0
	replaced := 0
	for k := 0; k < len(sig); k++ {
		match := is(k, js.IdentifierToken, "process") &&
			!(k > 0 && is(k-1, js.DotToken, "")) &&
			is(k+1, js.DotToken, "") &&
			is(k+2, js.IdentifierToken, "env") &&
			is(k+3, js.DotToken, "") &&
			is(k+4, js.IdentifierToken, "")
		if !match {
			continue
		}
		name := string(tokens[sig[k+4]].Text)
		literal := "undefined"
		if v, ok := envMap[name]; ok {
			b, _ := json.Marshal(v)
			literal = string(b)
		}
		for _, tok := range tokens[next:sig[k]] {
			out = append(out, tok.Text...)
		}
		out = append(out, literal...)
		next = sig[k+4] + 1
		k += 4
		replaced++
	}
	for _, tok := range tokens[next:] {
		out = append(out, tok.Text...)
	}

	logger.Debug("Environment references replaced.", "count", replaced)
	return in.Artifact.WithData(out), nil
}

// KeyInputs lists the environment values the stage would inline, so that a
// change to any of them invalidates cached output.
func (m *Module) KeyInputs(in *registry.StageInput) ([]string, error) {
	envMap, err := m.environ(in)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		out = append(out, k+"="+envMap[k])
	}
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage("env_define", &registry.RegisteredStage{
		Description: "Inlines process.env.NAME from the build environment.",
		Options: map[string]cty.Type{
			"vars":     cty.List(cty.String),
			"defaults": cty.Map(cty.String),
		},
		Fn:        m.OnEnvDefine,
		KeyInputs: m.KeyInputs,
	})
}
