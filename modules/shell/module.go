// Package shell provides the "shell" stage. It runs a POSIX shell script
// through an embedded interpreter with the artifact on stdin and takes
// stdout as the new content. This is how foreign compilers (elm make, sass)
// are plugged into a rule.
//
// The script sees ASSET_PATH, ASSET_KIND and BUILD_MODE in its
// environment, plus the "env" option and the process environment.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Dir is the working directory of scripts. Empty means the process
	// working directory.
	Dir string
}

// environ is the script environment without ASSET_KIND, in a stable order.
func (m *Module) environ(in *registry.StageInput) ([]string, error) {
	extra, err := in.Options.StringMap("env")
	if err != nil {
		return nil, err
	}
	env := slices.Sorted(slices.Values(os.Environ()))
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}
	return append(env,
		"ASSET_PATH="+in.Source.Path,
		"BUILD_MODE="+string(in.Mode),
	), nil
}

// KeyInputs lists the script environment and working directory. A script
// reading other files is not tracked.
func (m *Module) KeyInputs(in *registry.StageInput) ([]string, error) {
	env, err := m.environ(in)
	if err != nil {
		return nil, err
	}
	return append(env, "dir="+m.Dir), nil
}

// OnShell is the handler for the 'shell' stage.
func (m *Module) OnShell(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	logger := ctxlog.FromContext(ctx)

	script, err := in.Options.String("script", "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(script) == "" {
		return nil, errors.New("option 'script' is required")
	}
	outExt, err := in.Options.String("output_ext", "")
	if err != nil {
		return nil, err
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	env, err := m.environ(in)
	if err != nil {
		return nil, err
	}
	env = append(env, "ASSET_KIND="+in.Artifact.Kind.String())

	var stdout, stderr bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(bytes.NewReader(in.Artifact.Data), &stdout, &stderr),
	}
	if m.Dir != "" {
		opts = append(opts, interp.Dir(m.Dir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create interpreter: %w", err)
	}

	logger.Debug("Running shell stage.")
	if err := runner.Run(ctx, prog); err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return nil, fmt.Errorf("script exited with status %d: %s", int(exitStatus), msg)
		}
		return nil, fmt.Errorf("script execution failed: %w", err)
	}
	if stderr.Len() > 0 {
		logger.Debug("Shell stage wrote to stderr.", "stderr", strings.TrimSpace(stderr.String()))
	}

	out := in.Artifact.WithData(stdout.Bytes())
	if outExt != "" {
		p := strings.TrimSuffix(out.Path, path.Ext(out.Path)) + outExt
		out = &asset.Artifact{Path: p, Kind: asset.KindOf(p), Data: out.Data}
	}
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage("shell", &registry.RegisteredStage{
		Description: "Pipes the artifact through a shell script.",
		Options: map[string]cty.Type{
			"script":     cty.String,
			"output_ext": cty.String,
			"env":        cty.Map(cty.String),
		},
		Fn:        m.OnShell,
		KeyInputs: m.KeyInputs,
	})
}
