// Package esbuild provides the "esbuild_js" and "esbuild_css" stages, which
// run esbuild's transform API over a single artifact: syntax lowering for
// the configured targets, vendor prefixing, define replacement and
// minification.
package esbuild

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/vk/assetgraph/internal/rules"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var engines = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"deno":    api.EngineDeno,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"hermes":  api.EngineHermes,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"rhino":   api.EngineRhino,
	"safari":  api.EngineSafari,
}

var esTargets = map[string]api.Target{
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

var formats = map[string]api.Format{
	"":     api.FormatDefault,
	"iife": api.FormatIIFE,
	"cjs":  api.FormatCommonJS,
	"esm":  api.FormatESModule,
}

var scriptLoaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".tsx": api.LoaderTSX,
}

// ParseTargets splits target names such as "chrome58", "safari11" or
// "es2017" into a language target and engine versions.
func ParseTargets(names []string) (api.Target, []api.Engine, error) {
	target := api.DefaultTarget
	var out []api.Engine
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if t, ok := esTargets[name]; ok {
			target = t
			continue
		}
		i := strings.IndexAny(name, "0123456789")
		if i <= 0 {
			return target, nil, fmt.Errorf("invalid target %q", name)
		}
		engine, ok := engines[name[:i]]
		if !ok {
			return target, nil, fmt.Errorf("unknown target engine %q", name[:i])
		}
		out = append(out, api.Engine{Name: engine, Version: name[i:]})
	}
	return target, out, nil
}

// transformOptions builds the options shared by both stages.
func transformOptions(in *registry.StageInput) (api.TransformOptions, error) {
	var opts api.TransformOptions

	minify, err := in.Options.Bool("minify", in.Mode == rules.Production)
	if err != nil {
		return opts, err
	}
	names, err := in.Options.Strings("targets")
	if err != nil {
		return opts, err
	}
	target, engineList, err := ParseTargets(names)
	if err != nil {
		return opts, err
	}
	define, err := in.Options.StringMap("define")
	if err != nil {
		return opts, err
	}

	opts.Sourcefile = in.Source.Path
	opts.MinifyWhitespace = minify
	opts.MinifyIdentifiers = minify
	opts.MinifySyntax = minify
	opts.Target = target
	opts.Engines = engineList
	opts.Define = define
	opts.LogLevel = api.LogLevelSilent
	return opts, nil
}

func transform(ctx context.Context, in *registry.StageInput, opts api.TransformOptions) ([]byte, error) {
	logger := ctxlog.FromContext(ctx)
	result := api.Transform(string(in.Artifact.Data), opts)
	for _, msg := range result.Warnings {
		logger.Warn("esbuild warning.", "warning", formatMessage(msg))
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, msg := range result.Errors {
			msgs = append(msgs, formatMessage(msg))
		}
		return nil, fmt.Errorf("esbuild failed with errors: %s", strings.Join(msgs, "; "))
	}
	return result.Code, nil
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

// OnTransformJS is the handler for the 'esbuild_js' stage. TypeScript and
// JSX sources are emitted with a .js extension.
func OnTransformJS(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	opts, err := transformOptions(in)
	if err != nil {
		return nil, err
	}
	format, err := in.Options.String("format", "")
	if err != nil {
		return nil, err
	}
	f, ok := formats[format]
	if !ok {
		return nil, fmt.Errorf("unknown format %q", format)
	}
	opts.Format = f

	ext := path.Ext(in.Artifact.Path)
	loaderName, err := in.Options.String("loader", "")
	if err != nil {
		return nil, err
	}
	if loaderName != "" {
		ext = "." + strings.TrimPrefix(loaderName, ".")
	}
	loader, ok := scriptLoaders[strings.ToLower(ext)]
	if !ok {
		loader = api.LoaderJS
	}
	opts.Loader = loader

	code, err := transform(ctx, in, opts)
	if err != nil {
		return nil, err
	}

	out := &asset.Artifact{Path: in.Artifact.Path, Kind: asset.KindScript, Data: code}
	switch path.Ext(out.Path) {
	case ".ts", ".tsx", ".jsx":
		out.Path = strings.TrimSuffix(out.Path, path.Ext(out.Path)) + ".js"
	}
	return out, nil
}

// OnTransformCSS is the handler for the 'esbuild_css' stage.
func OnTransformCSS(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	opts, err := transformOptions(in)
	if err != nil {
		return nil, err
	}
	opts.Loader = api.LoaderCSS

	code, err := transform(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	return in.Artifact.WithData(code), nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	common := func() map[string]cty.Type {
		return map[string]cty.Type{
			"minify":  cty.Bool,
			"targets": cty.List(cty.String),
			"define":  cty.Map(cty.String),
		}
	}
	jsOpts := common()
	jsOpts["format"] = cty.String
	jsOpts["loader"] = cty.String

	r.RegisterStage("esbuild_js", &registry.RegisteredStage{
		Description: "Lowers, defines and minifies a script with esbuild.",
		Options:     jsOpts,
		Fn:          OnTransformJS,
	})
	r.RegisterStage("esbuild_css", &registry.RegisteredStage{
		Description: "Prefixes and minifies a stylesheet with esbuild.",
		Options:     common(),
		Fn:          OnTransformCSS,
	})
}
