// Package rename provides stages that change an artifact's output path:
// "rename" with an explicit template and "content_hash_name", which embeds
// the content hash for cache busting.
//
// Templates understand these placeholders:
//
//	[dir]   directory of the current output path, relative to the
//	        "context" option when it is set
//	[name]  base name without extension
//	[ext]   extension without the dot
//	[hash]  leading hex characters of the content hash
package rename

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// DefaultHashTemplate is the content_hash_name template when none is set.
const DefaultHashTemplate = "[dir]/[name].[hash].[ext]"

// DefaultHashLength is the number of hex characters used for [hash].
const DefaultHashLength = 8

// Module implements the registry.Module interface for this package.
type Module struct{}

// Expand fills in a template for the artifact. A non-empty contextDir is
// stripped from [dir]; the artifact must live below it.
func Expand(template string, a *asset.Artifact, hashLength int, contextDir string) (string, error) {
	dir := path.Dir(a.Path)
	if dir == "." {
		dir = ""
	}
	if contextDir = strings.Trim(path.Clean("/"+contextDir), "/"); contextDir != "" {
		switch {
		case dir == contextDir:
			dir = ""
		case strings.HasPrefix(dir, contextDir+"/"):
			dir = strings.TrimPrefix(dir, contextDir+"/")
		default:
			return "", fmt.Errorf("%s is outside context %q", a.Path, contextDir)
		}
	}
	base := path.Base(a.Path)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)

	out := strings.NewReplacer(
		"[dir]", dir,
		"[name]", name,
		"[ext]", strings.TrimPrefix(ext, "."),
		"[hash]", a.Hash().Short(hashLength),
	).Replace(template)
	if ext == "" {
		out = strings.TrimSuffix(out, ".")
	}

	out = strings.TrimPrefix(path.Clean("/"+out), "/")
	if out == "" {
		return "", fmt.Errorf("template %q produced an empty path for %s", template, a.Path)
	}
	return out, nil
}

// OnRename is the handler for the 'rename' stage.
func OnRename(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	template, err := in.Options.String("template", "")
	if err != nil {
		return nil, err
	}
	if template == "" {
		return nil, fmt.Errorf("option 'template' is required")
	}
	return rename(in, template, DefaultHashLength)
}

// OnContentHashName is the handler for the 'content_hash_name' stage.
func OnContentHashName(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	template, err := in.Options.String("template", DefaultHashTemplate)
	if err != nil {
		return nil, err
	}
	length, err := in.Options.Int("length", DefaultHashLength)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(template, "[hash]") {
		return nil, fmt.Errorf("template %q has no [hash] placeholder", template)
	}
	return rename(in, template, length)
}

func rename(in *registry.StageInput, template string, length int) (*asset.Artifact, error) {
	contextDir, err := in.Options.String("context", "")
	if err != nil {
		return nil, err
	}
	p, err := Expand(template, in.Artifact, length, contextDir)
	if err != nil {
		return nil, err
	}
	return in.Artifact.WithPath(p), nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage("rename", &registry.RegisteredStage{
		Description: "Moves the artifact to a templated output path.",
		Options:     map[string]cty.Type{"template": cty.String, "context": cty.String},
		Fn:          OnRename,
	})
	r.RegisterStage("content_hash_name", &registry.RegisteredStage{
		Description: "Embeds the content hash in the output file name.",
		Options:     map[string]cty.Type{"template": cty.String, "length": cty.Number, "context": cty.String},
		Fn:          OnContentHashName,
	})
}
