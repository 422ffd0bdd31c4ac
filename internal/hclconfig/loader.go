package hclconfig

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/ctxlog"
)

// Loader is the HCL implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses and decodes a single HCL pipeline file.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return l.decode(ctx, path, file.Body)
}

// LoadBytes parses HCL source held in memory. filename is used for
// diagnostics and to rebase relative directories.
func (l *Loader) LoadBytes(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.decode(ctx, filename, file.Body)
}

func (l *Loader) decode(ctx context.Context, path string, body hcl.Body) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	model := &config.Model{
		File:         path,
		Entries:      root.Entries,
		OutDir:       root.OutDir,
		SourceRoot:   root.SourceRoot,
		ManifestName: root.ManifestName,
	}
	if root.Resolve != nil {
		model.Resolve = config.Resolve{
			SearchPaths: root.Resolve.SearchPaths,
			Extensions:  root.Resolve.Extensions,
		}
	}

	for _, rb := range root.Rules {
		rule, err := translateRule(rb)
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", path, err)
		}
		model.Rules = append(model.Rules, rule)
	}
	for _, cb := range root.Copies {
		model.Copies = append(model.Copies, &config.CopySpec{From: cb.From, To: cb.To})
	}

	model.Rebase(filepath.Dir(path))
	logger.Debug("HCL loading complete.", "entries", len(model.Entries), "rules", len(model.Rules), "copies", len(model.Copies))
	return model, nil
}

func translateRule(rb *ruleBlock) (*config.Rule, error) {
	rule := &config.Rule{
		Name:    rb.Name,
		Include: rb.Include,
		Exclude: rb.Exclude,
	}
	for _, sb := range rb.Stages {
		opts, err := translateOptions(sb.Options)
		if err != nil {
			return nil, fmt.Errorf("rule %q stage %q: %w", rb.Name, sb.Name, err)
		}
		rule.Stages = append(rule.Stages, &config.StageRef{
			Name:    sb.Name,
			When:    sb.When,
			Options: opts,
		})
	}
	return rule, nil
}

// translateOptions evaluates every remaining attribute of a stage block.
// Options are static values; no variables or functions are in scope.
func translateOptions(body hcl.Body) (config.Options, error) {
	if body == nil {
		return nil, nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	opts := make(config.Options, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		opts[name] = val
	}
	return opts, nil
}
