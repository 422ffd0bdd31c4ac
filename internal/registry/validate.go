package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ValidateRules performs a strict parity check between the configured rules
// and the registered stages. It checks that every stage exists, that every
// option is declared by its stage and that option values convert to the
// declared types. Problems are reported as a *config.InvalidConfigError.
func (r *Registry) ValidateRules(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, rule := range model.Rules {
		for _, ref := range rule.Stages {
			stage, ok := r.StageRegistry[ref.Name]
			if !ok {
				errs = append(errs, fmt.Sprintf("rule '%s': unknown stage '%s' (registered: %s)", rule.Name, ref.Name, strings.Join(r.Names(), ", ")))
				continue
			}
			for _, name := range ref.Options.Names() {
				want, declared := stage.Options[name]
				if !declared {
					errs = append(errs, fmt.Sprintf("rule '%s', stage '%s': unknown option '%s'", rule.Name, ref.Name, name))
					continue
				}
				if want.Equals(cty.DynamicPseudoType) {
					continue
				}
				if _, err := convert.Convert(ref.Options[name], want); err != nil {
					errs = append(errs, fmt.Sprintf("rule '%s', stage '%s', option '%s': type mismatch. Stage requires '%s': %v",
						rule.Name, ref.Name, name, want.FriendlyName(), err))
				}
			}
		}
	}

	if len(errs) > 0 {
		return &config.InvalidConfigError{File: model.File, Problems: errs}
	}
	logger.Debug("Rules validated against registry.", "rules", len(model.Rules), "stages", len(r.StageRegistry))
	return nil
}
