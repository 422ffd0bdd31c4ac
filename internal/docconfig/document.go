package docconfig

import (
	"encoding/json"
	"fmt"

	"github.com/vk/assetgraph/internal/config"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

type document struct {
	Entries      []string       `json:"entries" yaml:"entries" toml:"entries"`
	OutDir       string         `json:"out_dir" yaml:"out_dir" toml:"out_dir"`
	SourceRoot   string         `json:"source_root" yaml:"source_root" toml:"source_root"`
	ManifestName string         `json:"manifest" yaml:"manifest" toml:"manifest"`
	Resolve      resolveSection `json:"resolve" yaml:"resolve" toml:"resolve"`
	Rules        []ruleSection  `json:"rules" yaml:"rules" toml:"rules"`
	Copies       []copySection  `json:"copy" yaml:"copy" toml:"copy"`
}

type resolveSection struct {
	SearchPaths []string `json:"search_paths" yaml:"search_paths" toml:"search_paths"`
	Extensions  []string `json:"extensions" yaml:"extensions" toml:"extensions"`
}

type ruleSection struct {
	Name    string         `json:"name" yaml:"name" toml:"name"`
	Include []string       `json:"include" yaml:"include" toml:"include"`
	Exclude []string       `json:"exclude" yaml:"exclude" toml:"exclude"`
	Stages  []stageSection `json:"stages" yaml:"stages" toml:"stages"`
}

type stageSection struct {
	Name    string         `json:"name" yaml:"name" toml:"name"`
	When    string         `json:"when" yaml:"when" toml:"when"`
	Options map[string]any `json:"options" yaml:"options" toml:"options"`
}

type copySection struct {
	From string `json:"from" yaml:"from" toml:"from"`
	To   string `json:"to" yaml:"to" toml:"to"`
}

// toModel translates a decoded document. Stage options go through JSON so
// that every format produces the same cty values.
func (d *document) toModel(path string) (*config.Model, error) {
	model := &config.Model{
		File:         path,
		Entries:      d.Entries,
		OutDir:       d.OutDir,
		SourceRoot:   d.SourceRoot,
		ManifestName: d.ManifestName,
		Resolve: config.Resolve{
			SearchPaths: d.Resolve.SearchPaths,
			Extensions:  d.Resolve.Extensions,
		},
	}
	for i, rs := range d.Rules {
		rule := &config.Rule{Name: rs.Name, Include: rs.Include, Exclude: rs.Exclude}
		for _, ss := range rs.Stages {
			opts, err := toOptions(ss.Options)
			if err != nil {
				return nil, fmt.Errorf("rule #%d (%q) stage %q: %w", i+1, rs.Name, ss.Name, err)
			}
			rule.Stages = append(rule.Stages, &config.StageRef{Name: ss.Name, When: ss.When, Options: opts})
		}
		model.Rules = append(model.Rules, rule)
	}
	for _, cs := range d.Copies {
		model.Copies = append(model.Copies, &config.CopySpec{From: cs.From, To: cs.To})
	}
	return model, nil
}

func toOptions(raw map[string]any) (config.Options, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	opts := make(config.Options, len(raw))
	for name, v := range raw {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", name, err)
		}
		ty, err := ctyjson.ImpliedType(b)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", name, err)
		}
		val, err := ctyjson.Unmarshal(b, ty)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", name, err)
		}
		opts[name] = val
	}
	return opts, nil
}
