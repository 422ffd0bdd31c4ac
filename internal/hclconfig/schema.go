package hclconfig

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level attribute and block of a pipeline file.
type fileRoot struct {
	Entries      []string      `hcl:"entries,optional"`
	OutDir       string        `hcl:"out_dir,optional"`
	SourceRoot   string        `hcl:"source_root,optional"`
	ManifestName string        `hcl:"manifest,optional"`
	Resolve      *resolveBlock `hcl:"resolve,block"`
	Rules        []*ruleBlock  `hcl:"rule,block"`
	Copies       []*copyBlock  `hcl:"copy,block"`
}

type resolveBlock struct {
	SearchPaths []string `hcl:"search_paths,optional"`
	Extensions  []string `hcl:"extensions,optional"`
}

type ruleBlock struct {
	Name    string        `hcl:"name,label"`
	Include []string      `hcl:"include"`
	Exclude []string      `hcl:"exclude,optional"`
	Stages  []*stageBlock `hcl:"stage,block"`
}

// stageBlock keeps everything but `when` as a raw body; the stage decides
// which attributes it understands.
type stageBlock struct {
	Name    string   `hcl:"name,label"`
	When    string   `hcl:"when,optional"`
	Options hcl.Body `hcl:",remain"`
}

type copyBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to,optional"`
}
