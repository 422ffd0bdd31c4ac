package config

import (
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
)

// DefaultOutDir is used when neither the config file nor the command line
// names an output directory.
const DefaultOutDir = "dist"

// DefaultManifestName is the file the manifest is written to inside the
// output directory.
const DefaultManifestName = "asset-manifest.json"

// Model is the unified, format-agnostic representation of a pipeline
// configuration.
type Model struct {
	// File is the path the model was loaded from, for error messages.
	File string

	Entries      []string
	OutDir       string
	SourceRoot   string
	ManifestName string
	Resolve      Resolve
	Rules        []*Rule
	Copies       []*CopySpec
}

// Resolve controls how references without a relative prefix are found.
type Resolve struct {
	// SearchPaths are directories, relative to the source root, searched in
	// order for bare script specifiers.
	SearchPaths []string
	// Extensions are appended, in order, to references that name no
	// existing file.
	Extensions []string
}

// Rule maps assets matching Include (and not Exclude) to a stage pipeline.
type Rule struct {
	Name    string
	Include []string
	Exclude []string
	Stages  []*StageRef
}

// StageRef is one step of a rule's pipeline.
type StageRef struct {
	Name string
	// When restricts the stage to a build mode ("production" or
	// "development"). Empty means always.
	When    string
	Options Options
}

// CopySpec copies a file or directory verbatim into the output.
type CopySpec struct {
	From string
	To   string
}

// Options holds the raw option values of a stage.
type Options map[string]cty.Value

// Rebase resolves SourceRoot and OutDir against baseDir (normally the
// directory holding the config file) and fills in defaults.
func (m *Model) Rebase(baseDir string) {
	switch {
	case m.SourceRoot == "":
		m.SourceRoot = baseDir
	case !filepath.IsAbs(m.SourceRoot):
		m.SourceRoot = filepath.Join(baseDir, m.SourceRoot)
	}
	switch {
	case m.OutDir == "":
		m.OutDir = filepath.Join(baseDir, DefaultOutDir)
	case !filepath.IsAbs(m.OutDir):
		m.OutDir = filepath.Join(baseDir, m.OutDir)
	}
	if m.ManifestName == "" {
		m.ManifestName = DefaultManifestName
	}
}
