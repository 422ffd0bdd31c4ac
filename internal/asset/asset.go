// Package asset defines the units that flow through a build: source assets
// read from disk and the artifacts that transform stages produce from them.
package asset

import (
	"fmt"
	"path"
	"strings"

	"github.com/vk/assetgraph/internal/digest"
)

// Kind is the content type of an asset.
type Kind int

const (
	// KindBinary is opaque content (images, fonts, data files). Binary
	// assets are terminal: they may be copied without a matching rule.
	KindBinary Kind = iota
	// KindScript is JavaScript or a dialect esbuild understands natively.
	KindScript
	// KindStyle is CSS.
	KindStyle
	// KindMarkup is HTML, XML or SVG.
	KindMarkup
	// KindSource is a foreign language that has to be compiled by a stage
	// (Elm, Sass, CoffeeScript).
	KindSource
)

var kindNames = map[Kind]string{
	KindBinary: "binary",
	KindScript: "script",
	KindStyle:  "style",
	KindMarkup: "markup",
	KindSource: "source",
}

var kindsByExt = map[string]Kind{
	".js":     KindScript,
	".mjs":    KindScript,
	".cjs":    KindScript,
	".jsx":    KindScript,
	".ts":     KindScript,
	".tsx":    KindScript,
	".css":    KindStyle,
	".html":   KindMarkup,
	".htm":    KindMarkup,
	".xml":    KindMarkup,
	".svg":    KindMarkup,
	".elm":    KindSource,
	".scss":   KindSource,
	".sass":   KindSource,
	".less":   KindSource,
	".coffee": KindSource,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Terminal reports whether assets of this kind may be emitted verbatim when
// no rule matches them.
func (k Kind) Terminal() bool {
	return k == KindBinary
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindBinary, fmt.Errorf("unknown asset kind %q", s)
}

// KindOf infers the kind of a file from its extension.
func KindOf(p string) Kind {
	if k, ok := kindsByExt[strings.ToLower(path.Ext(p))]; ok {
		return k
	}
	return KindBinary
}

// Asset is a source file as read at the start of a build. Assets are never
// modified; a changed file produces a new Asset on the next build.
type Asset struct {
	// Path is the slash-separated path relative to the source root. It is
	// also the asset's node ID in the dependency graph.
	Path string
	// OutPath is where the asset lands in the output directory before any
	// stage renames it. It equals Path except for copied assets.
	OutPath string
	Kind    Kind
	Data    []byte
	Hash    digest.Hash
	// Refs maps every reference written in the asset (as spelled in the
	// source) to the path of the asset it resolved to.
	Refs map[string]string
	// Verbatim assets come from copy specs and skip rule matching.
	Verbatim bool
}

// New builds an asset from its path and content.
func New(p string, data []byte) *Asset {
	return &Asset{
		Path:    p,
		OutPath: p,
		Kind:    KindOf(p),
		Data:    data,
		Hash:    digest.Sum(data),
		Refs:    make(map[string]string),
	}
}

// Artifact returns the initial artifact for this asset, before any stage.
func (a *Asset) Artifact() *Artifact {
	return &Artifact{Path: a.OutPath, Kind: a.Kind, Data: a.Data}
}

// Artifact is the output of a stage: bytes plus the path and kind they are
// written under.
type Artifact struct {
	Path string
	Kind Kind
	Data []byte
}

// WithData returns a copy of the artifact carrying new content.
func (a *Artifact) WithData(data []byte) *Artifact {
	return &Artifact{Path: a.Path, Kind: a.Kind, Data: data}
}

// WithPath returns a copy of the artifact under a new output path.
func (a *Artifact) WithPath(p string) *Artifact {
	return &Artifact{Path: p, Kind: a.Kind, Data: a.Data}
}

// Hash returns the content hash of the artifact's bytes.
func (a *Artifact) Hash() digest.Hash {
	return digest.Sum(a.Data)
}
