// Package cssimport provides the "css_inline_imports" stage: every local
// @import is replaced by the built content of the imported stylesheet.
// Imports with a media query are wrapped in a matching @media block.
// Imports the build does not know about (remote URLs) are left alone.
package cssimport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/vk/assetgraph/internal/scan"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnInlineImports is the handler for the 'css_inline_imports' stage.
func OnInlineImports(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	out, err := Inline(in.Artifact.Data, func(ref string) ([]byte, bool) {
		dep, ok := in.Dep(ref)
		if !ok {
			return nil, false
		}
		return dep.Data, true
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Source.Path, err)
	}
	return in.Artifact.WithData(out), nil
}

// Inline rewrites a stylesheet, replacing each @import statement for which
// lookup returns content.
func Inline(data []byte, lookup func(ref string) ([]byte, bool)) ([]byte, error) {
	l := css.NewLexer(parse.NewInputBytes(data))
	var out bytes.Buffer

	// stmt buffers the tokens of the @import statement being read.
	var stmt bytes.Buffer
	inImport := false
	ref := ""
	// media holds the raw text that follows the reference.
	var media bytes.Buffer

	flush := func(terminator []byte) {
		content, ok := []byte(nil), false
		if ref != "" {
			content, ok = lookup(ref)
		}
		if !ok {
			out.Write(stmt.Bytes())
			out.Write(terminator)
		} else if query := bytes.TrimSpace(media.Bytes()); len(query) > 0 {
			fmt.Fprintf(&out, "@media %s {\n%s\n}", query, bytes.TrimSpace(content))
		} else {
			out.Write(bytes.TrimSpace(content))
		}
		stmt.Reset()
		media.Reset()
		inImport, ref = false, ""
	}

	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("css: %w", err)
			}
			if inImport {
				flush(nil)
			}
			return out.Bytes(), nil
		}

		if !inImport {
			if tt == css.AtKeywordToken && strings.EqualFold(string(text), "@import") {
				inImport = true
				stmt.Write(text)
				continue
			}
			out.Write(text)
			continue
		}

		switch {
		case tt == css.SemicolonToken:
			flush(text)
			continue
		case ref != "":
			media.Write(text)
		case tt == css.StringToken:
			ref = scan.Unquote(string(text))
		case tt == css.URLToken:
			ref = scan.URLValue(text)
		}
		stmt.Write(text)
	}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage("css_inline_imports", &registry.RegisteredStage{
		Description: "Inlines locally built @import targets.",
		Options:     map[string]cty.Type{},
		Fn:          OnInlineImports,
	})
}
