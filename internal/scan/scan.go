// Package scan extracts the references an asset makes to other assets.
// Scanners report references exactly as written in the source, in order of
// first appearance and without duplicates; resolving them is the
// resolver's job.
package scan

import (
	"errors"
	"io"
	"strings"

	"github.com/vk/assetgraph/internal/asset"
)

// Func scans the content of one asset.
type Func func(data []byte) ([]string, error)

// For returns the scanner for a kind, or nil when assets of that kind
// cannot reference other assets.
func For(kind asset.Kind) Func {
	switch kind {
	case asset.KindStyle:
		return CSS
	case asset.KindMarkup:
		return HTML
	case asset.KindScript:
		return JS
	}
	return nil
}

// refSet collects references in first-seen order.
type refSet struct {
	seen map[string]bool
	refs []string
}

func (s *refSet) add(ref string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[ref] {
		return
	}
	s.seen[ref] = true
	s.refs = append(s.refs, ref)
}

// lexErr filters the io.EOF every lexer reports at the end of input.
func lexErr(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Unquote strips one level of matching single or double quotes.
func Unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
