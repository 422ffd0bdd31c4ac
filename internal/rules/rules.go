// Package rules turns the configured transformation rules into a table that
// answers, for any asset path, which rules may build it and in what order.
package rules

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/digest"
)

// Mode selects which mode-restricted stages are active.
type Mode string

const (
	Production  Mode = "production"
	Development Mode = "development"
)

// ParseMode validates a mode name. The empty string means Production.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", Production:
		return Production, nil
	case Development:
		return Development, nil
	}
	return "", fmt.Errorf("invalid mode %q: must be %q or %q", s, Production, Development)
}

// Rule is a compiled transformation rule. Stages only holds the stages that
// are active in the table's mode.
type Rule struct {
	Name    string
	Include []string
	Exclude []string
	Stages  []*config.StageRef

	fingerprint digest.Hash
}

// Fingerprint identifies the rule's behavior: the build mode, its name and
// the names and options of its active stages. Cache keys include it so that editing a
// rule invalidates every asset it built.
func (r *Rule) Fingerprint() digest.Hash {
	return r.fingerprint
}

// Matches reports whether p is included and not excluded by the rule.
func (r *Rule) Matches(p string) bool {
	return matchAny(r.Include, p) && !matchAny(r.Exclude, p)
}

// Table is the ordered set of rules for one build.
type Table struct {
	mode  Mode
	rules []*Rule
}

// New compiles the configured rules. Rule order is preserved: it decides
// which candidate is tried first.
func New(rules []*config.Rule, mode Mode) (*Table, error) {
	t := &Table{mode: mode}
	for _, cr := range rules {
		for _, p := range append(append([]string{}, cr.Include...), cr.Exclude...) {
			if !doublestar.ValidatePattern(p) {
				return nil, fmt.Errorf("rule %q: invalid pattern %q", cr.Name, p)
			}
		}
		r := &Rule{Name: cr.Name, Include: cr.Include, Exclude: cr.Exclude}
		fp := digest.NewBuilder().String(string(mode)).String(cr.Name)
		for _, s := range cr.Stages {
			if s.When != "" && Mode(s.When) != mode {
				continue
			}
			r.Stages = append(r.Stages, s)
			fp.String(s.Name).String(s.Options.Canonical())
		}
		r.fingerprint = fp.Sum()
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// Mode returns the mode the table was compiled for.
func (t *Table) Mode() Mode {
	return t.mode
}

// Rules returns every rule in declaration order.
func (t *Table) Rules() []*Rule {
	return t.rules
}

// Match returns the candidate rules for an asset path in declaration order.
func (t *Table) Match(p string) []*Rule {
	var out []*Rule
	for _, r := range t.rules {
		if r.Matches(p) {
			out = append(out, r)
		}
	}
	return out
}

// Buildable reports whether an asset can be built: it is verbatim, has a
// candidate rule, or is of a terminal kind.
func (t *Table) Buildable(a *asset.Asset) bool {
	return a.Verbatim || a.Kind.Terminal() || len(t.Match(a.Path)) > 0
}

// matchAny matches p against patterns. A pattern without a slash also
// matches the base name, so "*.css" covers "css/app.css".
func matchAny(patterns []string, p string) bool {
	base := path.Base(p)
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, p); err == nil && ok {
			return true
		}
		if !strings.Contains(pat, "/") {
			if ok, err := doublestar.Match(pat, base); err == nil && ok {
				return true
			}
		}
	}
	return false
}
