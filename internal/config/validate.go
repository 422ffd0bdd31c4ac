package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidConfig is the sentinel wrapped by every InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// InvalidConfigError collects every problem found while validating a Model,
// so a user can fix them all in one pass.
type InvalidConfigError struct {
	File     string
	Problems []string
}

func (e *InvalidConfigError) Error() string {
	where := ""
	if e.File != "" {
		where = " in " + e.File
	}
	return fmt.Sprintf("%d configuration problem(s)%s:\n- %s", len(e.Problems), where, strings.Join(e.Problems, "\n- "))
}

// Unwrap returns ErrInvalidConfig.
func (e *InvalidConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks the structural integrity of the model. It does not know
// which stages exist; that is checked against the stage registry.
func (m *Model) Validate() error {
	var problems []string
	if len(m.Entries) == 0 && len(m.Copies) == 0 {
		problems = append(problems, "no entries and no copy specs: nothing to build")
	}
	for _, e := range m.Entries {
		if strings.TrimSpace(e) == "" {
			problems = append(problems, "entry path must not be empty")
		}
	}

	seen := make(map[string]bool, len(m.Rules))
	for i, r := range m.Rules {
		label := fmt.Sprintf("rule #%d", i+1)
		if r.Name == "" {
			problems = append(problems, label+": name must not be empty")
		} else {
			label = fmt.Sprintf("rule %q", r.Name)
			if seen[r.Name] {
				problems = append(problems, label+": duplicate rule name")
			}
			seen[r.Name] = true
		}
		if len(r.Include) == 0 {
			problems = append(problems, label+": include must list at least one pattern")
		}
		for _, p := range append(append([]string{}, r.Include...), r.Exclude...) {
			if !doublestar.ValidatePattern(p) {
				problems = append(problems, fmt.Sprintf("%s: invalid pattern %q", label, p))
			}
		}
		for j, s := range r.Stages {
			if s.Name == "" {
				problems = append(problems, fmt.Sprintf("%s: stage #%d has no name", label, j+1))
			}
			switch s.When {
			case "", "production", "development":
			default:
				problems = append(problems, fmt.Sprintf("%s: stage %q: when must be \"production\" or \"development\", got %q", label, s.Name, s.When))
			}
		}
	}

	for i, c := range m.Copies {
		if strings.TrimSpace(c.From) == "" {
			problems = append(problems, fmt.Sprintf("copy #%d: from must not be empty", i+1))
		}
	}

	if len(problems) > 0 {
		return &InvalidConfigError{File: m.File, Problems: problems}
	}
	return nil
}
