// Package score ranks notifications with the rules of a TOML rule file.
//
// The rule file is a table keyed by rule name:
//
//	[my_fav_repos]
//	rule = "repo"
//	param = "torvalds/linux, emacs-mirror/emacs"
//	score = 5
//
// A notification's score is the sum of the scores of every rule it matches.
package score

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/nhle/notification-triage/internal/model"
)

// ErrMalformedRules is returned when the rule file is not valid TOML or does
// not have the expected shape.
var ErrMalformedRules = errors.New("malformed rule file")

// UnknownRuleKindError is returned when a rule names a kind that has no
// predicate.
type UnknownRuleKindError struct {
	Rule string
	Kind string
}

func (e *UnknownRuleKindError) Error() string {
	return fmt.Sprintf("rule %q: unknown kind %q", e.Rule, e.Kind)
}

// fileRule is one entry of the rule file.
type fileRule struct {
	Rule  string `toml:"rule"`
	Param string `toml:"param"`
	Score int    `toml:"score"`
}

// Match is a rule that contributed to a notification's score.
type Match struct {
	Name  string
	Score int
}

// Scorer holds a loaded rule set. It is safe for concurrent use.
type Scorer struct {
	rules []Rule
}

// New returns a Scorer over the given rules.
func New(rules ...Rule) *Scorer {
	return &Scorer{rules: rules}
}

// Load reads the rule file at path. A missing file is not an error: it
// yields a Scorer without rules and logs a warning.
func Load(path string, logger *slog.Logger) (*Scorer, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("rule file not found, scoring disabled", "path", path)
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}

	var table map[string]fileRule
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrMalformedRules, path, err)
	}

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		fr := table[name]
		kind, ok := parseRuleKind(fr.Rule)
		if !ok {
			return nil, &UnknownRuleKindError{Rule: name, Kind: fr.Rule}
		}
		rules = append(rules, Rule{
			Name:   name,
			Kind:   kind,
			Params: splitParams(fr.Param),
			Score:  fr.Score,
		})
	}

	logger.Debug("rules loaded", "path", path, "count", len(rules))
	return New(rules...), nil
}

// Rules returns the loaded rules ordered by name.
func (s *Scorer) Rules() []Rule {
	return s.rules
}

// Score sums the contributions of every rule n matches.
func (s *Scorer) Score(n model.Notification) int {
	total := 0
	for _, r := range s.rules {
		total += r.contribution(n)
	}
	return total
}

// Explain lists the rules with a non-zero contribution to n.
func (s *Scorer) Explain(n model.Notification) []Match {
	var matches []Match
	for _, r := range s.rules {
		if c := r.contribution(n); c != 0 {
			matches = append(matches, Match{Name: r.Name, Score: c})
		}
	}
	return matches
}
