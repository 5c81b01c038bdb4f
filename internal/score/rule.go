package score

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nhle/notification-triage/internal/model"
)

// RuleKind selects the predicate a rule applies.
type RuleKind string

const (
	RuleAuthor RuleKind = "author"
	RuleRepo   RuleKind = "repo"
	RuleTitle  RuleKind = "title"
	RuleOrg    RuleKind = "org"
	RuleReason RuleKind = "reason"
)

// parseRuleKind maps the rule field of the rule file onto a RuleKind.
func parseRuleKind(s string) (RuleKind, bool) {
	switch RuleKind(s) {
	case RuleAuthor, RuleRepo, RuleTitle, RuleOrg, RuleReason:
		return RuleKind(s), true
	default:
		return "", false
	}
}

// Rule is a named scoring predicate. Rules are immutable once loaded.
type Rule struct {
	Name   string
	Kind   RuleKind
	Params []string
	Score  int
}

// Matches reports whether n satisfies the rule predicate.
func (r Rule) Matches(n model.Notification) bool {
	switch r.Kind {
	case RuleAuthor:
		return slices.Contains(r.Params, n.Author)
	case RuleRepo:
		return slices.Contains(r.Params, n.Repo)
	case RuleTitle:
		return anySubstring(n.Title, r.Params)
	case RuleOrg:
		return matchOrg(n.Org(), r.Params)
	case RuleReason:
		return anySubstring(n.Reason, r.Params)
	default:
		panic(fmt.Sprintf("score: unhandled rule kind %q", r.Kind))
	}
}

// contribution is the score r adds to n.
func (r Rule) contribution(n model.Notification) int {
	if r.Matches(n) {
		return r.Score
	}
	return 0
}

func anySubstring(s string, params []string) bool {
	for _, p := range params {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// matchOrg matches org against params. A param starting with "!" matches
// every org except the one it names.
func matchOrg(org string, params []string) bool {
	for _, p := range params {
		name, negated := strings.CutPrefix(p, "!")
		if (org == name) != negated {
			return true
		}
	}
	return false
}

// splitParams splits a comma separated param field into trimmed values.
func splitParams(param string) []string {
	parts := strings.Split(param, ",")
	params := make([]string, 0, len(parts))
	for _, p := range parts {
		params = append(params, strings.TrimSpace(p))
	}
	return params
}
