package score

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-triage/internal/model"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixture() model.Notification {
	return model.Notification{
		ID:     "1",
		Title:  "title",
		Repo:   "torvalds/linux",
		Author: "JohnDoe",
		Reason: "participating",
	}
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load("testdata/rules.toml", discard)
	require.NoError(t, err)

	rules := s.Rules()
	require.Len(t, rules, 4)

	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"friends", "me", "my_fav_repos", "participating"}, names)

	fav := rules[2]
	assert.Equal(t, RuleRepo, fav.Kind)
	assert.Equal(t, []string{"torvalds/linux", "emacs-mirror/emacs"}, fav.Params)
	assert.Equal(t, 5, fav.Score)
}

func TestLoadMissingFileYieldsEmptySet(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"), discard)
	require.NoError(t, err)
	assert.Empty(t, s.Rules())
	assert.Zero(t, s.Score(fixture()))
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeRules(t, "[broken\nrule = "), discard)
	assert.ErrorIs(t, err, ErrMalformedRules)
}

func TestLoadUnknownKind(t *testing.T) {
	path := writeRules(t, `
[weird]
rule = "label"
param = "bug"
score = 3
`)
	_, err := Load(path, discard)

	var kindErr *UnknownRuleKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, "weird", kindErr.Rule)
	assert.Equal(t, "label", kindErr.Kind)
}

func TestScoreFixture(t *testing.T) {
	s, err := Load("testdata/rules.toml", discard)
	require.NoError(t, err)

	assert.Equal(t, 105, s.Score(fixture()))
}

func TestExplain(t *testing.T) {
	s, err := Load("testdata/rules.toml", discard)
	require.NoError(t, err)

	got := s.Explain(fixture())
	assert.Equal(t, []Match{
		{Name: "me", Score: 80},
		{Name: "my_fav_repos", Score: 5},
		{Name: "participating", Score: 20},
	}, got)

	other := fixture()
	other.Author = "nobody"
	other.Repo = "x/y"
	other.Reason = "subscribed"
	assert.Empty(t, s.Explain(other))
}

func TestExplainSkipsZeroScoreRules(t *testing.T) {
	s := New(Rule{Name: "noop", Kind: RuleTitle, Params: []string{"title"}, Score: 0})
	assert.Empty(t, s.Explain(fixture()))
}

func TestRuleMatches(t *testing.T) {
	n := fixture()

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"author exact", Rule{Kind: RuleAuthor, Params: []string{"JohnDoe"}}, true},
		{"author not substring", Rule{Kind: RuleAuthor, Params: []string{"John"}}, false},
		{"repo exact", Rule{Kind: RuleRepo, Params: []string{"a/b", "torvalds/linux"}}, true},
		{"repo org only", Rule{Kind: RuleRepo, Params: []string{"torvalds"}}, false},
		{"title substring", Rule{Kind: RuleTitle, Params: []string{"zzz", "itl"}}, true},
		{"title miss", Rule{Kind: RuleTitle, Params: []string{"Title"}}, false},
		{"reason substring", Rule{Kind: RuleReason, Params: []string{"particip"}}, true},
		{"reason miss", Rule{Kind: RuleReason, Params: []string{"mention"}}, false},
		{"org", Rule{Kind: RuleOrg, Params: []string{"torvalds"}}, true},
		{"org negated self", Rule{Kind: RuleOrg, Params: []string{"!torvalds"}}, false},
		{"org negated other", Rule{Kind: RuleOrg, Params: []string{"!rms"}}, true},
		{"org any param", Rule{Kind: RuleOrg, Params: []string{"!torvalds", "torvalds"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(n))
		})
	}
}

func TestOrgNegationOnOtherOrg(t *testing.T) {
	n := fixture()
	n.Repo = "rms/emacs"

	assert.False(t, Rule{Kind: RuleOrg, Params: []string{"!rms"}}.Matches(n))
	assert.True(t, Rule{Kind: RuleOrg, Params: []string{"!torvalds"}}.Matches(n))
}

func TestSplitParams(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, splitParams(" a, b c ,d"))
}
