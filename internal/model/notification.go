package model

import (
	"strings"
	"time"
)

// Kind identifies the subject type a notification refers to.
type Kind string

const (
	KindPullRequest Kind = "PullRequest"
	KindIssue       Kind = "Issue"
	KindRelease     Kind = "Release"
	KindUnknown     Kind = "Unknown"
)

// ParseKind maps the remote subject type onto a Kind. Anything that is not
// one of the enrichable kinds becomes KindUnknown.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindPullRequest, KindIssue, KindRelease:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// State is the derived lifecycle state of a notification subject.
type State string

const (
	StateOpen     State = "Open"
	StateDraft    State = "Draft"
	StateResolved State = "Resolved"
	StateCanceled State = "Canceled"
)

// ParseState matches s case-insensitively against the known states.
// "closed" is accepted as an alias of Resolved.
func ParseState(s string) (State, bool) {
	switch strings.ToLower(s) {
	case "open":
		return StateOpen, true
	case "draft":
		return StateDraft, true
	case "resolved", "closed":
		return StateResolved, true
	case "canceled":
		return StateCanceled, true
	default:
		return "", false
	}
}

// Notification is a single thread from the notification feed, enriched with
// the state of its subject and the local triage fields.
type Notification struct {
	// ID is the remote thread id and the primary key.
	ID string `db:"id"`

	Title  string `db:"title"`
	Repo   string `db:"repo"`
	URL    string `db:"url"`
	Reason string `db:"reason"`
	Kind   Kind   `db:"kind"`
	State  State  `db:"state"`
	Author string `db:"author"`

	// Unread and UpdatedAt come from the remote feed.
	Unread    bool      `db:"unread"`
	UpdatedAt time.Time `db:"updated_at"`

	// Done hides the notification from the default view. It is reset on
	// every sync that sees the thread again.
	Done bool `db:"done"`

	// Score is recomputed from the rules on every sync.
	Score int `db:"score"`

	// ScoreBoost is set by the user and survives re-syncs.
	ScoreBoost int `db:"score_boost"`
}

// Rank returns the effective sort key, score plus manual boost.
func (n Notification) Rank() int {
	return n.Score + n.ScoreBoost
}

// Org returns the organization part of Repo, i.e. everything before the
// first slash.
func (n Notification) Org() string {
	org, _, _ := strings.Cut(n.Repo, "/")
	return org
}
