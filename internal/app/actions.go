package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/score"
	"github.com/nhle/notification-triage/internal/source"
	"github.com/nhle/notification-triage/internal/ui"
)

var errNoURL = errors.New("notification has no url")

// snapshot is the view of the list an action task works on. It is taken
// when the action is dispatched and never shared with the render loop.
type snapshot struct {
	notifications []model.Notification
	index         int
	query         string
}

func (s snapshot) selected() (model.Notification, bool) {
	if s.index < 0 || s.index >= len(s.notifications) {
		return model.Notification{}, false
	}
	return s.notifications[s.index], true
}

// failure attaches a user-facing message to an error.
type failure struct {
	text string
	err  error
}

func (f *failure) Error() string { return f.text + ": " + f.err.Error() }
func (f *failure) Unwrap() error { return f.err }

// runAction performs a in its own goroutine. It always ends by sending one
// terminal message: a redraw, an info status, a popup or an error.
func (m Model) runAction(a actionMsg, snap snapshot) {
	// In-flight actions outlive quit; only their outcome is dropped.
	ctx := context.WithoutCancel(m.ctx)

	if text := a.kind.loadingText(); text != "" {
		m.send(statusMsg{level: statusLoading, text: text})
	}

	msg, err := m.perform(ctx, a, snap)
	if err != nil {
		m.logger.Error("action failed", "action", a.kind, "error", err)
		msg = statusMsg{level: statusError, text: describeError(a.kind, err)}
	}
	m.send(msg)
}

func (m Model) perform(ctx context.Context, a actionMsg, snap snapshot) (tea.Msg, error) {
	switch a.kind {
	case actionBoost:
		n, ok := snap.selected()
		if !ok {
			return redrawMsg{}, nil
		}
		if err := m.svc.UpdateScore(ctx, n, a.delta); err != nil {
			return nil, err
		}
		return redrawMsg{followID: n.ID}, nil

	case actionOpen:
		n, ok := snap.selected()
		if !ok {
			return redrawMsg{}, nil
		}
		if n.URL == "" {
			return nil, errNoURL
		}
		if err := m.openURL(n.URL); err != nil {
			return nil, err
		}
		if err := m.svc.MarkRead(ctx, n); err != nil {
			return nil, &failure{text: "failed to mark as read", err: err}
		}
		return redrawMsg{followID: n.ID}, nil

	case actionDone:
		n, ok := snap.selected()
		if !ok {
			return redrawMsg{}, nil
		}
		if err := m.svc.MarkDone(ctx, n); err != nil {
			return nil, err
		}
		return statusMsg{level: statusInfo, text: "mark as done complete"}, nil

	case actionDoneBelow:
		if _, ok := snap.selected(); !ok {
			return redrawMsg{}, nil
		}
		if err := m.svc.MarkDoneBulk(ctx, snap.notifications[snap.index:]); err != nil {
			return nil, err
		}
		return statusMsg{level: statusInfo, text: "mark as done complete"}, nil

	case actionSync, actionSyncBackground:
		res, err := m.svc.Sync(ctx)
		if err != nil {
			return nil, err
		}
		m.logger.Info("sync finished", "background", a.kind == actionSyncBackground,
			"fetched", res.Fetched, "stored", res.Stored, "skipped", res.Skipped)
		if a.kind == actionSyncBackground {
			return redrawMsg{}, nil
		}
		return statusMsg{level: statusInfo, text: "sync done"}, nil

	case actionExplain:
		n, ok := snap.selected()
		if !ok {
			return redrawMsg{}, nil
		}
		matches, err := m.svc.Explain(ctx, n)
		if err != nil {
			return nil, err
		}
		return popupMsg{popup: explainPopup(n, matches)}, nil

	case actionHelp:
		return popupMsg{popup: m.help.Popup()}, nil
	}

	return nil, fmt.Errorf("unknown action %d", a.kind)
}

// explainPopup lists the rules contributing to the score of n.
func explainPopup(n model.Notification, matches []score.Match) ui.Popup {
	if len(matches) == 0 {
		return ui.Popup{Title: "Explain", Body: "This notification doesn't match any rule"}
	}

	var b strings.Builder
	for i, match := range matches {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "rule:%s score:%d", match.Name, match.Score)
	}
	if n.ScoreBoost != 0 {
		fmt.Fprintf(&b, "\n\nmanual boost:%d", n.ScoreBoost)
	}
	return ui.Popup{Title: "Explain", Body: b.String()}
}

// describeError maps err to the short message shown in the status line.
func describeError(kind actionKind, err error) string {
	var (
		kindErr *score.UnknownRuleKindError
		fail    *failure
	)
	switch {
	case errors.Is(err, source.ErrMissingToken):
		return source.ErrMissingToken.Error()
	case source.IsAuthError(err):
		return "authentication failed"
	case errors.Is(err, score.ErrMalformedRules):
		return "invalid toml"
	case errors.As(err, &kindErr):
		return fmt.Sprintf("invalid rule %s: unknown kind %s", kindErr.Rule, kindErr.Kind)
	case errors.As(err, &fail):
		return fail.text
	}
	return kind.failureText()
}
