package notiflist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/theme"
)

// Column widths of a row, in terminal cells.
const (
	rankWidth   = 3
	timeWidth   = 15
	authorWidth = 15
	repoWidth   = 30
)

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for filtering. Filtering happens in
// the store, so it is only the title.
func (i Item) FilterValue() string { return i.Notification.Title }

// Icon returns the glyph for a notification of the given kind and state.
func Icon(kind model.Kind, state model.State) string {
	switch kind {
	case model.KindIssue:
		return "🐛"
	case model.KindRelease:
		return "🚢"
	case model.KindPullRequest:
		switch state {
		case model.StateOpen:
			return "📬"
		case model.StateResolved:
			return "📪"
		case model.StateCanceled:
			return "❌"
		case model.StateDraft:
			return "📝"
		}
	case model.KindUnknown:
		return "❔"
	}
	return "❔"
}

// ellipsis fits s into exactly width cells, cutting it with "…" when too
// long and padding it with spaces when too short.
func ellipsis(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "…")
	}
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// relativeTime returns a human-friendly age of t seen from now.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// renderRow formats a notification as
// "rank icon relative-time author repo title", fitted to width.
func renderRow(n model.Notification, width int, now time.Time) string {
	rank := theme.RankStyle(n.Rank()).Render(fmt.Sprintf("%*d", rankWidth, n.Rank()))

	prefix := fmt.Sprintf("%s %s %s %s %s ",
		rank,
		Icon(n.Kind, n.State),
		ellipsis(relativeTime(n.UpdatedAt, now), timeWidth),
		ellipsis(n.Author, authorWidth),
		ellipsis(n.Repo, repoWidth),
	)

	titleWidth := width - lipgloss.Width(prefix)
	return prefix + ellipsis(n.Title, titleWidth)
}

// ItemDelegate implements list.ItemDelegate for notification rows.
type ItemDelegate struct {
	// now is the clock rows are aged against.
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single row. Unread rows are bold.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}

	// Leave room for the left padding or selection border.
	line := renderRow(it.Notification, m.Width()-2, d.now())

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	if it.Notification.Unread {
		style = style.Bold(true)
	}

	fmt.Fprint(w, style.Render(line))
}
