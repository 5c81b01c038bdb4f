package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nhle/notification-triage/internal/theme"
)

// Popup is a titled text box drawn centered over the current screen.
type Popup struct {
	Title string
	Body  string
}

// RenderPopup draws p centered over background, a view rendered at the
// layout's size. Background cells outside the box are kept.
func (l Layout) RenderPopup(background string, p Popup) string {
	maxWidth := max(l.Width-4, 10)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		theme.PopupTitleStyle.Render(p.Title),
		lipgloss.NewStyle().MaxWidth(maxWidth-6).Render(p.Body),
	)
	box := strings.Split(theme.PopupStyle.Render(content), "\n")

	boxWidth := ansi.StringWidth(box[0])
	x := max((l.Width-boxWidth)/2, 0)
	y := max((l.Height-len(box))/2, 0)
	return spliceOverlay(background, box, x, y)
}

// spliceOverlay replaces the rectangle of view starting at column x and
// line y with lines, keeping the escape sequences on both sides.
func spliceOverlay(view string, lines []string, x, y int) string {
	viewLines := strings.Split(view, "\n")
	for len(viewLines) < y+len(lines) {
		viewLines = append(viewLines, "")
	}
	width := ansi.StringWidth(lines[0])

	for i, line := range lines {
		under := viewLines[y+i]
		underWidth := ansi.StringWidth(under)

		var b strings.Builder
		prefix := ansi.Truncate(under, x, "")
		b.WriteString(prefix)
		if pad := x - ansi.StringWidth(prefix); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString("\x1b[0m")
		b.WriteString(line)
		b.WriteString("\x1b[0m")
		if x+width < underWidth {
			b.WriteString(ansi.TruncateLeft(under, x+width, ""))
		}
		viewLines[y+i] = b.String()
	}

	return strings.Join(viewLines, "\n")
}
