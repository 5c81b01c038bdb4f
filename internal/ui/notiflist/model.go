// Package notiflist is the scrollable notification list.
package notiflist

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/theme"
)

// Model is the notification list component. Navigation is driven by the
// parent through the Move methods so that key routing stays in one place.
type Model struct {
	list          list.Model
	notifications []model.Notification
	width         int
	height        int
}

// New creates an empty list of the given size.
func New(width, height int) Model {
	delegate := ItemDelegate{now: time.Now}
	l := list.New([]list.Item{}, delegate, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:   l,
		width:  width,
		height: height,
	}
}

// SetNotifications replaces the displayed notifications, keeping the cursor
// index within bounds.
func (m *Model) SetNotifications(ns []model.Notification) tea.Cmd {
	m.notifications = ns

	items := make([]list.Item, len(ns))
	for i, n := range ns {
		items[i] = Item{Notification: n}
	}
	cmd := m.list.SetItems(items)

	if len(ns) > 0 && m.list.Index() >= len(ns) {
		m.list.Select(len(ns) - 1)
	}
	return cmd
}

// Notifications returns the displayed notifications in display order.
// The returned slice must not be modified.
func (m Model) Notifications() []model.Notification {
	return m.notifications
}

// Len returns the number of displayed notifications.
func (m Model) Len() int {
	return len(m.notifications)
}

// Index returns the cursor position.
func (m Model) Index() int {
	return m.list.Index()
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	i := m.list.Index()
	if i < 0 || i >= len(m.notifications) {
		return model.Notification{}, false
	}
	return m.notifications[i], true
}

// Select moves the cursor to index, clamped to the list.
func (m *Model) Select(index int) {
	if len(m.notifications) == 0 {
		return
	}
	m.list.Select(min(max(index, 0), len(m.notifications)-1))
}

// SelectID moves the cursor to the notification with the given id and
// reports whether it is displayed.
func (m *Model) SelectID(id string) bool {
	for i, n := range m.notifications {
		if n.ID == id {
			m.list.Select(i)
			return true
		}
	}
	return false
}

// MoveUp moves the cursor n rows up.
func (m *Model) MoveUp(n int) {
	m.Select(m.list.Index() - n)
}

// MoveDown moves the cursor n rows down.
func (m *Model) MoveDown(n int) {
	m.Select(m.list.Index() + n)
}

// View renders the list, or a hint when it is empty.
func (m Model) View() string {
	if len(m.notifications) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notifications.\nPress g to sync, / to change the filter.")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
