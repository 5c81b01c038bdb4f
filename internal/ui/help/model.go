package help

import (
	"github.com/charmbracelet/bubbles/help"

	"github.com/nhle/notification-triage/internal/keys"
	"github.com/nhle/notification-triage/internal/ui"
)

// Model renders the key map as the body of the help popup.
type Model struct {
	keys  *keys.KeyMap
	help  help.Model
	width int
}

// New creates a new help model.
func New(keys *keys.KeyMap, width int) Model {
	h := help.New()
	h.ShowAll = true
	h.Width = width
	return Model{
		keys:  keys,
		help:  h,
		width: width,
	}
}

// Popup returns the help popup listing every binding.
func (m Model) Popup() ui.Popup {
	return ui.Popup{
		Title: "Help",
		Body:  m.help.View(m.keys),
	}
}

// ShortView renders the one-line hints shown in the status bar.
func (m Model) ShortView() string {
	short := m.help
	short.ShowAll = false
	return short.View(m.keys)
}

// SetWidth updates the wrapping width.
func (m *Model) SetWidth(width int) {
	m.width = width
	m.help.Width = max(width-10, 20)
}
