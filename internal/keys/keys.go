package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the notification list.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	// Ranking
	BoostUp   key.Binding
	BoostDown key.Binding
	Explain   key.Binding

	// Triage
	Open      key.Binding
	Done      key.Binding
	DoneBelow key.Binding
	Sync      key.Binding

	// Search
	Search        key.Binding
	ConfirmSearch key.Binding
	CancelSearch  key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "first"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "last"),
		),
		BoostUp: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "boost +10"),
		),
		BoostDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "boost -10"),
		),
		Explain: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "explain score"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open in browser"),
		),
		Done: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "mark done"),
		),
		DoneBelow: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "mark done to end"),
		),
		Sync: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "sync now"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		ConfirmSearch: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "keep filter"),
		),
		CancelSearch: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Open, k.Done, k.BoostUp, k.BoostDown,
		k.Search, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the help popup.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Open, k.Done, k.DoneBelow, k.Sync},
		{k.BoostUp, k.BoostDown, k.Explain},
		{k.Search, k.ConfirmSearch, k.CancelSearch, k.Help, k.Quit},
	}
}
