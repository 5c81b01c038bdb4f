package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/ui"
)

// eventBufferSize bounds the bus shared by the background loops and the
// action tasks.
const eventBufferSize = 32

// actionKind enumerates the actions that run off the render loop.
type actionKind int

const (
	actionBoost actionKind = iota
	actionOpen
	actionDone
	actionDoneBelow
	actionSync
	actionSyncBackground
	actionExplain
	actionHelp
)

// loadingText is shown while the action runs. Background syncs run silently.
func (k actionKind) loadingText() string {
	switch k {
	case actionBoost:
		return "updating score..."
	case actionOpen:
		return "opening..."
	case actionDone, actionDoneBelow:
		return "mark as done..."
	case actionSync:
		return "syncing..."
	case actionExplain:
		return "explaining..."
	case actionHelp, actionSyncBackground:
		return ""
	}
	return ""
}

// failureText is the fallback message when the error is not a known
// domain error.
func (k actionKind) failureText() string {
	switch k {
	case actionBoost:
		return "cannot update score"
	case actionOpen:
		return "failed to open browser"
	case actionDone, actionDoneBelow:
		return "failed to mark as done"
	case actionSync, actionSyncBackground:
		return "cannot sync"
	case actionExplain:
		return "explain failed"
	case actionHelp:
		return "cannot show help"
	}
	return "unexpected error"
}

// String names the action in logs.
func (k actionKind) String() string {
	switch k {
	case actionBoost:
		return "boost"
	case actionOpen:
		return "open"
	case actionDone:
		return "done"
	case actionDoneBelow:
		return "done_below"
	case actionSync:
		return "sync"
	case actionSyncBackground:
		return "sync_background"
	case actionExplain:
		return "explain"
	case actionHelp:
		return "help"
	}
	return "unknown"
}

// actionMsg requests an action. delta is the score change of a boost.
type actionMsg struct {
	kind  actionKind
	delta int
}

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusError
	statusLoading
)

// statusMsg replaces the status line.
type statusMsg struct {
	level statusLevel
	text  string
}

// popupMsg opens a popup over the list.
type popupMsg struct {
	popup ui.Popup
}

// redrawMsg reloads the list. When followID is set the cursor moves to that
// notification after the reload.
type redrawMsg struct {
	followID string
}

// busMsg wraps every message read from the event bus, so that the bus
// listener can be re-armed exactly once per message.
type busMsg struct {
	msg tea.Msg
}

// listLoadedMsg carries the result of a list query.
type listLoadedMsg struct {
	notifications []model.Notification
	query         string
	followID      string
	seq           uint64
	err           error
}
