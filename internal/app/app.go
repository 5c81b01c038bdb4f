// Package app is the root Bubble Tea model. It owns every piece of UI state
// and is the only code that renders; background loops and action tasks talk
// to it through a bounded event bus.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"github.com/nhle/notification-triage/internal/keys"
	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/score"
	appsync "github.com/nhle/notification-triage/internal/sync"
	"github.com/nhle/notification-triage/internal/theme"
	"github.com/nhle/notification-triage/internal/ui"
	helpview "github.com/nhle/notification-triage/internal/ui/help"
	"github.com/nhle/notification-triage/internal/ui/notiflist"
)

const (
	title    = "GitHub notifications"
	pageSize = 10
	boost    = 10
)

// Service is what the UI needs from the sync layer.
type Service interface {
	appsync.Prober
	Sync(ctx context.Context) (appsync.Result, error)
	Notifications(ctx context.Context, query string) ([]model.Notification, error)
	UpdateScore(ctx context.Context, n model.Notification, delta int) error
	MarkDone(ctx context.Context, n model.Notification) error
	MarkDoneBulk(ctx context.Context, ns []model.Notification) error
	MarkRead(ctx context.Context, n model.Notification) error
	Explain(ctx context.Context, n model.Notification) ([]score.Match, error)
}

// Options tunes the model. Zero values select the defaults.
type Options struct {
	RefreshInterval time.Duration
	RedrawInterval  time.Duration
	// OpenURL opens a link in the browser. Defaults to browser.OpenURL.
	OpenURL func(url string) error
	Logger  *slog.Logger
}

type status struct {
	level statusLevel
	text  string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg

	svc     Service
	poller  *appsync.Poller
	openURL func(string) error
	logger  *slog.Logger

	keys    *keys.KeyMap
	layout  ui.Layout
	list    notiflist.Model
	help    helpview.Model
	search  textinput.Model
	spinner spinner.Model

	searching bool
	query     string
	status    status
	popup     *ui.Popup
	ready     bool

	loads *loadSeq
}

// loadSeq orders list queries. Cmds complete in any order, so a result
// older than the last one applied is dropped. Only Init and Update touch it.
type loadSeq struct {
	issued  uint64
	applied uint64
}

// New creates the root model on top of svc.
func New(svc Service, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = browser.OpenURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	km := keys.DefaultKeyMap()

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "author:x repo:x state:open title:x or free text"

	return Model{
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan tea.Msg, eventBufferSize),
		svc:     svc,
		poller:  appsync.NewPoller(svc, opts.RefreshInterval, opts.RedrawInterval, opts.Logger),
		openURL: opts.OpenURL,
		logger:  opts.Logger,
		keys:    km,
		layout:  ui.NewLayout(80, 24),
		list:    notiflist.New(80, 22),
		help:    helpview.New(km, 80),
		search:  search,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		loads:   &loadSeq{},
	}
}

// Init starts the background loops, the bus listener and the first load.
func (m Model) Init() tea.Cmd {
	m.poller.Start(m.ctx,
		func() { m.send(actionMsg{kind: actionSyncBackground}) },
		func() { m.send(redrawMsg{}) },
	)

	return tea.Batch(
		m.waitForEvent(),
		m.loadList(""),
		m.spinner.Tick,
	)
}

// send posts msg on the bus. It gives up once the model has quit.
func (m Model) send(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

// waitForEvent delivers the next bus message to Update.
func (m Model) waitForEvent() tea.Cmd {
	events, done := m.events, m.ctx.Done()
	return func() tea.Msg {
		select {
		case msg := <-events:
			return busMsg{msg: msg}
		case <-done:
			return nil
		}
	}
}

// loadList queries the store with the current search query.
func (m Model) loadList(followID string) tea.Cmd {
	m.loads.issued++
	svc, query, seq := m.svc, m.query, m.loads.issued
	return func() tea.Msg {
		ns, err := svc.Notifications(context.Background(), query)
		return listLoadedMsg{
			notifications: ns,
			query:         query,
			followID:      followID,
			seq:           seq,
			err:           err,
		}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.help.SetWidth(msg.Width)
		m.search.Width = max(msg.Width-4, 10)
		m.resizeList()
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listLoadedMsg:
		m.applyList(msg)
		return m, nil

	case busMsg:
		wait := m.waitForEvent()
		if m.popup != nil {
			return m.dismissPopup(wait)
		}
		next, cmd := m.handleEvent(msg.msg)
		return next, tea.Batch(wait, cmd)

	case tea.KeyMsg:
		if m.popup != nil {
			return m.dismissPopup(nil)
		}
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

// dismissPopup closes the popup. The message that triggered it is dropped.
func (m Model) dismissPopup(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.popup = nil
	m.status = status{}
	return m, tea.Batch(cmd, m.loadList(""))
}

func (m Model) handleEvent(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionMsg:
		return m.dispatch(msg)

	case statusMsg:
		m.status = status{level: msg.level, text: msg.text}
		return m, m.loadList("")

	case popupMsg:
		p := msg.popup
		m.popup = &p
		m.status = status{}
		return m, nil

	case redrawMsg:
		m.status = status{}
		return m, m.loadList(msg.followID)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case m.navigate(msg):
		m.status = status{}
		return m, nil

	case key.Matches(msg, m.keys.BoostUp):
		return m.dispatch(actionMsg{kind: actionBoost, delta: boost})
	case key.Matches(msg, m.keys.BoostDown):
		return m.dispatch(actionMsg{kind: actionBoost, delta: -boost})
	case key.Matches(msg, m.keys.Open):
		return m.dispatch(actionMsg{kind: actionOpen})
	case key.Matches(msg, m.keys.Done):
		return m.dispatch(actionMsg{kind: actionDone})
	case key.Matches(msg, m.keys.DoneBelow):
		return m.dispatch(actionMsg{kind: actionDoneBelow})
	case key.Matches(msg, m.keys.Sync):
		return m.dispatch(actionMsg{kind: actionSync})
	case key.Matches(msg, m.keys.Explain):
		return m.dispatch(actionMsg{kind: actionExplain})
	case key.Matches(msg, m.keys.Help):
		return m.dispatch(actionMsg{kind: actionHelp})

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.query)
		m.search.CursorEnd()
		m.resizeList()
		return m, m.search.Focus()
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m.quit()

	case key.Matches(msg, m.keys.CancelSearch):
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.query = ""
		m.resizeList()
		return m, m.loadList("")

	case key.Matches(msg, m.keys.ConfirmSearch):
		m.searching = false
		m.search.Blur()
		m.resizeList()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.query {
		m.query = v
		return m, tea.Batch(cmd, m.loadList(""))
	}
	return m, cmd
}

// navigate moves the cursor when msg is a navigation key and reports
// whether it was one.
func (m *Model) navigate(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.list.MoveUp(1)
	case key.Matches(msg, m.keys.Down):
		m.list.MoveDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.list.MoveUp(pageSize)
	case key.Matches(msg, m.keys.PageDown):
		m.list.MoveDown(pageSize)
	case key.Matches(msg, m.keys.Top):
		m.list.Select(0)
	case key.Matches(msg, m.keys.Bottom):
		m.list.Select(m.list.Len() - 1)
	default:
		return false
	}
	return true
}

// dispatch hands a to a detached task working on a snapshot of the list.
func (m Model) dispatch(a actionMsg) (tea.Model, tea.Cmd) {
	snap := snapshot{
		notifications: slices.Clone(m.list.Notifications()),
		index:         m.list.Index(),
		query:         m.query,
	}
	m.logger.Debug("dispatching action", "action", a.kind, "index", snap.index)
	go m.runAction(a, snap)
	return m, nil
}

// quit stops the background loops and exits the program.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	m.poller.Stop()
	return m, tea.Quit
}

func (m *Model) applyList(msg listLoadedMsg) {
	if msg.err != nil {
		m.logger.Error("loading notifications", "query", msg.query, "error", msg.err)
		m.status = status{level: statusError, text: "cannot load notifications"}
		return
	}
	if msg.query != m.query || msg.seq < m.loads.applied {
		// The displayed list is newer and already has the edited row in
		// its new place.
		if msg.followID != "" {
			m.list.SelectID(msg.followID)
		}
		return
	}

	m.loads.applied = msg.seq
	m.list.SetNotifications(msg.notifications)
	if msg.followID != "" {
		m.list.SelectID(msg.followID)
	}
}

func (m *Model) resizeList() {
	height := m.layout.ContentHeight()
	if m.showSearch() {
		height--
	}
	m.list.SetSize(m.layout.Width, max(height, 0))
}

func (m Model) showSearch() bool {
	return m.searching || m.query != ""
}

// View renders the whole screen, with the popup drawn over it when one is
// open.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	view := m.frame()
	if m.popup != nil {
		return m.layout.RenderPopup(view, *m.popup)
	}
	return view
}

func (m Model) frame() string {
	header := m.layout.RenderHeader(title, m.summary())

	content := m.list.View()
	if m.showSearch() {
		content = lipgloss.JoinVertical(lipgloss.Left, m.search.View(), content)
	}

	return m.layout.RenderWithFrame(header, content, m.layout.RenderStatusBar(m.statusView(), m.help.ShortView()))
}

func (m Model) summary() string {
	s := fmt.Sprintf("%d notifications", m.list.Len())
	if m.query != "" {
		s += " · " + m.query
	}
	return s
}

func (m Model) statusView() string {
	switch m.status.level {
	case statusError:
		return theme.ErrorStyle.Render(m.status.text)
	case statusLoading:
		return theme.LoadingStyle.Render(m.spinner.View() + " " + m.status.text)
	case statusInfo:
		if m.status.text != "" {
			return theme.StatusBarStyle.Render(m.status.text)
		}
	}
	return theme.StatusBarStyle.Render("? for help")
}
