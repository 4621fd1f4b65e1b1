// Package app is the root Bubble Tea model: the header badge, the bell
// popover and the help overlay, wired to the notification synchronizer,
// the push channel and the background poller.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/robolab-console/internal/api"
	"github.com/nhle/robolab-console/internal/credential"
	"github.com/nhle/robolab-console/internal/keys"
	"github.com/nhle/robolab-console/internal/model"
	"github.com/nhle/robolab-console/internal/notify"
	"github.com/nhle/robolab-console/internal/push"
	appsync "github.com/nhle/robolab-console/internal/sync"
	"github.com/nhle/robolab-console/internal/theme"
	"github.com/nhle/robolab-console/internal/ui"
	"github.com/nhle/robolab-console/internal/ui/bell"
	"github.com/nhle/robolab-console/internal/ui/command"
	helpview "github.com/nhle/robolab-console/internal/ui/help"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBadge ViewState = iota
	ViewBell
	ViewHelp
	ViewCommand
)

// mutationTimeout bounds a single mark-read, mark-all or delete call.
const mutationTimeout = 15 * time.Second

// eventMsg wraps a synchronizer event.
type eventMsg struct {
	event notify.Event
}

// pushStateMsg reports a push-channel state change.
type pushStateMsg struct {
	state push.State
}

// pushStoppedMsg is sent when the push client's Run returns.
type pushStoppedMsg struct {
	err error
}

// mutationDoneMsg is sent when an optimistic mutation reaches the server.
type mutationDoneMsg struct {
	op  string
	err error
}

// banner is the one-line error shown under the header.
type banner struct {
	kind    string
	message string
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	bell         bell.Model
	helpView     helpview.Model
	commandView  command.Model

	session credential.Session
	sync    *notify.Synchronizer
	poller  *appsync.Poller
	push    *push.Client
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	events     chan notify.Event
	pushStates chan push.State

	ready     bool
	unread    int
	pushState push.State
	banner    *banner

	// expired holds the sign-in message once the server rejected the token.
	expired string
}

// Options carries the collaborators of the root model.
type Options struct {
	Config  *model.AppConfig
	Session credential.Session
	Sync    *notify.Synchronizer
	Logger  *slog.Logger
}

// New creates the root model for the session's account. The push client and
// poller are created here but nothing runs until Init.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	k := keys.DefaultKeyMap()
	ctx, cancel := context.WithCancel(context.Background())

	query := notify.QueryKey{
		AccountID: opts.Session.AccountID,
		Page:      1,
		Size:      opts.Config.Notifications.PageSize,
	}

	m := Model{
		currentView: ViewBadge,
		keys:        k,
		bell:        bell.New(k, query, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		session:     opts.Session,
		sync:        opts.Sync,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		events:      make(chan notify.Event, 64),
		pushStates:  make(chan push.State, 8),
		pushState:   push.StateClosed,
	}

	interval := time.Duration(opts.Config.Poll.IntervalSec) * time.Second
	m.poller = appsync.New(opts.Sync, query, interval, logger.With("component", "poller"))

	if opts.Config.Push.URL != "" {
		synchronizer := opts.Sync
		m.push = push.New(
			push.ConfigFrom(opts.Config.Push, opts.Session.AccountID, opts.Session.Token),
			func(n model.Notification) {
				if err := synchronizer.OnPush(ctx, n); err != nil {
					logger.Warn("applying push failed", "notification_id", n.ID, "error", err)
				}
			},
			push.WithLogger(logger.With("component", "push")),
			push.WithStateObserver(forward(m.pushStates)),
		)
	}

	opts.Sync.Subscribe(forward(m.events))
	return m
}

// forward returns a callback that hands values to ch without blocking the
// sender. A full channel drops the value; the next one carries fresh state.
func forward[T any](ch chan T) func(T) {
	return func(v T) {
		select {
		case ch <- v:
		default:
		}
	}
}

// Init starts the poller and the push channel and begins listening for
// their messages.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.poller.Start(),
		m.waitForEvent(),
	}
	if m.push != nil {
		cmds = append(cmds, m.runPush(), m.waitForPushState())
	}
	return tea.Batch(cmds...)
}

// Shutdown stops background work. It is safe to call more than once.
func (m Model) Shutdown() {
	m.poller.Stop()
	m.cancel()
	m.sync.Wait()
}

func (m Model) waitForEvent() tea.Cmd {
	ch, done := m.events, m.ctx.Done()
	return func() tea.Msg {
		select {
		case ev := <-ch:
			return eventMsg{event: ev}
		case <-done:
			return nil
		}
	}
}

func (m Model) waitForPushState() tea.Cmd {
	ch, done := m.pushStates, m.ctx.Done()
	return func() tea.Msg {
		select {
		case s := <-ch:
			return pushStateMsg{state: s}
		case <-done:
			return nil
		}
	}
}

func (m Model) runPush() tea.Cmd {
	client, ctx := m.push, m.ctx
	return func() tea.Msg {
		return pushStoppedMsg{err: client.Run(ctx)}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height).WithBanner(m.banner != nil)
		m.ready = true
		m.resize()
		return m, nil

	case appsync.SyncResultMsg:
		if msg.AuthError != nil {
			m.expire(msg.AuthError.Message)
			return m, nil
		}
		cmd := m.applySyncResult(msg)
		return m, tea.Batch(cmd, m.poller.WaitForNextResult())

	case eventMsg:
		cmd := m.applyEvent(msg.event)
		return m, tea.Batch(cmd, m.waitForEvent())

	case pushStateMsg:
		m.pushState = msg.state
		return m, m.waitForPushState()

	case pushStoppedMsg:
		m.pushState = push.StateClosed
		if msg.err != nil {
			m.logger.Warn("push channel stopped", "error", msg.err)
		}
		return m, nil

	case mutationDoneMsg:
		if msg.err != nil {
			m.logger.Warn("notification update failed", "op", msg.op, "error", msg.err)
		}
		return m, nil

	case bell.PageRequestMsg:
		cmd := m.showCached(msg.Query)
		return m, tea.Batch(cmd, m.poller.SetQuery(msg.Query))

	case bell.MarkReadRequestMsg:
		return m, m.mutate("mark_read", func(ctx context.Context) error {
			return m.sync.MarkRead(ctx, msg.ID)
		})

	case bell.MarkAllReadRequestMsg:
		return m, m.markAllRead()

	case bell.DeleteRequestMsg:
		return m, m.mutate("delete", func(ctx context.Context) error {
			return m.sync.Delete(ctx, msg.ID)
		})

	case bell.RefreshRequestMsg:
		return m, m.poller.Refresh()

	case bell.CloseMsg:
		m.currentView = ViewBadge
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.execute(command.Command(msg))

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Shutdown()
			return m, tea.Quit
		}
		if m.currentView == ViewCommand {
			return m.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit) && m.currentView != ViewHelp:
			m.Shutdown()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Command) && m.currentView != ViewHelp:
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()
		}

		switch m.currentView {
		case ViewHelp:
			if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Quit) {
				m.currentView = m.previousView
			}
			return m, nil

		case ViewBadge:
			switch {
			case key.Matches(msg, m.keys.Toggle), msg.String() == "enter":
				return m, m.openBell()
			case key.Matches(msg, m.keys.Refresh):
				return m, m.poller.Refresh()
			}
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBell:
		m.bell, cmd = m.bell.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// execute runs a command palette entry.
func (m *Model) execute(c command.Command) tea.Cmd {
	switch c.Kind {
	case command.Open:
		return m.openBell()

	case command.Refresh:
		return m.poller.Refresh()

	case command.ShowUnread, command.ShowAll, command.GotoPage:
		q := m.bell.Query()
		switch c.Kind {
		case command.ShowUnread:
			q.Status, q.Page = model.NotificationStatusUnread, 1
		case command.ShowAll:
			q.Status, q.Page = model.NotificationStatusAll, 1
		default:
			q.Page = c.Page
		}
		m.currentView = ViewBell
		m.bell.SetQuery(q)
		return tea.Batch(m.showCached(q), m.poller.SetQuery(q))

	case command.MarkAllRead:
		return m.markAllRead()

	case command.Quit:
		m.Shutdown()
		return tea.Quit
	}
	return nil
}

// openBell shows the popover with whatever is cached and refetches.
func (m *Model) openBell() tea.Cmd {
	m.currentView = ViewBell
	cmd := m.showCached(m.bell.Query())
	return tea.Batch(cmd, m.poller.Refresh())
}

// showCached puts the cached page for q, if any, into the popover.
func (m *Model) showCached(q notify.QueryKey) tea.Cmd {
	page, ok := m.sync.Page(q)
	if !ok {
		return nil
	}
	return m.bell.SetPage(q, page)
}

func (m *Model) applySyncResult(msg appsync.SyncResultMsg) tea.Cmd {
	if msg.Error != nil {
		m.setBanner(msg.Error)
		if errors.Is(msg.Error, notify.ErrNoAccount) {
			m.logger.Error("no account selected", "profile", m.session.Profile)
		}
		return nil
	}

	m.setBanner(nil)
	m.unread = msg.Unread
	return m.bell.SetPage(msg.Query, msg.Page)
}

func (m *Model) applyEvent(ev notify.Event) tea.Cmd {
	if ev.AccountID != "" && ev.AccountID != m.session.AccountID {
		return nil
	}

	if ev.Kind == notify.EventError {
		m.setBanner(ev.Err)
	} else {
		m.unread = ev.Unread
	}
	return m.showCached(m.bell.Query())
}

// expire stops polling and the push channel after the server rejected the
// stored token. The banner stays until the user quits and signs in again.
func (m *Model) expire(message string) {
	if m.expired != "" {
		return
	}
	m.logger.Warn("session rejected, stopping sync", "profile", m.session.Profile, "account_id", m.session.AccountID)
	m.poller.Stop()
	m.cancel()

	m.banner = &banner{kind: api.KindUnauthorized.String(), message: message}
	m.expired = message
	m.relayout()
}

// setBanner shows the user-facing message for err, or clears the banner
// when err is nil. An expired session keeps its banner.
func (m *Model) setBanner(err error) {
	if m.expired != "" {
		return
	}
	if err == nil {
		m.banner = nil
	} else {
		kind := api.KindNetwork.String()
		if k, ok := api.KindOf(err); ok {
			kind = k.String()
		}
		m.banner = &banner{kind: kind, message: api.UserMessage(err)}
	}
	m.relayout()
}

func (m *Model) relayout() {
	if m.ready {
		m.layout = m.layout.WithBanner(m.banner != nil)
		m.resize()
	}
}

func (m *Model) resize() {
	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.bell.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
}

func (m Model) markAllRead() tea.Cmd {
	s, accountID := m.sync, m.session.AccountID
	return m.mutate("mark_all_read", func(ctx context.Context) error {
		return s.MarkAllRead(ctx, accountID)
	})
}

// mutate runs fn off the UI goroutine. The synchronizer has already applied
// the change locally when fn returns.
func (m Model) mutate(op string, fn func(ctx context.Context) error) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, mutationTimeout)
		defer cancel()
		return mutationDoneMsg{op: op, err: fn(ctx)}
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Robolab", m.badge(), m.pushIndicator())

	var bannerLine string
	if m.banner != nil {
		bannerLine = m.layout.RenderBanner(m.banner.kind, m.banner.message)
	}

	return m.layout.RenderWithFrame(header, bannerLine, m.renderContent(), m.layout.RenderStatusBar(m.keyHints()))
}

// badge renders the unread counter; zero renders nothing.
func (m Model) badge() string {
	switch {
	case m.unread <= 0:
		return ""
	case m.unread > 99:
		return theme.BadgeStyle.Render("99+")
	default:
		return theme.BadgeStyle.Render(fmt.Sprintf("%d", m.unread))
	}
}

func (m Model) pushIndicator() string {
	if m.push == nil {
		return theme.PushStateStyle("closed").Render("● polling only")
	}
	state := m.pushState.String()
	return theme.PushStateStyle(state).Render("● " + state)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBell:
		return m.bell.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return m.renderIdle()
	}
}

func (m Model) renderIdle() string {
	line := "No unread notifications."
	switch {
	case m.unread == 1:
		line = "1 unread notification."
	case m.unread > 1:
		line = fmt.Sprintf("%d unread notifications.", m.unread)
	}

	status := m.poller.Status()
	if !status.LastSync.IsZero() {
		line += " Last checked " + status.LastSync.Format("15:04:05") + "."
	}

	return theme.PanelStyle.
		Width(max(m.layout.ContentWidth()-4, 0)).
		Render(line + "\n\n" + theme.HelpStyle.Render("Press b to open the bell."))
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.expired != "" && m.currentView == ViewBadge {
		return "session expired: run robolab login | q quit"
	}
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter run | esc cancel"
	case ViewBell:
		return "esc close | ←/→ page | tab unread/all | enter read | M read all | d delete | r refresh"
	default:
		return "q quit | ? help | b bell | r refresh | : command"
	}
}
