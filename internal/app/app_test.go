package app

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/robolab-console/internal/api"
	"github.com/nhle/robolab-console/internal/credential"
	"github.com/nhle/robolab-console/internal/model"
	"github.com/nhle/robolab-console/internal/notify"
	appsync "github.com/nhle/robolab-console/internal/sync"
	"github.com/nhle/robolab-console/internal/ui/bell"
	"github.com/nhle/robolab-console/internal/ui/command"
)

type stubBackend struct {
	mu    sync.Mutex
	items []model.Notification
}

func (b *stubBackend) add(n model.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
}

func (b *stubBackend) List(_ context.Context, _ string, page, size int, _ string) (*model.Page[model.Notification], error) {
	b.mu.Lock()
	items := append([]model.Notification{}, b.items...)
	b.mu.Unlock()

	notify.SortNewestFirst(items)
	total := len(items)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	p := model.NewPage(items[start:end], page, size, total)
	return &p, nil
}

func (b *stubBackend) MarkRead(context.Context, string) error    { return nil }
func (b *stubBackend) MarkAllRead(context.Context, string) error { return nil }
func (b *stubBackend) Delete(context.Context, string) error      { return nil }

func at(minute int) time.Time {
	return time.Date(2026, 10, 18, 9, minute, 0, 0, time.UTC)
}

func newTestModel(t *testing.T, backend *stubBackend) (Model, *notify.Synchronizer) {
	t.Helper()
	s := notify.New(backend, notify.NewMemoryIndex())
	m := New(Options{
		Config: &model.AppConfig{
			Poll:          model.PollConfig{IntervalSec: 60},
			Notifications: model.NotificationsConfig{PageSize: 10},
		},
		Session: credential.Session{Profile: "default", AccountID: "acct-1"},
		Sync:    s,
	})
	t.Cleanup(m.Shutdown)

	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, s
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyPress(k string) tea.KeyMsg {
	if k == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestSyncResultUpdatesBadgeAndBell(t *testing.T) {
	backend := &stubBackend{items: []model.Notification{
		{ID: "n1", Title: "Firmware 2.1 available", CreatedDate: at(1)},
		{ID: "n2", Title: "Course published", CreatedDate: at(2)},
	}}
	m, s := newTestModel(t, backend)

	q := m.bell.Query()
	page, err := s.FetchPage(context.Background(), q.AccountID, q.Page, q.Size, q.Status)
	require.NoError(t, err)

	m = update(t, m, appsync.SyncResultMsg{Query: q, Page: page, Unread: 2})
	assert.Equal(t, 2, m.unread)
	assert.Contains(t, m.badge(), "2")

	m = update(t, m, keyPress("b"))
	assert.Equal(t, ViewBell, m.currentView)
	view := m.View()
	assert.Contains(t, view, "Course published")
	assert.Contains(t, view, "Firmware 2.1 available")
}

func TestErrorBannerClearsOnSuccess(t *testing.T) {
	m, _ := newTestModel(t, &stubBackend{})
	q := m.bell.Query()

	m = update(t, m, appsync.SyncResultMsg{Query: q, Error: &api.Error{Kind: api.KindRateLimited, Status: 429}})
	require.NotNil(t, m.banner)
	assert.Equal(t, "rate_limited", m.banner.kind)
	assert.Equal(t, 1, m.layout.BannerHeight)
	assert.Contains(t, m.View(), "stale data")

	m = update(t, m, appsync.SyncResultMsg{Query: q, Page: model.NewPage([]model.Notification{}, 1, 10, 0)})
	assert.Nil(t, m.banner)
	assert.Equal(t, 0, m.layout.BannerHeight)
}

func TestRejectedTokenStopsSync(t *testing.T) {
	m, _ := newTestModel(t, &stubBackend{})
	q := m.bell.Query()

	rejected := &api.Error{Kind: api.KindUnauthorized, Status: 401}
	m, cmd := updateCmd(t, m, appsync.SyncResultMsg{
		Query:     q,
		Error:     rejected,
		AuthError: &appsync.AuthErrorMsg{Message: "Your session has expired."},
	})
	assert.Nil(t, cmd)
	assert.Equal(t, "Your session has expired.", m.expired)
	require.NotNil(t, m.banner)
	assert.Equal(t, "unauthorized", m.banner.kind)
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
	assert.Nil(t, m.poller.WaitForNextResult()(), "poller is stopped")

	view := m.View()
	assert.Contains(t, view, "Your session has expired.")
	assert.Contains(t, view, "robolab login")

	// Later results cannot clear the banner.
	m = update(t, m, appsync.SyncResultMsg{Query: q, Page: model.NewPage([]model.Notification{}, 1, 10, 0)})
	require.NotNil(t, m.banner)
	assert.Equal(t, "unauthorized", m.banner.kind)
}

func TestPushedEventRefreshesOpenBell(t *testing.T) {
	backend := &stubBackend{items: []model.Notification{
		{ID: "n1", Title: "old", CreatedDate: at(1)},
	}}
	m, s := newTestModel(t, backend)
	ctx := context.Background()

	q := m.bell.Query()
	_, err := s.FetchPage(ctx, q.AccountID, q.Page, q.Size, q.Status)
	require.NoError(t, err)
	m = update(t, m, keyPress("b"))

	pushed := model.Notification{ID: "n4", AccountID: "acct-1", Title: "new robot paired", CreatedDate: at(4)}
	backend.add(pushed)
	require.NoError(t, s.OnPush(ctx, pushed))
	s.Wait()

	m = update(t, m, eventMsg{event: notify.Event{Kind: notify.EventPushed, AccountID: "acct-1", Unread: 2}})
	assert.Equal(t, 2, m.unread)
	require.NotEmpty(t, m.bell.Page().Data)
	assert.Equal(t, "n4", m.bell.Page().Data[0].ID)
}

func TestEventsForOtherAccountsAreIgnored(t *testing.T) {
	m, _ := newTestModel(t, &stubBackend{})
	m.unread = 3

	m = update(t, m, eventMsg{event: notify.Event{Kind: notify.EventPushed, AccountID: "acct-2", Unread: 9}})
	assert.Equal(t, 3, m.unread)
}

func TestViewNavigation(t *testing.T) {
	m, _ := newTestModel(t, &stubBackend{})

	m = update(t, m, keyPress("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	m = update(t, m, keyPress("esc"))
	assert.Equal(t, ViewBadge, m.currentView)

	m = update(t, m, keyPress("b"))
	assert.Equal(t, ViewBell, m.currentView)

	m, cmd := updateCmd(t, m, keyPress("esc"))
	require.NotNil(t, cmd)
	assert.Equal(t, bell.CloseMsg{}, cmd())
	m = update(t, m, bell.CloseMsg{})
	assert.Equal(t, ViewBadge, m.currentView)

	_, cmd = updateCmd(t, m, keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestBadge(t *testing.T) {
	m, _ := newTestModel(t, &stubBackend{})

	assert.Empty(t, m.badge())
	m.unread = 7
	assert.Contains(t, m.badge(), "7")
	m.unread = 150
	assert.Contains(t, m.badge(), "99+")
}

func TestCommandPalette(t *testing.T) {
	m, _ := newTestModel(t, &stubBackend{})

	m = update(t, m, keyPress(":"))
	require.Equal(t, ViewCommand, m.currentView)

	m = update(t, m, keyPress("q"))
	assert.Equal(t, ViewCommand, m.currentView, "typing q does not quit")

	m = update(t, m, command.CommandMsg{Kind: command.ShowUnread})
	assert.Equal(t, ViewBell, m.currentView)
	assert.Equal(t, model.NotificationStatusUnread, m.bell.Query().Status)
	assert.Equal(t, 1, m.bell.Query().Page)

	m = update(t, m, command.CommandMsg{Kind: command.GotoPage, Page: 3})
	assert.Equal(t, 3, m.bell.Query().Page)
	assert.Equal(t, model.NotificationStatusUnread, m.bell.Query().Status)

	m = update(t, m, keyPress(":"))
	m = update(t, m, command.CancelMsg{})
	assert.Equal(t, ViewBell, m.currentView)
}
