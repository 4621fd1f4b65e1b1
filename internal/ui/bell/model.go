// Package bell is the notification popover: one page of notifications with
// paging, an unread filter and per-item actions.
package bell

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/robolab-console/internal/keys"
	"github.com/nhle/robolab-console/internal/model"
	"github.com/nhle/robolab-console/internal/notify"
	"github.com/nhle/robolab-console/internal/theme"
)

// PageRequestMsg asks for a different page or filter.
type PageRequestMsg struct {
	Query notify.QueryKey
}

// MarkReadRequestMsg asks to mark one notification read.
type MarkReadRequestMsg struct {
	ID string
}

// MarkAllReadRequestMsg asks to mark every notification read.
type MarkAllReadRequestMsg struct{}

// DeleteRequestMsg asks to delete one notification.
type DeleteRequestMsg struct {
	ID string
}

// RefreshRequestMsg asks for an immediate refetch.
type RefreshRequestMsg struct{}

// CloseMsg is sent when the popover is dismissed.
type CloseMsg struct{}

// Model is the popover view.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	page   model.Page[model.Notification]
	query  notify.QueryKey
	loaded bool
	width  int
	height int
}

// New creates a popover showing query.
func New(k *keys.KeyMap, query notify.QueryKey, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{}, width, max(height-4, 1))
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		query:  query,
		width:  width,
		height: height,
	}
}

// Query returns the page query the popover shows.
func (m Model) Query() notify.QueryKey { return m.query }

// SetQuery switches the popover to q. The list stays in the loading state
// until a page for q arrives.
func (m *Model) SetQuery(q notify.QueryKey) {
	if q == m.query {
		return
	}
	m.query = q
	m.loaded = false
	m.list.ResetSelected()
}

// Page returns the page being shown.
func (m Model) Page() model.Page[model.Notification] { return m.page }

// SetPage replaces the shown page. Pages for other queries are ignored.
func (m *Model) SetPage(q notify.QueryKey, page model.Page[model.Notification]) tea.Cmd {
	if q != m.query {
		return nil
	}
	m.page = page
	m.loaded = true

	items := make([]list.Item, len(page.Data))
	for i, n := range page.Data {
		items[i] = Item{Notification: n}
	}
	return m.list.SetItems(items)
}

// Selected returns the focused notification.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// SetSize updates the popover dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(max(width-4, 1), max(height-4, 1))
}

// Update handles key presses while the popover is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back), key.Matches(keyMsg, m.keys.Toggle):
		return m, emit(CloseMsg{})

	case key.Matches(keyMsg, m.keys.NextPage):
		if !m.page.HasNext {
			return m, nil
		}
		return m.request(m.query.WithPage(m.query.Page + 1))

	case key.Matches(keyMsg, m.keys.PrevPage):
		if m.query.Page <= 1 {
			return m, nil
		}
		return m.request(m.query.WithPage(m.query.Page - 1))

	case key.Matches(keyMsg, m.keys.Filter):
		q := m.query
		q.Page = 1
		q.Status = model.NotificationStatusUnread
		if m.query.Status == model.NotificationStatusUnread {
			q.Status = model.NotificationStatusAll
		}
		return m.request(q)

	case key.Matches(keyMsg, m.keys.MarkRead):
		if n, ok := m.Selected(); ok && !n.IsRead {
			return m, emit(MarkReadRequestMsg{ID: n.ID})
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.MarkAllRead):
		return m, emit(MarkAllReadRequestMsg{})

	case key.Matches(keyMsg, m.keys.Delete):
		if n, ok := m.Selected(); ok {
			return m, emit(DeleteRequestMsg{ID: n.ID})
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Refresh):
		return m, emit(RefreshRequestMsg{})
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// request switches to q and asks for its page.
func (m Model) request(q notify.QueryKey) (Model, tea.Cmd) {
	m.SetQuery(q)
	return m, emit(PageRequestMsg{Query: m.query})
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the popover.
func (m Model) View() string {
	var body string
	switch {
	case !m.loaded:
		body = theme.HelpStyle.Render("Loading notifications...")
	case len(m.page.Data) == 0 && m.query.Status == model.NotificationStatusUnread:
		body = theme.HelpStyle.Render("No unread notifications.")
	case len(m.page.Data) == 0:
		body = theme.HelpStyle.Render("No notifications.")
	default:
		body = m.list.View()
	}

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, body, "", m.footer()))
}

func (m Model) footer() string {
	filter := "all"
	if m.query.Status == model.NotificationStatusUnread {
		filter = "unread"
	}

	pages := max(m.page.TotalPages, 1)
	return theme.HelpStyle.Render(fmt.Sprintf(
		"page %d/%d · %d total · showing %s",
		m.query.Page, pages, m.page.TotalCount, filter,
	))
}
