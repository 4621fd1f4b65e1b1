package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/robolab-console/internal/theme"
)

// Kind names a palette command.
type Kind int

const (
	Open Kind = iota
	Refresh
	ShowUnread
	ShowAll
	MarkAllRead
	GotoPage
	Quit
)

// Command is a parsed palette entry. Page is set for GotoPage only.
type Command struct {
	Kind Kind
	Page int
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg Command

// CancelMsg is emitted when the palette is dismissed.
type CancelMsg struct{}

var aliases = map[string]Kind{
	"open":          Open,
	"bell":          Open,
	"refresh":       Refresh,
	"sync":          Refresh,
	"unread":        ShowUnread,
	"all":           ShowAll,
	"read all":      MarkAllRead,
	"mark all read": MarkAllRead,
	"quit":          Quit,
	"q":             Quit,
}

// Parse turns palette input into a Command. "page N" and a bare number
// both jump to page N.
func Parse(input string) (Command, error) {
	s := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if kind, ok := aliases[s]; ok {
		return Command{Kind: kind}, nil
	}

	s = strings.TrimPrefix(s, "page ")
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return Command{}, fmt.Errorf("page must be 1 or more")
		}
		return Command{Kind: GotoPage, Page: n}, nil
	}
	return Command{}, fmt.Errorf("unknown command %q", strings.TrimSpace(input))
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "refresh, unread, all, read all, page N, quit"
	ti.Prompt = ": "
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.input.Reset()
			m.err = nil
			return m, func() tea.Msg { return CancelMsg{} }

		case "enter":
			input := m.input.Value()
			if strings.TrimSpace(input) == "" {
				return m, nil
			}
			c, err := Parse(input)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.input.Reset()
			m.err = nil
			return m, func() tea.Msg { return CommandMsg(c) }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Command")

	parts := []string{title, m.input.View()}
	if m.err != nil {
		parts = append(parts, "", theme.BannerStyle("client").Render(m.err.Error()))
	}

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
