package help

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/robolab-console/internal/keys"
	"github.com/nhle/robolab-console/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay with the bindings and a legend of the
// push-channel indicator.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	legend := lipgloss.JoinVertical(lipgloss.Left,
		"",
		theme.HelpStyle.Render("Live updates:"),
		legendLine("connected", "new notifications arrive instantly"),
		legendLine("connecting", "opening the live channel"),
		legendLine("stale", "live channel lost; refreshed every poll"),
		legendLine("closed", "live channel gave up; press r to refresh"),
	)

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.help.View(m.keys), legend)

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

func legendLine(state, meaning string) string {
	return fmt.Sprintf("  %s  %s", theme.PushStateStyle(state).Render("●"), state+": "+meaning)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
