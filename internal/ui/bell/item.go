package bell

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/robolab-console/internal/model"
	"github.com/nhle/robolab-console/internal/theme"
)

// now is replaced in tests.
var now = time.Now

// Item wraps a notification for bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.Title }

// Title returns the notification title.
func (i Item) Title() string { return i.Notification.Title }

// Description returns the label, age and message on one line.
func (i Item) Description() string {
	n := i.Notification
	label := n.TypeText
	if label == "" {
		label = n.Type
	}
	parts := []string{}
	for _, p := range []string{label, relativeTime(n.CreatedDate), n.Message} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

// itemDelegate draws a notification as a title line and a detail line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 2 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification

	marker := "●"
	style := theme.ItemStyle
	if n.IsRead {
		marker = " "
		style = theme.ReadItemStyle
	}
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}

	width := m.Width() - 4
	title := truncate(n.Title, width-2)
	label := ""
	if n.TypeText != "" || n.Type != "" {
		text := n.TypeText
		if text == "" {
			text = n.Type
		}
		label = theme.TypeLabelStyle(n.Type).Render(text)
	}

	line1 := style.Render(marker + " " + title)
	if label != "" {
		line1 = lipgloss.JoinHorizontal(lipgloss.Top, line1, " ", label)
	}

	detail := relativeTime(n.CreatedDate)
	if n.Message != "" {
		detail = strings.TrimSpace(detail + "  " + n.Message)
	}
	line2 := theme.HelpStyle.PaddingLeft(4).Render(truncate(detail, width-4))

	fmt.Fprint(w, line1+"\n"+line2)
}

// truncate shortens s to width runes, ending with an ellipsis.
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// relativeTime formats t as a short age such as "5m ago".
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
