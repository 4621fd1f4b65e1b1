package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/robolab-console/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	BannerHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// WithBanner reserves a line under the header for an error banner.
func (l Layout) WithBanner(show bool) Layout {
	l.BannerHeight = 0
	if show {
		l.BannerHeight = 1
	}
	return l
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the main content area.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.BannerHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the title bar: title and bell badge on the left,
// status on the right.
func (l Layout) RenderHeader(title, badge, status string) string {
	left := theme.HeaderStyle.Render(title)
	if badge != "" {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left, badge)
	}

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(statusRendered), 0)

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, statusRendered)
}

// RenderBanner renders a one-line message styled for its error kind.
func (l Layout) RenderBanner(kind, message string) string {
	return theme.BannerStyle(kind).
		Width(l.Width).
		MaxHeight(1).
		Render("! " + message)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return theme.StatusBarStyle.
		Width(l.Width).
		MaxHeight(1).
		Render(hints)
}

// RenderWithFrame vertically joins the non-empty sections.
func (l Layout) RenderWithFrame(sections ...string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
