package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Deck is one bordered panel of the monitor page.
type Deck interface {
	ID() string
	Title() string
	SetData(s Snapshot)
	Render(ctx ViewContext, width, height int, active bool) string
}

// deckStyle returns the bordered frame for a deck of the given inner size.
func deckStyle(width, height int, active bool) lipgloss.Style {
	if active {
		return activeSectionStyle.Width(width).Height(height)
	}
	return sectionStyle.Width(width).Height(height)
}

// deckHeader lays out a title on the left and stats on the right.
func deckHeader(title, stats string, width int) string {
	spacer := width - lipgloss.Width(title) - lipgloss.Width(stats)
	if stats == "" || spacer < 1 {
		return chartTitleStyle.Render(title)
	}
	return chartTitleStyle.Render(title + strings.Repeat(" ", spacer) + stats)
}

// deckTitleWithBadges appends the error badge to a deck title.
func deckTitleWithBadges(title string, ctx ViewContext) string {
	if ctx.LastError != "" {
		title += " ⚠"
	}
	return title
}
