package tui

import tea "github.com/charmbracelet/bubbletea"

// Page is one full-screen view hosted by App.
type Page interface {
	ID() string
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}

// PageNav asks App to switch to another page.
type PageNav struct {
	PageID string
}
