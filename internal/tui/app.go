package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// windowTitle is set on the hosting terminal when the program starts.
const windowTitle = "pulse"

// App is the top-level Bubble Tea model. It owns the terminal size and
// routes messages to the active page.
type App struct {
	pages  []Page
	active int
	width  int
	height int
}

// NewApp creates an App showing the first page.
func NewApp(pages ...Page) *App {
	return &App{pages: pages}
}

func (a *App) Init() tea.Cmd {
	if len(a.pages) == 0 {
		return nil
	}
	return tea.Batch(tea.SetWindowTitle(windowTitle), a.pages[a.active].Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(a.pages) == 0 {
		return a, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Every page tracks the size so a switch renders at the right size.
		a.width, a.height = msg.Width, msg.Height
		cmds := make([]tea.Cmd, 0, len(a.pages))
		for _, p := range a.pages {
			cmd, _ := p.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
	}

	cmd, nav := a.pages[a.active].Update(msg)
	if nav == nil {
		return a, cmd
	}
	for i, p := range a.pages {
		if p.ID() == nav.PageID && i != a.active {
			a.active = i
			return a, tea.Batch(cmd, p.Init())
		}
	}
	return a, cmd
}

func (a *App) View() string {
	if len(a.pages) == 0 {
		return "No pages"
	}
	return a.pages[a.active].View(a.width, a.height)
}
