package tui

import "github.com/tinytelemetry/pulse/internal/model"

// Monitor is what the TUI drives: the shared monitor contract plus a
// per-frame Advance. Remote monitors run their own loop and treat Advance
// as a no-op.
type Monitor interface {
	model.Monitor
	Advance() error
}

// Snapshot is one consistent read of the monitor, fetched off the UI loop.
type Snapshot struct {
	State  model.MonitorState
	Window []float64
	Beats  []model.Beat
}

// ViewContext provides read-only context to decks for rendering.
type ViewContext struct {
	ContentWidth  int
	ContentHeight int
	Loading       bool   // true while a snapshot fetch is in flight
	LastError     string // last fetch or control error
}
