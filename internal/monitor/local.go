package monitor

import (
	"github.com/tinytelemetry/pulse/internal/model"
)

// Local is an in-process monitor advanced by its caller, one frame per
// Advance. The TUI drives it from its own tick.
type Local struct {
	*Session
}

var _ model.Monitor = (*Local)(nil)

// NewLocal creates an inactive local monitor.
func NewLocal(opts Options) *Local {
	return &Local{Session: NewSession(opts)}
}

// Configure applies a mode change by name.
func (l *Local) Configure(active bool, mode string) error {
	return l.ConfigureNamed(active, mode)
}

// Advance draws one frame.
func (l *Local) Advance() error {
	l.Tick()
	return nil
}
