package waveform

import (
	"errors"
	"fmt"
)

// CycleLength is the phase span of one heartbeat.
const CycleLength = 100

// ErrInvalidTable is returned by Table.Validate.
var ErrInvalidTable = errors.New("waveform: invalid table")

// ControlPoint is one (phase, amplitude) pair of the reference waveform.
type ControlPoint struct {
	Phase     float64
	Amplitude float64
}

// Table is a piecewise-linear waveform over one cycle.
type Table []ControlPoint

// DefaultTable is a PQRST-shaped beat with the R peak at phase 38.
var DefaultTable = Table{
	{0, 0},
	{8, 0},
	{12, 0.12},
	{16, 0.15},
	{20, 0},
	{34, 0},
	{36, -0.12},
	{38, 1.0},
	{40, -0.35},
	{43, 0},
	{55, 0},
	{62, 0.2},
	{68, 0.28},
	{74, 0.18},
	{80, 0},
	{100, 0},
}

// Validate checks that phases are non-decreasing and span [0, CycleLength].
func (t Table) Validate() error {
	if len(t) < 2 {
		return fmt.Errorf("%w: need at least 2 control points, got %d", ErrInvalidTable, len(t))
	}
	if t[0].Phase != 0 {
		return fmt.Errorf("%w: first phase is %v, want 0", ErrInvalidTable, t[0].Phase)
	}
	if last := t[len(t)-1].Phase; last != CycleLength {
		return fmt.Errorf("%w: last phase is %v, want %d", ErrInvalidTable, last, CycleLength)
	}
	for i := 1; i < len(t); i++ {
		if t[i].Phase < t[i-1].Phase {
			return fmt.Errorf("%w: phase %v at index %d precedes %v", ErrInvalidTable, t[i].Phase, i, t[i-1].Phase)
		}
	}
	return nil
}

// Interpolate returns the amplitude at phase p. Phases outside every
// bracket yield 0.
func (t Table) Interpolate(p float64) float64 {
	for i := 0; i+1 < len(t); i++ {
		a, b := t[i], t[i+1]
		if p < a.Phase || p > b.Phase {
			continue
		}
		// Control points are returned exactly.
		if p == a.Phase {
			return a.Amplitude
		}
		if p == b.Phase {
			return b.Amplitude
		}
		return a.Amplitude + (p-a.Phase)/(b.Phase-a.Phase)*(b.Amplitude-a.Amplitude)
	}
	return 0
}

// Peak returns the largest amplitude in the table.
func (t Table) Peak() ControlPoint {
	var peak ControlPoint
	for i, cp := range t {
		if i == 0 || cp.Amplitude > peak.Amplitude {
			peak = cp
		}
	}
	return peak
}
