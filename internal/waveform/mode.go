package waveform

import "strings"

// Mode selects the signal shape.
type Mode int

const (
	ModeInactive Mode = iota
	ModeNormal
	ModeArrhythmia
	ModeNoisy
	ModeStutter
)

// Modes lists every mode in key order (1..5 in the TUI).
var Modes = []Mode{ModeInactive, ModeNormal, ModeArrhythmia, ModeNoisy, ModeStutter}

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeArrhythmia:
		return "arrhythmia"
	case ModeNoisy:
		return "noisy"
	case ModeStutter:
		return "stutter"
	default:
		return "inactive"
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= ModeInactive && m <= ModeStutter
}

// IsAnomaly reports whether m is one of the simulated anomalies.
func (m Mode) IsAnomaly() bool {
	return m == ModeArrhythmia || m == ModeNoisy || m == ModeStutter
}

// ParseMode accepts the lowercase names as well as the upper-case anomaly
// vocabulary (NONE, ARRHYTHMIA, NOISY_SPIKE, STUTTER). NONE means a plain
// beat. Anything else is inactive.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "none":
		return ModeNormal
	case "arrhythmia":
		return ModeArrhythmia
	case "noisy", "noisy_spike", "noisy-spike":
		return ModeNoisy
	case "stutter":
		return ModeStutter
	default:
		return ModeInactive
	}
}

// Tone is the presentation class of a mode.
type Tone int

const (
	ToneIdle Tone = iota
	ToneNormal
	ToneAlert
)

func (t Tone) String() string {
	switch t {
	case ToneNormal:
		return "normal"
	case ToneAlert:
		return "alert"
	default:
		return "idle"
	}
}

// ToneFor maps an effective mode to its tone.
func ToneFor(m Mode) Tone {
	switch {
	case m.IsAnomaly():
		return ToneAlert
	case m == ModeNormal:
		return ToneNormal
	default:
		return ToneIdle
	}
}
