package model

import "time"

// MonitorState is the transport-friendly render state of one monitor.
// It is the canonical shape for the HTTP API, socket RPC and the TUI.
type MonitorState struct {
	Active          bool
	Mode            string // requested mode
	EffectiveMode   string // inactive when Active is false
	Tone            string // idle/normal/alert
	Phase           int
	ArrhythmiaDelay int
	StutterDelay    int
	LastX           int
	LastY           int
	LastValue       float64
	Frames          uint64
	Width           int
	Height          int
}

// Beat is one detected R peak.
type Beat struct {
	Frame    uint64
	RRFrames int // frames since the previous beat
	BPM      int // at the nominal frame rate
	At       time.Time
}

// Event kinds recorded by the service.
const (
	EventConfigure = "configure"
	EventBeat      = "beat"
)

// Event is one recorded monitor event.
type Event struct {
	ID        int64
	Timestamp time.Time
	Kind      string // EventConfigure or EventBeat
	Mode      string
	Active    bool
	Frame     uint64
	BPM       int // beats only
	RRFrames  int // beats only
}

// EventCount is the number of events of one kind.
type EventCount struct {
	Kind  string
	Count int64
}

// BeatStats summarizes recorded beats.
type BeatStats struct {
	Count  int64
	MinBPM int
	MaxBPM int
	AvgBPM float64
}
