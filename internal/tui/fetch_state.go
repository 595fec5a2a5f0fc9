package tui

import "time"

// FetchState tracks the snapshot fetch lifecycle of the monitor page.
type FetchState struct {
	FetchInFlight   bool
	LastError       string
	LastErrorAt     time.Time
	LastTickOK      bool
	LastTickAt      time.Time
	ConsecutiveErrs int
}

func (s *FetchState) recordError(err error, at time.Time) {
	s.LastError = err.Error()
	s.LastErrorAt = at
	s.LastTickOK = false
	s.ConsecutiveErrs++
}

func (s *FetchState) recordOK(at time.Time) {
	s.LastError = ""
	s.LastTickOK = true
	s.LastTickAt = at
	s.ConsecutiveErrs = 0
}
