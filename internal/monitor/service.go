package monitor

import (
	"log"

	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

// Service runs a session on its own frame loop. It is the model.Monitor
// served over HTTP and the socket.
type Service struct {
	*Session
	loop *waveform.Loop
}

var _ model.Monitor = (*Service)(nil)

// NewService wires a session to a frame loop driven by sched. A nil
// scheduler uses a timer at opts.FrameRate.
func NewService(opts Options, sched waveform.Scheduler) *Service {
	if sched == nil {
		sched = waveform.NewTimerScheduler(opts.FrameRate)
	}
	s := NewSession(opts)
	return &Service{Session: s, loop: waveform.NewLoop(s, sched)}
}

// Subscribe registers an observer for every drawn sample.
func (s *Service) Subscribe(fn waveform.Observer) {
	s.loop.Subscribe(fn)
}

// Start begins producing frames.
func (s *Service) Start() {
	s.loop.Start()
	log.Printf("loop: started")
}

// Stop cancels the pending frame. Safe to call more than once.
func (s *Service) Stop() {
	if s.loop.Running() {
		log.Printf("loop: stopped")
	}
	s.loop.Stop()
}

// Running reports whether frames are being produced.
func (s *Service) Running() bool { return s.loop.Running() }

// Configure cancels the pending frame, applies the mode and, when running,
// requests the next frame.
func (s *Service) Configure(active bool, mode string) error {
	m := waveform.ParseMode(mode)
	s.loop.Configure(active, m)
	log.Printf("loop: configure active=%t mode=%s", active, m)
	return nil
}
