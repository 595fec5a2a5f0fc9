package monitor

import (
	"sync"

	"github.com/tinytelemetry/pulse/internal/analysis"
	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

// Options configures a Session.
type Options struct {
	FrameRate int
	Width     int
	Height    int
	Tuning    *waveform.Tuning
	Rand      waveform.Rand
}

// ConfigureHook observes applied mode changes.
type ConfigureHook func(st waveform.State)

// BeatHook observes detected beats.
type BeatHook func(b model.Beat, st waveform.State)

// Session serializes access to a renderer and feeds its samples to a beat
// detector. It satisfies waveform.Stepper.
type Session struct {
	mu       sync.Mutex
	renderer *waveform.Renderer
	detector *analysis.Detector

	hookMu      sync.RWMutex
	onConfigure []ConfigureHook
	onBeat      []BeatHook
}

// NewSession creates an inactive session.
func NewSession(opts Options) *Session {
	return &Session{
		renderer: waveform.NewRenderer(waveform.Config{
			Width:  opts.Width,
			Height: opts.Height,
			Tuning: opts.Tuning,
			Rand:   opts.Rand,
		}),
		detector: analysis.NewDetector(opts.FrameRate),
	}
}

// OnConfigure registers a hook called after each effective mode change.
func (s *Session) OnConfigure(fn ConfigureHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onConfigure = append(s.onConfigure, fn)
}

// OnBeat registers a hook called for each detected beat.
func (s *Session) OnBeat(fn BeatHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onBeat = append(s.onBeat, fn)
}

// Configure applies a mode change. Repeating the current values is a no-op.
func (s *Session) Configure(active bool, mode waveform.Mode) {
	s.mu.Lock()
	before := s.renderer.State()
	s.renderer.Configure(active, mode)
	after := s.renderer.State()
	changed := before.Active != after.Active || before.Mode != after.Mode
	if changed {
		s.detector.Reset()
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	s.hookMu.RLock()
	hooks := s.onConfigure
	s.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(after)
	}
}

// Tick advances one frame.
func (s *Session) Tick() waveform.Sample {
	s.mu.Lock()
	sample := s.renderer.Tick()
	beat, ok := s.detector.Process(sample.Frame, sample.Value)
	var st waveform.State
	if ok {
		st = s.renderer.State()
	}
	s.mu.Unlock()

	if ok {
		s.hookMu.RLock()
		hooks := s.onBeat
		s.hookMu.RUnlock()
		for _, fn := range hooks {
			fn(beat, st)
		}
	}
	return sample
}

// Snapshot returns the raw render state.
func (s *Session) Snapshot() waveform.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.State()
}

// ConfigureNamed parses mode and applies it. Unknown names select inactive.
func (s *Session) ConfigureNamed(active bool, mode string) error {
	s.Configure(active, waveform.ParseMode(mode))
	return nil
}

// State returns the transport form of the render state.
func (s *Session) State() (model.MonitorState, error) {
	return ToModel(s.Snapshot()), nil
}

// Window returns the newest n samples, oldest first.
func (s *Session) Window(n int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Window(n), nil
}

// Beats returns up to n of the newest beats.
func (s *Session) Beats(n int) ([]model.Beat, error) {
	return s.detector.Recent(n), nil
}

// ToModel converts a render state to its transport form.
func ToModel(st waveform.State) model.MonitorState {
	return model.MonitorState{
		Active:          st.Active,
		Mode:            st.Mode.String(),
		EffectiveMode:   st.Effective.String(),
		Tone:            waveform.ToneFor(st.Effective).String(),
		Phase:           st.Phase,
		ArrhythmiaDelay: st.ArrhythmiaDelay,
		StutterDelay:    st.StutterDelay,
		LastX:           st.Last.X,
		LastY:           st.Last.Y,
		LastValue:       st.Last.Value,
		Frames:          st.Frames,
		Width:           st.Width,
		Height:          st.Height,
	}
}
