package waveform

import (
	"sync"
	"time"
)

// Scheduler requests a single future frame. The returned func cancels the
// request if it has not run yet.
type Scheduler interface {
	Request(fn func()) (cancel func())
}

// TimerScheduler fires frames at a fixed rate using time.AfterFunc.
type TimerScheduler struct {
	interval time.Duration
}

// NewTimerScheduler returns a scheduler for fps frames per second. fps is
// clamped to [1, 240].
func NewTimerScheduler(fps int) *TimerScheduler {
	fps = max(1, min(fps, 240))
	return &TimerScheduler{interval: time.Second / time.Duration(fps)}
}

// Interval returns the frame interval.
func (s *TimerScheduler) Interval() time.Duration { return s.interval }

func (s *TimerScheduler) Request(fn func()) func() {
	t := time.AfterFunc(s.interval, fn)
	return func() { t.Stop() }
}

// Stepper is what a Loop drives once per frame.
type Stepper interface {
	Tick() Sample
	Configure(active bool, mode Mode)
}

// Observer receives every sample produced by a Loop.
type Observer func(Sample)

// Loop is a persistent frame loop around a Stepper. At most one frame request
// is pending at any time; Configure cancels it, resets the stepper and
// resumes with a fresh request, Stop cancels it for good.
type Loop struct {
	mu        sync.Mutex
	stepper   Stepper
	sched     Scheduler
	observers []Observer
	cancel    func()
	gen       uint64
	running   bool
}

// NewLoop creates a stopped loop.
func NewLoop(stepper Stepper, sched Scheduler) *Loop {
	return &Loop{stepper: stepper, sched: sched}
}

// Subscribe registers an observer. Observers run on the frame goroutine, one
// frame at a time.
func (l *Loop) Subscribe(fn Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// Start begins requesting frames. Calling Start on a running loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.requestLocked()
}

// Configure resets the stepper and restarts the frame chain.
func (l *Loop) Configure(active bool, mode Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelLocked()
	l.stepper.Configure(active, mode)
	if l.running {
		l.requestLocked()
	}
}

// Stop cancels the pending frame. It is safe to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
	l.cancelLocked()
}

// Running reports whether the loop is requesting frames.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) requestLocked() {
	l.gen++
	gen := l.gen
	l.cancel = l.sched.Request(func() { l.frame(gen) })
}

func (l *Loop) cancelLocked() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}

func (l *Loop) frame(gen uint64) {
	l.mu.Lock()
	if !l.running || gen != l.gen {
		l.mu.Unlock()
		return
	}
	l.cancel = nil
	sample := l.stepper.Tick()
	observers := append([]Observer(nil), l.observers...)
	l.mu.Unlock()

	for _, fn := range observers {
		fn(sample)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// A Configure or Stop during the observers already owns the chain.
	if l.running && gen == l.gen && l.cancel == nil {
		l.requestLocked()
	}
}
