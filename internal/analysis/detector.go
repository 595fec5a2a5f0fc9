package analysis

import (
	"sync"
	"time"

	"github.com/tinytelemetry/pulse/internal/model"
)

const (
	DefaultThreshold  = 0.6
	DefaultRefractory = 12 // frames
	DefaultHistory    = 64
)

// Detector finds R peaks as upward threshold crossings of the sample
// stream. Intervals are measured in frames so that the result does not
// depend on wall-clock jitter of the frame loop.
type Detector struct {
	mu sync.Mutex

	fps        int
	threshold  float64
	refractory uint64

	lastValue   float64
	lastPeak    uint64
	havePeak    bool
	initialized bool

	history []model.Beat
	limit   int
	now     func() time.Time
}

// NewDetector returns a detector reporting BPM at the given nominal frame rate.
func NewDetector(fps int) *Detector {
	if fps <= 0 {
		fps = model.DefaultFrameRate
	}
	return &Detector{
		fps:        fps,
		threshold:  DefaultThreshold,
		refractory: DefaultRefractory,
		limit:      DefaultHistory,
		now:        time.Now,
	}
}

// Process feeds one sample. It returns a beat when a new R peak is found
// and a previous peak exists to measure the interval against.
func (d *Detector) Process(frame uint64, v float64) (model.Beat, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		d.initialized = true
		d.lastValue = v
		return model.Beat{}, false
	}

	crossed := d.lastValue < d.threshold && v >= d.threshold
	d.lastValue = v
	if !crossed {
		return model.Beat{}, false
	}
	if d.havePeak && frame-d.lastPeak <= d.refractory {
		return model.Beat{}, false
	}

	prev, had := d.lastPeak, d.havePeak
	d.lastPeak = frame
	d.havePeak = true
	if !had || frame <= prev {
		return model.Beat{}, false
	}

	rr := int(frame - prev)
	beat := model.Beat{
		Frame:    frame,
		RRFrames: rr,
		BPM:      BPM(rr, d.fps),
		At:       d.now(),
	}
	d.history = append(d.history, beat)
	if len(d.history) > d.limit {
		d.history = append(d.history[:0], d.history[len(d.history)-d.limit:]...)
	}
	return beat, true
}

// Recent returns up to n of the newest beats, oldest first. n <= 0 returns all.
func (d *Detector) Recent(n int) []model.Beat {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n <= 0 || n > len(d.history) {
		n = len(d.history)
	}
	out := make([]model.Beat, n)
	copy(out, d.history[len(d.history)-n:])
	return out
}

// Reset forgets the last peak and the beat history.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastValue = 0
	d.lastPeak = 0
	d.havePeak = false
	d.initialized = false
	d.history = d.history[:0]
}

// BPM converts an R-R interval in frames to beats per minute.
func BPM(rrFrames, fps int) int {
	if rrFrames <= 0 || fps <= 0 {
		return 0
	}
	return 60 * fps / rrFrames
}
