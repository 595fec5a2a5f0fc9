package waveform

import (
	"math"
	"time"
)

const (
	// DefaultWidth and DefaultHeight are the logical surface size.
	DefaultWidth  = 600
	DefaultHeight = 150

	// amplitudeScale maps a value of 1.0 to this fraction of the height.
	amplitudeScale = 0.4
)

// Point is a plotted position on the surface.
type Point struct {
	X     int
	Y     int
	Value float64
}

// Sample is the outcome of one frame.
type Sample struct {
	Frame uint64
	Value float64
	Phase int
	Mode  Mode
	// From is the previous point after the one-column scroll; To is the new
	// point in the rightmost column.
	From Point
	To   Point
}

// State is a snapshot of the render state.
type State struct {
	Active          bool
	Mode            Mode
	Effective       Mode
	Phase           int
	ArrhythmiaDelay int
	StutterDelay    int
	Last            Point
	Frames          uint64
	Width           int
	Height          int
}

// Config configures a Renderer. Zero fields take defaults.
type Config struct {
	Width  int
	Height int
	Table  Table
	Tuning *Tuning
	Rand   Rand
}

// Renderer produces one amplitude per frame and keeps the scrolling trace.
// It is not safe for concurrent use.
type Renderer struct {
	table  Table
	tuning Tuning
	rng    Rand
	width  int
	height int
	trace  *Trace

	active          bool
	mode            Mode
	phase           int
	arrhythmiaDelay int
	stutterDelay    int
	last            Point
	frames          uint64
}

// NewRenderer creates an inactive renderer.
func NewRenderer(cfg Config) *Renderer {
	width := cfg.Width
	if width < 2 {
		width = DefaultWidth
	}
	height := cfg.Height
	if height < 2 {
		height = DefaultHeight
	}
	table := cfg.Table
	if table.Validate() != nil {
		table = DefaultTable
	}
	tuning := DefaultTuning()
	if cfg.Tuning != nil {
		tuning = cfg.Tuning.normalized()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = NewRand(uint64(time.Now().UnixNano()))
	}

	r := &Renderer{
		table:  table,
		tuning: tuning,
		rng:    rng,
		width:  width,
		height: height,
		trace:  NewTrace(width),
	}
	r.reset()
	return r
}

// Configure sets the requested mode. A change of either value resets the
// render state; drawn samples are kept.
func (r *Renderer) Configure(active bool, mode Mode) {
	if !mode.Valid() {
		mode = ModeInactive
	}
	if active == r.active && mode == r.mode {
		return
	}
	r.active = active
	r.mode = mode
	r.reset()
}

func (r *Renderer) reset() {
	r.phase = 0
	r.arrhythmiaDelay = 0
	r.stutterDelay = 0
	r.last = Point{X: r.width - 1, Y: r.height / 2}
}

// Effective returns the mode the next tick will run.
func (r *Renderer) Effective() Mode {
	if !r.active {
		return ModeInactive
	}
	return r.mode
}

// Tone returns the presentation tone of the effective mode.
func (r *Renderer) Tone() Tone {
	return ToneFor(r.Effective())
}

// Tick advances one frame.
func (r *Renderer) Tick() Sample {
	mode := r.Effective()
	value := r.next(mode)

	from := r.last
	from.X--
	to := Point{X: r.width - 1, Y: r.pixelY(value), Value: value}

	r.trace.Push(value)
	r.last = to
	r.frames++

	return Sample{
		Frame: r.frames,
		Value: value,
		Phase: r.phase,
		Mode:  mode,
		From:  from,
		To:    to,
	}
}

func (r *Renderer) next(mode Mode) float64 {
	switch mode {
	case ModeNormal:
		return r.advance()

	case ModeArrhythmia:
		if r.arrhythmiaDelay > 0 {
			r.arrhythmiaDelay--
			return 0
		}
		v := r.advance()
		if r.phase == 0 && r.tuning.ArrhythmiaDelayMax > 0 {
			r.arrhythmiaDelay = r.rng.IntN(r.tuning.ArrhythmiaDelayMax)
		}
		return v

	case ModeNoisy:
		v := r.advance()
		return v + (r.rng.Float64()*2-1)*r.tuning.NoiseAmplitude

	case ModeStutter:
		if r.stutterDelay > 0 {
			r.stutterDelay--
			return 0
		}
		v := r.advance()
		if r.phase == 0 && r.rng.Float64() < r.tuning.StutterProbability {
			r.stutterDelay = r.tuning.StutterDelayMin
			if span := r.tuning.StutterDelayMax - r.tuning.StutterDelayMin; span > 0 {
				r.stutterDelay += r.rng.IntN(span)
			}
		}
		return v

	default:
		return 0
	}
}

// advance moves the phase one unit and samples the table there.
func (r *Renderer) advance() float64 {
	r.phase = (r.phase + 1) % CycleLength
	return r.table.Interpolate(float64(r.phase))
}

func (r *Renderer) pixelY(v float64) int {
	mid := r.height / 2
	y := mid - int(math.Round(v*amplitudeScale*float64(r.height)))
	if y < 0 {
		return 0
	}
	if y > r.height-1 {
		return r.height - 1
	}
	return y
}

// State returns a snapshot of the render state.
func (r *Renderer) State() State {
	return State{
		Active:          r.active,
		Mode:            r.mode,
		Effective:       r.Effective(),
		Phase:           r.phase,
		ArrhythmiaDelay: r.arrhythmiaDelay,
		StutterDelay:    r.stutterDelay,
		Last:            r.last,
		Frames:          r.frames,
		Width:           r.width,
		Height:          r.height,
	}
}

// Window returns the newest n trace samples, oldest first.
func (r *Renderer) Window(n int) []float64 {
	return r.trace.Window(n)
}

// Table returns the reference waveform.
func (r *Renderer) Table() Table { return r.table }
