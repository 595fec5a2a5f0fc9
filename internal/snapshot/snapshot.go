package snapshot

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/tinytelemetry/pulse/internal/model"
)

// Y range of the rendered trace. The default waveform spans -0.35..1.0 and
// noise adds up to 0.2 either side.
const (
	MinValue = -1.2
	MaxValue = 1.2
)

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
	Tone   string // idle, normal or alert
}

var toneColors = map[string]drawing.Color{
	"idle":   drawing.ColorFromHex("6b7280"),
	"normal": drawing.ColorFromHex("22c55e"),
	"alert":  drawing.ColorFromHex("ef4444"),
}

// ToneColor returns the stroke color used for a tone.
func ToneColor(tone string) drawing.Color {
	if c, ok := toneColors[tone]; ok {
		return c
	}
	return toneColors["idle"]
}

// Render writes samples, oldest first, as a PNG trace.
func Render(w io.Writer, samples []float64, opts Options) error {
	if opts.Width <= 0 {
		opts.Width = model.DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = model.DefaultHeight
	}

	// A continuous series needs two points to form a range.
	ys := append([]float64(nil), samples...)
	for len(ys) < 2 {
		ys = append(ys, 0)
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}

	bg := drawing.ColorFromHex("0b0f14")
	ch := chart.Chart{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{FillColor: bg, Padding: chart.Box{Top: 4, Left: 4, Right: 4, Bottom: 4}},
		Canvas:     chart.Style{FillColor: bg},
		XAxis: chart.XAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(ys) - 1)},
		},
		YAxis: chart.YAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: MinValue, Max: MaxValue},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: ToneColor(opts.Tone),
					StrokeWidth: 2,
				},
				XValues: xs,
				YValues: clamp(ys),
			},
		},
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("snapshot: render: %w", err)
	}
	return nil
}

func clamp(vs []float64) []float64 {
	for i, v := range vs {
		if v < MinValue {
			vs[i] = MinValue
		} else if v > MaxValue {
			vs[i] = MaxValue
		}
	}
	return vs
}
