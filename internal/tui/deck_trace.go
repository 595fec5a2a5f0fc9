package tui

import (
	"fmt"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/pulse/internal/snapshot"
)

// TraceDeck draws the visible trace window as a scrolling line chart.
type TraceDeck struct {
	window []float64
	mode   string
	tone   string
	active bool
}

// NewTraceDeck creates an empty trace deck.
func NewTraceDeck() *TraceDeck {
	return &TraceDeck{tone: "idle"}
}

func (d *TraceDeck) ID() string    { return "trace" }
func (d *TraceDeck) Title() string { return "Trace" }

func (d *TraceDeck) SetData(s Snapshot) {
	d.window = append(d.window[:0], s.Window...)
	d.mode = s.State.EffectiveMode
	d.tone = s.State.Tone
	d.active = s.State.Active
}

func (d *TraceDeck) Render(ctx ViewContext, width, height int, active bool) string {
	style := deckStyle(width, height, active)

	stats := "stopped"
	if d.active {
		stats = d.mode
	}
	header := deckHeader(deckTitleWithBadges("Trace", ctx), stats, width)

	chartHeight := height - 1
	if chartHeight < 2 || width < 10 {
		return style.Render(header)
	}
	if len(d.window) == 0 {
		return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, helpStyle.Render("Waiting for samples")))
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, d.renderChart(width, chartHeight)))
}

func (d *TraceDeck) renderChart(width, height int) string {
	lineStyle := lipgloss.NewStyle().Foreground(toneColor(d.tone))
	slc := streamlinechart.New(width, height,
		streamlinechart.WithYRange(snapshot.MinValue, snapshot.MaxValue),
		streamlinechart.WithStyles(runes.ArcLineStyle, lineStyle),
	)

	samples := d.window
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	for _, v := range samples {
		slc.Push(v)
	}
	slc.Draw()
	return slc.View()
}

// latest returns the newest sample, formatted for the status line.
func (d *TraceDeck) latest() string {
	if len(d.window) == 0 {
		return "--"
	}
	return fmt.Sprintf("%+.2f", d.window[len(d.window)-1])
}
