package tui

import (
	"fmt"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/pulse/internal/model"
)

// rhythmHistory is how many detected beats the page fetches per snapshot.
const rhythmHistory = 64

// RhythmDeck charts recent R-R intervals, one bar per detected beat.
type RhythmDeck struct {
	beats []model.Beat
	tone  string
}

// NewRhythmDeck creates an empty rhythm deck.
func NewRhythmDeck() *RhythmDeck {
	return &RhythmDeck{tone: "idle"}
}

func (d *RhythmDeck) ID() string    { return "rhythm" }
func (d *RhythmDeck) Title() string { return "Rhythm" }

func (d *RhythmDeck) SetData(s Snapshot) {
	d.beats = append(d.beats[:0], s.Beats...)
	d.tone = s.State.Tone
}

func (d *RhythmDeck) Render(ctx ViewContext, width, height int, active bool) string {
	style := deckStyle(width, height, active)

	stats := "HR --"
	if n := len(d.beats); n > 0 {
		last := d.beats[n-1]
		stats = fmt.Sprintf("HR %d bpm | RR %df", last.BPM, last.RRFrames)
	}
	header := deckHeader(deckTitleWithBadges("Rhythm", ctx), stats, width)

	var content string
	if len(d.beats) == 0 {
		content = helpStyle.Render("No beats detected")
	} else {
		content = d.renderChart(width, max(2, height-1))
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, content))
}

func (d *RhythmDeck) renderChart(width, height int) string {
	maxBars := max(1, width/2)
	beats := d.beats
	if len(beats) > maxBars {
		beats = beats[len(beats)-maxBars:]
	}

	color := toneColor(d.tone)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(color)

	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for _, b := range beats {
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: "RR", Value: float64(b.RRFrames), Style: barStyle},
			},
		})
	}
	bc.Draw()
	return bc.View()
}
