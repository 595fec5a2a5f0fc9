package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/pulse/internal/model"
)

// StateDeck lists the renderer state as label/value rows.
type StateDeck struct {
	state model.MonitorState
	ok    bool
}

// NewStateDeck creates an empty state deck.
func NewStateDeck() *StateDeck {
	return &StateDeck{}
}

func (d *StateDeck) ID() string    { return "state" }
func (d *StateDeck) Title() string { return "State" }

func (d *StateDeck) SetData(s Snapshot) {
	d.state = s.State
	d.ok = true
}

// rows returns the label/value pairs shown by the deck.
func (d *StateDeck) rows() [][2]string {
	s := d.state
	active := "no"
	if s.Active {
		active = "yes"
	}
	return [][2]string{
		{"Mode", s.Mode},
		{"Effective", s.EffectiveMode},
		{"Active", active},
		{"Phase", fmt.Sprintf("%d", s.Phase)},
		{"Frame", fmt.Sprintf("%d", s.Frames)},
		{"Arrhythmia", fmt.Sprintf("%d", s.ArrhythmiaDelay)},
		{"Stutter", fmt.Sprintf("%d", s.StutterDelay)},
		{"Last", fmt.Sprintf("(%d, %d) %+.3f", s.LastX, s.LastY, s.LastValue)},
	}
}

func (d *StateDeck) Render(ctx ViewContext, width, height int, active bool) string {
	style := deckStyle(width, height, active)
	header := deckHeader(deckTitleWithBadges("State", ctx), "", width)

	if !d.ok {
		return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, helpStyle.Render("Loading...")))
	}

	rows := d.rows()
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, header)
	for i, r := range rows {
		if i+1 >= height {
			break
		}
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-11s", r[0]))+valueStyle.Render(r[1]))
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
