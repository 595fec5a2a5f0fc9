package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/snapshot"
)

// MonitorPageID identifies the monitor page.
const MonitorPageID = "monitor"

// frameMsg requests one frame. Frames from an older generation are dropped.
type frameMsg struct {
	gen int
}

// snapshotMsg carries the result of an async monitor read.
type snapshotMsg struct {
	gen  int
	snap Snapshot
	err  error
}

// exportMsg reports the outcome of a PNG export.
type exportMsg struct {
	path string
	err  error
}

// MonitorPageConfig configures a MonitorPage.
type MonitorPageConfig struct {
	Monitor   Monitor
	FrameRate int
	Mode      string // mode used when space starts an idle monitor
	ExportDir string
}

// MonitorPage renders the live trace and forwards key presses to the monitor.
type MonitorPage struct {
	monitor   Monitor
	keys      KeyMap
	help      help.Model
	interval  time.Duration
	mode      string
	exportDir string

	decks      []Deck
	trace      *TraceDeck
	activeDeck int

	gen    int
	fetch  FetchState
	snap   Snapshot
	status string

	width  int
	height int
	now    func() time.Time
}

// NewMonitorPage creates the monitor page.
func NewMonitorPage(cfg MonitorPageConfig) *MonitorPage {
	fps := cfg.FrameRate
	if fps <= 0 {
		fps = model.DefaultFrameRate
	}
	mode := cfg.Mode
	if mode == "" || mode == "inactive" {
		mode = model.DefaultMode
	}
	exportDir := cfg.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	trace := NewTraceDeck()
	return &MonitorPage{
		monitor:   cfg.Monitor,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		interval:  time.Second / time.Duration(fps),
		mode:      mode,
		exportDir: exportDir,
		decks:     []Deck{trace, NewRhythmDeck(), NewStateDeck()},
		trace:     trace,
		now:       time.Now,
	}
}

func (p *MonitorPage) ID() string { return MonitorPageID }

func (p *MonitorPage) Init() tea.Cmd {
	p.gen++
	return tea.Batch(p.frameCmd(), p.startFetch())
}

func (p *MonitorPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.help.Width = msg.Width
		return nil, nil

	case frameMsg:
		if msg.gen != p.gen {
			return nil, nil
		}
		if err := p.monitor.Advance(); err != nil {
			p.fetch.recordError(err, p.now())
		}
		return tea.Batch(p.frameCmd(), p.startFetch()), nil

	case snapshotMsg:
		p.fetch.FetchInFlight = false
		if msg.err != nil {
			p.fetch.recordError(msg.err, p.now())
			return nil, nil
		}
		if msg.gen != p.gen {
			return nil, nil
		}
		p.fetch.recordOK(p.now())
		p.snap = msg.snap
		for _, d := range p.decks {
			d.SetData(msg.snap)
		}
		return nil, nil

	case exportMsg:
		if msg.err != nil {
			p.status = "export failed: " + msg.err.Error()
		} else {
			p.status = "exported " + msg.path
		}
		return nil, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *MonitorPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, p.keys.Quit), key.Matches(msg, p.keys.ForceQuit):
		p.gen++
		return tea.Quit, nil
	case key.Matches(msg, p.keys.Help):
		p.help.ShowAll = !p.help.ShowAll
		return nil, nil
	case key.Matches(msg, p.keys.NextDeck):
		p.activeDeck = (p.activeDeck + 1) % len(p.decks)
		return nil, nil
	case key.Matches(msg, p.keys.PrevDeck):
		p.activeDeck = (p.activeDeck + len(p.decks) - 1) % len(p.decks)
		return nil, nil
	case key.Matches(msg, p.keys.ToggleActive):
		mode := p.snap.State.Mode
		if mode == "" || mode == "inactive" {
			mode = p.mode
		}
		return p.configure(!p.snap.State.Active, mode), nil
	case key.Matches(msg, p.keys.Export):
		return p.exportCmd(), nil
	}

	for _, mk := range p.keys.modeKeys() {
		if key.Matches(msg, mk.binding) {
			if mk.mode != "inactive" {
				p.mode = mk.mode
			}
			return p.configure(true, mk.mode), nil
		}
	}
	return nil, nil
}

// configure applies a mode change and restarts the frame loop under a new
// generation so frames scheduled for the old mode are dropped.
func (p *MonitorPage) configure(active bool, mode string) tea.Cmd {
	if err := p.monitor.Configure(active, mode); err != nil {
		p.fetch.recordError(err, p.now())
		p.status = "configure failed: " + err.Error()
		return nil
	}
	p.snap.State.Active = active
	p.snap.State.Mode = mode
	p.status = ""
	p.gen++
	return tea.Batch(p.frameCmd(), p.startFetch())
}

func (p *MonitorPage) frameCmd() tea.Cmd {
	gen := p.gen
	return tea.Tick(p.interval, func(time.Time) tea.Msg {
		return frameMsg{gen: gen}
	})
}

// startFetch reads the monitor off the UI loop. At most one read is in flight.
func (p *MonitorPage) startFetch() tea.Cmd {
	if p.fetch.FetchInFlight {
		return nil
	}
	p.fetch.FetchInFlight = true
	mon := p.monitor
	gen := p.gen
	return func() tea.Msg {
		st, err := mon.State()
		if err != nil {
			return snapshotMsg{gen: gen, err: err}
		}
		window, err := mon.Window(st.Width)
		if err != nil {
			return snapshotMsg{gen: gen, err: err}
		}
		beats, err := mon.Beats(rhythmHistory)
		if err != nil {
			return snapshotMsg{gen: gen, err: err}
		}
		return snapshotMsg{gen: gen, snap: Snapshot{State: st, Window: window, Beats: beats}}
	}
}

// exportCmd writes the current window to a timestamped PNG in the export dir.
func (p *MonitorPage) exportCmd() tea.Cmd {
	window := append([]float64(nil), p.snap.Window...)
	opts := snapshot.Options{
		Width:  p.snap.State.Width,
		Height: p.snap.State.Height,
		Tone:   p.snap.State.Tone,
	}
	path := filepath.Join(p.exportDir, fmt.Sprintf("pulse-%s.png", p.now().Format("20060102-150405")))
	return func() tea.Msg {
		return exportMsg{path: path, err: writeSnapshot(path, window, opts)}
	}
}

func writeSnapshot(path string, window []float64, opts snapshot.Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := snapshot.Render(f, window, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (p *MonitorPage) viewContext() ViewContext {
	return ViewContext{
		ContentWidth:  p.width,
		ContentHeight: p.height,
		Loading:       p.fetch.FetchInFlight,
		LastError:     p.fetch.LastError,
	}
}

func (p *MonitorPage) View(width, height int) string {
	if width == 0 || height == 0 {
		return "Initializing..."
	}
	if width < 30 || height < 12 {
		return "Terminal too small"
	}

	helpView := helpStyle.Render(p.help.View(p.keys))
	status := p.renderStatusLine(width)
	body := height - lipgloss.Height(helpView) - lipgloss.Height(status)

	// Each deck adds two border rows and columns around its inner size.
	const border = 2
	traceHeight := max(4, body*3/5)
	lowerHeight := max(4, body-traceHeight)
	ctx := p.viewContext()

	trace := p.decks[0].Render(ctx, width-border, traceHeight-border, p.activeDeck == 0)

	leftWidth := (width - 1) / 2
	rightWidth := width - 1 - leftWidth
	rhythm := p.decks[1].Render(ctx, leftWidth-border, lowerHeight-border, p.activeDeck == 1)
	state := p.decks[2].Render(ctx, rightWidth-border, lowerHeight-border, p.activeDeck == 2)
	lower := lipgloss.JoinHorizontal(lipgloss.Top, rhythm, " ", state)

	content := lipgloss.NewStyle().
		Height(body).
		MaxHeight(body).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, trace, lower))

	return lipgloss.JoinVertical(lipgloss.Left, content, status, helpView)
}

// renderStatusLine renders the focused deck, the mode and the last message.
func (p *MonitorPage) renderStatusLine(width int) string {
	left := fmt.Sprintf("[%s]", p.decks[p.activeDeck].Title())

	st := p.snap.State
	state := "stopped"
	if st.Active {
		state = st.EffectiveMode
	}
	center := fmt.Sprintf("%s | frame %d | %s", state, st.Frames, p.trace.latest())

	right := p.status
	if right == "" && p.fetch.LastError != "" {
		right = "⚠ " + p.fetch.LastError
	}

	toneStyle := lipgloss.NewStyle().Background(ColorNavy).Foreground(toneColor(st.Tone)).Bold(true)
	line := left + " " + toneStyle.Render("♥") + " " + center
	if right != "" {
		gap := width - lipgloss.Width(line) - lipgloss.Width(right) - 1
		if gap > 0 {
			line += strings.Repeat(" ", gap) + right
		}
	}
	return statusStyle.Width(width).MaxWidth(width).Render(line)
}
