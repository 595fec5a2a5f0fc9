package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/monitor"
	"github.com/tinytelemetry/pulse/internal/stream"
	"github.com/tinytelemetry/pulse/internal/tcpserver"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

func TestBuildSinkPlugins_RegistersPrimitives(t *testing.T) {
	t.Parallel()

	plugins := buildSinkPlugins(SinkPluginConfig{
		Hub:         stream.NewHub(),
		Feed:        tcpserver.NewServer("127.0.0.1:0"),
		NATSEnabled: true,
		Recorder:    &fakeRecorder{},
	})

	want := []string{"websocket", "feed", "nats", "recorder"}
	if len(plugins) != len(want) {
		t.Fatalf("expected %d plugins, got %d", len(want), len(plugins))
	}
	for i, name := range want {
		if plugins[i].Name() != name {
			t.Fatalf("plugins[%d] name = %q, want %q", i, plugins[i].Name(), name)
		}
		if !plugins[i].Enabled() {
			t.Fatalf("expected %s plugin to be enabled", name)
		}
	}
}

func TestBuildSinkPlugins_Disabled(t *testing.T) {
	t.Parallel()

	plugins := buildSinkPlugins(SinkPluginConfig{})
	for _, p := range plugins {
		if p.Enabled() {
			t.Fatalf("expected %s plugin to be disabled", p.Name())
		}
	}
}

type publishedMsg struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu        sync.Mutex
	published []publishedMsg
	drained   bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, publishedMsg{subject, append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drained = true
	return nil
}

func TestNATSSink_BatchesSamplesAndPublishesEvents(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	plugin := natsSinkPlugin{
		batch:   3,
		enabled: true,
		dial: func(url, name string) (stream.Conn, error) {
			if name != "pulse" {
				t.Errorf("client name = %q, want pulse", name)
			}
			return conn, nil
		},
	}
	sink, err := plugin.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		if err := sink.WriteSample(v); err != nil {
			t.Fatalf("WriteSample: %v", err)
		}
	}
	at := time.UnixMilli(1_700_000_000_000)
	if err := sink.WriteEvent(&model.Event{Timestamp: at, Kind: model.EventBeat, Mode: "normal", Active: true, BPM: 36, RRFrames: 100}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(conn.published) != 3 {
		t.Fatalf("published %d messages, want 3", len(conn.published))
	}
	first, err := stream.DecodeSamples(conn.published[0].data)
	if err != nil || len(first) != 3 || conn.published[0].subject != stream.DefaultWaveSubject {
		t.Fatalf("first wave batch = %v (%v) on %q", first, err, conn.published[0].subject)
	}

	var msg stream.ParamMsg
	if err := json.Unmarshal(conn.published[1].data, &msg); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if msg.Kind != "beat" || msg.HR != 36 || msg.RRFrames != 100 || msg.Ts != at.UnixMilli() {
		t.Fatalf("params = %+v", msg)
	}

	rest, _ := stream.DecodeSamples(conn.published[2].data)
	if len(rest) != 1 || rest[0] != float32(0.4) {
		t.Fatalf("flushed batch = %v, want [0.4]", rest)
	}
	if !conn.drained {
		t.Fatal("Close should drain the connection")
	}
}

func TestNATSSinkPlugin_DialError(t *testing.T) {
	t.Parallel()

	plugin := natsSinkPlugin{
		enabled: true,
		dial: func(string, string) (stream.Conn, error) {
			return nil, errors.New("no servers available")
		},
	}
	if _, err := plugin.Build(context.Background()); err == nil || !strings.Contains(err.Error(), "connect nats") {
		t.Fatalf("Build error = %v, want connect nats error", err)
	}
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []*model.Event
}

func (r *fakeRecorder) Record(e *model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *fakeRecorder) snapshot() []*model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Event(nil), r.events...)
}

func TestRecorderSink_RecordsEventsOnly(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	sink, err := recorderSinkPlugin{recorder: rec}.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_ = sink.WriteSample(1)
	ev := &model.Event{Kind: model.EventConfigure}
	_ = sink.WriteEvent(ev)

	if got := rec.snapshot(); len(got) != 1 || got[0] != ev {
		t.Fatalf("recorded = %v", got)
	}
}

type fakeFeed struct {
	lines []string
}

func (f *fakeFeed) Broadcast(line string) { f.lines = append(f.lines, line) }

func TestFeedSink_WritesSampleLinesAndCommentedEvents(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{}
	sink := &feedSink{feed: feed}
	_ = sink.WriteSample(1)
	_ = sink.WriteSample(-0.125)
	_ = sink.WriteEvent(&model.Event{Kind: model.EventBeat, BPM: 36, RRFrames: 100})

	if len(feed.lines) != 3 {
		t.Fatalf("lines = %q, want 3", feed.lines)
	}
	if feed.lines[0] != "1.000000" || feed.lines[1] != "-0.125000" {
		t.Fatalf("sample lines = %q", feed.lines[:2])
	}
	if !strings.HasPrefix(feed.lines[2], "# ") {
		t.Fatalf("event line = %q, want '# ' prefix", feed.lines[2])
	}
	var msg stream.ParamMsg
	if err := json.Unmarshal([]byte(strings.TrimPrefix(feed.lines[2], "# ")), &msg); err != nil || msg.HR != 36 {
		t.Fatalf("event line = %q (%v)", feed.lines[2], err)
	}
}

func TestHubSink_BroadcastsBatchesAndEvents(t *testing.T) {
	t.Parallel()

	hub := stream.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sink, err := websocketSinkPlugin{hub: hub, batch: 2}.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_ = sink.WriteSample(0.5)
	_ = sink.WriteSample(-0.25)
	_ = sink.WriteEvent(&model.Event{Kind: model.EventConfigure, Mode: "noisy", Active: true})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read wave: %v", err)
	}
	samples, _ := stream.DecodeSamples(data)
	if kind != websocket.BinaryMessage || len(samples) != 2 || samples[0] != 0.5 || samples[1] != -0.25 {
		t.Fatalf("wave frame kind=%d samples=%v", kind, samples)
	}

	kind, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var msg stream.ParamMsg
	if kind != websocket.TextMessage || json.Unmarshal(data, &msg) != nil || msg.Kind != "configure" || msg.Mode != "noisy" {
		t.Fatalf("event frame kind=%d body=%s", kind, data)
	}
}

// stepScheduler runs frames only when stepped.
type stepScheduler struct {
	mu     sync.Mutex
	nextID int
	id     int
	fn     func()
}

func (s *stepScheduler) Request(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.id, s.fn = id, fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.id == id {
			s.fn = nil
		}
	}
}

func (s *stepScheduler) step() {
	s.mu.Lock()
	fn := s.fn
	s.fn = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func TestWireSinks_ForwardsLoopOutput(t *testing.T) {
	t.Parallel()

	sched := &stepScheduler{}
	svc := monitor.NewService(monitor.Options{FrameRate: 60, Width: 200, Height: 50}, sched)
	sink := newFakeSink("capture")
	mux := NewSinkMultiplexer(context.Background(), []Sink{sink}, 1024)
	mux.Start()
	wireSinks(svc, mux)

	if err := svc.Configure(true, "normal"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	svc.Start()
	for i := 0; i < 350; i++ {
		sched.step()
	}
	svc.Stop()
	mux.Stop()

	samples, events, _ := sink.snapshot()
	if len(samples) != 350 {
		t.Fatalf("samples = %d, want 350", len(samples))
	}
	if samples[37] != 1.0 {
		t.Fatalf("38th sample = %v, want 1.0", samples[37])
	}
	if len(events) < 2 {
		t.Fatalf("events = %d, want configure plus beats", len(events))
	}
	if events[0].Kind != model.EventConfigure || events[0].Mode != "normal" || !events[0].Active {
		t.Fatalf("first event = %+v, want configure normal", events[0])
	}
	beat := events[1]
	if beat.Kind != model.EventBeat || beat.BPM != 36 || beat.RRFrames != 100 {
		t.Fatalf("beat event = %+v, want 36 bpm / 100 frames", beat)
	}
}

func TestBeatEvent_DefaultsTimestamp(t *testing.T) {
	t.Parallel()

	st := waveform.State{Active: true, Effective: waveform.ModeArrhythmia}
	ev := beatEvent(model.Beat{Frame: 7, BPM: 40, RRFrames: 90}, st)
	if ev.Timestamp.IsZero() {
		t.Fatal("beat event without a time should be stamped")
	}
	if ev.Mode != "arrhythmia" || ev.Frame != 7 {
		t.Fatalf("beat event = %+v", ev)
	}

	cfg := configureEvent(waveform.State{Mode: waveform.ModeStutter, Frames: 12}, time.Unix(10, 0))
	if cfg.Kind != model.EventConfigure || cfg.Mode != "stutter" || cfg.Frame != 12 {
		t.Fatalf("configure event = %+v", cfg)
	}
}
