package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/stream"
	"github.com/tinytelemetry/pulse/internal/tcpserver"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

// Sink consumes frame-loop output. Calls for one sink are serialized.
type Sink interface {
	Name() string
	WriteSample(v float64) error
	WriteEvent(ev *model.Event) error
	Close() error
}

// SinkPlugin is a small plugin primitive for wiring outputs.
type SinkPlugin interface {
	Name() string
	Enabled() bool
	Build(ctx context.Context) (Sink, error)
}

// EventRecorder accepts events for persistence.
type EventRecorder interface {
	Record(e *model.Event)
}

// SinkPluginConfig defines runtime output selection.
type SinkPluginConfig struct {
	Hub         *stream.Hub
	Feed        *tcpserver.Server
	StreamBatch int

	NATSEnabled       bool
	NATSURL           string
	NATSWaveSubject   string
	NATSParamsSubject string

	Recorder EventRecorder
}

func buildSinkPlugins(cfg SinkPluginConfig) []SinkPlugin {
	plugins := make([]SinkPlugin, 0, 4)
	plugins = append(plugins, websocketSinkPlugin{
		hub:   cfg.Hub,
		batch: cfg.StreamBatch,
	})
	plugins = append(plugins, feedSinkPlugin{feed: cfg.Feed})
	plugins = append(plugins, natsSinkPlugin{
		url:     cfg.NATSURL,
		wave:    cfg.NATSWaveSubject,
		params:  cfg.NATSParamsSubject,
		batch:   cfg.StreamBatch,
		enabled: cfg.NATSEnabled,
		dial:    dialNATS,
	})
	plugins = append(plugins, recorderSinkPlugin{recorder: cfg.Recorder})
	return plugins
}

func dialNATS(url, name string) (stream.Conn, error) {
	nc, err := stream.Connect(url, name)
	if err != nil {
		return nil, err
	}
	return nc, nil
}

type websocketSinkPlugin struct {
	hub   *stream.Hub
	batch int
}

func (p websocketSinkPlugin) Name() string { return "websocket" }

func (p websocketSinkPlugin) Enabled() bool { return p.hub != nil }

func (p websocketSinkPlugin) Build(_ context.Context) (Sink, error) {
	return &hubSink{hub: p.hub, batcher: stream.NewBatcher(p.batch)}, nil
}

// hubSink broadcasts sample batches as binary frames and events as JSON text.
type hubSink struct {
	hub     *stream.Hub
	batcher *stream.Batcher
}

func (s *hubSink) Name() string { return "websocket" }

func (s *hubSink) WriteSample(v float64) error {
	if batch, ok := s.batcher.Add(v); ok {
		s.hub.BroadcastBinary(stream.EncodeSamples(batch))
	}
	return nil
}

func (s *hubSink) WriteEvent(ev *model.Event) error {
	b, err := json.Marshal(paramMsgFor(ev))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	s.hub.BroadcastText(b)
	return nil
}

func (s *hubSink) Close() error {
	if rest := s.batcher.Flush(); len(rest) > 0 {
		s.hub.BroadcastBinary(stream.EncodeSamples(rest))
	}
	return nil
}

// lineFeed is the part of tcpserver.Server the feed sink writes to.
type lineFeed interface {
	Broadcast(line string)
}

type feedSinkPlugin struct {
	feed *tcpserver.Server
}

func (p feedSinkPlugin) Name() string { return "feed" }

func (p feedSinkPlugin) Enabled() bool { return p.feed != nil }

func (p feedSinkPlugin) Build(_ context.Context) (Sink, error) {
	return &feedSink{feed: p.feed}, nil
}

// feedSink writes one sample per line. Events go out as JSON on lines
// starting with '#' so plotting tools treat them as comments.
type feedSink struct {
	feed lineFeed
}

func (s *feedSink) Name() string { return "feed" }

func (s *feedSink) WriteSample(v float64) error {
	s.feed.Broadcast(strconv.FormatFloat(v, 'f', 6, 64))
	return nil
}

func (s *feedSink) WriteEvent(ev *model.Event) error {
	b, err := json.Marshal(paramMsgFor(ev))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	s.feed.Broadcast("# " + string(b))
	return nil
}

func (s *feedSink) Close() error { return nil }

type natsSinkPlugin struct {
	url     string
	wave    string
	params  string
	batch   int
	enabled bool
	dial    func(url, name string) (stream.Conn, error)
}

func (p natsSinkPlugin) Name() string { return "nats" }

func (p natsSinkPlugin) Enabled() bool { return p.enabled }

func (p natsSinkPlugin) Build(_ context.Context) (Sink, error) {
	conn, err := p.dial(p.url, "pulse")
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &natsSink{
		pub:     stream.NewPublisher(conn, p.wave, p.params),
		batcher: stream.NewBatcher(p.batch),
	}, nil
}

// natsSink publishes sample batches and events to NATS.
type natsSink struct {
	pub     *stream.Publisher
	batcher *stream.Batcher
}

func (s *natsSink) Name() string { return "nats" }

func (s *natsSink) WriteSample(v float64) error {
	if batch, ok := s.batcher.Add(v); ok {
		return s.pub.PublishWave(batch)
	}
	return nil
}

func (s *natsSink) WriteEvent(ev *model.Event) error {
	return s.pub.PublishParams(paramMsgFor(ev))
}

func (s *natsSink) Close() error {
	err := s.pub.PublishWave(s.batcher.Flush())
	if cerr := s.pub.Close(); cerr != nil {
		return cerr
	}
	return err
}

type recorderSinkPlugin struct {
	recorder EventRecorder
}

func (p recorderSinkPlugin) Name() string { return "recorder" }

func (p recorderSinkPlugin) Enabled() bool { return p.recorder != nil }

func (p recorderSinkPlugin) Build(_ context.Context) (Sink, error) {
	return &recorderSink{recorder: p.recorder}, nil
}

// recorderSink persists events. Samples are not recorded.
type recorderSink struct {
	recorder EventRecorder
}

func (s *recorderSink) Name() string { return "recorder" }

func (s *recorderSink) WriteSample(float64) error { return nil }

func (s *recorderSink) WriteEvent(ev *model.Event) error {
	s.recorder.Record(ev)
	return nil
}

func (s *recorderSink) Close() error { return nil }

// configureEvent describes an applied mode change.
func configureEvent(st waveform.State, at time.Time) *model.Event {
	return &model.Event{
		Timestamp: at,
		Kind:      model.EventConfigure,
		Mode:      st.Mode.String(),
		Active:    st.Active,
		Frame:     st.Frames,
	}
}

// beatEvent describes a detected beat.
func beatEvent(b model.Beat, st waveform.State) *model.Event {
	at := b.At
	if at.IsZero() {
		at = time.Now()
	}
	return &model.Event{
		Timestamp: at,
		Kind:      model.EventBeat,
		Mode:      st.Effective.String(),
		Active:    st.Active,
		Frame:     b.Frame,
		BPM:       b.BPM,
		RRFrames:  b.RRFrames,
	}
}

func paramMsgFor(ev *model.Event) stream.ParamMsg {
	return stream.ParamMsg{
		Ts:       ev.Timestamp.UnixMilli(),
		Kind:     ev.Kind,
		Mode:     ev.Mode,
		Active:   ev.Active,
		HR:       ev.BPM,
		RRFrames: ev.RRFrames,
	}
}
