package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	DefaultWaveSubject   = "pulse.wave"
	DefaultParamsSubject = "pulse.params"
)

// Connect dials a NATS server with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("stream: connect nats %s: %w", url, err)
	}
	return nc, nil
}

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// ParamMsg is the JSON body published on the params subject.
type ParamMsg struct {
	Subject  string `json:"subject"`
	Ts       int64  `json:"ts"`
	Kind     string `json:"kind"`
	Mode     string `json:"mode"`
	Active   bool   `json:"active"`
	HR       int    `json:"hr,omitempty"`
	RRFrames int    `json:"rr_frames,omitempty"`
}

// Publisher sends wave batches and parameter messages to NATS.
type Publisher struct {
	conn   Conn
	wave   string
	params string
}

// NewPublisher wraps conn. Empty subjects take the defaults.
func NewPublisher(conn Conn, waveSubject, paramsSubject string) *Publisher {
	if waveSubject == "" {
		waveSubject = DefaultWaveSubject
	}
	if paramsSubject == "" {
		paramsSubject = DefaultParamsSubject
	}
	return &Publisher{conn: conn, wave: waveSubject, params: paramsSubject}
}

// PublishWave publishes one encoded batch.
func (p *Publisher) PublishWave(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	if err := p.conn.Publish(p.wave, EncodeSamples(samples)); err != nil {
		return fmt.Errorf("stream: publish %s: %w", p.wave, err)
	}
	return nil
}

// PublishParams publishes msg as JSON on the params subject.
func (p *Publisher) PublishParams(msg ParamMsg) error {
	msg.Subject = p.params
	if msg.Ts == 0 {
		msg.Ts = time.Now().UnixMilli()
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("stream: encode params: %w", err)
	}
	if err := p.conn.Publish(p.params, b); err != nil {
		return fmt.Errorf("stream: publish %s: %w", p.params, err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("stream: drain: %w", err)
	}
	return nil
}
