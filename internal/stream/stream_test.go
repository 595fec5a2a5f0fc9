package stream

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	in := []float32{0, 1, -0.35, 0.28}
	b := EncodeSamples(in)
	if len(b) != 16 {
		t.Fatalf("encoded len = %d, want 16", len(b))
	}
	out, err := DecodeSamples(b)
	if err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip = %v, want %v", out, in)
	}
	if _, err := DecodeSamples([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated frame")
	}
}

func TestBatcher(t *testing.T) {
	t.Parallel()

	b := NewBatcher(3)
	if _, ok := b.Add(1); ok {
		t.Fatal("batch ready after 1 sample")
	}
	b.Add(2)
	got, ok := b.Add(3)
	if !ok || !reflect.DeepEqual(got, []float32{1, 2, 3}) {
		t.Fatalf("batch = %v/%v, want [1 2 3]/true", got, ok)
	}
	b.Add(4)
	if got := b.Flush(); !reflect.DeepEqual(got, []float32{4}) {
		t.Fatalf("Flush = %v, want [4]", got)
	}
	if got := b.Flush(); got != nil {
		t.Fatalf("second Flush = %v, want nil", got)
	}
	if NewBatcher(0).size != 1 {
		t.Fatal("size should clamp to 1")
	}
}

type fakeConn struct {
	mu      sync.Mutex
	msgs    map[string][][]byte
	fail    error
	drained bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.msgs == nil {
		f.msgs = make(map[string][][]byte)
	}
	f.msgs[subject] = append(f.msgs[subject], data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublisher(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	p := NewPublisher(conn, "", "")

	if err := p.PublishWave([]float32{0.5, 1}); err != nil {
		t.Fatalf("PublishWave: %v", err)
	}
	if err := p.PublishWave(nil); err != nil {
		t.Fatalf("PublishWave(nil): %v", err)
	}
	if err := p.PublishParams(ParamMsg{Kind: "beat", Mode: "normal", Active: true, HR: 36, RRFrames: 100}); err != nil {
		t.Fatalf("PublishParams: %v", err)
	}

	if n := len(conn.msgs[DefaultWaveSubject]); n != 1 {
		t.Fatalf("wave messages = %d, want 1", n)
	}
	raw := conn.msgs[DefaultParamsSubject]
	if len(raw) != 1 {
		t.Fatalf("params messages = %d, want 1", len(raw))
	}
	var msg ParamMsg
	if err := json.Unmarshal(raw[0], &msg); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if msg.Subject != DefaultParamsSubject || msg.HR != 36 || msg.Ts == 0 {
		t.Fatalf("params = %+v", msg)
	}

	if err := p.Close(); err != nil || !conn.drained {
		t.Fatalf("Close: err=%v drained=%v", err, conn.drained)
	}
}

func TestPublisher_WrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := NewPublisher(&fakeConn{fail: boom}, "w", "p")
	if err := p.PublishWave([]float32{1}); !errors.Is(err, boom) {
		t.Fatalf("PublishWave err = %v, want wrapped boom", err)
	}
	if err := p.PublishParams(ParamMsg{}); !errors.Is(err, boom) {
		t.Fatalf("PublishParams err = %v, want wrapped boom", err)
	}
}

func TestHub_BroadcastAndClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.Count() == 1 })

	frame := EncodeSamples([]float32{0.25, 1})
	hub.BroadcastBinary(frame)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, got, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.BinaryMessage || !reflect.DeepEqual(got, frame) {
		t.Fatalf("message = %d/%v, want binary %v", kind, got, frame)
	}

	hub.BroadcastText([]byte(`{"kind":"configure"}`))
	kind, got, err = conn.ReadMessage()
	if err != nil || kind != websocket.TextMessage || string(got) != `{"kind":"configure"}` {
		t.Fatalf("text message = %d/%q/%v", kind, got, err)
	}

	hub.Close()
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected read error after hub close")
	}
	if hub.Count() != 0 {
		t.Fatalf("count after close = %d", hub.Count())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
