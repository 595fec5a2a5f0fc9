package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/pulse/internal/model"
)

type fakeSink struct {
	name string

	mu      sync.Mutex
	samples []float64
	events  []*model.Event
	closed  bool

	block chan struct{} // when set, writes wait on it
}

func newFakeSink(name string) *fakeSink {
	return &fakeSink{name: name}
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) WriteSample(v float64) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, v)
	return nil
}

func (s *fakeSink) WriteEvent(ev *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) snapshot() ([]float64, []*model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.samples...), append([]*model.Event(nil), s.events...), s.closed
}

func TestSinkMultiplexer_FansOutToAllSinks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newFakeSink("a")
	b := newFakeSink("b")
	mux := NewSinkMultiplexer(ctx, []Sink{a, b}, 16)
	mux.Start()

	ev := &model.Event{Kind: model.EventBeat, BPM: 36}
	mux.PublishSample(0.25)
	mux.PublishEvent(ev)
	mux.PublishSample(1.0)
	mux.Stop()

	for _, s := range []*fakeSink{a, b} {
		samples, events, closed := s.snapshot()
		if len(samples) != 2 || samples[0] != 0.25 || samples[1] != 1.0 {
			t.Fatalf("sink %s samples = %v", s.name, samples)
		}
		if len(events) != 1 || events[0] != ev {
			t.Fatalf("sink %s events = %v", s.name, events)
		}
		if !closed {
			t.Fatalf("sink %s not closed on Stop", s.name)
		}
	}
	if got := mux.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Names() = %v", got)
	}
}

func TestSinkMultiplexer_FullQueueDropsWithoutBlocking(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := newFakeSink("slow")
	slow.block = make(chan struct{})
	mux := NewSinkMultiplexer(ctx, []Sink{slow}, 2)
	mux.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			mux.PublishSample(float64(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow sink")
	}
	if mux.Dropped() == 0 {
		t.Fatal("expected dropped items on a full queue")
	}

	close(slow.block)
	mux.Stop()
}

func TestSinkMultiplexer_PublishAfterStopIsIgnored(t *testing.T) {
	t.Parallel()

	s := newFakeSink("x")
	mux := NewSinkMultiplexer(context.Background(), []Sink{s}, 4)
	mux.Start()
	mux.Stop()
	mux.Stop()

	mux.PublishSample(1)
	mux.PublishEvent(&model.Event{Kind: model.EventConfigure})

	samples, events, _ := s.snapshot()
	if len(samples) != 0 || len(events) != 0 {
		t.Fatalf("stopped mux delivered %d samples, %d events", len(samples), len(events))
	}
	if mux.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", mux.Dropped())
	}
}

func TestSinkMultiplexer_NoSinks(t *testing.T) {
	t.Parallel()

	mux := NewSinkMultiplexer(context.Background(), nil, 0)
	mux.Start()
	if mux.HasSinks() {
		t.Fatal("HasSinks() = true with no sinks")
	}
	mux.PublishSample(1)
	mux.Stop()
}
