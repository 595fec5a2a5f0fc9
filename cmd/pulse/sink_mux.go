package main

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/tinytelemetry/pulse/internal/model"
)

// DefaultSinkBuffer is the default per-sink queue size of the multiplexer.
const DefaultSinkBuffer = 4096

// sinkItem is one unit of fan-out: a drawn sample or, when event is set, a
// recorded event.
type sinkItem struct {
	sample float64
	event  *model.Event
}

// SinkMultiplexer fans frame-loop output out to every sink. Publishing never
// blocks the frame loop: a sink whose queue is full loses the item.
type SinkMultiplexer struct {
	ctx    context.Context
	cancel context.CancelFunc

	sinks  []Sink
	queues []chan sinkItem

	stopped atomic.Bool
	dropped atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewSinkMultiplexer(parent context.Context, sinks []Sink, buffer int) *SinkMultiplexer {
	if buffer <= 0 {
		buffer = DefaultSinkBuffer
	}
	ctx, cancel := context.WithCancel(parent)
	queues := make([]chan sinkItem, len(sinks))
	for i := range queues {
		queues[i] = make(chan sinkItem, buffer)
	}
	return &SinkMultiplexer{
		ctx:    ctx,
		cancel: cancel,
		sinks:  sinks,
		queues: queues,
	}
}

func (m *SinkMultiplexer) Start() {
	m.startOnce.Do(func() {
		for i, s := range m.sinks {
			m.wg.Add(1)
			go m.forward(s, m.queues[i])
		}
	})
}

// Stop delivers what is already queued, then closes every sink.
func (m *SinkMultiplexer) Stop() {
	m.stopOnce.Do(func() {
		m.stopped.Store(true)
		m.cancel()
		m.wg.Wait()
		for _, s := range m.sinks {
			if err := s.Close(); err != nil {
				log.Printf("sink %s: close: %v", s.Name(), err)
			}
		}
	})
}

func (m *SinkMultiplexer) HasSinks() bool {
	return len(m.sinks) > 0
}

// Names lists the sinks in registration order.
func (m *SinkMultiplexer) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dropped returns how many items were discarded on full queues.
func (m *SinkMultiplexer) Dropped() int64 {
	return m.dropped.Load()
}

func (m *SinkMultiplexer) PublishSample(v float64) {
	m.publish(sinkItem{sample: v})
}

func (m *SinkMultiplexer) PublishEvent(ev *model.Event) {
	m.publish(sinkItem{event: ev})
}

func (m *SinkMultiplexer) publish(it sinkItem) {
	if m.stopped.Load() {
		return
	}
	for _, q := range m.queues {
		select {
		case q <- it:
		default:
			m.dropped.Add(1)
		}
	}
}

func (m *SinkMultiplexer) forward(s Sink, q chan sinkItem) {
	defer m.wg.Done()

	var errs int64
	deliver := func(it sinkItem) {
		var err error
		if it.event != nil {
			err = s.WriteEvent(it.event)
		} else {
			err = s.WriteSample(it.sample)
		}
		if err != nil {
			errs++
			if errs == 1 || errs%100 == 0 {
				log.Printf("sink %s: write failed (%d errors): %v", s.Name(), errs, err)
			}
		}
	}

	for {
		select {
		case <-m.ctx.Done():
			for {
				select {
				case it := <-q:
					deliver(it)
				default:
					return
				}
			}
		case it := <-q:
			deliver(it)
		}
	}
}
