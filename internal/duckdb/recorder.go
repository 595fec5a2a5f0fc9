package duckdb

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinytelemetry/pulse/internal/model"
)

// DefaultFlushQueueSize is the number of batches that can be queued for async flushing.
const DefaultFlushQueueSize = 64

// Recorder batches monitor events and flushes them to the store asynchronously.
// Record never blocks on DuckDB writes unless the flush queue is full.
type Recorder struct {
	writer        model.EventWriter
	mu            sync.Mutex
	pending       []*model.Event
	flushChan     chan []*model.Event
	maxBatch      int
	flushInterval time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup
	stopOnce      sync.Once
	stateMu       sync.RWMutex // held by Record; Stop takes it to close done

	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64 // unix seconds
	recorded          atomic.Int64
}

// RecorderConfig holds tunable parameters for the recorder.
type RecorderConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
}

// NewRecorder starts a recorder that flushes to writer.
func NewRecorder(writer model.EventWriter, conf ...RecorderConfig) *Recorder {
	batchSize := 256
	flushInterval := 500 * time.Millisecond
	flushQueueSize := DefaultFlushQueueSize
	if len(conf) > 0 {
		if conf[0].BatchSize > 0 {
			batchSize = conf[0].BatchSize
		}
		if conf[0].FlushInterval > 0 {
			flushInterval = conf[0].FlushInterval
		}
		if conf[0].FlushQueueSize > 0 {
			flushQueueSize = conf[0].FlushQueueSize
		}
	}

	r := &Recorder{
		writer:        writer,
		pending:       make([]*model.Event, 0, batchSize),
		flushChan:     make(chan []*model.Event, flushQueueSize),
		maxBatch:      batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}

	r.wg.Add(1)
	go r.flushWorker()

	r.wg.Add(1)
	r.tickWg.Add(1)
	go r.tickLoop()

	return r
}

func (r *Recorder) tickLoop() {
	defer r.wg.Done()
	defer r.tickWg.Done()
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.drainPending()
		case <-r.done:
			r.drainPending()
			return
		}
	}
}

// logBackpressure logs at most once per 10 seconds.
func (r *Recorder) logBackpressure() {
	count := r.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := r.lastBPLog.Load()
	if now-last >= 10 && r.lastBPLog.CompareAndSwap(last, now) {
		log.Printf("duckdb: backpressure, %d inline flushes (flush queue full)", count)
	}
}

func (r *Recorder) drainPending() {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.pending
	r.pending = make([]*model.Event, 0, r.maxBatch)
	r.mu.Unlock()

	r.enqueue(batch)
}

func (r *Recorder) enqueue(batch []*model.Event) {
	select {
	case r.flushChan <- batch:
	default:
		r.logBackpressure()
		r.flush(batch)
	}
}

func (r *Recorder) flushWorker() {
	defer r.wg.Done()
	for batch := range r.flushChan {
		r.flush(batch)
	}
}

func (r *Recorder) flush(batch []*model.Event) {
	if err := r.writer.InsertEventBatch(batch); err != nil {
		log.Printf("duckdb: flush %d events: %v", len(batch), err)
		return
	}
	r.recorded.Add(int64(len(batch)))
}

// Record queues an event. Events recorded after Stop are dropped.
func (r *Recorder) Record(e *model.Event) {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	select {
	case <-r.done:
		return
	default:
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	r.mu.Lock()
	r.pending = append(r.pending, e)
	var batch []*model.Event
	if len(r.pending) >= r.maxBatch {
		batch = r.pending
		r.pending = make([]*model.Event, 0, r.maxBatch)
	}
	r.mu.Unlock()

	if batch != nil {
		r.enqueue(batch)
	}
}

// Recorded returns the number of events written so far.
func (r *Recorder) Recorded() int64 {
	return r.recorded.Load()
}

// Stop flushes remaining events and waits for all writes to complete.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.stateMu.Lock()
		close(r.done)
		r.stateMu.Unlock()
		// The tick loop's final drain must land before the queue closes.
		r.tickWg.Wait()
		close(r.flushChan)
		r.wg.Wait()
	})
}
