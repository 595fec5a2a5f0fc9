package stream

import "sync"

// Batcher groups samples into fixed-size batches.
type Batcher struct {
	mu   sync.Mutex
	size int
	buf  []float32
}

// NewBatcher returns a batcher emitting batches of size samples (minimum 1).
func NewBatcher(size int) *Batcher {
	if size < 1 {
		size = 1
	}
	return &Batcher{size: size, buf: make([]float32, 0, size)}
}

// Add appends a sample and returns a full batch when one is ready.
func (b *Batcher) Add(v float64) ([]float32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, float32(v))
	if len(b.buf) < b.size {
		return nil, false
	}
	out := b.buf
	b.buf = make([]float32, 0, b.size)
	return out, true
}

// Flush returns any partial batch.
func (b *Batcher) Flush() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf) == 0 {
		return nil
	}
	out := b.buf
	b.buf = make([]float32, 0, b.size)
	return out
}
