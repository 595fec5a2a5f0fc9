package waveform

// Trace is a fixed-length ring of samples, one per surface column.
// Pushing onto a full trace discards the oldest column.
type Trace struct {
	buf   []float64
	start int
	size  int
}

// NewTrace creates a trace holding up to columns samples.
func NewTrace(columns int) *Trace {
	if columns < 1 {
		columns = 1
	}
	return &Trace{buf: make([]float64, columns)}
}

// Cap returns the number of columns.
func (t *Trace) Cap() int { return len(t.buf) }

// Len returns the number of columns drawn so far.
func (t *Trace) Len() int { return t.size }

// Push appends v as the newest column.
func (t *Trace) Push(v float64) {
	if t.size < len(t.buf) {
		t.buf[(t.start+t.size)%len(t.buf)] = v
		t.size++
		return
	}
	t.buf[t.start] = v
	t.start = (t.start + 1) % len(t.buf)
}

// Window returns a copy of the newest n samples, oldest first.
func (t *Trace) Window(n int) []float64 {
	if n <= 0 || n > t.size {
		n = t.size
	}
	out := make([]float64, n)
	offset := t.size - n
	for i := 0; i < n; i++ {
		out[i] = t.buf[(t.start+offset+i)%len(t.buf)]
	}
	return out
}

// Clear drops every sample.
func (t *Trace) Clear() {
	t.start = 0
	t.size = 0
}
