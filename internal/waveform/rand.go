package waveform

import "math/rand/v2"

// Rand is the randomness consumed by the anomaly modes.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand returns a PCG-backed generator for seed.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
