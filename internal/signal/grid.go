package signal

import (
	"fmt"
	"math"
)

// Grid returns n instants spaced 1/sampleRate apart starting at start.
func Grid(start float64, n int, sampleRate float64) []float64 {
	if n <= 0 {
		return nil
	}
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = start + float64(i)/sampleRate
	}
	return ts
}

// Linspace returns n evenly spaced instants over [start, stop].
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	ts := make([]float64, n)
	if n == 1 {
		ts[0] = start
		return ts
	}
	step := (stop - start) / float64(n-1)
	for i := range ts {
		ts[i] = start + float64(i)*step
	}
	ts[n-1] = stop
	return ts
}

// CheckIncreasing reports ErrInvalidParameter unless ts is strictly increasing
// and finite.
func CheckIncreasing(ts []float64) error {
	for i, t := range ts {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: time %d is not finite: %v", ErrInvalidParameter, i, t)
		}
		if i > 0 && t <= ts[i-1] {
			return fmt.Errorf("%w: time grid not strictly increasing at %d (%v <= %v)", ErrInvalidParameter, i, t, ts[i-1])
		}
	}
	return nil
}

// Fill sets every element of dst to v.
func Fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}

// EnsureLen returns a slice of length n, reusing buf when it has capacity.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}
