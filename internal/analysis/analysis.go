// Package analysis computes spectral diagnostics of rendered signals.
package analysis

import (
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// Spectrum holds the one-sided magnitude spectrum of a Hann-windowed
// buffer. A full-scale sine centred on a bin has magnitude 1.
type Spectrum struct {
	SampleRate float64
	Size       int       // FFT length
	Magnitude  []float64 // bins 0..Size/2
}

// BinHz returns the bin spacing in Hz.
func (s Spectrum) BinHz() float64 { return s.SampleRate / float64(s.Size) }

// Frequency returns the centre frequency of bin k.
func (s Spectrum) Frequency(k int) float64 { return float64(k) * s.BinHz() }

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Compute windows buf, zero-pads it to a power of two and transforms it.
func Compute(buf []float64, sampleRate float64) (Spectrum, error) {
	if len(buf) < 2 {
		return Spectrum{}, fmt.Errorf("analysis: %w: need at least 2 samples, got %d", signal.ErrInvalidParameter, len(buf))
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return Spectrum{}, fmt.Errorf("analysis: %w: sample rate %v", signal.ErrInvalidParameter, sampleRate)
	}
	size := nextPow2(len(buf))
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return Spectrum{}, fmt.Errorf("analysis: fft plan: %w", err)
	}
	in := make([]complex128, size)
	var wsum float64
	for i, v := range buf {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(len(buf)))
		wsum += w
		in[i] = complex(v*w, 0)
	}
	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return Spectrum{}, fmt.Errorf("analysis: fft: %w", err)
	}
	bins := size/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for k := range bins {
		re[k], im[k] = real(out[k]), imag(out[k])
	}
	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)
	vecmath.ScaleBlockInPlace(mag, 2/wsum)
	mag[0] /= 2
	return Spectrum{SampleRate: sampleRate, Size: size, Magnitude: mag}, nil
}

// Peak returns the interpolated frequency and magnitude of the strongest
// bin at or above minHz.
func (s Spectrum) Peak(minHz float64) (freq, mag float64) {
	first := max(1, int(math.Ceil(minHz/s.BinHz())))
	best := -1
	for k := first; k < len(s.Magnitude); k++ {
		if best < 0 || s.Magnitude[k] > s.Magnitude[best] {
			best = k
		}
	}
	if best < 0 {
		return 0, 0
	}
	if best == 0 || best == len(s.Magnitude)-1 {
		return s.Frequency(best), s.Magnitude[best]
	}
	a, b, c := s.Magnitude[best-1], s.Magnitude[best], s.Magnitude[best+1]
	den := a - 2*b + c
	if den == 0 {
		return s.Frequency(best), b
	}
	delta := 0.5 * (a - c) / den
	return (float64(best) + delta) * s.BinHz(), b - 0.25*(a-c)*delta
}

// DominantFrequency returns the frequency of the strongest non-DC
// component of buf.
func DominantFrequency(buf []float64, sampleRate float64) (float64, error) {
	s, err := Compute(buf, sampleRate)
	if err != nil {
		return 0, err
	}
	f, _ := s.Peak(0)
	return f, nil
}

// NodeSpectrum renders n from start for n samples at cfg's rate and
// returns its spectrum.
func NodeSpectrum(node signal.Node, cfg signal.Config, start float64, n int) (Spectrum, error) {
	if err := cfg.Validate(); err != nil {
		return Spectrum{}, fmt.Errorf("analysis: %w", err)
	}
	buf, err := signal.Eval(node, signal.Grid(start, n, cfg.SampleRate), signal.Flags{})
	if err != nil {
		return Spectrum{}, fmt.Errorf("analysis: %w", err)
	}
	return Compute(buf, cfg.SampleRate)
}
