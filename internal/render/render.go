// Package render evaluates a signal node over a sample grid in blocks.
package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// DefaultBlockSize is the number of samples evaluated per Process call.
const DefaultBlockSize = 4096

// ErrNonFinite reports a NaN or infinite sample in rendered output.
var ErrNonFinite = errors.New("render: non-finite sample")

type config struct {
	start   float64
	block   int
	workers int
	flags   signal.Flags
}

type Option func(*config)

// WithStart offsets the first sample time.
func WithStart(t float64) Option {
	return func(c *config) { c.start = t }
}

// WithBlockSize sets the samples per block. Values below 1 are ignored.
func WithBlockSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.block = n
		}
	}
}

// WithWorkers evaluates up to n blocks concurrently. Nodes are pure
// functions of time, so the result matches a sequential render up to
// integration round-off; blocks of FM graphs that start far from already
// rendered time pay for integrating up to their start.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithFlags sets the evaluation flags.
func WithFlags(f signal.Flags) Option {
	return func(c *config) { c.flags = f }
}

// Frames returns the sample count for seconds at cfg's rate.
func Frames(cfg signal.Config, seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(seconds * cfg.SampleRate)
}

// Render evaluates n for the given duration.
func Render(n signal.Node, cfg signal.Config, seconds float64, opts ...Option) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, fmt.Errorf("render: %w: duration %v", signal.ErrInvalidParameter, seconds)
	}
	c := config{block: DefaultBlockSize, workers: 1}
	for _, opt := range opts {
		opt(&c)
	}
	ts := signal.Grid(c.start, Frames(cfg, seconds), cfg.SampleRate)
	out := make([]float64, len(ts))
	if err := Into(out, n, ts, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Into evaluates n at ts into dst block by block. WithStart is ignored.
func Into(dst []float64, n signal.Node, ts []float64, opts ...Option) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	c := config{block: DefaultBlockSize, workers: 1}
	for _, opt := range opts {
		opt(&c)
	}
	block := func(start int) error {
		end := min(start+c.block, len(ts))
		if err := n.Process(dst[start:end], ts[start:end], c.flags); err != nil {
			return fmt.Errorf("render: block at t=%v: %w", ts[start], err)
		}
		return checkFinite(dst[start:end], ts[start:end])
	}
	if c.workers <= 1 {
		for start := 0; start < len(ts); start += c.block {
			if err := block(start); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(c.workers)
	for start := 0; start < len(ts); start += c.block {
		g.Go(func() error { return block(start) })
	}
	return g.Wait()
}

func checkFinite(buf, ts []float64) error {
	for i, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v at t=%v", ErrNonFinite, v, ts[i])
		}
	}
	return nil
}

// Stats summarizes a rendered buffer.
type Stats struct {
	Peak float64 // largest magnitude
	RMS  float64
}

// Measure returns the peak and RMS of buf.
func Measure(buf []float64) Stats {
	if len(buf) == 0 {
		return Stats{}
	}
	return Stats{
		Peak: vecmath.MaxAbs(buf),
		RMS:  math.Sqrt(vecmath.DotProduct(buf, buf) / float64(len(buf))),
	}
}

// Normalize scales buf in place so its peak equals peak. Silent buffers
// are left unchanged.
func Normalize(buf []float64, peak float64) {
	if m := vecmath.MaxAbs(buf); m > 0 {
		vecmath.ScaleBlockInPlace(buf, peak/m)
	}
}
