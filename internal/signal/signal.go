// Package signal defines the node contract shared by every signal producer in
// the graph, along with the evaluation flags, engine configuration and error
// kinds used across the engine.
//
// A Node is evaluated either at a single instant (Sample) or over an ordered,
// strictly increasing time grid (Process). Both forms must agree: Process is
// the vectorized equivalent of calling Sample for every instant.
package signal

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter reports a rejected construction or configuration value.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrShapeMismatch reports vectorized buffers of inconsistent length.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnsupportedMode reports an evaluation form a node cannot provide.
	ErrUnsupportedMode = errors.New("unsupported evaluation mode")
	// ErrCycle reports a connection that would make a node feed itself.
	ErrCycle = fmt.Errorf("%w: modulation cycle", ErrInvalidParameter)
)

// Flags carries per-call evaluation options.
type Flags struct {
	// IgnoreMod makes nodes skip inputs that do not shape the waveform
	// itself: pitch inputs, LFOs, gates and envelopes.
	IgnoreMod bool
}

// Node produces a value for a given time.
type Node interface {
	// Sample returns the value at instant t.
	Sample(t float64, f Flags) (float64, error)
	// Process writes the value at every instant of ts into dst.
	// len(dst) must equal len(ts).
	Process(dst, ts []float64, f Flags) error
}

// Config is the engine configuration threaded through graph construction.
type Config struct {
	SampleRate float64
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the default configuration (44.1 kHz).
func DefaultConfig() Config {
	return Config{SampleRate: 44100}
}

// WithSampleRate sets the sample rate; non-positive values are ignored.
func WithSampleRate(sampleRate float64) Option {
	return func(c *Config) {
		if sampleRate > 0 {
			c.SampleRate = sampleRate
		}
	}
}

// NewConfig applies opts to the default configuration.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Step returns the sample spacing in seconds.
func (c Config) Step() float64 {
	return 1 / c.SampleRate
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidParameter, c.SampleRate)
	}
	return nil
}

// CheckShape returns ErrShapeMismatch when dst and ts differ in length.
func CheckShape(dst, ts []float64) error {
	if len(dst) != len(ts) {
		return fmt.Errorf("%w: dst has %d samples, ts has %d", ErrShapeMismatch, len(dst), len(ts))
	}
	return nil
}

// Eval evaluates n over ts into a newly allocated slice.
func Eval(n Node, ts []float64, f Flags) ([]float64, error) {
	out := make([]float64, len(ts))
	if err := n.Process(out, ts, f); err != nil {
		return nil, err
	}
	return out, nil
}
