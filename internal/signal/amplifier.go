package signal

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"
)

// Amplifier scales its input by a level and, unless modulation is ignored,
// by a gain-modulating node such as an envelope.
type Amplifier struct {
	input Node
	mod   Node
	level uint64
}

// NewAmplifier returns an amplifier over input. mod may be nil.
func NewAmplifier(level float64, input, mod Node) (*Amplifier, error) {
	if input == nil {
		return nil, fmt.Errorf("amplifier: %w: nil input", ErrInvalidParameter)
	}
	a := &Amplifier{input: input, mod: mod}
	a.SetLevel(level)
	return a, nil
}

// SetLevel replaces the output level.
func (a *Amplifier) SetLevel(level float64) {
	atomic.StoreUint64(&a.level, math.Float64bits(level))
	Touch()
}

// Level returns the output level.
func (a *Amplifier) Level() float64 {
	return math.Float64frombits(atomic.LoadUint64(&a.level))
}

func (a *Amplifier) Inputs() []Node {
	if a.mod == nil {
		return []Node{a.input}
	}
	return []Node{a.input, a.mod}
}

func (a *Amplifier) Sample(t float64, f Flags) (float64, error) {
	x, err := a.input.Sample(t, f)
	if err != nil {
		return 0, err
	}
	g := a.Level()
	if a.mod != nil && !f.IgnoreMod {
		m, err := a.mod.Sample(t, f)
		if err != nil {
			return 0, err
		}
		g *= m
	}
	return g * x, nil
}

func (a *Amplifier) Process(dst, ts []float64, f Flags) error {
	if err := CheckShape(dst, ts); err != nil {
		return err
	}
	if err := a.input.Process(dst, ts, f); err != nil {
		return err
	}
	if a.mod != nil && !f.IgnoreMod {
		gain := make([]float64, len(ts))
		if err := a.mod.Process(gain, ts, f); err != nil {
			return err
		}
		vecmath.MulBlockInPlace(dst, gain)
	}
	if level := a.Level(); level != 1 {
		vecmath.ScaleBlockInPlace(dst, level)
	}
	return nil
}
