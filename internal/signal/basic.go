package signal

import (
	"math"
	"sync/atomic"
)

// Const outputs a fixed value.
type Const struct {
	bits uint64
}

// NewConst returns a constant node.
func NewConst(value float64) *Const {
	c := &Const{}
	c.Set(value)
	return c
}

// Set replaces the output value; later evaluations observe it.
func (c *Const) Set(value float64) {
	atomic.StoreUint64(&c.bits, math.Float64bits(value))
	Touch()
}

// Value returns the output value.
func (c *Const) Value() float64 {
	return math.Float64frombits(atomic.LoadUint64(&c.bits))
}

func (c *Const) Sample(float64, Flags) (float64, error) {
	return c.Value(), nil
}

func (c *Const) Process(dst, ts []float64, _ Flags) error {
	if err := CheckShape(dst, ts); err != nil {
		return err
	}
	Fill(dst, c.Value())
	return nil
}

// Ramp outputs start + slope*t.
type Ramp struct {
	Slope float64
	Start float64
}

// NewRamp returns a linearly increasing node.
func NewRamp(slope, start float64) *Ramp {
	return &Ramp{Slope: slope, Start: start}
}

func (r *Ramp) Sample(t float64, _ Flags) (float64, error) {
	return r.Start + r.Slope*t, nil
}

func (r *Ramp) Process(dst, ts []float64, _ Flags) error {
	if err := CheckShape(dst, ts); err != nil {
		return err
	}
	for i, t := range ts {
		dst[i] = r.Start + r.Slope*t
	}
	return nil
}

// Func adapts a pure function of time to a Node. It is mostly useful as a
// trigger or pitch source in tests and examples.
type Func func(t float64) float64

func (fn Func) Sample(t float64, _ Flags) (float64, error) {
	return fn(t), nil
}

func (fn Func) Process(dst, ts []float64, _ Flags) error {
	if err := CheckShape(dst, ts); err != nil {
		return err
	}
	for i, t := range ts {
		dst[i] = fn(t)
	}
	return nil
}
