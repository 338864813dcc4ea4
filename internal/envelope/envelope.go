// Package envelope turns press/release triggers into shaped control signals.
//
// An Envelope reads its triggers either directly from an input exposing
// explicit intervals (a gate.Gate) or by threshold-crossing detection on any
// other node's sampled output. The whole block is then composed from the
// Shape's two primitives: BeforeRelease(t−press) while an interval is held,
// and BeforeRelease(release−press)·AfterRelease(t−release) until the next
// press, so a release during attack or decay ramps down from the level
// actually reached.
//
// Crossing detection only sees the sampled block: a pulse narrower than the
// sample spacing can be missed, and each block starts from an input level of
// 0. Scalar evaluation needs explicit intervals and returns
// signal.ErrUnsupportedMode for detected triggers.
package envelope

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// DefaultThreshold is the input level an edge must cross to trigger.
const DefaultThreshold = 0.5

// TriggerSource is implemented by inputs that expose explicit intervals.
// Presses must be ascending and each release must precede the next press.
// The returned slices are read-only views of an immutable snapshot.
type TriggerSource interface {
	SharedIntervals() (presses, releases []float64)
}

type validator interface {
	Validate() error
}

type config struct {
	shape     Shape
	input     signal.Node
	threshold float64
}

// Envelope is a retriggerable shaped signal driven by an input node.
type Envelope struct {
	mu  sync.Mutex // serializes writers
	cfg atomic.Pointer[config]
}

// Option configures an Envelope at construction.
type Option func(*config)

// WithThreshold sets the edge-detection threshold.
func WithThreshold(th float64) Option {
	return func(c *config) { c.threshold = th }
}

// New returns an envelope of the given shape reading triggers from input.
// A nil input yields a silent envelope until SetInput is called.
func New(shape Shape, input signal.Node, opts ...Option) (*Envelope, error) {
	if shape == nil {
		return nil, fmt.Errorf("envelope: %w: nil shape", signal.ErrInvalidParameter)
	}
	if v, ok := shape.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	c := &config{shape: shape, threshold: DefaultThreshold}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if err := checkThreshold(c.threshold); err != nil {
		return nil, err
	}
	e := &Envelope{}
	e.cfg.Store(c)
	if input != nil {
		if err := e.SetInput(input); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// NewADSR is New with an ADSR shape.
func NewADSR(p ADSR, input signal.Node, opts ...Option) (*Envelope, error) {
	return New(p, input, opts...)
}

func checkThreshold(th float64) error {
	if math.IsNaN(th) || math.IsInf(th, 0) {
		return fmt.Errorf("envelope: %w: threshold is not finite: %v", signal.ErrInvalidParameter, th)
	}
	return nil
}

func (e *Envelope) update(fn func(c *config) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := *e.cfg.Load()
	if err := fn(&next); err != nil {
		return err
	}
	e.cfg.Store(&next)
	signal.Touch()
	return nil
}

// SetShape replaces the shape; the change is seen by the next evaluation.
func (e *Envelope) SetShape(s Shape) error {
	if s == nil {
		return fmt.Errorf("envelope: %w: nil shape", signal.ErrInvalidParameter)
	}
	if v, ok := s.(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return e.update(func(c *config) error {
		c.shape = s
		return nil
	})
}

// SetADSR replaces the shape with p.
func (e *Envelope) SetADSR(p ADSR) error { return e.SetShape(p) }

// Shape returns the current shape.
func (e *Envelope) Shape() Shape { return e.cfg.Load().shape }

// SetInput replaces the trigger input. nil silences the envelope.
func (e *Envelope) SetInput(n signal.Node) error {
	if n != nil {
		if err := signal.CheckEdge(e, n); err != nil {
			return fmt.Errorf("envelope: input: %w", err)
		}
	}
	return e.update(func(c *config) error {
		c.input = n
		return nil
	})
}

// Input returns the trigger input, or nil.
func (e *Envelope) Input() signal.Node { return e.cfg.Load().input }

// SetThreshold changes the edge-detection threshold.
func (e *Envelope) SetThreshold(th float64) error {
	if err := checkThreshold(th); err != nil {
		return err
	}
	return e.update(func(c *config) error {
		c.threshold = th
		return nil
	})
}

// Threshold returns the edge-detection threshold.
func (e *Envelope) Threshold() float64 { return e.cfg.Load().threshold }

func (e *Envelope) Inputs() []signal.Node {
	if in := e.Input(); in != nil {
		return []signal.Node{in}
	}
	return nil
}

// Triggers returns the paired press and release instants the envelope uses
// for the block ts. Open intervals end at +Inf.
func (e *Envelope) Triggers(ts []float64, f signal.Flags) (presses, releases []float64, err error) {
	p, r, err := e.cfg.Load().triggers(ts, f)
	if err != nil {
		return nil, nil, err
	}
	return append([]float64(nil), p...), append([]float64(nil), r...), nil
}

func (c *config) triggers(ts []float64, f signal.Flags) ([]float64, []float64, error) {
	switch in := c.input.(type) {
	case nil:
		return nil, nil, nil
	case TriggerSource:
		p, r := in.SharedIntervals()
		return p, r, nil
	default:
		values := make([]float64, len(ts))
		if err := in.Process(values, ts, f); err != nil {
			return nil, nil, err
		}
		p, r := DetectEdges(values, ts, c.threshold)
		return p, r, nil
	}
}

// DetectEdges finds threshold crossings in values sampled at ts. A press is
// where the previous sample is <= th and the current one is above it; a
// release where the previous is >= th and the current one is below it. The
// sample before the first is taken as 0. Crossings are paired in time order:
// a release with no open press is dropped and a final open press gets a +Inf
// release.
func DetectEdges(values, ts []float64, th float64) (presses, releases []float64) {
	prev := 0.0
	open := false
	for i, v := range values {
		switch {
		case !open && prev <= th && th < v:
			presses = append(presses, ts[i])
			open = true
		case open && prev >= th && th > v:
			releases = append(releases, ts[i])
			open = false
		}
		prev = v
	}
	if open {
		releases = append(releases, math.Inf(1))
	}
	return presses, releases
}

func (e *Envelope) Sample(t float64, f signal.Flags) (float64, error) {
	if f.IgnoreMod {
		return 1, nil
	}
	c := e.cfg.Load()
	if c.input == nil {
		return 0, nil
	}
	src, ok := c.input.(TriggerSource)
	if !ok {
		return 0, fmt.Errorf("envelope: %w: scalar evaluation needs explicit intervals, input is %T", signal.ErrUnsupportedMode, c.input)
	}
	p, r := src.SharedIntervals()
	j := sort.Search(len(p), func(i int) bool { return p[i] > t }) - 1
	return level(c.shape, p, r, j, t), nil
}

func (e *Envelope) Process(dst, ts []float64, f signal.Flags) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return err
	}
	if f.IgnoreMod {
		signal.Fill(dst, 1)
		return nil
	}
	c := e.cfg.Load()
	p, r, err := c.triggers(ts, f)
	if err != nil {
		return err
	}
	Compose(dst, ts, c.shape, p, r)
	return nil
}

// Compose writes the envelope for the paired intervals (presses[i],
// releases[i]) over ts into dst. Missing releases are treated as +Inf.
func Compose(dst, ts []float64, s Shape, presses, releases []float64) {
	if len(releases) < len(presses) {
		padded := make([]float64, len(presses))
		copy(padded, releases)
		for i := len(releases); i < len(padded); i++ {
			padded[i] = math.Inf(1)
		}
		releases = padded
	}
	j := -1
	for i, t := range ts {
		if j >= 0 && presses[j] > t {
			j = sort.Search(len(presses), func(k int) bool { return presses[k] > t }) - 1
		}
		for j+1 < len(presses) && presses[j+1] <= t {
			j++
		}
		dst[i] = level(s, presses, releases, j, t)
	}
}

// level evaluates interval j at t, where presses[j] is the last press <= t.
func level(s Shape, presses, releases []float64, j int, t float64) float64 {
	if j < 0 {
		return 0
	}
	p, r := presses[j], math.Inf(1)
	if j < len(releases) {
		r = releases[j]
	}
	if t < r {
		return s.BeforeRelease(t - p)
	}
	return s.BeforeRelease(r-p) * s.AfterRelease(t-r)
}
