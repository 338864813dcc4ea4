// Package mixer implements the weighted-sum combinator over signal nodes.
package mixer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// DefaultStep is the level change applied by IncreaseLevel/DecreaseLevel
// callers that have no preference.
const DefaultStep = 0.01

type input struct {
	node  signal.Node
	level float64
}

// Mixer sums its inputs, each scaled by its level. Input order is kept for
// reproducible traces but does not change the sum.
//
// Levels are published as immutable snapshots: an evaluation call reads one
// snapshot for its whole duration and sees updates on the next call.
type Mixer struct {
	mu          sync.Mutex // serializes writers
	inputs      atomic.Pointer[[]input]
	parallelMin int
}

// Option configures a Mixer.
type Option func(*Mixer)

// WithParallel evaluates sibling inputs concurrently when a block holds at
// least minBlock instants. Zero disables it.
func WithParallel(minBlock int) Option {
	return func(m *Mixer) {
		if minBlock >= 0 {
			m.parallelMin = minBlock
		}
	}
}

// New returns an empty mixer.
func New(opts ...Option) *Mixer {
	m := &Mixer{}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	empty := []input{}
	m.inputs.Store(&empty)
	return m
}

func (m *Mixer) snapshot() []input {
	return *m.inputs.Load()
}

// AddInput appends n at the given level and returns its index.
func (m *Mixer) AddInput(n signal.Node, level float64) (int, error) {
	if err := signal.CheckEdge(m, n); err != nil {
		return 0, fmt.Errorf("mixer: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.snapshot()
	next := make([]input, len(old), len(old)+1)
	copy(next, old)
	next = append(next, input{node: n, level: level})
	m.inputs.Store(&next)
	signal.Touch()
	return len(next) - 1, nil
}

// SetLevel replaces the level of input i.
func (m *Mixer) SetLevel(i int, level float64) error {
	return m.update(i, func(float64) float64 { return level })
}

// IncreaseLevel adds delta to the level of input i.
func (m *Mixer) IncreaseLevel(i int, delta float64) error {
	return m.update(i, func(l float64) float64 { return l + delta })
}

// DecreaseLevel subtracts delta from the level of input i.
func (m *Mixer) DecreaseLevel(i int, delta float64) error {
	return m.IncreaseLevel(i, -delta)
}

func (m *Mixer) update(i int, fn func(float64) float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.snapshot()
	if i < 0 || i >= len(old) {
		return fmt.Errorf("mixer: %w: input index %d out of range [0, %d)", signal.ErrInvalidParameter, i, len(old))
	}
	next := make([]input, len(old))
	copy(next, old)
	next[i].level = fn(next[i].level)
	m.inputs.Store(&next)
	signal.Touch()
	return nil
}

// Level returns the level of input i.
func (m *Mixer) Level(i int) (float64, error) {
	in := m.snapshot()
	if i < 0 || i >= len(in) {
		return 0, fmt.Errorf("mixer: %w: input index %d out of range [0, %d)", signal.ErrInvalidParameter, i, len(in))
	}
	return in[i].level, nil
}

// Levels returns a copy of all levels in input order.
func (m *Mixer) Levels() []float64 {
	in := m.snapshot()
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = x.level
	}
	return out
}

// Len returns the number of inputs.
func (m *Mixer) Len() int { return len(m.snapshot()) }

// Inputs returns the input nodes in order.
func (m *Mixer) Inputs() []signal.Node {
	in := m.snapshot()
	out := make([]signal.Node, len(in))
	for i, x := range in {
		out[i] = x.node
	}
	return out
}

func (m *Mixer) Sample(t float64, f signal.Flags) (float64, error) {
	var sum float64
	for _, in := range m.snapshot() {
		if in.level == 0 {
			continue
		}
		v, err := in.node.Sample(t, f)
		if err != nil {
			return 0, err
		}
		sum += in.level * v
	}
	return sum, nil
}

// Process writes Σ level·input over ts. Inputs at level 0 are not evaluated.
func (m *Mixer) Process(dst, ts []float64, f signal.Flags) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return err
	}
	signal.Fill(dst, 0)
	active := m.active()
	if len(active) == 0 {
		return nil
	}
	if m.parallelMin > 0 && len(active) > 1 && len(ts) >= m.parallelMin {
		return m.processParallel(dst, ts, active, f)
	}
	buf := make([]float64, len(ts))
	for _, in := range active {
		if err := in.node.Process(buf, ts, f); err != nil {
			return err
		}
		accumulate(dst, buf, in.level)
	}
	return nil
}

func (m *Mixer) active() []input {
	snap := m.snapshot()
	out := make([]input, 0, len(snap))
	for _, in := range snap {
		if in.level != 0 {
			out = append(out, in)
		}
	}
	return out
}

func (m *Mixer) processParallel(dst, ts []float64, active []input, f signal.Flags) error {
	bufs := make([][]float64, len(active))
	var g errgroup.Group
	for i, in := range active {
		bufs[i] = make([]float64, len(ts))
		g.Go(func() error {
			return in.node.Process(bufs[i], ts, f)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// Reduce in input order so results match the sequential path bit for bit.
	for i, in := range active {
		accumulate(dst, bufs[i], in.level)
	}
	return nil
}

// accumulate adds level·src to dst, scaling src in place.
func accumulate(dst, src []float64, level float64) {
	if level != 1 {
		vecmath.ScaleBlockInPlace(src, level)
	}
	vecmath.AddBlockInPlace(dst, src)
}
