// Package integral computes the running integral of a modulator signal, the
// quantity that turns frequency modulation into a phase offset.
//
// Two evaluation paths exist. Process integrates a sampled block with the
// centered cumulative trapezoid
//
//	I[n] = Δ·(cumsum(m)[n] − (m[0] + m[n])/2)
//
// where Δ is the block's grid step. Sample follows the recursive trapezoid
// I(t) = I(t−Δ) + Δ·(m(t) + m(t−Δ))/2 with Δ = 1/sampleRate and I(t) = 0 for
// t <= 0. A leading partial step shorter than Δ integrates from 0. A naive
// recursion costs time linear in t for every query, so Integral remembers
// its most recent result and continues from it whenever the next query lies
// on the same Δ grid further ahead.
package integral

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// gridTolerance is the fraction of a step within which a time is treated as
// lying on the Δ grid.
const gridTolerance = 1e-6

// Cumulative writes the centered trapezoid running integral of m, sampled
// with the given step, into dst. dst and m may alias.
func Cumulative(dst, m []float64, step float64) {
	if len(m) == 0 {
		return
	}
	m0 := m[0]
	var sum float64
	for i, v := range m {
		sum += v
		dst[i] = (sum - (m0+v)/2) * step
	}
}

// point is a memoized I(t) together with m(t) and the configuration
// revision it was computed under.
type point struct {
	t, m, v float64
	rev     uint64
}

// Integral is a node whose output is ∫₀ᵗ src(τ)dτ.
type Integral struct {
	src  signal.Node
	step float64

	mu   sync.Mutex
	last [2]*point // per IgnoreMod setting
}

func slot(f signal.Flags) int {
	if f.IgnoreMod {
		return 1
	}
	return 0
}

// New returns the running integral of src at the configured sample rate.
func New(src signal.Node, cfg signal.Config) (*Integral, error) {
	if src == nil {
		return nil, fmt.Errorf("integral: %w: nil source", signal.ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("integral: %w", err)
	}
	return &Integral{src: src, step: cfg.Step()}, nil
}

func (in *Integral) Inputs() []signal.Node { return []signal.Node{in.src} }

// Reset drops the memoized state. Configuration changes made through node
// setters already invalidate it via signal.Revision.
func (in *Integral) Reset() {
	in.mu.Lock()
	in.last = [2]*point{}
	in.mu.Unlock()
}

func (in *Integral) Sample(t float64, f signal.Flags) (float64, error) {
	if t <= 0 {
		return 0, nil
	}
	return in.sample(t, signal.Revision(), f)
}

func (in *Integral) sample(t float64, rev uint64, f signal.Flags) (float64, error) {
	in.mu.Lock()
	last := in.last[slot(f)]
	in.mu.Unlock()

	var (
		p   point
		err error
	)
	if k, ok := in.stepsFrom(last, t, rev); ok {
		if k == 0 {
			return last.v, nil
		}
		p, err = in.advance(*last, k, t, f)
	} else {
		p, err = in.cold(t, f)
	}
	if err != nil {
		return 0, err
	}
	p.rev = rev
	in.remember(p, f)
	return p.v, nil
}

// stepsFrom reports how many Δ steps separate a cached point from t, if t
// lies on the cached point's grid at or after it and the point was computed
// under revision rev.
func (in *Integral) stepsFrom(last *point, t float64, rev uint64) (int, bool) {
	if last == nil || last.rev != rev || t < last.t {
		return 0, false
	}
	d := (t - last.t) / in.step
	k := math.Round(d)
	if math.Abs(d-k) > gridTolerance {
		return 0, false
	}
	return int(k), true
}

// cold evaluates the recursion from scratch, ascending from 0 so nested
// integrals see monotonically increasing queries.
func (in *Integral) cold(t float64, f signal.Flags) (point, error) {
	k := math.Floor(t/in.step + gridTolerance)
	r := t - k*in.step
	if r < in.step*gridTolerance {
		r = 0
	}
	m0, err := in.src.Sample(0, f)
	if err != nil {
		return point{}, err
	}
	start := point{t: 0, m: m0}
	if r > 0 {
		mr, err := in.src.Sample(r, f)
		if err != nil {
			return point{}, err
		}
		start = point{t: r, m: mr, v: r * (m0 + mr) / 2}
	}
	if k == 0 {
		return start, nil
	}
	return in.advance(start, int(k), t, f)
}

// advance applies k trapezoid steps from p, landing exactly on t.
func (in *Integral) advance(p point, k int, t float64, f signal.Flags) (point, error) {
	for j := 1; j <= k; j++ {
		tj := t - float64(k-j)*in.step
		mj, err := in.src.Sample(tj, f)
		if err != nil {
			return point{}, err
		}
		p.v += in.step * (mj + p.m) / 2
		p.t, p.m = tj, mj
	}
	return p, nil
}

func (in *Integral) remember(p point, f signal.Flags) {
	i := slot(f)
	in.mu.Lock()
	if l := in.last[i]; l == nil || p.rev != l.rev || p.t >= l.t {
		in.last[i] = &p
	}
	in.mu.Unlock()
}

// Process integrates the block ts. Δ is ts[1]-ts[0], or 1/sampleRate for a
// single instant. A block that starts after 0 is lifted by the integral up
// to ts[0] so consecutive blocks join continuously. Instants before 0 yield
// 0, and integration then starts at the first positive instant.
func (in *Integral) Process(dst, ts []float64, f signal.Flags) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return err
	}
	if len(ts) == 0 {
		return nil
	}
	if ts[0] < 0 {
		z := sort.Search(len(ts), func(i int) bool { return ts[i] > 0 })
		clear(dst[:z])
		return in.Process(dst[z:], ts[z:], f)
	}
	rev := signal.Revision()
	m := make([]float64, len(ts))
	if err := in.src.Process(m, ts, f); err != nil {
		return err
	}
	step := in.step
	if len(ts) > 1 {
		step = ts[1] - ts[0]
	}
	Cumulative(dst, m, step)

	if ts[0] > 0 {
		offset, err := in.offset(ts[0], m[0], rev, f)
		if err != nil {
			return err
		}
		for i := range dst {
			dst[i] += offset
		}
	}
	if n := len(ts) - 1; ts[0] >= 0 && math.Abs(step-in.step) <= in.step*gridTolerance {
		in.remember(point{t: ts[n], m: m[n], v: dst[n], rev: rev}, f)
	}
	return nil
}

// offset returns I(t0). When the previous block ended at or one step before
// t0 it continues from there using m0, the source value at t0, without
// evaluating the source again.
func (in *Integral) offset(t0, m0 float64, rev uint64, f signal.Flags) (float64, error) {
	in.mu.Lock()
	last := in.last[slot(f)]
	in.mu.Unlock()
	if k, ok := in.stepsFrom(last, t0, rev); ok && k <= 1 {
		if k == 0 {
			return last.v, nil
		}
		return last.v + in.step*(last.m+m0)/2, nil
	}
	return in.sample(t0, rev, f)
}
