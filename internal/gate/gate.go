// Package gate models when a note is held as a sparse list of press and
// release instants.
package gate

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

type intervals struct {
	presses  []float64
	releases []float64
}

// Gate outputs, for every instant, the number of [press, release) intervals
// containing it. Valid gates never overlap so the output is 0 or 1.
type Gate struct {
	iv atomic.Pointer[intervals]
}

// New builds a gate from a flat ascending list alternating press and
// release instants. With an odd count the last press is never released.
func New(ts ...float64) (*Gate, error) {
	g := &Gate{}
	if err := g.SetTriggers(ts...); err != nil {
		return nil, err
	}
	return g, nil
}

// NewIntervals builds a gate from parallel press and release lists.
func NewIntervals(presses, releases []float64) (*Gate, error) {
	g := &Gate{}
	if err := g.SetIntervals(presses, releases); err != nil {
		return nil, err
	}
	return g, nil
}

// MustNew is New for literal trigger lists; it panics on invalid input.
func MustNew(ts ...float64) *Gate {
	g, err := New(ts...)
	if err != nil {
		panic(err)
	}
	return g
}

// SetTriggers replaces the intervals from a flat alternating list.
func (g *Gate) SetTriggers(ts ...float64) error {
	n := (len(ts) + 1) / 2
	presses := make([]float64, n)
	releases := make([]float64, n)
	for i := range presses {
		presses[i] = ts[2*i]
		if 2*i+1 < len(ts) {
			releases[i] = ts[2*i+1]
		} else {
			releases[i] = math.Inf(1)
		}
	}
	return g.store(presses, releases)
}

// SetIntervals replaces the intervals. Missing trailing releases are open.
func (g *Gate) SetIntervals(presses, releases []float64) error {
	if len(releases) > len(presses) {
		return fmt.Errorf("gate: %w: %d releases for %d presses", signal.ErrInvalidParameter, len(releases), len(presses))
	}
	p := append([]float64(nil), presses...)
	r := make([]float64, len(p))
	copy(r, releases)
	for i := len(releases); i < len(r); i++ {
		r[i] = math.Inf(1)
	}
	return g.store(p, r)
}

func (g *Gate) store(presses, releases []float64) error {
	if err := validate(presses, releases); err != nil {
		return err
	}
	g.iv.Store(&intervals{presses: presses, releases: releases})
	signal.Touch()
	return nil
}

func validate(presses, releases []float64) error {
	for i, p := range presses {
		r := releases[i]
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("gate: %w: press %d is not finite: %v", signal.ErrInvalidParameter, i, p)
		}
		if math.IsNaN(r) || math.IsInf(r, -1) {
			return fmt.Errorf("gate: %w: release %d is invalid: %v", signal.ErrInvalidParameter, i, r)
		}
		if r < p {
			return fmt.Errorf("gate: %w: release %v before press %v", signal.ErrInvalidParameter, r, p)
		}
		if i == 0 {
			continue
		}
		if p <= presses[i-1] {
			return fmt.Errorf("gate: %w: presses not strictly increasing at %d", signal.ErrInvalidParameter, i)
		}
		if p < releases[i-1] {
			return fmt.Errorf("gate: %w: press %v overlaps interval ending at %v", signal.ErrInvalidParameter, p, releases[i-1])
		}
	}
	return nil
}

func (g *Gate) load() *intervals {
	if iv := g.iv.Load(); iv != nil {
		return iv
	}
	return &intervals{}
}

// Intervals returns copies of the press and release lists from one snapshot.
func (g *Gate) Intervals() (presses, releases []float64) {
	p, r := g.SharedIntervals()
	return append([]float64(nil), p...), append([]float64(nil), r...)
}

// SharedIntervals returns the current snapshot's lists without copying.
// They are shared with every reader and must not be modified.
func (g *Gate) SharedIntervals() (presses, releases []float64) {
	iv := g.load()
	return iv.presses, iv.releases
}

// Presses returns a copy of the press instants.
func (g *Gate) Presses() []float64 {
	return append([]float64(nil), g.load().presses...)
}

// Releases returns a copy of the release instants; open intervals end at +Inf.
func (g *Gate) Releases() []float64 {
	return append([]float64(nil), g.load().releases...)
}

// Len returns the number of intervals.
func (g *Gate) Len() int { return len(g.load().presses) }

func (g *Gate) Sample(t float64, _ signal.Flags) (float64, error) {
	return g.load().count(t), nil
}

func (g *Gate) Process(dst, ts []float64, _ signal.Flags) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return err
	}
	iv := g.load()
	for i, t := range ts {
		dst[i] = iv.count(t)
	}
	return nil
}

func (iv *intervals) count(t float64) float64 {
	// Index of the last press <= t.
	i := sort.Search(len(iv.presses), func(i int) bool { return iv.presses[i] > t }) - 1
	if i < 0 || t >= iv.releases[i] {
		return 0
	}
	return 1
}
