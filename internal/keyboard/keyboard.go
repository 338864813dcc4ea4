// Package keyboard provides the monophonic pitch and gate pair that drives
// operator graphs from a note sequence.
package keyboard

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/cbegin/fmgraph-go/internal/gate"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

type steps struct {
	at      []float64
	pitches []int
}

// MonoKey is a stepwise semitone signal. Pitch i is held from step i until
// step i+1; the last step holds forever. Before the first step, and on steps
// beyond the pitch list, the output is 0.
type MonoKey struct {
	s atomic.Pointer[steps]
}

// NewMonoKey returns a key signal. Extra pitches beyond the step list are
// dropped.
func NewMonoKey(at []float64, pitches []int) (*MonoKey, error) {
	k := &MonoKey{}
	if err := k.Set(at, pitches); err != nil {
		return nil, err
	}
	return k, nil
}

// Set replaces the steps. at must be finite and non-decreasing.
func (k *MonoKey) Set(at []float64, pitches []int) error {
	for i, t := range at {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("keyboard: %w: step %d is not finite: %v", signal.ErrInvalidParameter, i, t)
		}
		if i > 0 && t < at[i-1] {
			return fmt.Errorf("keyboard: %w: steps not ascending at %d", signal.ErrInvalidParameter, i)
		}
	}
	if len(pitches) > len(at) {
		pitches = pitches[:len(at)]
	}
	k.s.Store(&steps{
		at:      append([]float64(nil), at...),
		pitches: append([]int(nil), pitches...),
	})
	signal.Touch()
	return nil
}

// Steps returns copies of the step instants and their pitches.
func (k *MonoKey) Steps() ([]float64, []int) {
	s := k.load()
	return append([]float64(nil), s.at...), append([]int(nil), s.pitches...)
}

func (k *MonoKey) load() *steps {
	if s := k.s.Load(); s != nil {
		return s
	}
	return &steps{}
}

func (s *steps) value(t float64) float64 {
	i := sort.Search(len(s.at), func(i int) bool { return s.at[i] > t }) - 1
	if i < 0 || i >= len(s.pitches) {
		return 0
	}
	return float64(s.pitches[i])
}

func (k *MonoKey) Sample(t float64, _ signal.Flags) (float64, error) {
	return k.load().value(t), nil
}

func (k *MonoKey) Process(dst, ts []float64, _ signal.Flags) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return err
	}
	s := k.load()
	for i, t := range ts {
		dst[i] = s.value(t)
	}
	return nil
}

// MonoKeyboard pairs a Gate with the key signal of a monophonic part.
type MonoKeyboard struct {
	gate *gate.Gate
	key  *MonoKey
}

// New returns a keyboard over g. With nil steps the key changes at every
// press of g. A nil gate starts empty.
func New(g *gate.Gate, pitches []int, at []float64) (*MonoKeyboard, error) {
	if g == nil {
		g = gate.MustNew()
	}
	if at == nil {
		at = g.Presses()
	}
	key, err := NewMonoKey(at, pitches)
	if err != nil {
		return nil, err
	}
	return &MonoKeyboard{gate: g, key: key}, nil
}

// Gate returns the press/release signal.
func (k *MonoKeyboard) Gate() *gate.Gate { return k.gate }

// Key returns the semitone signal.
func (k *MonoKeyboard) Key() *MonoKey { return k.key }

// SetNotes replaces the whole performance in place: note i is pressed at
// presses[i], released at releases[i] and sounds pitches[i]. Nodes already
// reading Gate and Key see the new notes on their next evaluation. The gate
// and the key are published one after the other, so a call already in
// flight may see new presses with old pitches; serialize SetNotes against
// evaluation when that matters.
func (k *MonoKeyboard) SetNotes(presses, releases []float64, pitches []int) error {
	if err := k.gate.SetIntervals(presses, releases); err != nil {
		return err
	}
	return k.key.Set(presses, pitches)
}
