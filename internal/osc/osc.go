// Package osc implements periodic waveform oscillators evaluated as pure
// functions of time.
package osc

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

const twoPi = math.Pi * 2

// Kind selects the waveform.
type Kind int

const (
	Sine Kind = iota
	Square
	Saw      // falls from +1 to -1 over a cycle
	Ramp     // inverse saw, rises from -1 to +1
	Triangle // rises over PulseWidth of the cycle, falls over the rest
)

var kindNames = [...]string{"sine", "square", "saw", "ramp", "triangle"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a waveform name to its Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	if name == "inverse-saw" {
		return Ramp, nil
	}
	return 0, fmt.Errorf("osc: %w: unknown waveform %q", signal.ErrInvalidParameter, name)
}

// Params configures an Oscillator.
type Params struct {
	Kind       Kind
	Frequency  float64 // Hz, > 0
	Amplitude  float64
	Phase      float64 // radians
	PulseWidth float64 // duty for Square and Triangle, in (0, 1)
}

func DefaultParams() Params {
	return Params{
		Kind:       Sine,
		Frequency:  440,
		Amplitude:  1,
		PulseWidth: 0.5,
	}
}

// waveFunc maps an absolute phase angle to a unit-amplitude sample.
type waveFunc func(theta float64) float64

type pitchInput struct {
	node signal.Node
}

// Oscillator produces amplitude*waveform(2π·f(t)·t + phase) where f(t) is
// the base frequency scaled by 2^(semitones/12) from an optional pitch input.
type Oscillator struct {
	params Params
	wave   waveFunc
	pitch  atomic.Pointer[pitchInput]
}

// New validates p and returns an oscillator.
func New(p Params) (*Oscillator, error) {
	if !(p.Frequency > 0) || math.IsInf(p.Frequency, 0) {
		return nil, fmt.Errorf("osc: %w: frequency must be > 0: %v", signal.ErrInvalidParameter, p.Frequency)
	}
	wave, err := waveFor(p.Kind, p.PulseWidth)
	if err != nil {
		return nil, err
	}
	return &Oscillator{params: p, wave: wave}, nil
}

func waveFor(k Kind, pw float64) (waveFunc, error) {
	switch k {
	case Square, Triangle:
		if !(pw > 0 && pw < 1) {
			return nil, fmt.Errorf("osc: %w: %s pulse width must be in (0, 1): %v", signal.ErrInvalidParameter, k, pw)
		}
	}
	switch k {
	case Sine:
		return math.Sin, nil
	case Square:
		return func(theta float64) float64 {
			if cycle(theta) < pw {
				return 1
			}
			return -1
		}, nil
	case Saw:
		return func(theta float64) float64 {
			return 1 - 2*cycle(theta)
		}, nil
	case Ramp:
		return func(theta float64) float64 {
			return 2*cycle(theta) - 1
		}, nil
	case Triangle:
		return func(theta float64) float64 {
			x := cycle(theta)
			if x < pw {
				return -1 + 2*x/pw
			}
			return 1 - 2*(x-pw)/(1-pw)
		}, nil
	default:
		return nil, fmt.Errorf("osc: %w: unknown waveform %d", signal.ErrInvalidParameter, int(k))
	}
}

// cycle returns the position within the cycle in [0, 1).
func cycle(theta float64) float64 {
	x := theta / twoPi
	x -= math.Floor(x)
	if x >= 1 {
		x = 0
	}
	return x
}

// Params returns the construction parameters.
func (o *Oscillator) Params() Params { return o.params }

// Frequency returns the base frequency in Hz.
func (o *Oscillator) Frequency() float64 { return o.params.Frequency }

// SetPitch attaches a node producing a semitone offset. nil detaches it.
func (o *Oscillator) SetPitch(n signal.Node) error {
	if n == nil {
		o.pitch.Store(nil)
		signal.Touch()
		return nil
	}
	if err := signal.CheckEdge(o, n); err != nil {
		return fmt.Errorf("osc: pitch input: %w", err)
	}
	o.pitch.Store(&pitchInput{node: n})
	signal.Touch()
	return nil
}

// Pitch returns the attached pitch input, or nil.
func (o *Oscillator) Pitch() signal.Node {
	if p := o.pitch.Load(); p != nil {
		return p.node
	}
	return nil
}

func (o *Oscillator) Inputs() []signal.Node {
	if p := o.Pitch(); p != nil {
		return []signal.Node{p}
	}
	return nil
}

// PitchFactor converts a semitone offset to a frequency ratio.
func PitchFactor(semitones float64) float64 {
	return math.Exp2(semitones / 12)
}

func (o *Oscillator) Sample(t float64, f signal.Flags) (float64, error) {
	return o.SampleShifted(t, 0, f)
}

// SampleShifted evaluates the oscillator with its phase advanced as if time
// were t+offset. The pitch input is still read at t.
func (o *Oscillator) SampleShifted(t, offset float64, f signal.Flags) (float64, error) {
	freq := o.params.Frequency
	if p := o.pitch.Load(); p != nil && !f.IgnoreMod {
		s, err := p.node.Sample(t, f)
		if err != nil {
			return 0, err
		}
		freq *= PitchFactor(s)
	}
	return o.params.Amplitude * o.wave(twoPi*freq*(t+offset)+o.params.Phase), nil
}

func (o *Oscillator) Process(dst, ts []float64, f signal.Flags) error {
	return o.ProcessShifted(dst, ts, nil, f)
}

// ProcessShifted is the vectorized SampleShifted. offsets may be nil.
func (o *Oscillator) ProcessShifted(dst, ts, offsets []float64, f signal.Flags) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return err
	}
	if offsets != nil && len(offsets) != len(ts) {
		return fmt.Errorf("osc: %w: %d offsets for %d instants", signal.ErrShapeMismatch, len(offsets), len(ts))
	}
	var semis []float64
	if p := o.pitch.Load(); p != nil && !f.IgnoreMod {
		semis = make([]float64, len(ts))
		if err := p.node.Process(semis, ts, f); err != nil {
			return err
		}
	}
	base := o.params.Frequency
	amp, phase := o.params.Amplitude, o.params.Phase
	for i, t := range ts {
		freq := base
		if semis != nil {
			freq *= PitchFactor(semis[i])
		}
		if offsets != nil {
			t += offsets[i]
		}
		dst[i] = amp * o.wave(twoPi*freq*t+phase)
	}
	return nil
}
