// Package fm builds frequency-modulation operators and operator graphs.
//
// An Operator is a carrier oscillator whose phase is pushed by the weighted
// sum of its modulators, shaped by an envelope:
//
//	out(t) = gain · env(t) · carrier(t + offset(t))
//
// LinearFM takes offset(t) as the running integral of the modulation mix;
// DirectPhase takes the mix itself divided by the carrier's base frequency,
// the way DX-style hardware feeds operator output straight into phase.
package fm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cbegin/fmgraph-go/internal/envelope"
	"github.com/cbegin/fmgraph-go/internal/gate"
	"github.com/cbegin/fmgraph-go/internal/integral"
	"github.com/cbegin/fmgraph-go/internal/keyboard"
	"github.com/cbegin/fmgraph-go/internal/mixer"
	"github.com/cbegin/fmgraph-go/internal/osc"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

// Style selects how modulation reaches the carrier phase.
type Style int

const (
	LinearFM Style = iota
	DirectPhase
)

func (s Style) String() string {
	switch s {
	case LinearFM:
		return "linear"
	case DirectPhase:
		return "dx"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// ParseStyle maps "linear" or "dx" (and their long forms) to a Style.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear", "linearfm", "linear-fm":
		return LinearFM, nil
	case "dx", "direct", "directphase", "direct-phase":
		return DirectPhase, nil
	}
	return 0, fmt.Errorf("fm: %w: unknown style %q", signal.ErrInvalidParameter, name)
}

type Params struct {
	Wave       osc.Kind
	Frequency  float64 // carrier base frequency in Hz
	Level      float64 // carrier amplitude
	Phase      float64
	PulseWidth float64
	Style      Style
}

func DefaultParams() Params {
	return Params{
		Wave:       osc.Sine,
		Frequency:  440,
		Level:      1,
		PulseWidth: 0.5,
		Style:      LinearFM,
	}
}

// Operator is a carrier oscillator with its own modulation mixer, envelope
// and output gain. Modulators are shared: one node may modulate several
// operators.
type Operator struct {
	params   Params
	carrier  *osc.Oscillator
	mods     *mixer.Mixer
	integral *integral.Integral
	env      *envelope.Envelope
	amp      *signal.Amplifier

	pitchMu sync.Mutex
	key     signal.Node
	vibrato signal.Node
}

// NewOperator builds an operator. Its envelope starts with DefaultADSR and
// a gate held from t=0, so until a gate is attached the operator sounds
// like its bare carrier.
func NewOperator(cfg signal.Config, p Params) (*Operator, error) {
	if p.Style != LinearFM && p.Style != DirectPhase {
		return nil, fmt.Errorf("fm: %w: unknown style %d", signal.ErrInvalidParameter, int(p.Style))
	}
	carrier, err := osc.New(osc.Params{
		Kind:       p.Wave,
		Frequency:  p.Frequency,
		Amplitude:  p.Level,
		Phase:      p.Phase,
		PulseWidth: p.PulseWidth,
	})
	if err != nil {
		return nil, fmt.Errorf("fm: carrier: %w", err)
	}
	op := &Operator{
		params:  p,
		carrier: carrier,
		mods:    mixer.New(),
	}
	if op.integral, err = integral.New(op.mods, cfg); err != nil {
		return nil, fmt.Errorf("fm: %w", err)
	}
	if op.env, err = envelope.NewADSR(envelope.DefaultADSR(), gate.MustNew(0)); err != nil {
		return nil, err
	}
	if op.amp, err = signal.NewAmplifier(1, modulated{op}, op.env); err != nil {
		return nil, err
	}
	return op, nil
}

// Params returns the construction parameters.
func (op *Operator) Params() Params { return op.params }

// Style returns the modulation style.
func (op *Operator) Style() Style { return op.params.Style }

// Carrier returns the carrier oscillator.
func (op *Operator) Carrier() *osc.Oscillator { return op.carrier }

// Modulators returns the modulation mixer.
func (op *Operator) Modulators() *mixer.Mixer { return op.mods }

// Envelope returns the operator's envelope.
func (op *Operator) Envelope() *envelope.Envelope { return op.env }

// AddModulator mixes n into the operator's phase at the given level and
// returns its mixer index. Connections that would make the operator
// modulate itself are rejected with signal.ErrCycle.
func (op *Operator) AddModulator(n signal.Node, level float64) (int, error) {
	if err := signal.CheckEdge(op, n); err != nil {
		return 0, fmt.Errorf("fm: modulator: %w", err)
	}
	return op.mods.AddInput(n, level)
}

// SetModulatorLevel changes the level of modulator i.
func (op *Operator) SetModulatorLevel(i int, level float64) error {
	return op.mods.SetLevel(i, level)
}

// SetEnvelope replaces the envelope parameters.
func (op *Operator) SetEnvelope(p envelope.ADSR) error { return op.env.SetADSR(p) }

// SetGate replaces the envelope's trigger input.
func (op *Operator) SetGate(n signal.Node) error { return op.env.SetInput(n) }

// SetPitch attaches a semitone signal to the carrier. It adds to the
// vibrato input, if one is set. nil detaches it.
func (op *Operator) SetPitch(n signal.Node) error {
	op.pitchMu.Lock()
	defer op.pitchMu.Unlock()
	if err := op.applyPitch(n, op.vibrato); err != nil {
		return err
	}
	op.key = n
	return nil
}

// SetVibrato attaches a second semitone signal, typically an LFO, summed
// with the pitch input. nil detaches it.
func (op *Operator) SetVibrato(n signal.Node) error {
	op.pitchMu.Lock()
	defer op.pitchMu.Unlock()
	if err := op.applyPitch(op.key, n); err != nil {
		return err
	}
	op.vibrato = n
	return nil
}

func (op *Operator) applyPitch(key, vibrato signal.Node) error {
	switch {
	case vibrato == nil:
		return op.carrier.SetPitch(key)
	case key == nil:
		return op.carrier.SetPitch(vibrato)
	}
	sum := mixer.New()
	for _, n := range []signal.Node{key, vibrato} {
		if _, err := sum.AddInput(n, 1); err != nil {
			return fmt.Errorf("fm: pitch: %w", err)
		}
	}
	return op.carrier.SetPitch(sum)
}

// SetKeyboard drives the envelope from kb's gate and the carrier pitch from
// its key.
func (op *Operator) SetKeyboard(kb *keyboard.MonoKeyboard) error {
	if err := op.SetGate(kb.Gate()); err != nil {
		return err
	}
	return op.SetPitch(kb.Key())
}

// SetGain changes the output gain applied after the envelope.
func (op *Operator) SetGain(g float64) { op.amp.SetLevel(g) }

// Gain returns the output gain.
func (op *Operator) Gain() float64 { return op.amp.Level() }

func (op *Operator) Inputs() []signal.Node {
	return []signal.Node{op.carrier, op.mods, op.env}
}

func (op *Operator) Sample(t float64, f signal.Flags) (float64, error) {
	return op.amp.Sample(t, f)
}

func (op *Operator) Process(dst, ts []float64, f signal.Flags) error {
	return op.amp.Process(dst, ts, f)
}

func (op *Operator) offset(t float64, f signal.Flags) (float64, error) {
	if op.mods.Len() == 0 {
		return 0, nil
	}
	if op.params.Style == DirectPhase {
		m, err := op.mods.Sample(t, f)
		if err != nil {
			return 0, err
		}
		return m / op.params.Frequency, nil
	}
	return op.integral.Sample(t, f)
}

// offsets returns nil when the operator has no modulators.
func (op *Operator) offsets(ts []float64, f signal.Flags) ([]float64, error) {
	if op.mods.Len() == 0 {
		return nil, nil
	}
	buf := make([]float64, len(ts))
	if op.params.Style == DirectPhase {
		if err := op.mods.Process(buf, ts, f); err != nil {
			return nil, err
		}
		vecmath.ScaleBlockInPlace(buf, 1/op.params.Frequency)
		return buf, nil
	}
	if err := op.integral.Process(buf, ts, f); err != nil {
		return nil, err
	}
	return buf, nil
}

// modulated is the carrier evaluated at phase-shifted time, before the
// envelope.
type modulated struct {
	op *Operator
}

func (m modulated) Inputs() []signal.Node {
	return []signal.Node{m.op.carrier, m.op.mods}
}

func (m modulated) Sample(t float64, f signal.Flags) (float64, error) {
	off, err := m.op.offset(t, f)
	if err != nil {
		return 0, err
	}
	return m.op.carrier.SampleShifted(t, off, f)
}

func (m modulated) Process(dst, ts []float64, f signal.Flags) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return err
	}
	offs, err := m.op.offsets(ts, f)
	if err != nil {
		return err
	}
	return m.op.carrier.ProcessShifted(dst, ts, offs, f)
}
