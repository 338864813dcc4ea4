// Package patch describes operator graphs as JSON documents and builds them
// into fm.Graph values.
package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cbegin/fmgraph-go/internal/envelope"
	"github.com/cbegin/fmgraph-go/internal/fm"
	"github.com/cbegin/fmgraph-go/internal/lfo"
	"github.com/cbegin/fmgraph-go/internal/mixer"
	"github.com/cbegin/fmgraph-go/internal/osc"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

// DefaultBaseFrequency is the frequency operator ratios multiply when a
// patch does not set one.
const DefaultBaseFrequency = 220.0

// Envelope is an ADSR in seconds, sustain as a level.
type Envelope struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

// Operator describes one FM operator. Exactly one of Ratio (times the base
// frequency) and Frequency (Hz) may be set; neither means ratio 1.
type Operator struct {
	Name       string    `json:"name,omitempty"`
	Ratio      float64   `json:"ratio,omitempty"`
	Frequency  float64   `json:"frequency,omitempty"`
	Level      *float64  `json:"level,omitempty"`
	Wave       string    `json:"wave,omitempty"`
	Style      string    `json:"style,omitempty"`
	PulseWidth float64   `json:"pulseWidth,omitempty"`
	Phase      float64   `json:"phase,omitempty"`
	Gain       *float64  `json:"gain,omitempty"`
	Envelope   *Envelope `json:"envelope,omitempty"`
	Vibrato    *Vibrato  `json:"vibrato,omitempty"`
}

// Vibrato is a pitch LFO: Depth semitones at Rate Hz.
type Vibrato struct {
	Depth float64 `json:"depth"`
	Rate  float64 `json:"rate"`
	Wave  string  `json:"wave,omitempty"`
}

func (v Vibrato) lfo() (*lfo.LFO, error) {
	if !finite(v.Depth) {
		return nil, invalid("vibrato depth %v", v.Depth)
	}
	w, err := lfo.ParseWaveform(v.Wave)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	l, err := lfo.New(v.Depth, v.Rate, w)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	return l, nil
}

// Connection routes operator From into the modulation mixer of operator To.
type Connection struct {
	From  int      `json:"from"`
	To    int      `json:"to"`
	Level *float64 `json:"level,omitempty"`
}

// Output routes an operator to the graph output.
type Output struct {
	Operator int     `json:"operator"`
	Level    float64 `json:"level"`
}

// Patch is a complete operator graph. Operators are addressed by index.
//
// Algorithm selects one of the fm.AlgorithmRoute topologies instead of
// explicit Connections and Outputs; ModIndex is then the level of every
// modulation edge. Without Outputs, operators that modulate nothing become
// carriers at fm.CarrierLevel.
type Patch struct {
	Name          string       `json:"name,omitempty"`
	BaseFrequency float64      `json:"baseFrequency,omitempty"`
	Style         string       `json:"style,omitempty"`
	Operators     []Operator   `json:"operators"`
	Connections   []Connection `json:"connections,omitempty"`
	Outputs       []Output     `json:"outputs,omitempty"`
	Algorithm     *int         `json:"algorithm,omitempty"`
	ModIndex      *float64     `json:"modIndex,omitempty"`
}

// Parse decodes a JSON patch and validates it. Unknown fields are errors.
func Parse(data []byte) (*Patch, error) {
	return Load(bytes.NewReader(data))
}

// Load reads a JSON patch from r and validates it.
func Load(r io.Reader) (*Patch, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var p Patch
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("patch: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile is Load for a file path.
func LoadFile(path string) (*Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("patch: %w: %s", signal.ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks the patch without building it. Cycles are only detected
// by Build.
func (p *Patch) Validate() error {
	n := len(p.Operators)
	if n == 0 {
		return invalid("no operators")
	}
	if p.BaseFrequency < 0 || !finite(p.BaseFrequency) {
		return invalid("base frequency %v", p.BaseFrequency)
	}
	if _, err := p.style(""); err != nil {
		return err
	}
	for i, op := range p.Operators {
		if _, err := p.params(op); err != nil {
			return fmt.Errorf("operator %d: %w", i, err)
		}
		if op.Envelope != nil {
			if err := op.Envelope.adsr().Validate(); err != nil {
				return fmt.Errorf("patch: operator %d: %w", i, err)
			}
		}
		if op.Vibrato != nil {
			if _, err := op.Vibrato.lfo(); err != nil {
				return fmt.Errorf("operator %d: %w", i, err)
			}
		}
		if op.Gain != nil && !finite(*op.Gain) {
			return invalid("operator %d: gain %v", i, *op.Gain)
		}
	}
	if p.ModIndex != nil && !finite(*p.ModIndex) {
		return invalid("mod index %v", *p.ModIndex)
	}
	if p.Algorithm != nil {
		if len(p.Connections) > 0 || len(p.Outputs) > 0 {
			return invalid("algorithm excludes connections and outputs")
		}
		if _, err := fm.AlgorithmRoute(n, *p.Algorithm); err != nil {
			return fmt.Errorf("patch: %w", err)
		}
		return nil
	}
	for i, c := range p.Connections {
		if c.From < 0 || c.From >= n || c.To < 0 || c.To >= n {
			return invalid("connection %d: %d -> %d outside [0, %d)", i, c.From, c.To, n)
		}
		if c.Level != nil && !finite(*c.Level) {
			return invalid("connection %d: level %v", i, *c.Level)
		}
	}
	for i, o := range p.Outputs {
		if o.Operator < 0 || o.Operator >= n {
			return invalid("output %d: operator %d outside [0, %d)", i, o.Operator, n)
		}
		if !finite(o.Level) {
			return invalid("output %d: level %v", i, o.Level)
		}
	}
	return nil
}

func (e Envelope) adsr() envelope.ADSR {
	return envelope.ADSR{Attack: e.Attack, Decay: e.Decay, Sustain: e.Sustain, Release: e.Release}
}

func (p *Patch) style(name string) (fm.Style, error) {
	if name == "" {
		name = p.Style
	}
	if name == "" {
		return fm.LinearFM, nil
	}
	s, err := fm.ParseStyle(name)
	if err != nil {
		return 0, fmt.Errorf("patch: %w", err)
	}
	return s, nil
}

func (p *Patch) base() float64 {
	if p.BaseFrequency == 0 {
		return DefaultBaseFrequency
	}
	return p.BaseFrequency
}

func (p *Patch) params(op Operator) (fm.Params, error) {
	out := fm.DefaultParams()
	switch {
	case op.Ratio != 0 && op.Frequency != 0:
		return out, invalid("both ratio and frequency set")
	case op.Frequency != 0:
		out.Frequency = op.Frequency
	case op.Ratio != 0:
		out.Frequency = op.Ratio * p.base()
	default:
		out.Frequency = p.base()
	}
	if out.Frequency <= 0 || !finite(out.Frequency) {
		return out, invalid("frequency %v", out.Frequency)
	}
	if op.Level != nil {
		out.Level = *op.Level
	}
	if op.Wave != "" {
		k, err := osc.ParseKind(op.Wave)
		if err != nil {
			return out, fmt.Errorf("patch: %w", err)
		}
		out.Wave = k
	}
	if op.PulseWidth != 0 {
		out.PulseWidth = op.PulseWidth
	}
	out.Phase = op.Phase
	s, err := p.style(op.Style)
	if err != nil {
		return out, err
	}
	out.Style = s
	return out, nil
}

// Route returns the topology of the patch and, when Outputs are explicit,
// the output level of each carrier.
func (p *Patch) Route() (fm.Route, []float64, error) {
	n := len(p.Operators)
	if p.Algorithm != nil {
		r, err := fm.AlgorithmRoute(n, *p.Algorithm)
		if err != nil {
			return fm.Route{}, nil, fmt.Errorf("patch: %w", err)
		}
		return r, nil, nil
	}
	var r fm.Route
	modulates := make([]bool, n)
	for _, c := range p.Connections {
		r.Edges = append(r.Edges, fm.Edge{Mod: c.From, Carrier: c.To})
		modulates[c.From] = true
	}
	var levels []float64
	if len(p.Outputs) > 0 {
		for _, o := range p.Outputs {
			r.Carriers = append(r.Carriers, o.Operator)
			levels = append(levels, o.Level)
		}
		return r, levels, nil
	}
	for i := range p.Operators {
		if !modulates[i] {
			r.Carriers = append(r.Carriers, i)
		}
	}
	return r, nil, nil
}

func (p *Patch) modIndex() float64 {
	if p.ModIndex == nil {
		return 1
	}
	return *p.ModIndex
}

// Build creates the operator graph. opts configure its output mixer.
func (p *Patch) Build(cfg signal.Config, opts ...mixer.Option) (*fm.Graph, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := fm.NewGraph(cfg, opts...)
	if err != nil {
		return nil, err
	}
	ids := make([]fm.ID, len(p.Operators))
	for i, spec := range p.Operators {
		params, err := p.params(spec)
		if err != nil {
			return nil, fmt.Errorf("operator %d: %w", i, err)
		}
		if ids[i], err = g.Add(params); err != nil {
			return nil, fmt.Errorf("patch: operator %d: %w", i, err)
		}
		op, _ := g.Operator(ids[i])
		if spec.Envelope != nil {
			if err := op.SetEnvelope(spec.Envelope.adsr()); err != nil {
				return nil, fmt.Errorf("patch: operator %d: %w", i, err)
			}
		}
		if spec.Gain != nil {
			op.SetGain(*spec.Gain)
		}
		if spec.Vibrato != nil {
			l, err := spec.Vibrato.lfo()
			if err != nil {
				return nil, fmt.Errorf("operator %d: %w", i, err)
			}
			if err := op.SetVibrato(l); err != nil {
				return nil, fmt.Errorf("patch: operator %d: %w", i, err)
			}
		}
	}
	r, levels, err := p.Route()
	if err != nil {
		return nil, err
	}
	if p.Algorithm != nil {
		if err := g.ApplyRoute(ids, r, p.modIndex()); err != nil {
			return nil, fmt.Errorf("patch: %w", err)
		}
		return g, nil
	}
	for _, c := range p.Connections {
		level := p.modIndex()
		if c.Level != nil {
			level = *c.Level
		}
		if err := g.Connect(ids[c.From], ids[c.To], level); err != nil {
			return nil, fmt.Errorf("patch: %w", err)
		}
	}
	for i, c := range r.Carriers {
		level := fm.CarrierLevel(len(r.Carriers))
		if levels != nil {
			level = levels[i]
		}
		if _, err := g.AddOutput(ids[c], level); err != nil {
			return nil, fmt.Errorf("patch: %w", err)
		}
	}
	return g, nil
}
