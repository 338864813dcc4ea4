// Package fmgraph renders and plays compositional FM signal graphs.
package fmgraph

import (
	"fmt"

	"github.com/cbegin/fmgraph-go/internal/fm"
	"github.com/cbegin/fmgraph-go/internal/patch"
	"github.com/cbegin/fmgraph-go/internal/render"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

type (
	Node   = signal.Node
	Flags  = signal.Flags
	Config = signal.Config
)

var (
	ErrInvalidParameter = signal.ErrInvalidParameter
	ErrShapeMismatch    = signal.ErrShapeMismatch
	ErrUnsupportedMode  = signal.ErrUnsupportedMode
	ErrCycle            = signal.ErrCycle
	ErrNonFinite        = render.ErrNonFinite
)

func configFor(sampleRate int) (Config, error) {
	cfg := Config{SampleRate: float64(sampleRate)}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Render evaluates seconds of node from t=0 as mono samples.
func Render(node Node, sampleRate int, seconds float64) ([]float64, error) {
	cfg, err := configFor(sampleRate)
	if err != nil {
		return nil, err
	}
	return render.Render(node, cfg, seconds)
}

// RenderSamples renders node as interleaved stereo float32, the layout the
// audio backend consumes.
func RenderSamples(node Node, sampleRate int, seconds float64) ([]float32, error) {
	mono, err := Render(node, sampleRate, seconds)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(mono)*2)
	for i, v := range mono {
		out[2*i] = float32(v)
		out[2*i+1] = float32(v)
	}
	return out, nil
}

// LoadPatch builds the graph described by a JSON patch file, or by a preset
// when name matches one.
func LoadPatch(name string, sampleRate int) (*fm.Graph, error) {
	cfg, err := configFor(sampleRate)
	if err != nil {
		return nil, err
	}
	var p *patch.Patch
	if preset, ok := patch.Presets[name]; ok {
		p = preset()
	} else if p, err = patch.LoadFile(name); err != nil {
		return nil, err
	}
	g, err := p.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("fmgraph: %s: %w", name, err)
	}
	return g, nil
}
