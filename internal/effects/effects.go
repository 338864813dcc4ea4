// Package effects implements mono post-render processors for the playback
// path. Effects run sample by sample and keep state between calls.
package effects

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// Effector processes one mono sample at a time.
type Effector interface {
	Process(x float64) float64
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(x float64) float64 {
	for _, e := range c.effects {
		x = e.Process(x)
	}
	return x
}

// ProcessBlock runs buf through the chain in place.
func (c *Chain) ProcessBlock(buf []float64) {
	if len(c.effects) == 0 {
		return
	}
	for i, x := range buf {
		buf[i] = c.Process(x)
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

// Len returns the number of effects.
func (c *Chain) Len() int { return len(c.effects) }

// Parse builds one effect from "type p1,p2,...". Missing parameters take
// stock values. Types and parameters:
//
//	echo       delay ms, feedback, wet
//	reverb     room size, feedback, wet
//	chorus     delay ms, feedback, depth ms, rate Hz, wet
//	compressor threshold dB, ratio, attack ms, release ms, makeup dB
//	saturate   drive, output, lowpass Hz
//	limiter    (none)
//	eq         low, mid, high gain, low Hz, high Hz
func Parse(spec string, sampleRate int) (Effector, error) {
	fields := strings.SplitN(strings.TrimSpace(spec), " ", 2)
	kind := strings.ToLower(fields[0])
	var params []float64
	if len(fields) > 1 {
		for _, raw := range strings.Split(fields[1], ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("effects: %w: %s parameter %q", signal.ErrInvalidParameter, kind, raw)
			}
			params = append(params, v)
		}
	}
	p := func(i int, def float64) float64 {
		if i < len(params) {
			return params[i]
		}
		return def
	}
	switch kind {
	case "echo", "delay":
		return NewEcho(sampleRate, p(0, 250), p(1, 0.35), p(2, 0.3)), nil
	case "reverb":
		return NewReverb(sampleRate, p(0, 0.5), p(1, 0.7), p(2, 0.25)), nil
	case "chorus":
		return NewChorus(sampleRate, p(0, 15), p(1, 0.3), p(2, 3), p(3, 1.5), p(4, 0.4))
	case "comp", "compressor":
		return NewCompressor(sampleRate, p(0, -20), p(1, 4), p(2, 5), p(3, 100), p(4, 6)), nil
	case "saturate", "dist", "distortion":
		return NewSaturator(sampleRate, p(0, 4), p(1, 0.5), p(2, 8000)), nil
	case "limiter":
		return NewLimiter(sampleRate), nil
	case "eq":
		return NewEQ3Band(sampleRate, p(0, 1), p(1, 1), p(2, 1), p(3, 300), p(4, 3000)), nil
	}
	return nil, fmt.Errorf("effects: %w: unknown effect %q", signal.ErrInvalidParameter, kind)
}

// ParseChain builds a chain from effect specs separated by semicolons, for
// example "echo 300,0.4; reverb". The empty string is an empty chain.
func ParseChain(list string, sampleRate int) (*Chain, error) {
	c := NewChain()
	for _, spec := range strings.Split(list, ";") {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		e, err := Parse(spec, sampleRate)
		if err != nil {
			return nil, err
		}
		c.Add(e)
	}
	return c, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
