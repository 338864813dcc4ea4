package lfo

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// Waveform constants.
const (
	WaveSaw      = 0
	WaveSquare   = 1
	WaveTriangle = 2
	WaveRandom   = 3
)

var waveNames = map[string]int{
	"saw":      WaveSaw,
	"square":   WaveSquare,
	"triangle": WaveTriangle,
	"random":   WaveRandom,
}

// ParseWaveform maps a waveform name to its constant. The empty name is
// triangle.
func ParseWaveform(name string) (int, error) {
	if name == "" {
		return WaveTriangle, nil
	}
	w, ok := waveNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("lfo: %w: unknown waveform %q", signal.ErrInvalidParameter, name)
	}
	return w, nil
}

type settings struct {
	depth    float64 // output units depend on the consumer: semitones for pitch
	rateHz   float64
	waveform int
	seed     float64
}

// LFO is a low-frequency modulation source. Unlike an audio oscillator its
// value is a pure function of time: the random waveform holds one value per
// cycle derived from the cycle index, so repeated evaluation is stable.
type LFO struct {
	s atomic.Pointer[settings]
}

// New returns an LFO producing values in [-depth, +depth].
func New(depth, rateHz float64, waveform int) (*LFO, error) {
	l := &LFO{}
	if err := l.Set(depth, rateHz, waveform); err != nil {
		return nil, err
	}
	return l, nil
}

// Set replaces the LFO parameters. Unknown waveforms fall back to triangle.
func (l *LFO) Set(depth, rateHz float64, waveform int) error {
	if rateHz < 0 || math.IsNaN(rateHz) || math.IsInf(rateHz, 0) {
		return fmt.Errorf("lfo: %w: rate must be >= 0: %v", signal.ErrInvalidParameter, rateHz)
	}
	if waveform < 0 || waveform > 3 {
		waveform = WaveTriangle
	}
	seed := 0.0
	if old := l.s.Load(); old != nil {
		seed = old.seed
	}
	l.s.Store(&settings{depth: depth, rateHz: rateHz, waveform: waveform, seed: seed})
	signal.Touch()
	return nil
}

// Active returns true if the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	s := l.s.Load()
	return s != nil && s.depth != 0 && s.rateHz != 0
}

func (l *LFO) Sample(t float64, _ signal.Flags) (float64, error) {
	return l.s.Load().value(t), nil
}

func (l *LFO) Process(dst, ts []float64, _ signal.Flags) error {
	if err := signal.CheckShape(dst, ts); err != nil {
		return err
	}
	s := l.s.Load()
	for i, t := range ts {
		dst[i] = s.value(t)
	}
	return nil
}

func (s *settings) value(t float64) float64 {
	if s.depth == 0 || s.rateHz == 0 {
		return 0
	}
	pos := s.rateHz * t
	n := math.Floor(pos)
	phase := pos - n

	var waveVal float64
	switch s.waveform {
	case WaveSaw:
		waveVal = 1.0 - 2.0*phase
	case WaveSquare:
		if phase < 0.5 {
			waveVal = 1.0
		} else {
			waveVal = -1.0
		}
	case WaveRandom:
		waveVal = held(n, s.seed)
	default: // WaveTriangle
		if phase < 0.5 {
			waveVal = 4.0*phase - 1.0
		} else {
			waveVal = 3.0 - 4.0*phase
		}
	}
	return waveVal * s.depth
}

// held hashes a cycle index to a value in [-1, 1).
func held(cycle, seed float64) float64 {
	v := math.Sin(cycle*12345.6789+seed*67890.1234) * 43758.5453
	v -= math.Floor(v)
	return v*2.0 - 1.0
}
