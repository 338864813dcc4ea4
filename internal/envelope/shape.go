package envelope

import (
	"fmt"
	"math"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// Shape defines the envelope curve around one held interval.
type Shape interface {
	// BeforeRelease is the value dt seconds after a press that has not
	// been released.
	BeforeRelease(dt float64) float64
	// AfterRelease is the value dt seconds after a release from level 1.
	// The engine scales it by the level reached at the release.
	AfterRelease(dt float64) float64
}

// Hold is 1 while the trigger is held and 0 after release.
type Hold struct{}

func (Hold) BeforeRelease(dt float64) float64 {
	if dt < 0 {
		return 0
	}
	return 1
}

func (Hold) AfterRelease(float64) float64 { return 0 }

// ADSR is a linear attack/decay/sustain/release shape. Durations are in
// seconds. Sustain is used as given, values outside [0, 1] included.
type ADSR struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultADSR is an organ-style gate follower: instant attack, full sustain,
// instant release.
func DefaultADSR() ADSR {
	return ADSR{Sustain: 1}
}

// Validate rejects negative or non-finite durations.
func (p ADSR) Validate() error {
	for _, d := range []struct {
		name string
		v    float64
	}{{"attack", p.Attack}, {"decay", p.Decay}, {"release", p.Release}} {
		if d.v < 0 || math.IsNaN(d.v) || math.IsInf(d.v, 0) {
			return fmt.Errorf("envelope: %w: %s must be >= 0: %v", signal.ErrInvalidParameter, d.name, d.v)
		}
	}
	if math.IsNaN(p.Sustain) || math.IsInf(p.Sustain, 0) {
		return fmt.Errorf("envelope: %w: sustain is not finite: %v", signal.ErrInvalidParameter, p.Sustain)
	}
	return nil
}

func (p ADSR) BeforeRelease(dt float64) float64 {
	switch {
	case dt < 0:
		return 0
	case dt < p.Attack:
		return dt / p.Attack
	case dt < p.Attack+p.Decay:
		return 1 + (p.Sustain-1)*(dt-p.Attack)/p.Decay
	default:
		return p.Sustain
	}
}

func (p ADSR) AfterRelease(dt float64) float64 {
	switch {
	case dt < 0:
		return 1
	case dt < p.Release:
		return 1 - dt/p.Release
	default:
		return 0
	}
}
