package effects

import (
	"math"
	"sync/atomic"
)

// Crossovers are the EQ5Band split points in Hz.
var Crossovers = [4]float64{200, 800, 2500, 8000}

// EQ5Band is a master EQ whose band gains may be changed from another
// goroutine while audio is processed.
type EQ5Band struct {
	gains  [5]atomic.Uint64 // float64 bits; 1 is unity
	alphas [4]float64
	lp     [4]float64
}

// NewEQ5Band creates a 5-band EQ with all gains at unity.
func NewEQ5Band(sampleRate int) *EQ5Band {
	eq := &EQ5Band{}
	for i, f := range Crossovers {
		eq.alphas[i] = onePole(sampleRate, f)
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float64bits(1))
	}
	return eq
}

// SetGain sets the linear gain of band 0-4. Other bands are ignored.
func (eq *EQ5Band) SetGain(band int, gain float64) {
	if band >= 0 && band < len(eq.gains) {
		eq.gains[band].Store(math.Float64bits(gain))
	}
}

// Gain returns the gain of band 0-4, or 1 for other bands.
func (eq *EQ5Band) Gain(band int) float64 {
	if band >= 0 && band < len(eq.gains) {
		return math.Float64frombits(eq.gains[band].Load())
	}
	return 1
}

func (eq *EQ5Band) Process(x float64) float64 {
	var out float64
	rem := x
	for i := range eq.lp {
		eq.lp[i] += eq.alphas[i] * (rem - eq.lp[i])
		out += eq.lp[i] * eq.Gain(i)
		rem -= eq.lp[i]
	}
	return out + rem*eq.Gain(4)
}

func (eq *EQ5Band) Reset() { eq.lp = [4]float64{} }
