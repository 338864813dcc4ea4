package effects

import "math"

// EQ3Band splits the signal with two one-pole filters and weights the low,
// mid and high parts.
type EQ3Band struct {
	low, mid, high float64
	lpAlpha        float64
	hpAlpha        float64
	lp, hp         float64
}

func onePole(sampleRate int, cutoff float64) float64 {
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / float64(sampleRate)
	return dt / (rc + dt)
}

// NewEQ3Band creates a 3-band EQ. Gains are linear; lowFreq and highFreq
// are the crossovers in Hz.
func NewEQ3Band(sampleRate int, low, mid, high, lowFreq, highFreq float64) *EQ3Band {
	return &EQ3Band{
		low: low, mid: mid, high: high,
		lpAlpha: onePole(sampleRate, lowFreq),
		hpAlpha: onePole(sampleRate, highFreq),
	}
}

func (eq *EQ3Band) Process(x float64) float64 {
	eq.lp += eq.lpAlpha * (x - eq.lp)
	eq.hp += eq.hpAlpha * (x - eq.hp)
	lo := eq.lp
	hi := x - eq.hp
	return lo*eq.low + (x-lo-hi)*eq.mid + hi*eq.high
}

func (eq *EQ3Band) Reset() { eq.lp, eq.hp = 0, 0 }
