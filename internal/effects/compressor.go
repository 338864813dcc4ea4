package effects

import "math"

// Compressor reduces gain above a threshold using a peak envelope follower.
type Compressor struct {
	threshold float64 // linear
	ratio     float64
	attack    float64 // follower coefficients
	release   float64
	makeup    float64
	env       float64
}

// NewCompressor creates a compressor. thresholdDB and makeupDB are in dB,
// attack and release in milliseconds.
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	sr := float64(sampleRate)
	coeff := func(ms float64) float64 { return 1 - math.Exp(-1/(ms*sr/1000)) }
	return &Compressor{
		threshold: dbToLinear(thresholdDB),
		ratio:     math.Max(ratio, 1),
		attack:    coeff(attackMs),
		release:   coeff(releaseMs),
		makeup:    dbToLinear(makeupDB),
	}
}

func dbToLinear(db float64) float64 { return math.Pow(10, db/20) }

func (c *Compressor) Process(x float64) float64 {
	a := math.Abs(x)
	if a > c.env {
		c.env += c.attack * (a - c.env)
	} else {
		c.env += c.release * (a - c.env)
	}
	return x * c.gain() * c.makeup
}

func (c *Compressor) gain() float64 {
	if c.env <= c.threshold {
		return 1
	}
	return math.Pow(c.env/c.threshold, 1/c.ratio-1)
}

func (c *Compressor) Reset() { c.env = 0 }
