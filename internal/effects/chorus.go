package effects

import (
	"fmt"

	"github.com/cbegin/fmgraph-go/internal/osc"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

// Chorus is a delay line whose read point is swept by a sine oscillator.
// Short delays with feedback give a flanger.
type Chorus struct {
	buf      []float64
	pos      int
	n        int64 // samples processed, the sweep clock
	rate     float64
	sweep    *osc.Oscillator
	feedback float64
	wet      float64
}

// NewChorus creates a chorus. Times are in milliseconds, rateHz is the sweep
// frequency.
func NewChorus(sampleRate int, delayMs, feedback, depthMs, rateHz, wet float64) (*Chorus, error) {
	sr := float64(sampleRate)
	base := int(delayMs * sr / 1000)
	depth := depthMs * sr / 1000
	size := max(base+int(depth)+2, 4)
	sweep, err := osc.New(osc.Params{Kind: osc.Sine, Frequency: rateHz, Amplitude: depth, PulseWidth: 0.5})
	if err != nil {
		return nil, fmt.Errorf("effects: chorus: %w", err)
	}
	return &Chorus{
		buf:      make([]float64, size),
		rate:     sr,
		sweep:    sweep,
		feedback: clamp(feedback, 0, 0.9),
		wet:      clamp(wet, 0, 1),
	}, nil
}

func (c *Chorus) Process(x float64) float64 {
	// The sweep has no pitch input, so it cannot fail.
	mod, _ := c.sweep.Sample(float64(c.n)/c.rate, signal.Flags{})
	c.n++
	c.buf[c.pos] = x

	size := len(c.buf)
	read := float64(c.pos) - (float64(size/2) + mod)
	for read < 0 {
		read += float64(size)
	}
	i := int(read)
	frac := read - float64(i)
	j := i + 1
	if j >= size {
		j = 0
	}
	d := c.buf[i]*(1-frac) + c.buf[j]*frac
	c.buf[c.pos] += d * c.feedback

	c.pos++
	if c.pos >= size {
		c.pos = 0
	}
	return x*(1-c.wet) + d*c.wet
}

func (c *Chorus) Reset() {
	clear(c.buf)
	c.pos = 0
	c.n = 0
}
