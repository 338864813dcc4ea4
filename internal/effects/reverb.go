package effects

// Reverb is a Schroeder reverb: four parallel combs into two allpasses.
type Reverb struct {
	combs   [4]delayLine
	allpass [2]delayLine
	wet     float64
}

type delayLine struct {
	buf []float64
	pos int
	fb  float64
}

func newDelayLine(n int, fb float64) delayLine {
	return delayLine{buf: make([]float64, max(n, 1)), fb: fb}
}

func (d *delayLine) advance() {
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
	}
}

func (d *delayLine) comb(x float64) float64 {
	y := d.buf[d.pos]
	d.buf[d.pos] = x + y*d.fb
	d.advance()
	return y
}

func (d *delayLine) allpassStep(x float64) float64 {
	y := d.buf[d.pos]
	d.buf[d.pos] = x + y*d.fb
	d.advance()
	return y - x
}

// NewReverb creates a reverb. roomSize (0-1) scales the delay lengths,
// feedback (clamped to 0.95) sets the decay and wet the mix.
func NewReverb(sampleRate int, roomSize, feedback, wet float64) *Reverb {
	base := max(int(float64(sampleRate)*roomSize*0.05), 10)
	fb := clamp(feedback, 0, 0.95)
	r := &Reverb{wet: clamp(wet, 0, 1)}
	for i, ratio := range [4]int{1000, 1117, 1271, 1437} {
		r.combs[i] = newDelayLine(base*ratio/1000, fb)
	}
	for i, ratio := range [2]int{347, 213} {
		r.allpass[i] = newDelayLine(base*ratio/1000, 0.5)
	}
	return r
}

func (r *Reverb) Process(x float64) float64 {
	var y float64
	for i := range r.combs {
		y += r.combs[i].comb(x)
	}
	y *= 0.25
	for i := range r.allpass {
		y = r.allpass[i].allpassStep(y)
	}
	return x*(1-r.wet) + y*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}
