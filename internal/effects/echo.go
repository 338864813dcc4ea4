package effects

// Echo is a feedback delay line mixed with the dry signal.
type Echo struct {
	buf      []float64
	pos      int
	feedback float64
	wet      float64
}

// NewEcho creates an echo. feedback is clamped to [0, 0.95] and wet to
// [0, 1].
func NewEcho(sampleRate int, delayMs, feedback, wet float64) *Echo {
	n := max(int(delayMs*float64(sampleRate)/1000), 1)
	return &Echo{
		buf:      make([]float64, n),
		feedback: clamp(feedback, 0, 0.95),
		wet:      clamp(wet, 0, 1),
	}
}

func (e *Echo) Process(x float64) float64 {
	d := e.buf[e.pos]
	e.buf[e.pos] = x + d*e.feedback
	e.pos++
	if e.pos == len(e.buf) {
		e.pos = 0
	}
	return x*(1-e.wet) + d*e.wet
}

func (e *Echo) Reset() {
	clear(e.buf)
	e.pos = 0
}
