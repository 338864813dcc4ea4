package effects

import "math"

// Saturator soft-clips with tanh between a drive and an output gain, then
// optionally smooths with a one-pole lowpass. With drive 1 and output 1 it
// works as a gentle limiter that keeps samples inside (-1, 1).
type Saturator struct {
	drive    float64
	output   float64
	lpfAlpha float64
	lpf      float64
}

// NewSaturator creates a saturator. lpfCutoff is in Hz; 0 disables the
// filter.
func NewSaturator(sampleRate int, drive, output, lpfCutoff float64) *Saturator {
	s := &Saturator{drive: drive, output: output}
	if lpfCutoff > 0 && lpfCutoff < float64(sampleRate)/2 {
		rc := 1 / (2 * math.Pi * lpfCutoff)
		dt := 1 / float64(sampleRate)
		s.lpfAlpha = dt / (rc + dt)
	}
	return s
}

// NewLimiter returns a unity saturator.
func NewLimiter(sampleRate int) *Saturator { return NewSaturator(sampleRate, 1, 1, 0) }

func (s *Saturator) Process(x float64) float64 {
	y := s.output * math.Tanh(s.drive*x)
	if s.lpfAlpha > 0 {
		s.lpf += s.lpfAlpha * (y - s.lpf)
		y = s.lpf
	}
	return y
}

func (s *Saturator) Reset() { s.lpf = 0 }
