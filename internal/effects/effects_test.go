package effects

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

func TestEchoRepeatsImpulse(t *testing.T) {
	e := NewEcho(1000, 10, 0.5, 0.5)
	if got := e.Process(1); got != 0.5 {
		t.Fatalf("dry = %v, want 0.5", got)
	}
	for i := 1; i < 10; i++ {
		if got := e.Process(0); got != 0 {
			t.Fatalf("sample %d = %v before the echo", i, got)
		}
	}
	if got := e.Process(0); got != 0.5 {
		t.Fatalf("first echo = %v, want 0.5", got)
	}
	for i := 1; i < 10; i++ {
		e.Process(0)
	}
	if got := e.Process(0); got != 0.25 {
		t.Fatalf("second echo = %v, want 0.25", got)
	}
	e.Reset()
	for i := 0; i < 30; i++ {
		if got := e.Process(0); got != 0 {
			t.Fatalf("after Reset sample %d = %v", i, got)
		}
	}
}

func TestReverbProducesTail(t *testing.T) {
	r := NewReverb(44100, 0.5, 0.7, 0.5)
	r.Process(1)
	var peak float64
	for i := 0; i < 10000; i++ {
		peak = math.Max(peak, math.Abs(r.Process(0)))
	}
	if peak < 0.001 {
		t.Fatalf("tail peak = %v, want a reverb tail", peak)
	}
}

func TestSaturatorBounds(t *testing.T) {
	l := NewLimiter(44100)
	for _, x := range []float64{-10, -1, 0.5, 3, 8} {
		y := l.Process(x)
		if math.Abs(y) >= 1 || math.Signbit(y) != math.Signbit(x) {
			t.Errorf("Process(%v) = %v", x, y)
		}
	}
	s := NewSaturator(44100, 10, 0.5, 2000)
	var y float64
	for i := 0; i < 1000; i++ {
		y = s.Process(0.5)
	}
	if math.Abs(y-0.5*math.Tanh(5)) > 1e-6 {
		t.Fatalf("settled output = %v", y)
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	var out float64
	for i := 0; i < 1000; i++ {
		out = c.Process(1)
	}
	if out >= 1 || out < dbToLinear(-10) {
		t.Fatalf("compressed = %v", out)
	}
	quiet := NewCompressor(44100, -10, 4, 1, 50, 0)
	if got := quiet.Process(0.1); got != 0.1 {
		t.Fatalf("below threshold = %v, want 0.1", got)
	}
}

func TestEQsAreTransparentAtUnity(t *testing.T) {
	for _, e := range []Effector{NewEQ3Band(44100, 1, 1, 1, 300, 3000), NewEQ5Band(44100)} {
		for i := 0; i < 100; i++ {
			x := math.Sin(float64(i))
			if got := e.Process(x); math.Abs(got-x) > 1e-12 {
				t.Fatalf("%T: Process(%v) = %v", e, x, got)
			}
		}
	}
}

func TestEQ5BandGain(t *testing.T) {
	eq := NewEQ5Band(44100)
	for b := range 5 {
		eq.SetGain(b, 0.5)
	}
	eq.SetGain(9, 3)
	if eq.Gain(9) != 1 || eq.Gain(2) != 0.5 {
		t.Fatalf("gains = %v, %v", eq.Gain(9), eq.Gain(2))
	}
	if got := eq.Process(0.8); math.Abs(got-0.4) > 1e-12 {
		t.Fatalf("half gain = %v, want 0.4", got)
	}
}

func TestChorusDelaysSignal(t *testing.T) {
	c, err := NewChorus(8000, 10, 0, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Process(1); got != 0 {
		t.Fatalf("fully wet first sample = %v, want 0", got)
	}
	var peak float64
	for i := 0; i < 200; i++ {
		peak = math.Max(peak, c.Process(0))
	}
	if peak < 0.1 {
		t.Fatalf("delayed peak = %v", peak)
	}
	if _, err := NewChorus(8000, 10, 0, 2, -1, 1); !errors.Is(err, signal.ErrInvalidParameter) {
		t.Fatalf("negative rate err = %v", err)
	}
}

func TestChainAndParse(t *testing.T) {
	c, err := ParseChain("compressor -12,4; echo 100, 0.2;;reverb;chorus;saturate 1.5,0.8,0;eq 1.2,1,0.8; limiter", 44100)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 7 {
		t.Fatalf("Len = %d, want 7", c.Len())
	}
	buf := []float64{0.5, -0.5, 0.25}
	c.ProcessBlock(buf)
	for _, v := range buf {
		if math.IsNaN(v) || math.Abs(v) >= 1 {
			t.Fatalf("chain output %v", buf)
		}
	}
	c.Reset()

	e, err := Parse("echo 10,0.5,1", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if echo, ok := e.(*Echo); !ok || len(echo.buf) != 10 || echo.wet != 1 {
		t.Fatalf("Parse = %#v", e)
	}
	for _, bad := range []string{"echo;flange", "echo 1,x"} {
		if _, err := ParseChain(bad, 44100); !errors.Is(err, signal.ErrInvalidParameter) {
			t.Fatalf("ParseChain(%q) err = %v", bad, err)
		}
	}
	empty, err := ParseChain("", 44100)
	if err != nil || empty.Len() != 0 {
		t.Fatalf("empty chain = %v, %v", empty, err)
	}
	same := []float64{0.3}
	empty.ProcessBlock(same)
	if same[0] != 0.3 {
		t.Fatalf("empty chain changed %v", same)
	}
}
