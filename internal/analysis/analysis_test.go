package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/fmgraph-go/internal/fm"
	"github.com/cbegin/fmgraph-go/internal/osc"
	"github.com/cbegin/fmgraph-go/internal/signal"
	"github.com/cbegin/fmgraph-go/internal/testutil"
)

var cfg = signal.NewConfig(signal.WithSampleRate(8000))

func TestDominantFrequencyOfSine(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		n    int
	}{
		{"on bin", 1000, 4096},
		{"between bins", 440, 4096},
		{"padded", 330, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := osc.New(osc.Params{Kind: osc.Sine, Frequency: tt.freq, Amplitude: 0.5, PulseWidth: 0.5})
			if err != nil {
				t.Fatal(err)
			}
			s, err := NodeSpectrum(o, cfg, 0, tt.n)
			if err != nil {
				t.Fatal(err)
			}
			if s.Size != 4096 || len(s.Magnitude) != 2049 {
				t.Fatalf("size = %d, bins = %d", s.Size, len(s.Magnitude))
			}
			f, mag := s.Peak(0)
			testutil.RequireNearlyEqual(t, "frequency", f, tt.freq, 1)
			testutil.RequireNearlyEqual(t, "magnitude", mag, 0.5, 0.05)
		})
	}
}

func TestDCComponent(t *testing.T) {
	buf := make([]float64, 256)
	signal.Fill(buf, 0.3)
	s, err := Compute(buf, 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, "dc", s.Magnitude[0], 0.3, 1e-9)
}

func TestLinearFMShiftsPitch(t *testing.T) {
	p := fm.DefaultParams()
	p.Frequency = 200
	op, err := fm.NewOperator(cfg, p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := op.AddModulator(signal.NewConst(0.5), 1); err != nil {
		t.Fatal(err)
	}
	buf, err := signal.Eval(op, signal.Grid(0, 4096, cfg.SampleRate), signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	f, err := DominantFrequency(buf, cfg.SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, "frequency", f, 300, 1)
}

func TestPeakRespectsMinimum(t *testing.T) {
	ts := signal.Grid(0, 2048, cfg.SampleRate)
	buf := make([]float64, len(ts))
	for i, x := range ts {
		buf[i] = math.Sin(2*math.Pi*100*x) + 0.25*math.Sin(2*math.Pi*1500*x)
	}
	s, err := Compute(buf, cfg.SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	f, _ := s.Peak(0)
	testutil.RequireNearlyEqual(t, "strongest", f, 100, 2)
	f, _ = s.Peak(500)
	testutil.RequireNearlyEqual(t, "above 500 Hz", f, 1500, 2)
}

func TestComputeRejectsBadInput(t *testing.T) {
	if _, err := Compute([]float64{1}, 8000); !errors.Is(err, signal.ErrInvalidParameter) {
		t.Fatalf("short buffer err = %v", err)
	}
	if _, err := Compute(make([]float64, 8), 0); !errors.Is(err, signal.ErrInvalidParameter) {
		t.Fatalf("zero rate err = %v", err)
	}
}
