package osc

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/fmgraph-go/internal/signal"
	"github.com/cbegin/fmgraph-go/internal/testutil"
)

func mustNew(t *testing.T, p Params) *Oscillator {
	t.Helper()
	o, err := New(p)
	if err != nil {
		t.Fatalf("New(%+v): %v", p, err)
	}
	return o
}

func TestRejectsInvalidParams(t *testing.T) {
	for _, tc := range []struct {
		name string
		edit func(*Params)
	}{
		{"zero frequency", func(p *Params) { p.Frequency = 0 }},
		{"negative frequency", func(p *Params) { p.Frequency = -10 }},
		{"nan frequency", func(p *Params) { p.Frequency = math.NaN() }},
		{"square pw 0", func(p *Params) { p.Kind, p.PulseWidth = Square, 0 }},
		{"square pw 1", func(p *Params) { p.Kind, p.PulseWidth = Square, 1 }},
		{"triangle pw 0", func(p *Params) { p.Kind, p.PulseWidth = Triangle, 0 }},
		{"triangle pw 1", func(p *Params) { p.Kind, p.PulseWidth = Triangle, 1 }},
		{"unknown kind", func(p *Params) { p.Kind = Kind(42) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.edit(&p)
			if _, err := New(p); !errors.Is(err, signal.ErrInvalidParameter) {
				t.Fatalf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestPulseWidthIgnoredForSine(t *testing.T) {
	p := DefaultParams()
	p.PulseWidth = 0
	mustNew(t, p)
}

func TestSquareHalfDutyMatchesSignOfSine(t *testing.T) {
	p := Params{Kind: Square, Frequency: 110, Amplitude: 1, Phase: 0.3, PulseWidth: 0.5}
	o := mustNew(t, p)
	ts := signal.Linspace(0.0001, 0.05, 997)
	got, err := signal.Eval(o, ts, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	for i, ti := range ts {
		s := math.Sin(twoPi*p.Frequency*ti + p.Phase)
		if math.Abs(s) < 1e-6 {
			continue
		}
		want := 1.0
		if s < 0 {
			want = -1
		}
		if got[i] != want {
			t.Fatalf("t=%v: square = %v, want %v", ti, got[i], want)
		}
	}
}

func TestWaveShapes(t *testing.T) {
	const f = 1.0
	for _, tc := range []struct {
		kind Kind
		pw   float64
		t    float64
		want float64
	}{
		{Sine, 0.5, 0.25, 1},
		{Saw, 0.5, 0, 1},
		{Saw, 0.5, 0.5, 0},
		{Saw, 0.5, 0.75, -0.5},
		{Ramp, 0.5, 0, -1},
		{Ramp, 0.5, 0.75, 0.5},
		{Triangle, 0.5, 0, -1},
		{Triangle, 0.5, 0.25, 0},
		{Triangle, 0.5, 0.5, 1},
		{Triangle, 0.25, 0.25, 1},
		{Triangle, 0.25, 0.625, 0},
		{Square, 0.25, 0.2, 1},
		{Square, 0.25, 0.3, -1},
	} {
		o := mustNew(t, Params{Kind: tc.kind, Frequency: f, Amplitude: 2, PulseWidth: tc.pw})
		got, err := o.Sample(tc.t, signal.Flags{})
		if err != nil {
			t.Fatal(err)
		}
		testutil.RequireNearlyEqual(t, tc.kind.String(), got, 2*tc.want, 1e-9)
	}
}

func TestProcessMatchesSample(t *testing.T) {
	ts := signal.Grid(0, 256, 8000)
	for k := Sine; k <= Triangle; k++ {
		o := mustNew(t, Params{Kind: k, Frequency: 220, Amplitude: 0.8, Phase: 1, PulseWidth: 0.3})
		testutil.RequireSampleParity(t, o, ts, signal.Flags{}, 1e-12)
	}
}

func TestPitchInputScalesFrequency(t *testing.T) {
	base := mustNew(t, Params{Kind: Sine, Frequency: 100, Amplitude: 1})
	octave := mustNew(t, Params{Kind: Sine, Frequency: 200, Amplitude: 1})
	if err := base.SetPitch(signal.NewConst(12)); err != nil {
		t.Fatal(err)
	}
	ts := signal.Grid(0, 128, 8000)
	got, _ := signal.Eval(base, ts, signal.Flags{})
	want, _ := signal.Eval(octave, ts, signal.Flags{})
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-9)
	testutil.RequireSampleParity(t, base, ts, signal.Flags{}, 1e-12)

	// Ignoring modulation renders the bare carrier shape.
	bare := mustNew(t, Params{Kind: Sine, Frequency: 100, Amplitude: 1})
	got, _ = signal.Eval(base, ts, signal.Flags{IgnoreMod: true})
	want, _ = signal.Eval(bare, ts, signal.Flags{})
	testutil.RequireSliceNearlyEqual(t, got, want, 0)
}

func TestSetPitchRejectsSelf(t *testing.T) {
	o := mustNew(t, DefaultParams())
	if err := o.SetPitch(o); !errors.Is(err, signal.ErrCycle) {
		t.Fatalf("SetPitch(self) = %v, want ErrCycle", err)
	}
	if err := o.SetPitch(nil); err != nil || o.Pitch() != nil {
		t.Fatalf("SetPitch(nil) = %v, pitch %v", err, o.Pitch())
	}
}

func TestShiftedEvaluation(t *testing.T) {
	o := mustNew(t, Params{Kind: Saw, Frequency: 3, Amplitude: 1})
	ts := []float64{0, 0.1, 0.2}
	offsets := []float64{0.05, -0.02, 0}
	dst := make([]float64, 3)
	if err := o.ProcessShifted(dst, ts, offsets, signal.Flags{}); err != nil {
		t.Fatal(err)
	}
	for i := range ts {
		want, _ := o.Sample(ts[i]+offsets[i], signal.Flags{})
		testutil.RequireNearlyEqual(t, "shifted", dst[i], want, 1e-12)
	}
	if err := o.ProcessShifted(dst, ts, offsets[:2], signal.Flags{}); !errors.Is(err, signal.ErrShapeMismatch) {
		t.Fatalf("short offsets err = %v, want ErrShapeMismatch", err)
	}
}

func TestParseKind(t *testing.T) {
	for name, want := range map[string]Kind{"sine": Sine, " Square": Square, "saw": Saw, "ramp": Ramp, "inverse-saw": Ramp, "TRIANGLE": Triangle} {
		got, err := ParseKind(name)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseKind("noise"); !errors.Is(err, signal.ErrInvalidParameter) {
		t.Fatalf("ParseKind(noise) err = %v", err)
	}
}

func BenchmarkProcessSine(b *testing.B) {
	o, _ := New(DefaultParams())
	ts := signal.Grid(0, 1024, 48000)
	dst := make([]float64, len(ts))
	for i := 0; i < b.N; i++ {
		_ = o.Process(dst, ts, signal.Flags{})
	}
}
