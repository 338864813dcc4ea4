package integral

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/cbegin/fmgraph-go/internal/signal"
	"github.com/cbegin/fmgraph-go/internal/testutil"
)

const testRate = 1000

func newIntegral(t *testing.T, src signal.Node) *Integral {
	t.Helper()
	in, err := New(src, signal.NewConfig(signal.WithSampleRate(testRate)))
	if err != nil {
		t.Fatal(err)
	}
	return in
}

func wobble(t float64) float64 { return math.Cos(2*math.Pi*3*t) + 0.25*t }

func TestProcessMatchesCenteredTrapezoid(t *testing.T) {
	ts := signal.Linspace(0, 1, 257)
	step := ts[1] - ts[0]
	m := make([]float64, len(ts))
	for i, x := range ts {
		m[i] = wobble(x)
	}
	want := make([]float64, len(ts))
	var sum float64
	for i := range m {
		sum += m[i]
		want[i] = step * (sum - (m[0]+m[i])/2)
	}

	got, err := signal.Eval(newIntegral(t, signal.Func(wobble)), ts, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
	if got[0] != 0 {
		t.Fatalf("I[0] = %v, want 0", got[0])
	}
}

func TestConstantIntegratesToLine(t *testing.T) {
	in := newIntegral(t, signal.NewConst(2))
	ts := signal.Grid(0, 50, testRate)
	got, err := signal.Eval(in, ts, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, len(ts))
	for i, x := range ts {
		want[i] = 2 * x
	}
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)

	// Off-grid query: one partial step of 0.5ms then two full steps.
	in.Reset()
	v, err := in.Sample(0.0025, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, "I(0.0025)", v, 0.005, 1e-12)
}

func TestDerivativeRoundTrip(t *testing.T) {
	ts := signal.Grid(0, 2000, testRate)
	got, err := signal.Eval(newIntegral(t, signal.Func(wobble)), ts, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	step := 1.0 / testRate
	var worst float64
	for i := 0; i+1 < len(got); i++ {
		d := (got[i+1] - got[i]) / step
		worst = math.Max(worst, math.Abs(d-wobble(ts[i])))
	}
	// (m[n]+m[n+1])/2 differs from m[n] by about Δ·|m'|/2.
	if worst > 0.02 {
		t.Fatalf("max derivative error = %v, want <= 0.02", worst)
	}
}

func TestSampleMatchesProcessOnGrid(t *testing.T) {
	ts := signal.Grid(0, 120, testRate)
	vec, err := signal.Eval(newIntegral(t, signal.Func(wobble)), ts, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	in := newIntegral(t, signal.Func(wobble))
	for i, x := range ts {
		in.Reset()
		v, err := in.Sample(x, signal.Flags{})
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(v-vec[i]) > 1e-12 {
			t.Fatalf("Sample(%v) = %v, Process = %v", x, v, vec[i])
		}
	}
}

func TestChunkedProcessIsContinuous(t *testing.T) {
	ts := signal.Grid(0, 300, testRate)
	whole, err := signal.Eval(newIntegral(t, signal.Func(wobble)), ts, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}

	for _, cold := range []bool{false, true} {
		in := newIntegral(t, signal.Func(wobble))
		var got []float64
		for start := 0; start < len(ts); start += 100 {
			if cold {
				in.Reset()
			}
			part, err := signal.Eval(in, ts[start:start+100], signal.Flags{})
			if err != nil {
				t.Fatal(err)
			}
			got = append(got, part...)
		}
		testutil.RequireSliceNearlyEqual(t, got, whole, 1e-9)
	}
}

func TestMemoizedSampleMatchesColdEvaluation(t *testing.T) {
	warm := newIntegral(t, signal.Func(wobble))
	cold := newIntegral(t, signal.Func(wobble))
	for i := 1; i <= 80; i++ {
		x := float64(i) / testRate
		if i%7 == 0 {
			x += 0.0003 // off grid, forces a cold start
		}
		a, err := warm.Sample(x, signal.Flags{})
		if err != nil {
			t.Fatal(err)
		}
		cold.Reset()
		b, err := cold.Sample(x, signal.Flags{})
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(a-b) > 1e-12 {
			t.Fatalf("t=%v warm=%v cold=%v", x, a, b)
		}
	}
}

func TestMemoizedSampleEvaluatesOnlyNewSteps(t *testing.T) {
	c := &counting{}
	in := newIntegral(t, c)
	if _, err := in.Sample(1, signal.Flags{}); err != nil {
		t.Fatal(err)
	}
	first := c.n.Load()
	if first < testRate {
		t.Fatalf("cold evaluation used %d samples, want >= %d", first, testRate)
	}
	if _, err := in.Sample(1+1.0/testRate, signal.Flags{}); err != nil {
		t.Fatal(err)
	}
	if d := c.n.Load() - first; d != 1 {
		t.Fatalf("next grid step evaluated %d samples, want 1", d)
	}
	if _, err := in.Sample(1+1.0/testRate, signal.Flags{}); err != nil {
		t.Fatal(err)
	}
	if d := c.n.Load() - first; d != 1 {
		t.Fatalf("repeated query evaluated %d extra samples", d-1)
	}
}

func TestSampleAtOrBeforeZero(t *testing.T) {
	in := newIntegral(t, signal.NewConst(5))
	for _, x := range []float64{0, -1} {
		if v, err := in.Sample(x, signal.Flags{}); err != nil || v != 0 {
			t.Fatalf("Sample(%v) = %v, %v; want 0", x, v, err)
		}
	}
}

func TestConstructionAndShapeErrors(t *testing.T) {
	if _, err := New(nil, signal.DefaultConfig()); !errors.Is(err, signal.ErrInvalidParameter) {
		t.Fatalf("nil source err = %v", err)
	}
	if _, err := New(signal.NewConst(1), signal.Config{}); !errors.Is(err, signal.ErrInvalidParameter) {
		t.Fatalf("zero rate err = %v", err)
	}
	in := newIntegral(t, signal.NewConst(1))
	if err := in.Process(make([]float64, 2), []float64{0}, signal.Flags{}); !errors.Is(err, signal.ErrShapeMismatch) {
		t.Fatalf("shape err = %v", err)
	}
}

type counting struct {
	n atomic.Int64
}

func (c *counting) Sample(t float64, _ signal.Flags) (float64, error) {
	c.n.Add(1)
	return math.Sin(t), nil
}

func (c *counting) Process(dst, ts []float64, f signal.Flags) error {
	for i, t := range ts {
		dst[i], _ = c.Sample(t, f)
	}
	return nil
}

func TestConfigurationChangeInvalidatesMemo(t *testing.T) {
	src := signal.NewConst(1)
	in := newIntegral(t, src)
	ts := signal.Grid(0, 100, testRate)
	if _, err := signal.Eval(in, ts, signal.Flags{}); err != nil {
		t.Fatal(err)
	}
	if v, _ := in.Sample(0.05, signal.Flags{}); math.Abs(v-0.05) > 1e-12 {
		t.Fatalf("I(0.05) = %v, want 0.05", v)
	}
	src.Set(3)
	v, err := in.Sample(0.05, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, "I(0.05) after Set", v, 0.15, 1e-12)

	// A block continuing the old render must not reuse the stale end point.
	src.Set(2)
	next, err := signal.Eval(in, signal.Grid(0.1, 10, testRate), signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, "I(0.1) after Set", next[0], 0.2, 1e-12)
}

func TestNegativeInstantsMatchSample(t *testing.T) {
	ts := signal.Grid(-0.01, 40, testRate)
	vec, err := signal.Eval(newIntegral(t, signal.Func(wobble)), ts, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	in := newIntegral(t, signal.Func(wobble))
	for i, x := range ts {
		in.Reset()
		v, err := in.Sample(x, signal.Flags{})
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(v-vec[i]) > 1e-9 {
			t.Fatalf("t=%v: Sample = %v, Process = %v", x, v, vec[i])
		}
	}
}
