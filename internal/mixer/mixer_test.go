package mixer

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/fmgraph-go/internal/signal"
	"github.com/cbegin/fmgraph-go/internal/testutil"
)

func TestEmptyMixerIsZero(t *testing.T) {
	m := New()
	ts := signal.Linspace(0, 1, 7)
	got, err := signal.Eval(m, ts, signal.Flags{})
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, got, make([]float64, 7), 0)
	if v, _ := m.Sample(0.3, signal.Flags{}); v != 0 {
		t.Fatalf("empty Sample = %v, want 0", v)
	}
}

func TestMixerLinearity(t *testing.T) {
	inputs := []signal.Node{
		signal.Func(math.Sin),
		signal.NewRamp(0.5, -1),
		signal.NewConst(3),
		signal.Func(func(t float64) float64 { return t * t }),
	}
	levels := []float64{0.5, -2, 0.125, 1.5}

	for _, parallel := range []int{0, 1} {
		m := New(WithParallel(parallel))
		for i, n := range inputs {
			idx, err := m.AddInput(n, levels[i])
			if err != nil || idx != i {
				t.Fatalf("AddInput = %d, %v", idx, err)
			}
		}
		ts := signal.Linspace(-1, 2, 64)
		got, err := signal.Eval(m, ts, signal.Flags{})
		if err != nil {
			t.Fatal(err)
		}
		want := make([]float64, len(ts))
		for i, ti := range ts {
			for j, n := range inputs {
				v, _ := n.Sample(ti, signal.Flags{})
				want[i] += levels[j] * v
			}
		}
		testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
		testutil.RequireSampleParity(t, m, ts, signal.Flags{}, 1e-12)
	}
}

func TestLevelMutation(t *testing.T) {
	m := New()
	if _, err := m.AddInput(signal.NewConst(1), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddInput(signal.NewConst(10), 0.5); err != nil {
		t.Fatal(err)
	}
	if err := m.SetLevel(0, 0.25); err != nil {
		t.Fatal(err)
	}
	if err := m.IncreaseLevel(1, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := m.DecreaseLevel(0, DefaultStep); err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, m.Levels(), []float64{0.24, 1}, 1e-12)
	v, _ := m.Sample(0, signal.Flags{})
	testutil.RequireNearlyEqual(t, "mix", v, 10.24, 1e-12)

	for _, i := range []int{-1, 2} {
		if err := m.SetLevel(i, 1); !errors.Is(err, signal.ErrInvalidParameter) {
			t.Fatalf("SetLevel(%d) err = %v, want ErrInvalidParameter", i, err)
		}
		if _, err := m.Level(i); !errors.Is(err, signal.ErrInvalidParameter) {
			t.Fatalf("Level(%d) err = %v", i, err)
		}
	}
	if m.Len() != 2 || len(m.Inputs()) != 2 {
		t.Fatalf("Len = %d, Inputs = %d", m.Len(), len(m.Inputs()))
	}
}

func TestZeroLevelInputIsSkipped(t *testing.T) {
	m := New()
	_, _ = m.AddInput(failing{}, 0)
	if _, err := signal.Eval(m, []float64{0, 1}, signal.Flags{}); err != nil {
		t.Fatalf("zero-level input evaluated: %v", err)
	}
	_ = m.SetLevel(0, 1)
	if _, err := signal.Eval(m, []float64{0, 1}, signal.Flags{}); !errors.Is(err, errFailing) {
		t.Fatalf("err = %v, want errFailing", err)
	}
	m2 := New(WithParallel(1))
	_, _ = m2.AddInput(signal.NewConst(1), 1)
	_, _ = m2.AddInput(failing{}, 1)
	if _, err := signal.Eval(m2, []float64{0, 1}, signal.Flags{}); !errors.Is(err, errFailing) {
		t.Fatalf("parallel err = %v, want errFailing", err)
	}
}

func TestAddInputRejectsCycle(t *testing.T) {
	a := New()
	b := New()
	if _, err := a.AddInput(b, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddInput(a, 1); !errors.Is(err, signal.ErrCycle) {
		t.Fatalf("err = %v, want ErrCycle", err)
	}
	if _, err := a.AddInput(a, 1); !errors.Is(err, signal.ErrCycle) {
		t.Fatalf("self err = %v, want ErrCycle", err)
	}
}

var errFailing = errors.New("failing node")

type failing struct{}

func (failing) Sample(float64, signal.Flags) (float64, error)   { return 0, errFailing }
func (failing) Process([]float64, []float64, signal.Flags) error { return errFailing }
