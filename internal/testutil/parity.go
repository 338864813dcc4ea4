package testutil

import (
	"testing"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// RequireSampleParity evaluates n over ts with Process and checks every
// value against Sample at the same instant.
func RequireSampleParity(t testing.TB, n signal.Node, ts []float64, f signal.Flags, eps float64) {
	t.Helper()
	got, err := signal.Eval(n, ts, f)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := make([]float64, len(ts))
	for i, ti := range ts {
		v, err := n.Sample(ti, f)
		if err != nil {
			t.Fatalf("Sample(%v): %v", ti, err)
		}
		want[i] = v
	}
	RequireSliceNearlyEqual(t, got, want, eps)
}
