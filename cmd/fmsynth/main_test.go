package main

import (
	"math"
	"testing"

	"github.com/cbegin/fmgraph-go/internal/midifile"
)

func TestDefaultPerformance(t *testing.T) {
	p, err := performance("", midifile.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 6 {
		t.Fatalf("notes = %d, want 6", p.Len())
	}
	if got := length(p); math.Abs(got-1.45) > 1e-12 {
		t.Fatalf("length = %v, want 1.45", got)
	}
}

func TestLengthSkipsOpenRelease(t *testing.T) {
	p := midifile.Performance{
		Presses:  []float64{0, 2},
		Releases: []float64{1, math.Inf(1)},
		Pitches:  []int{0, 3},
	}
	if got := length(p); got != 2 {
		t.Fatalf("length = %v, want 2", got)
	}
}
