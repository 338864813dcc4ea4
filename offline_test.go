package fmgraph

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/fmgraph-go/internal/osc"
)

func TestRenderSamplesInterleavesMono(t *testing.T) {
	o, err := osc.New(osc.Params{Kind: osc.Sine, Frequency: 100, Amplitude: 0.5, PulseWidth: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	mono, err := Render(o, 8000, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	stereo, err := RenderSamples(o, 8000, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if len(mono) != 80 || len(stereo) != 160 {
		t.Fatalf("lengths = %d, %d; want 80, 160", len(mono), len(stereo))
	}
	for i, v := range mono {
		want := 0.5 * math.Sin(2*math.Pi*100*float64(i)/8000)
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("mono[%d] = %v, want %v", i, v, want)
		}
		if stereo[2*i] != float32(v) || stereo[2*i+1] != float32(v) {
			t.Fatalf("frame %d = %v, %v", i, stereo[2*i], stereo[2*i+1])
		}
	}
	if _, err := Render(o, -1, 1); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("negative rate err = %v", err)
	}
}

func TestLoadPatchPreset(t *testing.T) {
	g, err := LoadPatch("danger-zone", 8000)
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 6 {
		t.Fatalf("operators = %d, want 6", g.Len())
	}
	if _, err := LoadPatch("no-such-patch.json", 8000); err == nil {
		t.Fatal("missing patch file accepted")
	}
}
