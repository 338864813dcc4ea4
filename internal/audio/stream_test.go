package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/cbegin/fmgraph-go/internal/render"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

func frames(t *testing.T, p []byte) []float32 {
	t.Helper()
	out := make([]float32, len(p)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
	}
	return out
}

func TestStreamReaderDuplicatesMonoToStereo(t *testing.T) {
	src := NewBufferSource([]float64{0.25, -0.5, 1})
	r := NewStreamReader(src)
	p := make([]byte, 2*8)
	n, err := r.Read(p)
	if err != nil || n != 16 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	want := []float32{0.25, 0.25, -0.5, -0.5}
	got := frames(t, p)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples = %v, want %v", got, want)
		}
	}
	n, err = r.Read(p)
	if !errors.Is(err, io.EOF) || n != 16 {
		t.Fatalf("final Read = %d, %v; want 16, EOF", n, err)
	}
	got = frames(t, p)
	if got[0] != 1 || got[1] != 1 || got[2] != 0 || got[3] != 0 {
		t.Fatalf("tail = %v, want [1 1 0 0]", got)
	}
	if src.Position() != 3 || !src.Finished() {
		t.Fatalf("position = %d", src.Position())
	}
	if n, err := r.Read(make([]byte, 7)); n != 0 || err != nil {
		t.Fatalf("short Read = %d, %v", n, err)
	}
}

func TestNodeSourceStreamsGrid(t *testing.T) {
	cfg := signal.NewConfig(signal.WithSampleRate(100))
	src, err := NewNodeSource(signal.NewRamp(1, 0), cfg, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	var got []float64
	buf := make([]float64, 2)
	for !src.Finished() {
		src.Process(buf)
		got = append(got, buf...)
	}
	want := []float64{0, 0.01, 0.02, 0.03, 0.04, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if src.Err() != nil {
		t.Fatal(src.Err())
	}
}

func TestNodeSourceStopsOnNonFinite(t *testing.T) {
	cfg := signal.NewConfig(signal.WithSampleRate(100))
	bad := signal.Func(func(float64) float64 { return math.Inf(1) })
	src, err := NewNodeSource(bad, cfg, 1)
	if err != nil {
		t.Fatal(err)
	}
	buf := []float64{7, 7}
	src.Process(buf)
	if !src.Finished() || !errors.Is(src.Err(), render.ErrNonFinite) {
		t.Fatalf("finished = %v, err = %v", src.Finished(), src.Err())
	}
	if buf[0] != 0 || buf[1] != 0 {
		t.Fatalf("buf = %v, want silence", buf)
	}
	if _, err := NewNodeSource(bad, signal.Config{}, 1); !errors.Is(err, signal.ErrInvalidParameter) {
		t.Fatalf("zero rate err = %v", err)
	}
}
