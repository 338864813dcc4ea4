// Package audio plays mono float64 signals through the ebiten audio
// context as interleaved stereo float32.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/fmgraph-go/internal/render"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

// Source fills dst with the next mono samples.
type Source interface {
	Process(dst []float64)
}

// FinishingSource is a Source that can signal when playback has ended.
// When Finished returns true, the stream returns io.EOF on the next Read.
type FinishingSource interface {
	Source
	Finished() bool
}

// StreamReader adapts a Source to the byte stream ebiten reads: each mono
// sample is written to both channels as little-endian float32.
type StreamReader struct {
	mu     sync.Mutex
	source Source
	buf    []float64
}

func NewStreamReader(source Source) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	r.buf = signal.EnsureLen(r.buf, frames)
	r.source.Process(r.buf)
	for i, x := range r.buf {
		u := math.Float32bits(float32(x))
		binary.LittleEndian.PutUint32(p[i*8:], u)
		binary.LittleEndian.PutUint32(p[i*8+4:], u)
	}
	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

// BufferSource plays a rendered buffer once, then silence.
type BufferSource struct {
	data []float64
	pos  atomic.Int64
}

func NewBufferSource(data []float64) *BufferSource {
	return &BufferSource{data: data}
}

func (b *BufferSource) Process(dst []float64) {
	pos := int(b.pos.Load())
	n := copy(dst, b.data[min(pos, len(b.data)):])
	clear(dst[n:])
	b.pos.Store(int64(pos + n))
}

func (b *BufferSource) Finished() bool { return int(b.pos.Load()) >= len(b.data) }

// Position returns the number of samples consumed.
func (b *BufferSource) Position() int { return int(b.pos.Load()) }

// NodeSource renders a node on demand for a fixed duration. Evaluation
// errors and non-finite output end playback; Err reports the cause.
type NodeSource struct {
	node   signal.Node
	rate   float64
	frames int

	mu   sync.Mutex
	pos  int
	ts   []float64
	err  error
	done atomic.Bool
}

// NewNodeSource streams seconds of node at cfg's sample rate.
func NewNodeSource(node signal.Node, cfg signal.Config, seconds float64) (*NodeSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	return &NodeSource{node: node, rate: cfg.SampleRate, frames: render.Frames(cfg, seconds)}, nil
}

func (s *NodeSource) Process(dst []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(len(dst), s.frames-s.pos)
	if s.err != nil || n <= 0 {
		clear(dst)
		s.done.Store(true)
		return
	}
	s.ts = signal.EnsureLen(s.ts, n)
	for i := range s.ts {
		s.ts[i] = float64(s.pos+i) / s.rate
	}
	if err := render.Into(dst[:n], s.node, s.ts); err != nil {
		s.err = err
		clear(dst)
		s.done.Store(true)
		return
	}
	clear(dst[n:])
	s.pos += n
	if s.pos >= s.frames {
		s.done.Store(true)
	}
}

func (s *NodeSource) Finished() bool { return s.done.Load() }

// Err returns the error that stopped playback, if any.
func (s *NodeSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio: context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source Source) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns what the listener is hearing now.
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	return p.reader.Close()
}
