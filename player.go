package fmgraph

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	intaudio "github.com/cbegin/fmgraph-go/internal/audio"
	intfx "github.com/cbegin/fmgraph-go/internal/effects"
	"github.com/cbegin/fmgraph-go/internal/render"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	effects   string
	streaming bool
	workers   int
	sampleTap func([]float64)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{workers: 1}
}

// WithEffects installs a master effects chain, e.g. "comp -18,3; reverb 0.6".
func WithEffects(spec string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.effects = spec
	}
}

// WithStreaming evaluates nodes block by block on the audio thread instead
// of rendering the whole duration before playback starts. It is best-effort:
// a graph slower than real time underruns, and nothing is sample-accurate.
func WithStreaming(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.streaming = enabled
	}
}

// WithRenderWorkers sets how many goroutines pre-render a node.
func WithRenderWorkers(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.workers = n
	}
}

// WithSampleTap installs a callback invoked with each generated mono buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float64)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

type Player struct {
	mu         sync.Mutex
	sampleRate int
	cfg        playerConfig
	effects    *intfx.Chain
	masterEQ   *intfx.EQ5Band
	volume     atomic.Uint64
	audio      *intaudio.Player
	current    *output
	done       chan struct{}
}

// output post-processes a source on the audio thread and reports the end
// of playback once.
type output struct {
	src      intaudio.FinishingSource
	effects  *intfx.Chain
	masterEQ *intfx.EQ5Band
	volume   *atomic.Uint64
	tap      func([]float64)
	onFinish func()
	finished atomic.Bool
}

func (o *output) Process(dst []float64) {
	o.src.Process(dst)
	if o.effects != nil {
		o.effects.ProcessBlock(dst)
	}
	if o.masterEQ != nil {
		for i, x := range dst {
			dst[i] = o.masterEQ.Process(x)
		}
	}
	if v := math.Float64frombits(o.volume.Load()); v != 1 {
		vecmath.ScaleBlockInPlace(dst, v)
	}
	if o.tap != nil {
		o.tap(dst)
	}
	if o.src.Finished() && o.finished.CompareAndSwap(false, true) && o.onFinish != nil {
		o.onFinish()
	}
}

func (o *output) Finished() bool { return o.finished.Load() }

// err reports why a streamed node stopped early.
func (o *output) err() error {
	if s, ok := o.src.(interface{ Err() error }); ok {
		return s.Err()
	}
	return nil
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Player{
		sampleRate: sampleRate,
		cfg:        cfg,
		masterEQ:   intfx.NewEQ5Band(sampleRate),
	}
	if cfg.effects != "" {
		chain, err := intfx.ParseChain(cfg.effects, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("fmgraph: effects: %w", err)
		}
		p.effects = chain
	}
	p.volume.Store(math.Float64bits(1))
	return p, nil
}

// Play starts seconds of node from t=0, replacing any current playback.
func (p *Player) Play(node Node, seconds float64) error {
	cfg, err := configFor(p.sampleRate)
	if err != nil {
		return err
	}
	if p.cfg.streaming {
		src, err := intaudio.NewNodeSource(node, cfg, seconds)
		if err != nil {
			return err
		}
		return p.start(src)
	}
	buf, err := render.Render(node, cfg, seconds, render.WithWorkers(p.cfg.workers))
	if err != nil {
		return err
	}
	return p.start(intaudio.NewBufferSource(buf))
}

// PlayBuffer plays already rendered mono samples.
func (p *Player) PlayBuffer(buf []float64) error {
	return p.start(intaudio.NewBufferSource(buf))
}

func (p *Player) newOutput(src intaudio.FinishingSource) *output {
	if p.effects != nil {
		p.effects.Reset()
	}
	return &output{
		src:      src,
		effects:  p.effects,
		masterEQ: p.masterEQ,
		volume:   &p.volume,
		tap:      p.cfg.sampleTap,
	}
}

func (p *Player) start(src intaudio.FinishingSource) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	done := make(chan struct{})
	p.done = done

	out := p.newOutput(src)
	out.onFinish = func() { p.finish(done) }
	backend, err := intaudio.NewPlayer(p.sampleRate, out)
	if err != nil {
		close(p.done)
		p.done = nil
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.current = out
	p.audio.Play()
	return nil
}

// finish closes done if it still belongs to the current playback.
func (p *Player) finish(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == done {
		p.done = nil
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends or is stopped, then reports
// any evaluation error that cut a streamed node short.
func (p *Player) Wait() error {
	p.mu.Lock()
	done, cur := p.done, p.current
	p.mu.Unlock()
	if done != nil {
		<-done
	}
	if cur == nil {
		return nil
	}
	return cur.err()
}

// SetMasterVolume sets the output gain. 1.0 is default; negative values
// clamp to 0. It takes effect on the next audio buffer.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 || math.IsNaN(volume) {
		volume = 0
	}
	p.volume.Store(math.Float64bits(volume))
}

func (p *Player) MasterVolume() float64 {
	return math.Float64frombits(p.volume.Load())
}

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band frequencies: 0=<200Hz, 1=200-800Hz, 2=800-2.5kHz, 3=2.5-8kHz, 4=>8kHz.
func (p *Player) SetEQBand(band int, gain float64) {
	p.masterEQ.SetGain(band, gain)
}

// EQBand returns the current gain for a master EQ band (0-4).
func (p *Player) EQBand(band int) float64 {
	return p.masterEQ.Gain(band)
}

// PlaybackPosition returns the sample the listener hears right now, or 0
// when nothing is playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.sampleRate))
}
