package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"

	"github.com/cbegin/fmgraph-go"
	"github.com/cbegin/fmgraph-go/internal/analysis"
	"github.com/cbegin/fmgraph-go/internal/fm"
	"github.com/cbegin/fmgraph-go/internal/keyboard"
	"github.com/cbegin/fmgraph-go/internal/midifile"
	"github.com/cbegin/fmgraph-go/internal/plot"
	"github.com/cbegin/fmgraph-go/internal/render"
	sig "github.com/cbegin/fmgraph-go/internal/signal"
)

// tail is added after the last release so envelopes can ring out.
const tail = 1.0

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	var (
		patchName  = flag.String("patch", "danger-zone", "patch JSON file or preset name")
		midiPath   = flag.String("midi", "", "Standard MIDI File to perform (default: a short arpeggio)")
		channel    = flag.Int("channel", -1, "MIDI channel 0-15 (-1 = all)")
		reference  = flag.Int("reference", 57, "MIDI key played at the patch base frequency")
		seconds    = flag.Float64("seconds", 0, "render length (0 = until the last release plus a tail)")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		workers    = flag.Int("workers", 1, "render goroutines")
		play       = flag.Bool("play", true, "play through the default audio device")
		fx         = flag.String("fx", "", `master effects, e.g. "comp -18,3; reverb 0.6"`)
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		plotPath   = flag.String("plot", "", "write operator traces as CSV to this path")
		analyze    = flag.Bool("analyze", false, "log peak, RMS and dominant frequency")
		debug      = flag.Bool("debug", false, "enable debug logging (adds source location)")
	)
	flag.Parse()
	initLogger(*debug)

	if *reference < 0 || *reference > 127 {
		fatal("invalid -reference", errors.New("expected 0-127"))
	}
	g, err := fmgraph.LoadPatch(*patchName, *sampleRate)
	if err != nil {
		fatal("load patch", err)
	}
	opts := midifile.DefaultOptions()
	opts.Channel = *channel
	opts.Reference = uint8(*reference)
	perf, err := performance(*midiPath, opts)
	if err != nil {
		fatal("read performance", err)
	}
	kb, err := keyboard.New(nil, nil, nil)
	if err != nil {
		fatal("keyboard", err)
	}
	if err := kb.SetNotes(perf.Presses, perf.Releases, perf.Pitches); err != nil {
		fatal("keyboard", err)
	}
	if err := g.SetKeyboard(kb); err != nil {
		fatal("keyboard", err)
	}
	duration := *seconds
	if duration <= 0 {
		duration = length(perf) + tail
	}
	logger.Info("fmsynth starting",
		"patch", *patchName,
		"operators", g.Len(),
		"notes", perf.Len(),
		"seconds", duration,
		"sample_rate", *sampleRate,
	)

	if *plotPath != "" {
		if err := writePlot(*plotPath, g); err != nil {
			fatal("plot", err)
		}
		logger.Info("wrote plot", "path", *plotPath)
	}

	cfg := sig.NewConfig(sig.WithSampleRate(float64(*sampleRate)))
	buf, err := render.Render(g, cfg, duration, render.WithWorkers(*workers))
	if err != nil {
		fatal("render", err)
	}
	logger.Debug("rendered", "frames", len(buf))
	if *analyze {
		logStats(buf, cfg.SampleRate)
	}
	if !*play {
		return
	}

	pl, err := fmgraph.NewPlayer(*sampleRate, fmgraph.WithEffects(*fx))
	if err != nil {
		fatal("player", err)
	}
	pl.SetMasterVolume(*volume)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = pl.Stop()
	}()
	if err := pl.PlayBuffer(buf); err != nil {
		fatal("play", err)
	}
	if err := pl.Wait(); err != nil {
		fatal("playback", err)
	}
	fmt.Println("playback completed")
}

func fatal(msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}

// performance reads the MIDI file, or returns the default arpeggio
// (E G B D F A above the reference, a quarter second each).
func performance(path string, opts midifile.Options) (midifile.Performance, error) {
	if path == "" {
		var p midifile.Performance
		for i, pitch := range []int{7, 10, 14, 17, 20, 24} {
			at := 0.25 * float64(i)
			p.Presses = append(p.Presses, at)
			p.Releases = append(p.Releases, at+0.2)
			p.Pitches = append(p.Pitches, pitch)
		}
		return p, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return midifile.Performance{}, err
	}
	defer f.Close()
	return midifile.Decode(f, opts)
}

// length returns the last finite press or release time.
func length(p midifile.Performance) float64 {
	var end float64
	for i := range p.Presses {
		end = math.Max(end, p.Presses[i])
		if !math.IsInf(p.Releases[i], 1) {
			end = math.Max(end, p.Releases[i])
		}
	}
	return end
}

func writePlot(path string, g *fm.Graph) error {
	ops := g.Operators()
	if len(ops) == 0 {
		return errors.New("patch has no operators")
	}
	// Trace two cycles of the lowest operator so every wave shape is visible.
	var period float64
	for _, op := range ops {
		if f := op.Params().Frequency; f > 0 {
			period = math.Max(period, 1/f)
		}
	}
	series, err := plot.Collect(g, 2*period, 512)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := plot.WriteCSV(f, series); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func logStats(buf []float64, sampleRate float64) {
	st := render.Measure(buf)
	attrs := []any{"peak", st.Peak, "rms", st.RMS}
	if f, err := analysis.DominantFrequency(buf, sampleRate); err == nil {
		attrs = append(attrs, "dominant_hz", f)
	} else {
		logger.Debug("spectrum unavailable", "err", err)
	}
	logger.Info("analysis", attrs...)
}
