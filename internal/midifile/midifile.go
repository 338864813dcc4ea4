// Package midifile turns a Standard MIDI File into the monophonic gate and
// key signals of a keyboard.MonoKeyboard.
package midifile

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/fmgraph-go/internal/keyboard"
)

// Options selects which notes are read and how keys map to semitones.
type Options struct {
	Channel   int   // 0-15, or -1 for every channel
	Track     int   // track number, or -1 for every track
	Reference uint8 // key that maps to semitone offset 0
}

// DefaultOptions reads every channel and track with A3 (key 57) as the
// reference.
func DefaultOptions() Options {
	return Options{Channel: -1, Track: -1, Reference: 57}
}

// Performance is a monophonic note list: note i sounds Pitches[i] from
// Presses[i] to Releases[i] (seconds). A note still held when the file ends
// has a +Inf release.
type Performance struct {
	Presses  []float64
	Releases []float64
	Pitches  []int
}

// Len returns the number of notes.
func (p Performance) Len() int { return len(p.Presses) }

type noteEvent struct {
	at    int64 // microseconds
	start bool
	key   uint8
}

// Decode reads note events from r. Overlapping notes are resolved with
// last-note priority: a new key cuts the sounding one, and releasing it
// returns to the most recent key still held.
func Decode(r io.Reader, opts Options) (Performance, error) {
	var events []noteEvent
	err := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		if opts.Track >= 0 && te.TrackNo != opts.Track {
			return
		}
		msg := midi.Message(te.Message)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			if opts.Channel < 0 || int(ch) == opts.Channel {
				events = append(events, noteEvent{at: te.AbsMicroSeconds, start: true, key: key})
			}
		case msg.GetNoteEnd(&ch, &key):
			if opts.Channel < 0 || int(ch) == opts.Channel {
				events = append(events, noteEvent{at: te.AbsMicroSeconds, key: key})
			}
		}
	}).Error()
	if err != nil {
		return Performance{}, fmt.Errorf("midifile: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })

	var (
		b    builder
		held []uint8
	)
	for _, ev := range events {
		t := float64(ev.at) / 1e6
		if ev.start {
			held = remove(held, ev.key)
			held = append(held, ev.key)
			b.start(t, int(ev.key)-int(opts.Reference))
			continue
		}
		wasTop := len(held) > 0 && held[len(held)-1] == ev.key
		held = remove(held, ev.key)
		if !wasTop {
			continue
		}
		b.stop(t)
		if len(held) > 0 {
			b.start(t, int(held[len(held)-1])-int(opts.Reference))
		}
	}
	return b.perf, nil
}

func remove(keys []uint8, k uint8) []uint8 {
	out := keys[:0]
	for _, x := range keys {
		if x != k {
			out = append(out, x)
		}
	}
	return out
}

type builder struct {
	perf Performance
	open bool
}

func (b *builder) start(t float64, pitch int) {
	b.stop(t)
	p := &b.perf
	// A note cut at the instant it started leaves no interval.
	if n := len(p.Presses); n > 0 && p.Presses[n-1] == t {
		p.Presses, p.Releases, p.Pitches = p.Presses[:n-1], p.Releases[:n-1], p.Pitches[:n-1]
	}
	p.Presses = append(p.Presses, t)
	p.Releases = append(p.Releases, math.Inf(1))
	p.Pitches = append(p.Pitches, pitch)
	b.open = true
}

func (b *builder) stop(t float64) {
	if !b.open {
		return
	}
	b.perf.Releases[len(b.perf.Releases)-1] = t
	b.open = false
}

// Read decodes r into a new keyboard.
func Read(r io.Reader, opts Options) (*keyboard.MonoKeyboard, error) {
	kb, err := keyboard.New(nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := Load(kb, r, opts); err != nil {
		return nil, err
	}
	return kb, nil
}

// Load decodes r and replaces kb's notes, so graphs already wired to kb
// play the file.
func Load(kb *keyboard.MonoKeyboard, r io.Reader, opts Options) error {
	perf, err := Decode(r, opts)
	if err != nil {
		return err
	}
	if err := kb.SetNotes(perf.Presses, perf.Releases, perf.Pitches); err != nil {
		return fmt.Errorf("midifile: %w", err)
	}
	return nil
}

// LoadFile is Load for a file path.
func LoadFile(kb *keyboard.MonoKeyboard, path string, opts Options) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("midifile: %w", err)
	}
	defer f.Close()
	return Load(kb, f, opts)
}
