// Package plot samples a node and the nodes feeding it into series that a
// plotting front end can draw.
package plot

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/cbegin/fmgraph-go/internal/fm"
	"github.com/cbegin/fmgraph-go/internal/mixer"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

// DefaultMaxDepth bounds how far Collect descends into inputs.
const DefaultMaxDepth = 8

// Series is one traced curve. Inputs are drawn fainter than the node they
// feed: each level halves Alpha. Scale is the mixer level the values were
// multiplied by.
type Series struct {
	Name  string
	Depth int
	Alpha float64
	Scale float64
	T     []float64
	V     []float64
}

type config struct {
	flags    signal.Flags
	maxDepth int
}

type Option func(*config)

// WithFlags overrides the evaluation flags. Collect ignores modulation
// inputs such as envelopes and gates by default so only wave shapes show.
func WithFlags(f signal.Flags) Option {
	return func(c *config) { c.flags = f }
}

// WithMaxDepth limits recursion; 0 traces the root only.
func WithMaxDepth(d int) Option {
	return func(c *config) { c.maxDepth = d }
}

// Trace samples n at density evenly spaced instants over [0, duration].
func Trace(n signal.Node, name string, duration float64, density int, f signal.Flags) (Series, error) {
	if density < 2 || !(duration > 0) || math.IsInf(duration, 0) {
		return Series{}, fmt.Errorf("plot: %w: duration %v, density %d", signal.ErrInvalidParameter, duration, density)
	}
	ts := signal.Linspace(0, duration, density)
	vs, err := signal.Eval(n, ts, f)
	if err != nil {
		return Series{}, fmt.Errorf("plot: %s: %w", name, err)
	}
	return Series{Name: name, Alpha: 1, Scale: 1, T: ts, V: vs}, nil
}

// Collect traces n and, recursively, the signals that shape it: mixer
// inputs scaled by their levels, the modulators of FM operators and the
// input of amplifiers.
func Collect(n signal.Node, duration float64, density int, opts ...Option) ([]Series, error) {
	c := config{flags: signal.Flags{IgnoreMod: true}, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&c)
	}
	root, err := Trace(n, "out", duration, density, c.flags)
	if err != nil {
		return nil, err
	}
	out := []Series{root}
	var walk func(n signal.Node, name string, depth int, alpha, scale float64) error
	walk = func(n signal.Node, name string, depth int, alpha, scale float64) error {
		if depth > c.maxDepth {
			return nil
		}
		add := func(child signal.Node, childName string, childScale float64) error {
			s, err := Trace(child, childName, duration, density, c.flags)
			if err != nil {
				return err
			}
			for i := range s.V {
				s.V[i] *= childScale
			}
			s.Depth, s.Alpha, s.Scale = depth, alpha, childScale
			out = append(out, s)
			return walk(child, childName, depth+1, alpha*0.5, childScale)
		}
		switch n := n.(type) {
		case *fm.Graph:
			return walk(n.Output(), name, depth, alpha, scale)
		case *mixer.Mixer:
			levels := n.Levels()
			for i, in := range n.Inputs() {
				if i >= len(levels) {
					break
				}
				if err := add(in, name+"/"+strconv.Itoa(i), scale*levels[i]); err != nil {
					return err
				}
			}
		case *fm.Operator:
			return walk(n.Modulators(), name+"/mod", depth, alpha, scale)
		case *signal.Amplifier:
			return add(n.Inputs()[0], name+"/in", scale)
		}
		return nil
	}
	if err := walk(n, "out", 1, 0.5, 1); err != nil {
		return nil, err
	}
	return out, nil
}

// OperatorCycles traces op over the given number of carrier cycles with
// density points per cycle.
func OperatorCycles(op *fm.Operator, cycles float64, density int, opts ...Option) ([]Series, error) {
	if !(cycles > 0) {
		return nil, fmt.Errorf("plot: %w: cycles %v", signal.ErrInvalidParameter, cycles)
	}
	return Collect(op, cycles/op.Params().Frequency, int(float64(density)*cycles), opts...)
}

// WriteCSV writes series sharing one time grid as columns: t followed by
// one column per series.
func WriteCSV(w io.Writer, series []Series) error {
	if len(series) == 0 {
		return nil
	}
	ts := series[0].T
	cw := csv.NewWriter(w)
	header := []string{"t"}
	for _, s := range series {
		if len(s.V) != len(ts) {
			return fmt.Errorf("plot: %w: series %q has %d points, want %d", signal.ErrShapeMismatch, s.Name, len(s.V), len(ts))
		}
		header = append(header, s.Name)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	row := make([]string, len(header))
	for i, t := range ts {
		row[0] = strconv.FormatFloat(t, 'g', -1, 64)
		for j, s := range series {
			row[j+1] = strconv.FormatFloat(s.V[i], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}
