package fm

import (
	"fmt"
	"sync"

	"github.com/cbegin/fmgraph-go/internal/keyboard"
	"github.com/cbegin/fmgraph-go/internal/mixer"
	"github.com/cbegin/fmgraph-go/internal/signal"
)

// ID identifies an operator within a Graph.
type ID int

// Graph owns a set of operators addressed by ID, the modulation edges
// between them and an output mixer of carriers.
type Graph struct {
	cfg signal.Config

	mu  sync.Mutex
	ops []*Operator
	out *mixer.Mixer
}

// NewGraph returns an empty graph. opts configure the output mixer.
func NewGraph(cfg signal.Config, opts ...mixer.Option) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fm: %w", err)
	}
	return &Graph{cfg: cfg, out: mixer.New(opts...)}, nil
}

// Config returns the graph's engine configuration.
func (g *Graph) Config() signal.Config { return g.cfg }

// Add creates an operator and returns its ID.
func (g *Graph) Add(p Params) (ID, error) {
	op, err := NewOperator(g.cfg, p)
	if err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ops = append(g.ops, op)
	return ID(len(g.ops) - 1), nil
}

// Operator returns the operator with the given ID.
func (g *Graph) Operator(id ID) (*Operator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id < 0 || int(id) >= len(g.ops) {
		return nil, fmt.Errorf("fm: %w: operator %d out of range [0, %d)", signal.ErrInvalidParameter, id, len(g.ops))
	}
	return g.ops[id], nil
}

// Operators returns the operators in ID order.
func (g *Graph) Operators() []*Operator {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Operator(nil), g.ops...)
}

// Len returns the number of operators.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ops)
}

// Connect makes mod modulate carrier at the given level.
func (g *Graph) Connect(mod, carrier ID, level float64) error {
	m, err := g.Operator(mod)
	if err != nil {
		return err
	}
	c, err := g.Operator(carrier)
	if err != nil {
		return err
	}
	if _, err := c.AddModulator(m, level); err != nil {
		return fmt.Errorf("fm: connect %d -> %d: %w", mod, carrier, err)
	}
	return nil
}

// AddOutput routes operator id to the output mixer and returns its mixer
// index.
func (g *Graph) AddOutput(id ID, level float64) (int, error) {
	op, err := g.Operator(id)
	if err != nil {
		return 0, err
	}
	return g.out.AddInput(op, level)
}

// Output returns the output mixer.
func (g *Graph) Output() *mixer.Mixer { return g.out }

// ApplyRoute wires the operators ids according to r. Modulation edges get
// modLevel; carriers share the output at CarrierLevel.
func (g *Graph) ApplyRoute(ids []ID, r Route, modLevel float64) error {
	at := func(i int) (ID, error) {
		if i < 0 || i >= len(ids) {
			return 0, fmt.Errorf("fm: %w: route index %d for %d operators", signal.ErrInvalidParameter, i, len(ids))
		}
		return ids[i], nil
	}
	for _, e := range r.Edges {
		m, err := at(e.Mod)
		if err != nil {
			return err
		}
		c, err := at(e.Carrier)
		if err != nil {
			return err
		}
		if err := g.Connect(m, c, modLevel); err != nil {
			return err
		}
	}
	level := CarrierLevel(len(r.Carriers))
	for _, i := range r.Carriers {
		id, err := at(i)
		if err != nil {
			return err
		}
		if _, err := g.AddOutput(id, level); err != nil {
			return err
		}
	}
	return nil
}

// SetKeyboard attaches kb to every operator.
func (g *Graph) SetKeyboard(kb *keyboard.MonoKeyboard) error {
	for i, op := range g.Operators() {
		if err := op.SetKeyboard(kb); err != nil {
			return fmt.Errorf("fm: operator %d: %w", i, err)
		}
	}
	return nil
}

func (g *Graph) Inputs() []signal.Node { return []signal.Node{g.out} }

func (g *Graph) Sample(t float64, f signal.Flags) (float64, error) {
	return g.out.Sample(t, f)
}

func (g *Graph) Process(dst, ts []float64, f signal.Flags) error {
	return g.out.Process(dst, ts, f)
}
