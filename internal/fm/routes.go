package fm

import (
	"fmt"
	"math"

	"github.com/cbegin/fmgraph-go/internal/signal"
)

// Edge connects operator Mod into operator Carrier's modulation mixer.
// Indices refer to a slice of operator IDs.
type Edge struct {
	Mod, Carrier int
}

// Route is an operator topology: modulation edges plus the operators that
// reach the output.
type Route struct {
	Edges    []Edge
	Carriers []int
}

// AlgorithmRoute returns the classic 1-4 operator topologies. Operator 0 is
// always a carrier; algorithm numbers without a distinct topology for the
// operator count fall back to the full cascade (algorithm 0).
func AlgorithmRoute(ops, alg int) (Route, error) {
	if ops < 1 || ops > 4 {
		return Route{}, fmt.Errorf("fm: %w: operator count must be 1-4: %d", signal.ErrInvalidParameter, ops)
	}
	if alg < 0 {
		alg = 0
	}
	if alg > 7 {
		alg = 7
	}
	cascade := func(n int) Route {
		r := Route{Carriers: []int{0}}
		for i := n - 1; i > 0; i-- {
			r.Edges = append(r.Edges, Edge{i, i - 1})
		}
		return r
	}
	parallel := func(n int) Route {
		r := Route{}
		for i := 0; i < n; i++ {
			r.Carriers = append(r.Carriers, i)
		}
		return r
	}
	switch ops {
	case 1:
		return cascade(1), nil
	case 2:
		if alg == 1 { // op0 + op1 both carriers
			return parallel(2), nil
		}
		return cascade(2), nil // op1 → op0
	case 3:
		switch alg {
		case 2: // (op1+op2) → op0
			return Route{Edges: []Edge{{1, 0}, {2, 0}}, Carriers: []int{0}}, nil
		case 3:
			return parallel(3), nil
		}
		return cascade(3), nil // op2 → op1 → op0
	}
	switch alg {
	case 2: // (op2+op3) → op1 → op0
		return Route{Edges: []Edge{{2, 1}, {3, 1}, {1, 0}}, Carriers: []int{0}}, nil
	case 3: // op2 → op1, op3 → op0
		return Route{Edges: []Edge{{2, 1}, {3, 0}}, Carriers: []int{0, 1}}, nil
	case 4: // op3 → op2 → op1, op0 alone
		return Route{Edges: []Edge{{3, 2}, {2, 1}}, Carriers: []int{0, 1}}, nil
	case 5:
		return parallel(4), nil
	}
	return cascade(4), nil // op3 → op2 → op1 → op0
}

// CarrierLevel is the RMS-aware output level for n parallel carriers.
func CarrierLevel(n int) float64 {
	if n <= 1 {
		return 1
	}
	return 1 / math.Sqrt(float64(n))
}
