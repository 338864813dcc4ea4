package signal

import (
	"fmt"
	"reflect"
)

// Inputter is implemented by nodes that read other nodes.
type Inputter interface {
	Inputs() []Node
}

// Reaches reports whether target is from itself or is read, directly or
// transitively, by from.
func Reaches(from, target Node) bool {
	if from == nil || target == nil {
		return false
	}
	visited := make(map[Node]struct{})
	var walk func(n Node) bool
	walk = func(n Node) bool {
		if n == nil {
			return false
		}
		if same(n, target) {
			return true
		}
		if isComparable(n) {
			if _, ok := visited[n]; ok {
				return false
			}
			visited[n] = struct{}{}
		}
		in, ok := n.(Inputter)
		if !ok {
			return false
		}
		for _, c := range in.Inputs() {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// CheckEdge returns ErrCycle if making parent read child would close a loop.
func CheckEdge(parent, child Node) error {
	if child == nil {
		return fmt.Errorf("%w: nil input", ErrInvalidParameter)
	}
	if Reaches(child, parent) {
		return fmt.Errorf("%w: %T already depends on %T", ErrCycle, child, parent)
	}
	return nil
}

func isComparable(n Node) bool {
	return reflect.TypeOf(n).Comparable()
}

func same(a, b Node) bool {
	if !isComparable(a) || !isComparable(b) {
		return false
	}
	return a == b
}
