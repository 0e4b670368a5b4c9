package planner

import "fmt"

// Planner exposes traversal over a dependency DAG to the Orchestrator:
// which step is eligible to run next, and retirement of a completed step.
type Planner interface {
	// Next returns the name of a currently-eligible step, or ok == false
	// if the planner is exhausted (every step removed).
	Next() (name string, ok bool)

	// Ready returns every currently-eligible step name (dependencies
	// already retired, not yet removed), in deterministic lexicographic
	// order. Unlike Next, it does not pick just one: the Orchestrator
	// starts all of them in the same cycle instead of serializing
	// independent branches of the DAG behind one another.
	Ready() []string

	// Remove retires a step that has reached a terminal status. It is an
	// error to remove a name that is not a current node of the planner.
	Remove(name string) error

	// Iter returns every step name (excluding control nodes) in
	// traversal order. Restartable: callers may call Iter repeatedly.
	Iter() []string
}

// bfsOrder walks the DAG breadth-first from Start, breaking ties among
// simultaneously-reachable nodes by lexicographic name, and returns every
// step node (control and monitor nodes excluded) in that order.
func bfsOrder(d *DAG) []string {
	visited := map[string]struct{}{Start: {}}
	queue := []string{Start}
	var order []string

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		for _, succ := range d.Successors(n) {
			if _, seen := visited[succ]; seen {
				continue
			}
			visited[succ] = struct{}{}
			if kind, ok := d.Kind(succ); ok && kind == KindStep {
				order = append(order, succ)
			}
			if succ != Term {
				queue = append(queue, succ)
			}
		}
	}
	return order
}

// isReady reports whether every dependency of name has already been
// removed from the DAG (reached Done and been retired). Start is not a
// real dependency and is ignored.
func isReady(d *DAG, name string) bool {
	for _, pred := range d.Predecessors(name) {
		if pred != Start {
			return false
		}
	}
	return true
}

var errUnknownNode = func(name string) error {
	return fmt.Errorf("planner: node %q is not present", name)
}
