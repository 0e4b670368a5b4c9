package planner

import "sort"

// GraphPlanner recomputes readiness from the live DAG on every call to
// Next: it scans the remaining step nodes for those whose only
// predecessor is Start (or that have none left) and returns the
// lexicographically first of them. Iter walks the graph breadth-first
// from Start.
type GraphPlanner struct {
	dag *DAG
}

// NewGraphPlanner builds a GraphPlanner over dag. dag is mutated by Remove.
func NewGraphPlanner(dag *DAG) *GraphPlanner {
	return &GraphPlanner{dag: dag}
}

func (p *GraphPlanner) Next() (string, bool) {
	candidates := p.Ready()
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0], true
}

// Ready returns every step whose dependencies have all been removed,
// sorted lexicographically. The Orchestrator starts all of them in the
// same reconcile cycle, so independent branches of the DAG run
// concurrently instead of queuing behind one another.
func (p *GraphPlanner) Ready() []string {
	candidates := make([]string, 0)
	for _, n := range p.dag.Nodes() {
		kind, _ := p.dag.Kind(n)
		if kind != KindStep {
			continue
		}
		if isReady(p.dag, n) {
			candidates = append(candidates, n)
		}
	}
	sort.Strings(candidates)
	return candidates
}

func (p *GraphPlanner) Remove(name string) error {
	if kind, ok := p.dag.Kind(name); !ok || kind != KindStep {
		return errUnknownNode(name)
	}
	succs := p.dag.Successors(name)
	p.dag.removeNode(name)
	// Re-anchor successors left without predecessors under Start, so
	// Iter's breadth-first walk still reaches every remaining step.
	for _, s := range succs {
		if len(p.dag.Predecessors(s)) == 0 {
			p.dag.addEdge(Start, s)
		}
	}
	return nil
}

func (p *GraphPlanner) Iter() []string {
	return bfsOrder(p.dag)
}
