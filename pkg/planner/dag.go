package planner

import (
	"fmt"
	"sort"

	"github.com/cuemby/cstarorch/pkg/types"
)

// Fixed control-node names. Never handed to a Launcher.
const (
	Start = "START"
	Term  = "TERM"
)

// NodeKind distinguishes a control node from a step node and, for the
// monitored planner, a monitor node.
type NodeKind int

const (
	KindStep NodeKind = iota
	KindControl
	KindMonitor
)

// DAG is the dependency graph derived from a Workplan: one node per step
// plus the two control nodes START and TERM. Edges run dependency ->
// dependent, with START feeding every dependency-free step and every
// step with no successors feeding TERM.
type DAG struct {
	nodes []string
	kind  map[string]NodeKind
	out   map[string]map[string]struct{}
	in    map[string]map[string]struct{}
}

// BuildDAG constructs a DAG from a Workplan's steps. Returns a
// *types.ValidationError if a step name is empty, duplicated, a
// dependency name does not resolve, or the resulting graph has a cycle.
func BuildDAG(steps []types.Step) (*DAG, error) {
	d := &DAG{
		kind: make(map[string]NodeKind),
		out:  make(map[string]map[string]struct{}),
		in:   make(map[string]map[string]struct{}),
	}

	d.addNode(Start, KindControl)
	d.addNode(Term, KindControl)

	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if s.Name == "" {
			return nil, types.NewValidationError("planner.BuildDAG", fmt.Errorf("step has empty name"))
		}
		if _, dup := seen[s.Name]; dup {
			return nil, types.NewValidationError("planner.BuildDAG", fmt.Errorf("duplicate step name %q", s.Name))
		}
		seen[s.Name] = struct{}{}
		d.addNode(s.Name, KindStep)
	}

	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := seen[dep]; !ok {
				return nil, types.NewValidationError("planner.BuildDAG", fmt.Errorf("step %q depends on unknown step %q", s.Name, dep))
			}
			d.addEdge(dep, s.Name)
		}
	}

	for _, s := range steps {
		if len(d.in[s.Name]) == 0 {
			d.addEdge(Start, s.Name)
		}
		if len(d.out[s.Name]) == 0 {
			d.addEdge(s.Name, Term)
		}
	}

	if len(steps) == 0 {
		d.addEdge(Start, Term)
	}

	if err := d.checkAcyclic(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *DAG) addNode(name string, kind NodeKind) {
	if _, ok := d.kind[name]; ok {
		return
	}
	d.nodes = append(d.nodes, name)
	d.kind[name] = kind
	d.out[name] = make(map[string]struct{})
	d.in[name] = make(map[string]struct{})
}

// addEdge coalesces duplicate edges via the adjacency set.
func (d *DAG) addEdge(from, to string) {
	d.out[from][to] = struct{}{}
	d.in[to][from] = struct{}{}
}

// Kind reports the NodeKind of a node, or false if it does not exist.
func (d *DAG) Kind(name string) (NodeKind, bool) {
	k, ok := d.kind[name]
	return k, ok
}

// Nodes returns all node names in insertion order (START, TERM, then
// steps in workplan order).
func (d *DAG) Nodes() []string {
	out := make([]string, len(d.nodes))
	copy(out, d.nodes)
	return out
}

// Successors returns the sorted (lexicographic) successor names of a node.
func (d *DAG) Successors(name string) []string {
	succ := make([]string, 0, len(d.out[name]))
	for n := range d.out[name] {
		succ = append(succ, n)
	}
	sort.Strings(succ)
	return succ
}

// Predecessors returns the sorted (lexicographic) predecessor names of a node.
func (d *DAG) Predecessors(name string) []string {
	pred := make([]string, 0, len(d.in[name]))
	for n := range d.in[name] {
		pred = append(pred, n)
	}
	sort.Strings(pred)
	return pred
}

// removeNode drops a node and all incident edges. Used internally by
// Planner implementations when a step is retired; the DAG itself never
// removes nodes on its own.
func (d *DAG) removeNode(name string) {
	for succ := range d.out[name] {
		delete(d.in[succ], name)
	}
	for pred := range d.in[name] {
		delete(d.out[pred], name)
	}
	delete(d.out, name)
	delete(d.in, name)
	delete(d.kind, name)
	for i, n := range d.nodes {
		if n == name {
			d.nodes = append(d.nodes[:i], d.nodes[i+1:]...)
			break
		}
	}
}

// checkAcyclic runs Kahn's algorithm: repeatedly remove nodes with
// in-degree zero. A graph with a cycle leaves a non-empty residue.
func (d *DAG) checkAcyclic() error {
	inDegree := make(map[string]int, len(d.nodes))
	for _, n := range d.nodes {
		inDegree[n] = len(d.in[n])
	}

	queue := make([]string, 0, len(d.nodes))
	for _, n := range d.nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++

		next := make([]string, 0)
		for succ := range d.out[n] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				next = append(next, succ)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
		sort.Strings(queue)
	}

	if visited != len(d.nodes) {
		return types.NewValidationError("planner.BuildDAG", fmt.Errorf("dependency graph contains a cycle"))
	}
	return nil
}
