package planner

import "fmt"

// MonitorSuffix names the monitor sibling derived from a step node.
const MonitorSuffix = ".monitor"

// MonitoredPlanner decorates a Planner by adding, for every non-control
// node, a sibling monitor node with an edge from the original node to its
// monitor. Monitor nodes carry KindMonitor instead of KindStep: Launchers
// ignore them for command execution but they are surfaced through Iter
// for observability.
type MonitoredPlanner struct {
	inner Planner
	dag   *DAG
}

// NewMonitoredPlanner wraps inner, adding a monitor node for every step
// node already present in dag.
func NewMonitoredPlanner(inner Planner, dag *DAG) *MonitoredPlanner {
	m := &MonitoredPlanner{inner: inner, dag: dag}
	for _, n := range dag.Nodes() {
		kind, _ := dag.Kind(n)
		if kind != KindStep {
			continue
		}
		monitor := monitorName(n)
		dag.addNode(monitor, KindMonitor)
		dag.addEdge(n, monitor)
	}
	return m
}

func monitorName(step string) string {
	return fmt.Sprintf("%s%s", step, MonitorSuffix)
}

func (m *MonitoredPlanner) Next() (string, bool) {
	return m.inner.Next()
}

func (m *MonitoredPlanner) Ready() []string {
	return m.inner.Ready()
}

func (m *MonitoredPlanner) Remove(name string) error {
	return m.inner.Remove(name)
}

// Iter returns the inner planner's traversal plus, for every returned
// step, its monitor node immediately after it.
func (m *MonitoredPlanner) Iter() []string {
	base := m.inner.Iter()
	out := make([]string, 0, len(base)*2)
	for _, n := range base {
		out = append(out, n)
		if kind, ok := m.dag.Kind(monitorName(n)); ok && kind == KindMonitor {
			out = append(out, monitorName(n))
		}
	}
	return out
}

// Monitor returns the monitor node name for a step, if one was derived.
func (m *MonitoredPlanner) Monitor(step string) (string, bool) {
	name := monitorName(step)
	kind, ok := m.dag.Kind(name)
	if !ok || kind != KindMonitor {
		return "", false
	}
	return name, true
}
