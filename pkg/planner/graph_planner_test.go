package planner

import (
	"testing"

	"github.com/cuemby/cstarorch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamondSteps() []types.Step {
	return []types.Step{
		{Name: "A"},
		{Name: "B", DependsOn: []string{"A"}},
		{Name: "C", DependsOn: []string{"A"}},
		{Name: "D", DependsOn: []string{"B", "C"}},
	}
}

func TestGraphPlannerDiamondOrder(t *testing.T) {
	dag, err := BuildDAG(diamondSteps())
	require.NoError(t, err)
	p := NewGraphPlanner(dag)

	next, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, "A", next)
	require.NoError(t, p.Remove("A"))

	next, ok = p.Next()
	require.True(t, ok)
	assert.Equal(t, "B", next, "B before C by lexicographic tie-break")
	require.NoError(t, p.Remove("B"))

	next, ok = p.Next()
	require.True(t, ok)
	assert.Equal(t, "C", next)
	require.NoError(t, p.Remove("C"))

	next, ok = p.Next()
	require.True(t, ok)
	assert.Equal(t, "D", next)
	require.NoError(t, p.Remove("D"))

	_, ok = p.Next()
	assert.False(t, ok, "exhausted planner returns none forever after")
	_, ok = p.Next()
	assert.False(t, ok)
}

func TestGraphPlannerReadySurfacesEveryEligibleStep(t *testing.T) {
	dag, err := BuildDAG(diamondSteps())
	require.NoError(t, err)
	p := NewGraphPlanner(dag)

	assert.Equal(t, []string{"A"}, p.Ready())
	require.NoError(t, p.Remove("A"))

	// B and C both became ready when A was removed: Ready must surface
	// both in the same call, not just the lexicographically-first one.
	assert.Equal(t, []string{"B", "C"}, p.Ready())

	require.NoError(t, p.Remove("B"))
	require.NoError(t, p.Remove("C"))
	assert.Equal(t, []string{"D"}, p.Ready())

	require.NoError(t, p.Remove("D"))
	assert.Empty(t, p.Ready())
}

func TestSerialPlannerReadyNeverReturnsMoreThanOne(t *testing.T) {
	dag, err := BuildDAG(diamondSteps())
	require.NoError(t, err)
	p := NewSerialPlanner(dag)

	assert.Equal(t, []string{"A"}, p.Ready())
	require.NoError(t, p.Remove("A"))
	assert.Equal(t, []string{"B"}, p.Ready(), "serial planner stays single-file even though C is graph-ready too")
}

func TestGraphPlannerRemoveUnknownIsError(t *testing.T) {
	dag, err := BuildDAG([]types.Step{{Name: "a"}})
	require.NoError(t, err)
	p := NewGraphPlanner(dag)

	require.NoError(t, p.Remove("a"))
	assert.Error(t, p.Remove("a"), "removing twice is an error")
	assert.Error(t, p.Remove("ghost"))
}

func TestGraphPlannerEmptyPlan(t *testing.T) {
	dag, err := BuildDAG(nil)
	require.NoError(t, err)
	p := NewGraphPlanner(dag)

	_, ok := p.Next()
	assert.False(t, ok)
	assert.Empty(t, p.Iter())
}

func TestSerialPlannerFixedOrder(t *testing.T) {
	dag, err := BuildDAG(diamondSteps())
	require.NoError(t, err)
	p := NewSerialPlanner(dag)

	order := p.Iter()
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)

	for _, name := range order {
		next, ok := p.Next()
		require.True(t, ok)
		assert.Equal(t, name, next)
		require.NoError(t, p.Remove(name))
	}

	_, ok := p.Next()
	assert.False(t, ok)
}

func TestMonitoredPlannerSurfacesMonitorNodes(t *testing.T) {
	dag, err := BuildDAG([]types.Step{{Name: "a"}})
	require.NoError(t, err)
	base := NewSerialPlanner(dag)
	mp := NewMonitoredPlanner(base, dag)

	monitor, ok := mp.Monitor("a")
	require.True(t, ok)
	assert.Equal(t, "a.monitor", monitor)

	kind, ok := dag.Kind(monitor)
	require.True(t, ok)
	assert.Equal(t, KindMonitor, kind)

	iter := mp.Iter()
	assert.Equal(t, []string{"a", "a.monitor"}, iter)
}
