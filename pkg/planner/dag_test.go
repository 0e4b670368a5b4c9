package planner

import (
	"testing"

	"github.com/cuemby/cstarorch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDAG(t *testing.T) {
	tests := []struct {
		name      string
		steps     []types.Step
		wantErr   bool
		wantNodes int // step nodes only
	}{
		{
			name:      "empty plan yields start-term only",
			steps:     nil,
			wantErr:   false,
			wantNodes: 0,
		},
		{
			name: "single independent step",
			steps: []types.Step{
				{Name: "s"},
			},
			wantErr:   false,
			wantNodes: 1,
		},
		{
			name: "diamond dependency",
			steps: []types.Step{
				{Name: "A"},
				{Name: "B", DependsOn: []string{"A"}},
				{Name: "C", DependsOn: []string{"A"}},
				{Name: "D", DependsOn: []string{"B", "C"}},
			},
			wantErr:   false,
			wantNodes: 4,
		},
		{
			name: "empty step name is rejected",
			steps: []types.Step{
				{Name: ""},
			},
			wantErr: true,
		},
		{
			name: "duplicate step name is rejected",
			steps: []types.Step{
				{Name: "a"},
				{Name: "a"},
			},
			wantErr: true,
		},
		{
			name: "unresolved dependency is rejected",
			steps: []types.Step{
				{Name: "a", DependsOn: []string{"ghost"}},
			},
			wantErr: true,
		},
		{
			name: "cycle is rejected",
			steps: []types.Step{
				{Name: "a", DependsOn: []string{"b"}},
				{Name: "b", DependsOn: []string{"a"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dag, err := BuildDAG(tt.steps)
			if tt.wantErr {
				require.Error(t, err)
				assert.IsType(t, &types.ValidationError{}, err)
				return
			}
			require.NoError(t, err)

			count := 0
			for _, n := range dag.Nodes() {
				kind, _ := dag.Kind(n)
				if kind == KindStep {
					count++
				}
			}
			assert.Equal(t, tt.wantNodes, count)

			startKind, ok := dag.Kind(Start)
			require.True(t, ok)
			assert.Equal(t, KindControl, startKind)

			termKind, ok := dag.Kind(Term)
			require.True(t, ok)
			assert.Equal(t, KindControl, termKind)
		})
	}
}

func TestDAGDuplicateEdgesCoalesce(t *testing.T) {
	steps := []types.Step{
		{Name: "a"},
		{Name: "b", DependsOn: []string{"a", "a"}},
	}
	dag, err := BuildDAG(steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, dag.Successors("a"))
	assert.Equal(t, []string{"a"}, dag.Predecessors("b"))
}
