package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/cstarorch/pkg/config"
	"github.com/cuemby/cstarorch/pkg/launcher"
	"github.com/cuemby/cstarorch/pkg/splitter"
	"github.com/cuemby/cstarorch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.CommandTemplates = map[string][]string{"noop": {"true"}}
	cfg.SleepDuration = 5 * time.Millisecond
	return cfg
}

func TestOrchestratorRunsSingleStepToCompletion(t *testing.T) {
	cfg := testConfig()
	l := launcher.NewLocalLauncher(cfg, t.TempDir(), nil, nil)

	o, err := New(cfg, l, []types.Step{{Name: "a", Application: "noop"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Run(ctx))

	assert.Empty(t, o.taskLookup)
	require.Contains(t, o.taskArchive, "a")
	assert.Equal(t, types.Done, o.taskArchive["a"].Status)
}

func TestOrchestratorDiamondDependencyOrdering(t *testing.T) {
	cfg := testConfig()
	l := launcher.NewLocalLauncher(cfg, t.TempDir(), nil, nil)

	steps := []types.Step{
		{Name: "top", Application: "noop"},
		{Name: "left", Application: "noop", DependsOn: []string{"top"}},
		{Name: "right", Application: "noop", DependsOn: []string{"top"}},
		{Name: "bottom", Application: "noop", DependsOn: []string{"left", "right"}},
	}

	o, err := New(cfg, l, steps)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, o.Run(ctx))

	for _, name := range []string{"top", "left", "right", "bottom"} {
		require.Contains(t, o.taskArchive, name)
		assert.Equal(t, types.Done, o.taskArchive[name].Status)
	}
}

func TestOrchestratorArchivesFailedLaunch(t *testing.T) {
	cfg := testConfig()
	l := launcher.NewLocalLauncher(cfg, t.TempDir(), nil, nil)

	o, err := New(cfg, l, []types.Step{{Name: "bad", Application: "does-not-exist"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, o.Run(ctx))

	require.Contains(t, o.taskArchive, "bad")
	assert.Equal(t, types.Failed, o.taskArchive["bad"].Status)
}

func TestRunStepRejectsOutOfRangeIndex(t *testing.T) {
	cfg := testConfig()
	l := launcher.NewLocalLauncher(cfg, t.TempDir(), nil, nil)

	steps := []types.Step{{Name: "a", Application: "noop"}}
	err := RunStep(context.Background(), cfg, l, steps, 5)
	assert.Error(t, err)
}

func TestRunStepByIndex(t *testing.T) {
	cfg := testConfig()
	l := launcher.NewLocalLauncher(cfg, t.TempDir(), nil, nil)

	steps := []types.Step{{Name: "a", Application: "noop"}}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, RunStep(ctx, cfg, l, steps, 0))
}

func TestOrchestratorStartsIndependentStepsConcurrently(t *testing.T) {
	cfg := testConfig()
	cfg.CommandTemplates["slow"] = []string{"sh", "-c", "sleep 0.3"}
	l := launcher.NewLocalLauncher(cfg, t.TempDir(), nil, nil)

	// left and right both depend only on top, so once top finishes they
	// become ready in the same cycle. If the orchestrator only started
	// one ready step per cycle, this would take at least 2*0.3s; started
	// concurrently it should take well under that.
	steps := []types.Step{
		{Name: "top", Application: "noop"},
		{Name: "left", Application: "slow", DependsOn: []string{"top"}},
		{Name: "right", Application: "slow", DependsOn: []string{"top"}},
	}

	o, err := New(cfg, l, steps)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, o.Run(ctx))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond, "left and right should run concurrently, not serially")
	for _, name := range []string{"top", "left", "right"} {
		require.Contains(t, o.taskArchive, name)
		assert.Equal(t, types.Done, o.taskArchive[name].Status)
	}
}

func TestExpandStepsRewritesDownstreamDependency(t *testing.T) {
	steps := []types.Step{
		{
			Name:        "sim",
			Application: "roms_marbl",
			Blueprint:   "blueprint.yaml",
		},
		{Name: "postprocess", Application: "noop", DependsOn: []string{"sim"}},
	}

	// Split needs a real blueprint load; register a stub Splitter in a
	// fresh Registry to avoid touching the filesystem.
	registry := splitter.NewRegistry()
	stub := &stubSplitter{subs: []types.Step{
		{Name: "sim_part1"},
		{Name: "sim_part2", DependsOn: []string{"sim_part1"}},
	}}
	registry.Register("roms_marbl", stub)

	expanded, err := ExpandSteps(steps, registry)
	require.NoError(t, err)
	require.Len(t, expanded, 3)
	assert.Equal(t, "postprocess", expanded[2].Name)
	assert.Equal(t, []string{"sim_part2"}, expanded[2].DependsOn)
}

type stubSplitter struct {
	subs []types.Step
}

func (s *stubSplitter) Split(step types.Step) ([]types.Step, error) {
	return s.subs, nil
}
