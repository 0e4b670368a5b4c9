package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameterize(t *testing.T) {
	overrides := map[string]any{
		"np":       4,
		"walltime": "01:00:00",
		"queue":    "debug",
		"unused":   "ignored-me",
	}

	pc := Parameterize(
		[]string{"roms_marbl.exe"},
		[]string{"np", "walltime"},
		[]string{"queue"},
		overrides,
	)

	assert.Equal(t, []string{"queue=debug"}, pc.EnvAssignments)
	assert.Equal(t, []string{"roms_marbl.exe"}, pc.Executable)
	assert.Equal(t, []string{"np", "4", "walltime", "01:00:00"}, pc.CliTokens)
	assert.Equal(t, []string{"unused"}, pc.Ignored)

	assert.Equal(t, []string{
		"queue=debug",
		"roms_marbl.exe",
		"np", "4",
		"walltime", "01:00:00",
	}, pc.Combined())
}

func TestParameterizeEmptyOverrides(t *testing.T) {
	pc := Parameterize([]string{"sleep"}, nil, nil, nil)
	assert.Equal(t, []string{"sleep"}, pc.Executable)
	assert.Empty(t, pc.CliTokens)
	assert.Empty(t, pc.EnvAssignments)
	assert.Empty(t, pc.Ignored)
}

func TestMergeOverridesComputeWins(t *testing.T) {
	merged := MergeOverrides(
		map[string]any{"np": 8},
		map[string]any{"np": 4, "queue": "debug"},
	)
	assert.Equal(t, 8, merged["np"])
	assert.Equal(t, "debug", merged["queue"])
}
