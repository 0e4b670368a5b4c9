package launcher

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/cstarorch/pkg/config"
	"github.com/cuemby/cstarorch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner drives a BatchLauncher through a scripted sequence of
// sacct-shaped responses, one per call, the last repeating thereafter.
type stubRunner struct {
	calls       int
	statusCalls int
	responses   []string
}

func (s *stubRunner) run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	s.calls++
	if name == "salloc" {
		return "7777", "", 0, nil
	}
	if name == "srun" {
		return "", "", 0, nil
	}
	idx := s.statusCalls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.statusCalls++
	return s.responses[idx], "", 0, nil
}

func sacctLine(jobID, state, name string) string {
	return fmt.Sprintf("%s|%s|%s", jobID, state, name)
}

func newBatchLauncherForTest(t *testing.T, runner *stubRunner) *BatchLauncher {
	t.Helper()
	cfg := config.Default()
	cfg.CommandTemplates = map[string][]string{"roms_marbl": {"roms_marbl.exe"}}
	cfg.Retry.MaxRetries = 10
	cfg.Retry.InitialInterval = time.Millisecond

	l := NewBatchLauncher(cfg, runner.run, nil, nil)
	require.NoError(t, l.Allocate(context.Background()))
	return l
}

func TestBatchLauncherAllocateParsesJobID(t *testing.T) {
	runner := &stubRunner{}
	l := newBatchLauncherForTest(t, runner)
	assert.Equal(t, "7777", l.jobID)

	// idempotent
	require.NoError(t, l.Allocate(context.Background()))
	assert.Equal(t, 1, runner.calls, "second Allocate call is a no-op")
}

func TestBatchLauncherStatusMapping(t *testing.T) {
	tests := []struct {
		raw  string
		want types.TaskStatus
	}{
		{"PENDING", types.Waiting},
		{"pending", types.Waiting},
		{"RUNNING", types.Active},
		{"COMPLETED", types.Done},
		{"CANCELLED", types.Aborted},
		{"FAILED", types.Failed},
		{"SOMETHING_ELSE", types.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, mapRawStatus(tt.raw))
		})
	}
}

func TestBatchLauncherTransientThenComplete(t *testing.T) {
	runner := &stubRunner{
		responses: []string{
			sacctLine("7777", "RUNNING", "s"),
			sacctLine("7777", "RUNNING", "s"),
			sacctLine("7777", "RUNNING", "s"),
			sacctLine("7777", "COMPLETED", "s"),
		},
	}
	l := newBatchLauncherForTest(t, runner)

	_, err := l.Launch(context.Background(), []types.Step{{Name: "s", Application: "roms_marbl"}})
	require.NoError(t, err)

	require.NoError(t, l.Update(context.Background()))
	assert.Equal(t, types.Done, l.Report("s"))
}

func TestBatchLauncherRetryExhaustionKeepsLastObserved(t *testing.T) {
	cfg := config.Default()
	cfg.CommandTemplates = map[string][]string{"roms_marbl": {"roms_marbl.exe"}}
	cfg.Retry.MaxRetries = 2
	cfg.Retry.InitialInterval = time.Millisecond

	runner := &stubRunner{responses: []string{sacctLine("7777", "RUNNING", "s")}}
	l := NewBatchLauncher(cfg, runner.run, nil, nil)
	require.NoError(t, l.Allocate(context.Background()))

	_, err := l.Launch(context.Background(), []types.Step{{Name: "s", Application: "roms_marbl"}})
	require.NoError(t, err)

	require.NoError(t, l.Update(context.Background()))
	assert.Equal(t, types.Active, l.Report("s"), "exhaustion keeps the last observed non-terminal status")
}

func TestBatchLauncherQueryStatusRejectsEmptyNames(t *testing.T) {
	l := newBatchLauncherForTest(t, &stubRunner{})
	_, err := l.queryStatus(context.Background(), "7777", nil)
	assert.Error(t, err)
}

func TestBatchLauncherQueryStatusSkipsMalformedLines(t *testing.T) {
	runner := &stubRunner{responses: []string{
		strings.Join([]string{
			sacctLine("7777", "COMPLETED", "s"),
			"garbage-line-no-pipes",
			"",
		}, "\n"),
	}}
	l := newBatchLauncherForTest(t, runner)

	statuses, err := l.queryStatus(context.Background(), "7777", []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, types.Done, statuses["s"])
}

func TestBatchLauncherLaunchBeforeAllocateFails(t *testing.T) {
	l := NewBatchLauncher(config.Default(), (&stubRunner{}).run, nil, nil)
	_, err := l.Launch(context.Background(), []types.Step{{Name: "s"}})
	assert.Error(t, err)
}
