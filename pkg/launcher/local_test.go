package launcher

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/cstarorch/pkg/config"
	"github.com/cuemby/cstarorch/pkg/task"
	"github.com/cuemby/cstarorch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(h types.ProcessHandle) *task.Task {
	return task.NewFromProcessHandle(h)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.CommandTemplates = map[string][]string{
		"sleep": {"sleep"},
	}
	return cfg
}

func TestLocalLauncherLaunch(t *testing.T) {
	l := NewLocalLauncher(testConfig(), t.TempDir(), nil, nil)

	steps := []types.Step{
		{Name: "a", Application: "sleep", ComputeOverrides: map[string]any{"duration": "0.05"}},
		{Name: "b", Application: "sleep"},
	}

	tasks, err := l.Launch(context.Background(), steps)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	for _, name := range []string{"a", "b"} {
		assert.Greater(t, tasks[name].Status, types.Ready)
	}
}

func TestLocalLauncherReportUnstarted(t *testing.T) {
	l := NewLocalLauncher(testConfig(), t.TempDir(), nil, nil)
	assert.Equal(t, types.Unknown, l.Report("ghost"))
}

func TestLocalLauncherReportAllMixed(t *testing.T) {
	l := NewLocalLauncher(testConfig(), t.TempDir(), nil, nil)
	_, err := l.Launch(context.Background(), []types.Step{{Name: "a", Application: "sleep"}})
	require.NoError(t, err)

	statuses := l.ReportAll([]string{"a", "ghost"})
	assert.Contains(t, statuses, "a")
	assert.Equal(t, types.Unknown, statuses["ghost"])
}

func TestLocalLauncherUnknownApplicationFails(t *testing.T) {
	l := NewLocalLauncher(testConfig(), t.TempDir(), nil, nil)
	tasks, err := l.Launch(context.Background(), []types.Step{{Name: "a", Application: "does-not-exist"}})
	require.NoError(t, err)
	assert.Equal(t, types.Failed, tasks["a"].Status)
}

func TestLocalLauncherAddMonitoredIsIdempotent(t *testing.T) {
	l := NewLocalLauncher(testConfig(), t.TempDir(), nil, nil)
	h := types.ProcessHandle{PID: 1, CreatedOn: time.Now(), Name: "reattached", Key: "k"}

	tk := newTestTask(h)
	l.AddMonitored(tk)
	l.AddMonitored(tk)

	assert.Len(t, l.tasks, 1)
}

func TestLocalLauncherActiveTasksExcludesTerminal(t *testing.T) {
	l := NewLocalLauncher(testConfig(), t.TempDir(), nil, nil)
	_, err := l.Launch(context.Background(), []types.Step{
		{Name: "ok", Application: "sleep"},
		{Name: "bad", Application: "ghost-app"},
	})
	require.NoError(t, err)

	active := l.ActiveTasks()
	assert.Contains(t, active, "ok")
	assert.NotContains(t, active, "bad")
}
