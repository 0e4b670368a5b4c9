package launcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/cstarorch/pkg/config"
	"github.com/cuemby/cstarorch/pkg/task"
	"github.com/cuemby/cstarorch/pkg/types"
	"golang.org/x/sync/errgroup"
)

// LocalLauncher runs each step as a child OS process. It also supports
// reattachment: given a ProcessHandle, it constructs a Task derived from
// the PID and lets Task.Query detect PID recycling.
type LocalLauncher struct {
	mu     sync.Mutex
	cfg    config.Config
	logDir string

	// Include/EnvInclude configure the command parameterizer shared by
	// every step this launcher runs.
	Include    []string
	EnvInclude []string

	tasks map[string]*task.Task
}

// NewLocalLauncher constructs a LocalLauncher that writes process logs
// to logDir and resolves executables via cfg's command-template
// registry.
func NewLocalLauncher(cfg config.Config, logDir string, include, envInclude []string) *LocalLauncher {
	return &LocalLauncher{
		cfg:        cfg,
		logDir:     logDir,
		Include:    include,
		EnvInclude: envInclude,
		tasks:      make(map[string]*task.Task),
	}
}

// Allocate is a no-op for a local backend: there is no shared allocation
// to acquire before running child processes.
func (l *LocalLauncher) Allocate(ctx context.Context) error {
	return nil
}

func (l *LocalLauncher) Launch(ctx context.Context, steps []types.Step) (map[string]*task.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]*task.Task, len(steps))
	for _, step := range steps {
		t := l.startOne(ctx, step)
		l.tasks[step.Name] = t
		out[step.Name] = t
	}
	return out, nil
}

func (l *LocalLauncher) startOne(ctx context.Context, step types.Step) *task.Task {
	executable, err := l.cfg.Executable(step.Application)
	if err != nil {
		return task.NewFailed(step.Name, err)
	}

	overrides := task.MergeOverrides(step.ComputeOverrides, step.BlueprintOverrides)
	cmd := task.Parameterize(executable, l.Include, l.EnvInclude, overrides)

	t := task.NewFromStep(step)
	if err := t.Start(ctx, cmd, l.logDir); err != nil {
		return task.NewFailed(step.Name, fmt.Errorf("starting step %q: %w", step.Name, err))
	}
	return t
}

// AddMonitored registers a Task constructed elsewhere (typically via
// task.NewFromProcessHandle) into this launcher's table. Registering the
// same name twice is idempotent: the second call is a no-op.
func (l *LocalLauncher) AddMonitored(t *task.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.tasks[t.Name]; exists {
		return
	}
	l.tasks[t.Name] = t
}

func (l *LocalLauncher) Report(name string) types.TaskStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tasks[name]
	if !ok {
		return types.Unknown
	}
	return t.Status
}

func (l *LocalLauncher) ReportAll(names []string) map[string]types.TaskStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]types.TaskStatus, len(names))
	for _, name := range names {
		if t, ok := l.tasks[name]; ok {
			out[name] = t.Status
		} else {
			out[name] = types.Unknown
		}
	}
	return out
}

// Update refreshes every non-terminal task's status. Local tasks
// maintain their own status via a background exit-waiter, except
// reattached (ProcessHandle-sourced) tasks, which this call probes
// concurrently, one errgroup goroutine per pending task with no limit on
// how many run at once.
func (l *LocalLauncher) Update(ctx context.Context) error {
	l.mu.Lock()
	pending := make([]*task.Task, 0, len(l.tasks))
	for _, t := range l.tasks {
		if !t.Status.IsTerminal() {
			pending = append(pending, t)
		}
	}
	l.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range pending {
		t := t
		g.Go(func() error {
			t.Query(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (l *LocalLauncher) ActiveTasks() map[string]*task.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]*task.Task)
	for name, t := range l.tasks {
		if t.Status < types.Done {
			out[name] = t
		}
	}
	return out
}
