package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/cstarorch/pkg/config"
	"github.com/cuemby/cstarorch/pkg/launcher"
	"github.com/cuemby/cstarorch/pkg/log"
	"github.com/cuemby/cstarorch/pkg/metrics"
	"github.com/cuemby/cstarorch/pkg/planner"
	"github.com/cuemby/cstarorch/pkg/task"
	"github.com/cuemby/cstarorch/pkg/types"
)

// Orchestrator drives a workplan's steps to completion. It owns two maps
// keyed by step name: task_lookup (live) and task_archive (retired). No
// task is ever in both; memory is released only when the Orchestrator
// itself is discarded.
type Orchestrator struct {
	mu sync.Mutex

	cfg      config.Config
	launcher launcher.Launcher
	plan     planner.Planner

	steps       map[string]types.Step
	taskLookup  map[string]*task.Task
	taskArchive map[string]*task.Task
}

// New builds an Orchestrator over steps, using l to launch and poll
// tasks. steps must already be expanded (see ExpandSteps) if any of them
// are subject to a splitter.
func New(cfg config.Config, l launcher.Launcher, steps []types.Step) (*Orchestrator, error) {
	dag, err := planner.BuildDAG(steps)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]types.Step, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
	}

	return &Orchestrator{
		cfg:         cfg,
		launcher:    l,
		plan:        planner.NewGraphPlanner(dag),
		steps:       byName,
		taskLookup:  make(map[string]*task.Task),
		taskArchive: make(map[string]*task.Task),
	}, nil
}

// Run first calls the Launcher's Allocate (a no-op for LocalLauncher),
// then repeatedly reconciles every currently in-flight task and starts
// every step the Planner now considers ready, sleeping cfg.SleepDuration
// between cycles. Independent branches of the DAG run concurrently: a
// cycle starts every ready step at once rather than one at a time, so a
// second ready step is never left waiting on an unrelated first one.
// Returns nil once nothing is running and nothing more can become ready,
// the error from Allocate, or the first error raised by a reconciliation
// pass (LaunchError is recovered internally and never reaches here; see
// start).
func (o *Orchestrator) Run(ctx context.Context) error {
	allocTimer := metrics.NewTimer()
	if err := o.launcher.Allocate(ctx); err != nil {
		return err
	}
	allocTimer.ObserveDuration(metrics.AllocationDuration)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		timer := metrics.NewTimer()
		done, err := o.reconcileCycle(ctx)
		if err != nil {
			return err
		}
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()

		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.cfg.SleepDuration):
		}
	}
}

// reconcileCycle refreshes every in-flight task's status once, retires
// any that reached a terminal status, and starts every step the Planner
// reports ready that does not already have a Task. It reports done ==
// true once nothing is in flight and the Planner has nothing ready left.
func (o *Orchestrator) reconcileCycle(ctx context.Context) (bool, error) {
	if err := o.launcher.Update(ctx); err != nil {
		return false, err
	}

	o.mu.Lock()
	inFlight := make([]string, 0, len(o.taskLookup))
	for name := range o.taskLookup {
		inFlight = append(inFlight, name)
	}
	o.mu.Unlock()
	sort.Strings(inFlight)

	for _, name := range inFlight {
		if err := o.pollAndRetire(name); err != nil {
			return false, err
		}
	}

	ready := o.plan.Ready()
	for _, name := range ready {
		o.mu.Lock()
		_, exists := o.taskLookup[name]
		o.mu.Unlock()
		if exists {
			continue
		}

		t := o.start(ctx, name)
		o.mu.Lock()
		o.taskLookup[name] = t
		o.mu.Unlock()
		metrics.StepsScheduled.Inc()

		if t.Status.IsTerminal() {
			if err := o.pollAndRetire(name); err != nil {
				return false, err
			}
		}
	}

	o.mu.Lock()
	remaining := len(o.taskLookup)
	o.mu.Unlock()

	return remaining == 0 && len(ready) == 0, nil
}

// pollAndRetire refreshes name's Task status against the Launcher's last
// Update, logs any transition (with the return code when one is known),
// and retires the task into the archive (and out of the Planner) once it
// reaches a terminal status. A Task that is already terminal keeps its
// status, so a FailTask built by start is archived as Failed.
func (o *Orchestrator) pollAndRetire(name string) error {
	o.mu.Lock()
	t, exists := o.taskLookup[name]
	o.mu.Unlock()
	if !exists {
		return nil
	}

	if newStatus := o.launcher.Report(name); !t.Status.IsTerminal() && newStatus != t.Status {
		logger := log.WithTransition(name, t.Status.String(), newStatus.String(), t.TaskID.String())
		event := logger.Info()
		if t.ReturnCode != nil {
			event = event.Int("rc", *t.ReturnCode)
		}
		event.Msg("step status transition")
		t.Status = newStatus
	}

	if !t.Status.IsTerminal() {
		return nil
	}

	if err := o.plan.Remove(name); err != nil {
		return err
	}
	o.mu.Lock()
	delete(o.taskLookup, name)
	o.taskArchive[name] = t
	o.mu.Unlock()

	switch t.Status {
	case types.Done:
		metrics.StepsCompleted.Inc()
	case types.Failed:
		metrics.StepsFailed.Inc()
	case types.Aborted:
		metrics.StepsAborted.Inc()
	}
	return nil
}

// start launches name's step via the Launcher. A Launch error (not a
// per-step launch failure, which the Launcher already folds into a
// Failed task) is itself recovered into a FailTask so the step is
// archived and the loop continues, per the LaunchError recovery policy.
func (o *Orchestrator) start(ctx context.Context, name string) *task.Task {
	step := o.steps[name]
	logger := log.WithStep(name)

	timer := metrics.NewTimer()
	tasks, err := o.launcher.Launch(ctx, []types.Step{step})
	timer.ObserveDuration(metrics.SchedulingLatency)

	if err != nil {
		logger.Error().Err(err).Msg("launch failed")
		return task.NewFailed(name, err)
	}

	t, ok := tasks[name]
	if !ok {
		err := fmt.Errorf("launcher returned no task for step %q", name)
		logger.Error().Err(err).Msg("launch failed")
		return task.NewFailed(name, err)
	}
	return t
}

// StatusCounts returns the current count of tracked tasks by status
// string, across both the live and archived tables. Satisfies
// metrics.StatusSource.
func (o *Orchestrator) StatusCounts() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := make(map[string]int)
	for _, t := range o.taskLookup {
		counts[t.Status.String()]++
	}
	for _, t := range o.taskArchive {
		counts[t.Status.String()]++
	}
	return counts
}

// ActiveTaskCount reports the Launcher's own count of non-terminal tasks.
// Satisfies metrics.StatusSource.
func (o *Orchestrator) ActiveTaskCount() int {
	return len(o.launcher.ActiveTasks())
}

// RunStep runs a single step to completion, selected either directly as
// a types.Step or by an index into steps. index >= len(steps) is an
// error, matching spec's "run a specific step" convenience entry point.
func RunStep(ctx context.Context, cfg config.Config, l launcher.Launcher, steps []types.Step, which any) error {
	var step types.Step
	switch v := which.(type) {
	case types.Step:
		step = v
	case int:
		if v < 0 || v >= len(steps) {
			return types.NewValidationError("RunStep", fmt.Errorf("step index %d out of range (have %d steps)", v, len(steps)))
		}
		step = steps[v]
	default:
		return types.NewValidationError("RunStep", fmt.Errorf("unsupported step selector type %T", which))
	}

	o, err := New(cfg, l, []types.Step{step})
	if err != nil {
		return err
	}
	return o.Run(ctx)
}
