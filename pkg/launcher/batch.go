package launcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/cuemby/cstarorch/pkg/config"
	"github.com/cuemby/cstarorch/pkg/task"
	"github.com/cuemby/cstarorch/pkg/types"
)

// CommandRunner executes a batch-backend CLI invocation synchronously,
// the seam production code satisfies with os/exec and tests satisfy with
// a stub — the same shape the teacher uses at its exec.CommandContext
// call sites.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr string, rc int, err error)

// rawStatusTable maps a batch backend's raw state string (case
// insensitive) to the internal status space. Any unmapped value is
// types.Unknown.
var rawStatusTable = map[string]types.TaskStatus{
	"PENDING":   types.Waiting,
	"RUNNING":   types.Active,
	"COMPLETED": types.Done,
	"CANCELLED": types.Aborted,
	"FAILED":    types.Failed,
}

func mapRawStatus(raw string) types.TaskStatus {
	status, ok := rawStatusTable[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return types.Unknown
	}
	return status
}

// BatchLauncher wraps a SLURM-like cluster workload manager accessed via
// sacct-shaped status queries. It holds a single allocation (job_id)
// obtained from Allocate; every launched step is a named sub-task within
// that allocation.
type BatchLauncher struct {
	mu  sync.Mutex
	cfg config.Config

	Run CommandRunner

	// AllocateCommand is run by Allocate to acquire a batch allocation.
	// Its first whitespace-delimited stdout token is parsed as the job
	// ID. Defaults to a stand-in "salloc" invocation.
	AllocateCommand []string

	// SubmitPrefix is prepended to a step's resolved executable to
	// submit it within the allocation (e.g. "srun --jobid <job_id>").
	// Populated once Allocate has run. startOne adds "--job-name <step
	// name>" after it, so the backend reports the step under its name.
	SubmitPrefix []string

	// StatusCommand builds the sacct-shaped status query argv for the
	// current allocation. Defaults to a stand-in "sacct" invocation.
	StatusCommand func(jobID string) []string

	Include    []string
	EnvInclude []string

	jobID string
	tasks map[string]*task.Task
}

// NewBatchLauncher constructs a BatchLauncher backed by run, with
// defaults matching a SLURM sacct-based backend.
func NewBatchLauncher(cfg config.Config, run CommandRunner, include, envInclude []string) *BatchLauncher {
	return &BatchLauncher{
		cfg:             cfg,
		Run:             run,
		AllocateCommand: []string{"salloc", "--no-shell", "--parsable"},
		StatusCommand: func(jobID string) []string {
			return []string{"sacct", "-j", jobID, "--format=JobID,State,JobName", "--noheader", "--parsable2"}
		},
		Include:    include,
		EnvInclude: envInclude,
		tasks:      make(map[string]*task.Task),
	}
}

// Allocate acquires the batch allocation this launcher's steps will run
// within. Idempotent: a second call with an allocation already held is a
// no-op.
func (l *BatchLauncher) Allocate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jobID != "" {
		return nil
	}

	stdout, stderr, rc, err := l.Run(ctx, l.AllocateCommand[0], l.AllocateCommand[1:]...)
	if err != nil {
		return types.NewAllocationError("batch", fmt.Errorf("running %v: %w", l.AllocateCommand, err))
	}
	if rc != 0 {
		return types.NewAllocationError("batch", fmt.Errorf("%v exited %d: %s", l.AllocateCommand, rc, stderr))
	}

	fields := strings.Fields(stdout)
	if len(fields) == 0 {
		return types.NewAllocationError("batch", fmt.Errorf("could not parse job id from allocation output %q", stdout))
	}
	jobID := fields[0]

	l.jobID = jobID
	l.SubmitPrefix = []string{"srun", "--jobid", jobID}
	return nil
}

func (l *BatchLauncher) Launch(ctx context.Context, steps []types.Step) (map[string]*task.Task, error) {
	l.mu.Lock()
	jobID := l.jobID
	submitPrefix := append([]string(nil), l.SubmitPrefix...)
	l.mu.Unlock()

	if jobID == "" {
		return nil, types.NewAllocationError("batch", fmt.Errorf("Launch called before Allocate"))
	}

	out := make(map[string]*task.Task, len(steps))
	for _, step := range steps {
		t := l.startOne(ctx, step, submitPrefix)
		l.mu.Lock()
		l.tasks[step.Name] = t
		l.mu.Unlock()
		out[step.Name] = t
	}
	return out, nil
}

// startOne submits a step as a named sub-task within the held
// allocation. Unlike LocalLauncher, the Task's status is never driven by
// a locally-observed exit code — the submission command (e.g. sbatch)
// schedules the job and returns immediately; all subsequent status comes
// from Update's sacct-shaped polling.
func (l *BatchLauncher) startOne(ctx context.Context, step types.Step, submitPrefix []string) *task.Task {
	executable, err := l.cfg.Executable(step.Application)
	if err != nil {
		return task.NewFailed(step.Name, err)
	}

	overrides := task.MergeOverrides(step.ComputeOverrides, step.BlueprintOverrides)
	prefix := append(append([]string(nil), submitPrefix...), "--job-name", step.Name)
	cmd := task.Parameterize(append(prefix, executable...), l.Include, l.EnvInclude, overrides)

	argv := cmd.Combined()
	_, stderr, rc, err := l.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return task.NewFailed(step.Name, types.NewLaunchError(step.Name, err))
	}
	if rc != 0 {
		return task.NewFailed(step.Name, types.NewLaunchError(step.Name, fmt.Errorf("submission exited %d: %s", rc, stderr)))
	}

	t := task.NewFromStep(step)
	t.Command = argv
	t.Status = types.Waiting
	return t
}

func (l *BatchLauncher) AddMonitored(t *task.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.tasks[t.Name]; exists {
		return
	}
	l.tasks[t.Name] = t
}

func (l *BatchLauncher) Report(name string) types.TaskStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tasks[name]
	if !ok {
		return types.Unknown
	}
	return t.Status
}

func (l *BatchLauncher) ReportAll(names []string) map[string]types.TaskStatus {
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

// Update refreshes every non-terminal task's status via a single batched
// queryStatus call, retried under the configured backoff policy: any
// non-terminal observed status is treated as retryable; a task that
// remains non-terminal past the retry budget keeps its last observed
// status, never a fabricated Done.
func (l *BatchLauncher) Update(ctx context.Context) error {
	l.mu.Lock()
	jobID := l.jobID
	names := make([]string, 0, len(l.tasks))
	for name, t := range l.tasks {
		if !t.Status.IsTerminal() {
			names = append(names, name)
		}
	}
	l.mu.Unlock()

	if len(names) == 0 {
		return nil
	}

	statuses, err := l.retryingQueryStatus(ctx, jobID, names)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for name, status := range statuses {
		if t, ok := l.tasks[name]; ok && !t.Status.IsTerminal() {
			t.Status = status
		}
	}
	return nil
}

// retryingQueryStatus wraps queryStatus in the configured retry policy.
// The probe reports an IncompleteError for a batch of names still
// observed non-terminal; the wrapper treats that as retryable. Budget
// exhaustion returns the last-observed map rather than propagating the
// error, matching spec.md §4.5's "does not force a terminal value".
// MaxRetries counts retries after the first attempt. The delay is fixed
// at InitialInterval unless Multiplier > 1, in which case it grows by
// Multiplier per retry (capped at the library's default maximum interval).
func (l *BatchLauncher) retryingQueryStatus(ctx context.Context, jobID string, names []string) (map[string]types.TaskStatus, error) {
	policy := l.cfg.Retry

	var delay backoff.BackOff = backoff.NewConstantBackOff(policy.InitialInterval)
	if policy.Multiplier > 1 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = policy.InitialInterval
		exp.Multiplier = policy.Multiplier
		exp.RandomizationFactor = 0
		delay = exp
	}

	last := make(map[string]types.TaskStatus)
	result, err := backoff.Retry(ctx, func() (map[string]types.TaskStatus, error) {
		statuses, err := l.queryStatus(ctx, jobID, names)
		if err != nil {
			return statuses, err
		}
		for name, status := range statuses {
			last[name] = status
		}
		for _, status := range statuses {
			if !status.IsTerminal() {
				return statuses, &types.IncompleteError{Status: status}
			}
		}
		return statuses, nil
	},
		backoff.WithBackOff(delay),
		backoff.WithMaxTries(uint(policy.MaxRetries)+1),
	)
	if err != nil {
		if len(last) > 0 {
			return last, nil
		}
		return nil, &types.TransientProbeError{Err: err}
	}
	return result, nil
}

// queryStatus issues one batched sacct-shaped query and parses its
// output into (job_id, raw_state, task_name) triples; malformed lines
// are skipped. names must be non-empty. When the output is filtered to
// names, unknown names are simply absent from the result.
func (l *BatchLauncher) queryStatus(ctx context.Context, jobID string, names []string) (map[string]types.TaskStatus, error) {
	if len(names) == 0 {
		return nil, types.NewValidationError("BatchLauncher.queryStatus", fmt.Errorf("names must not be empty"))
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	argv := l.StatusCommand(jobID)
	stdout, stderr, rc, err := l.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return nil, &types.TransientProbeError{Err: fmt.Errorf("running %v: %w", argv, err)}
	}
	if rc != 0 {
		return nil, &types.TransientProbeError{Err: fmt.Errorf("%v exited %d: %s", argv, rc, stderr)}
	}

	out := make(map[string]types.TaskStatus)
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 3 {
			continue
		}
		_, rawState, taskName := fields[0], fields[1], fields[2]
		if _, want := wanted[taskName]; !want {
			continue
		}
		out[taskName] = mapRawStatus(rawState)
	}
	return out, nil
}

func (l *BatchLauncher) ActiveTasks() map[string]*task.Task {
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
