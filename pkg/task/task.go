package task

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cuemby/cstarorch/pkg/types"
	"github.com/google/uuid"
)

// SourceKind tags which variant of Task.source is populated: a Step
// (fresh launch) or a ProcessHandle (reattachment across a controller
// restart). Exactly one of Task.Step / Task.Handle is non-nil for a
// given SourceKind.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceStep
	SourceProcessHandle
)

var cancelWait = 2 * time.Second
var cancelPollInterval = 20 * time.Millisecond

// Task is the per-step state record: identity, command, process handle,
// return code, and status. Owned by exactly one Launcher.
type Task struct {
	mu sync.Mutex

	Name       string
	SourceKind SourceKind
	Step       *types.Step
	Handle     *types.ProcessHandle

	TaskID     uuid.UUID
	Status     types.TaskStatus
	Command    []string
	PID        int
	CreateTime time.Time
	ReturnCode *int
	LaunchErr  error

	// canceling is set by Cancel before it signals the process, so the
	// exit waiter records the signalled exit as Aborted.
	canceling bool

	stat    ProcessStat
	cmd     *exec.Cmd
	logFile *os.File
}

// NewFromStep constructs a not-yet-started Task from a Step. status
// starts at Waiting and a successful Start moves it straight to Active;
// nothing in this repository sets a Task to Ready.
func NewFromStep(step types.Step) *Task {
	return &Task{
		Name:       step.Name,
		SourceKind: SourceStep,
		Step:       &step,
		TaskID:     uuid.New(),
		Status:     types.Waiting,
		stat:       DefaultProcessStat,
	}
}

// NewFromProcessHandle constructs a Task that reattaches to a process
// started in a prior lifetime of the controller. task_id equals the
// handle's key when that key parses as a UUID (a fresh UUID is generated
// otherwise), and create_time equals its created_on.
func NewFromProcessHandle(h types.ProcessHandle) *Task {
	id, err := uuid.Parse(h.Key)
	if err != nil {
		id = uuid.New()
	}
	return &Task{
		Name:       h.Name,
		SourceKind: SourceProcessHandle,
		Handle:     &h,
		TaskID:     id,
		Status:     types.Active,
		PID:        h.PID,
		CreateTime: h.CreatedOn,
		stat:       DefaultProcessStat,
	}
}

// NewFailed builds a degenerate Task forced to Failed at construction,
// used by a Launcher to represent a step whose launch itself failed.
func NewFailed(name string, cause error) *Task {
	return &Task{
		Name:       name,
		SourceKind: SourceNone,
		TaskID:     uuid.New(),
		Status:     types.Failed,
		LaunchErr:  cause,
	}
}

// SetProcessStat overrides the process-liveness probe; used by tests to
// simulate PID recycling without real process churn.
func (t *Task) SetProcessStat(fn ProcessStat) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stat = fn
}

var slugPattern = regexp.MustCompile(`\s+`)

func slug(name string) string {
	return slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// LogPath returns the per-task log file name spec.md §6 mandates:
// <slug(name)>.log.
func (t *Task) LogPath(dir string) string {
	return filepath.Join(dir, slug(t.Name)+".log")
}

// Start spawns the process for a Step-sourced Task. Requires
// SourceKind == SourceStep. On spawn failure, status becomes Failed and
// the error is recorded in LaunchErr rather than returned — matching
// spec.md §4.2 ("error is surfaced but not thrown to the caller"). The
// returned error is non-nil only for a programmer-error misuse (calling
// Start on a non-Step-sourced Task).
func (t *Task) Start(ctx context.Context, cmd ParameterizedCommand, logDir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.SourceKind != SourceStep {
		return fmt.Errorf("task %q: Start called on a non-Step-sourced task", t.Name)
	}

	t.Command = cmd.Combined()

	argv := append(append([]string{}, cmd.Executable...), cmd.CliTokens...)
	if len(argv) == 0 {
		t.Status = types.Failed
		t.LaunchErr = fmt.Errorf("task %q: empty command", t.Name)
		return nil
	}

	execCmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	execCmd.Env = append(os.Environ(), cmd.EnvAssignments...)

	logPath := t.LogPath(logDir)
	logFile, err := os.Create(logPath)
	if err != nil {
		t.Status = types.Failed
		t.LaunchErr = fmt.Errorf("task %q: opening log file %s: %w", t.Name, logPath, err)
		return nil
	}
	execCmd.Stdout = logFile
	execCmd.Stderr = logFile

	if err := execCmd.Start(); err != nil {
		logFile.Close()
		t.Status = types.Failed
		t.LaunchErr = fmt.Errorf("task %q: spawning process: %w", t.Name, err)
		return nil
	}

	t.cmd = execCmd
	t.logFile = logFile
	t.PID = execCmd.Process.Pid
	if created, alive, err := t.stat(t.PID); err == nil && alive {
		t.CreateTime = created
	} else {
		t.CreateTime = time.Now()
	}
	t.Status = types.Active

	go t.awaitExit()

	return nil
}

// awaitExit blocks on the spawned process's exit and caches its return
// code, so Query can be non-blocking.
func (t *Task) awaitExit() {
	err := t.cmd.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()

	defer func() {
		if t.logFile != nil {
			t.logFile.Close()
		}
	}()

	if t.Status.IsTerminal() {
		// A concurrent Cancel already resolved the terminal status.
		return
	}

	rc := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			rc = exitErr.ExitCode()
		} else {
			rc = -1
		}
	}
	t.ReturnCode = &rc
	switch {
	case rc == 0:
		t.Status = types.Done
	case t.canceling:
		t.Status = types.Aborted
	default:
		t.Status = types.Failed
	}
}

// Query is non-blocking. For a Step-sourced Task its status is
// maintained by the background exit-waiter started in Start; Query
// simply returns the cached value unless the Task is reattached, in
// which case it probes the OS process directly (see §4.4).
func (t *Task) Query(ctx context.Context) types.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status.IsTerminal() {
		return t.Status
	}

	if t.SourceKind != SourceProcessHandle {
		return t.Status
	}

	created, alive, err := t.stat(t.PID)
	if err != nil {
		return t.Status
	}
	if !created.Equal(t.CreateTime) {
		// PID recycled: the original process is unrecoverable, promote
		// directly to Done without reading a return code.
		t.Status = types.Done
		return t.Status
	}
	if !alive {
		t.Status = types.Done
		return t.Status
	}
	t.Status = types.Active
	return t.Status
}

// Cancel is a no-op if the Task is already terminal. Otherwise it
// resolves the live OS process, detects PID recycling, and if the
// process is genuinely still the one this Task started, signals every
// descendant before the root, waits up to cancelWait for exit, and sets
// Aborted (or Done if the process had already completed cleanly before
// the signal landed).
func (t *Task) Cancel(ctx context.Context) error {
	t.mu.Lock()
	if t.Status.IsTerminal() {
		t.mu.Unlock()
		return nil
	}
	pid := t.PID
	createTime := t.CreateTime
	stat := t.stat
	t.mu.Unlock()

	if pid == 0 {
		t.mu.Lock()
		t.Status = types.Aborted
		t.mu.Unlock()
		return nil
	}

	created, alive, err := stat(pid)
	if err == nil && !created.Equal(createTime) {
		t.mu.Lock()
		t.Status = types.Done
		t.mu.Unlock()
		return nil
	}
	if err == nil && !alive {
		t.mu.Lock()
		if !t.Status.IsTerminal() {
			t.Status = types.Done
		}
		t.mu.Unlock()
		return nil
	}

	t.mu.Lock()
	t.canceling = true
	t.mu.Unlock()

	for _, child := range descendants(pid) {
		_ = syscall.Kill(child, syscall.SIGTERM)
	}
	_ = syscall.Kill(pid, syscall.SIGTERM)

	deadline := time.Now().Add(cancelWait)
waitLoop:
	for time.Now().Before(deadline) {
		t.mu.Lock()
		if t.Status.IsTerminal() {
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		if _, alive, _ := stat(pid); !alive {
			break
		}

		select {
		case <-ctx.Done():
			break waitLoop
		case <-time.After(cancelPollInterval):
		}
	}

	for _, child := range descendants(pid) {
		_ = syscall.Kill(child, syscall.SIGKILL)
	}
	_ = syscall.Kill(pid, syscall.SIGKILL)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.Status.IsTerminal() {
		rc := -1
		t.ReturnCode = &rc
		t.Status = types.Aborted
	}
	return nil
}
