package launcher

import (
	"context"

	"github.com/cuemby/cstarorch/pkg/task"
	"github.com/cuemby/cstarorch/pkg/types"
)

// Launcher is the capability set a backend realizes: allocate,
// launch, report, update, over a table of Tasks it alone owns. A single
// Launcher instance is single-threaded — the Orchestrator serializes
// every call.
type Launcher interface {
	// Allocate acquires any backend-specific resource (e.g. a batch
	// allocation). Idempotent; may be a no-op for a local backend.
	Allocate(ctx context.Context) error

	// Launch builds and starts a Task for each step, records it in the
	// launcher's table, and returns the new tasks. A step whose Task
	// fails to enter Active is still included, with its final status.
	Launch(ctx context.Context, steps []types.Step) (map[string]*task.Task, error)

	// AddMonitored registers an externally-produced Task (e.g.
	// reattached via ProcessHandle) into the internal table. Idempotent.
	AddMonitored(t *task.Task)

	// Report returns the last-known status for name, or types.Unknown
	// if name is not present in the table.
	Report(name string) types.TaskStatus

	// ReportAll returns the last-known status for every name in names.
	// Unknown names map to types.Unknown.
	ReportAll(names []string) map[string]types.TaskStatus

	// Update refreshes statuses for every registered task that is not
	// yet terminal via the backend-specific status query.
	Update(ctx context.Context) error

	// ActiveTasks returns the subset of registered tasks with
	// status < Done.
	ActiveTasks() map[string]*task.Task
}
