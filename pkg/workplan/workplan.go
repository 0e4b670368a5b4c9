package workplan

import (
	"fmt"
	"os"

	"github.com/cuemby/cstarorch/pkg/planner"
	"github.com/cuemby/cstarorch/pkg/types"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a Workplan document at path, then structurally
// validates its step graph: non-empty unique step names, at least one
// step, dependency names resolving, and no cycles. Validation is
// delegated to planner.BuildDAG so the same cycle/duplicate-name checks
// the Orchestrator relies on at runtime are enforced at load time.
func Load(path string) (*types.Workplan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewValidationError("workplan.Load", fmt.Errorf("reading %s: %w", path, err))
	}

	var wp types.Workplan
	if err := yaml.Unmarshal(data, &wp); err != nil {
		return nil, types.NewValidationError("workplan.Load", fmt.Errorf("parsing %s: %w", path, err))
	}

	if len(wp.Steps) == 0 {
		return nil, types.NewValidationError("workplan.Load", fmt.Errorf("%s: workplan has no steps", path))
	}

	if _, err := planner.BuildDAG(wp.Steps); err != nil {
		return nil, err
	}

	wp.State = types.Validated
	return &wp, nil
}
