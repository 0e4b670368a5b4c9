package splitter

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cuemby/cstarorch/pkg/blueprint"
	"github.com/cuemby/cstarorch/pkg/types"
)

// RestartFileName is the expected restart asset a completed sub-step
// leaves in its output_dir for the next sub-step's initial_conditions.
const RestartFileName = "restart.nc"

var whitespace = regexp.MustCompile(`\s+`)

func slugify(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

// RomsMarblTimeSplitter splits a multi-month ROMS-MARBL step into a
// serial chain of one-sub-step-per-calendar-month steps, grounded on
// original_source's RomsMarblTimeSplitter.
type RomsMarblTimeSplitter struct {
	// LoadBlueprint resolves a step's blueprint path to its runtime
	// parameter window. Defaults to blueprint.Load; overridable in tests.
	LoadBlueprint func(path string) (*blueprint.Blueprint, error)
}

func (s *RomsMarblTimeSplitter) loadBlueprint() func(string) (*blueprint.Blueprint, error) {
	if s.LoadBlueprint != nil {
		return s.LoadBlueprint
	}
	return blueprint.Load
}

func (s *RomsMarblTimeSplitter) Split(step types.Step) ([]types.Step, error) {
	bp, err := s.loadBlueprint()(step.Blueprint)
	if err != nil {
		return nil, err
	}

	start := bp.RuntimeParams.StartDate.Time
	end := bp.RuntimeParams.EndDate.Time

	slices, err := timeSlices(start, end)
	if err != nil {
		return nil, err
	}

	outputRoot := bp.RuntimeParams.OutputDir
	dependsOn := step.DependsOn

	subSteps := make([]types.Step, 0, len(slices))
	for _, sl := range slices {
		name := fmt.Sprintf("%s_%s-%s", step.Name, formatSliceDate(sl.Start), formatSliceDate(sl.End))
		outputDir := path.Join(outputRoot, slugify(name))

		overrides := cloneOverrides(step.BlueprintOverrides)
		overrides["start_date"] = sl.Start.Format("2006-01-02 15:04:05")
		overrides["end_date"] = sl.End.Format("2006-01-02 15:04:05")
		overrides["output_dir"] = outputDir

		if len(subSteps) > 0 {
			prev := subSteps[len(subSteps)-1]
			prevOutputDir, _ := prev.BlueprintOverrides["output_dir"].(string)
			overrides["initial_conditions.location"] = path.Join(prevOutputDir, RestartFileName)
		}

		sub := types.Step{
			Name:               name,
			Application:        step.Application,
			Blueprint:          step.Blueprint,
			DependsOn:          dependsOn,
			BlueprintOverrides: overrides,
			ComputeOverrides:   step.ComputeOverrides,
			WorkflowOverrides:  step.WorkflowOverrides,
		}
		subSteps = append(subSteps, sub)
		dependsOn = []string{name}
	}

	return subSteps, nil
}

func formatSliceDate(t time.Time) string {
	return t.Format("2006:01:02")
}

func cloneOverrides(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
