package orchestrator

import (
	"github.com/cuemby/cstarorch/pkg/splitter"
	"github.com/cuemby/cstarorch/pkg/types"
)

// ExpandSteps applies registry's splitter to every step whose application
// has one registered, replacing it with the splitter's chained sub-steps.
// Any other step's DependsOn that named the original (now-split) step is
// rewritten to point at the last sub-step in its chain, since that is the
// point at which the original step's work is actually complete.
func ExpandSteps(steps []types.Step, registry *splitter.Registry) ([]types.Step, error) {
	expanded := make([]types.Step, 0, len(steps))
	lastName := make(map[string]string, len(steps))

	for _, step := range steps {
		if registry != nil {
			if s, ok := registry.Get(step.Application); ok {
				subs, err := s.Split(step)
				if err != nil {
					return nil, err
				}
				expanded = append(expanded, subs...)
				if len(subs) > 0 {
					lastName[step.Name] = subs[len(subs)-1].Name
				}
				continue
			}
		}
		expanded = append(expanded, step)
		lastName[step.Name] = step.Name
	}

	for i := range expanded {
		for j, dep := range expanded[i].DependsOn {
			if mapped, ok := lastName[dep]; ok && mapped != dep {
				expanded[i].DependsOn[j] = mapped
			}
		}
	}
	return expanded, nil
}
