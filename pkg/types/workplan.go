package types

// WorkplanState is the validation state of a Workplan.
type WorkplanState string

const (
	Draft     WorkplanState = "draft"
	Validated WorkplanState = "validated"
)

// Step is one unit of execution within a Workplan. Immutable once
// constructed by the loader.
type Step struct {
	Name       string   `yaml:"name"`
	Application string  `yaml:"application"`
	Blueprint  string   `yaml:"blueprint"`
	DependsOn  []string `yaml:"depends_on,omitempty"`

	BlueprintOverrides map[string]any `yaml:"blueprint_overrides,omitempty"`
	ComputeOverrides   map[string]any `yaml:"compute_overrides,omitempty"`
	WorkflowOverrides  map[string]any `yaml:"workflow_overrides,omitempty"`
}

// Workplan is a named, ordered collection of inter-dependent Steps.
type Workplan struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	State       WorkplanState `yaml:"-"`
	Steps       []Step        `yaml:"steps"`

	ComputeEnvironment map[string]any `yaml:"compute_environment,omitempty"`
	RuntimeVars        []string       `yaml:"runtime_vars,omitempty"`
}

// StepByName returns the step with the given name, if present.
func (w *Workplan) StepByName(name string) (Step, bool) {
	for _, s := range w.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}
