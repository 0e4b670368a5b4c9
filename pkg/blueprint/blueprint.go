// Package blueprint loads the minimal subset of a blueprint document the
// core consumes: the runtime parameter window a step splitter needs to
// derive calendar slices. Everything else a blueprint carries (domain
// adapter construction, template generation, code staging) is an external
// collaborator's concern.
package blueprint

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/cstarorch/pkg/types"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02 15:04:05"

// RawDate parses and serializes the blueprint's date layout
// (`YYYY-MM-DD HH:MM:SS`), matching original_source's RuntimeParameterSet.
type RawDate struct {
	time.Time
}

func (d *RawDate) UnmarshalYAML(node *yaml.Node) error {
	t, err := time.Parse(dateLayout, node.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", node.Value, err)
	}
	d.Time = t
	return nil
}

func (d RawDate) MarshalYAML() (any, error) {
	return d.Time.Format(dateLayout), nil
}

// RuntimeParams is the subset of a blueprint's runtime_params block the
// core reads: the simulation window and output location.
type RuntimeParams struct {
	StartDate RawDate `yaml:"start_date"`
	EndDate   RawDate `yaml:"end_date"`
	OutputDir string  `yaml:"output_dir"`
}

// Blueprint is the minimal document the core reads from a validated
// blueprint file; everything else (domain adapter fields, component
// discretization, grid definitions) is out of scope per spec §1.
type Blueprint struct {
	RuntimeParams RuntimeParams `yaml:"runtime_params"`
}

// Load reads and parses a blueprint document from path.
func Load(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewValidationError("blueprint.Load", fmt.Errorf("reading %s: %w", path, err))
	}

	var bp Blueprint
	if err := yaml.Unmarshal(data, &bp); err != nil {
		return nil, types.NewValidationError("blueprint.Load", fmt.Errorf("parsing %s: %w", path, err))
	}

	return &bp, nil
}
