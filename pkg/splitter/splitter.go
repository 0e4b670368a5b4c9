package splitter

import (
	"github.com/cuemby/cstarorch/pkg/types"
)

// Splitter rewrites one Step into a finite sequence of sub-steps. It is a
// pure iterator: it performs no I/O beyond reading the blueprint the step
// already names.
type Splitter interface {
	Split(step types.Step) ([]types.Step, error)
}

// Registry maps an application tag to the Splitter registered for it,
// mirroring original_source's TRANSFORMS module-level dict but built
// explicitly and handed to callers rather than mutated as a global.
type Registry struct {
	splitters map[string]Splitter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{splitters: make(map[string]Splitter)}
}

// Register associates a Splitter with an application tag, overwriting any
// previous registration for the same tag.
func (r *Registry) Register(application string, s Splitter) {
	r.splitters[application] = s
}

// Get returns the Splitter registered for application, if any.
func (r *Registry) Get(application string) (Splitter, bool) {
	s, ok := r.splitters[application]
	return s, ok
}

// DefaultRegistry returns a Registry with the splitters the core ships
// with pre-registered, matching original_source's module-level
// register_transform calls for "roms" and "roms_marbl".
func DefaultRegistry() *Registry {
	r := NewRegistry()
	rm := &RomsMarblTimeSplitter{}
	r.Register("roms", rm)
	r.Register("roms_marbl", rm)
	return r
}
