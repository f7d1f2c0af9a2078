// Package passes orchestrates the maintenance passes over a workspace:
// selection, scheduling against the run log, and continue-on-failure
// execution.
package passes

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/adrata/dataops-cli/internal/model"
)

// Pass is one maintenance pass over a workspace. Implementations must be
// idempotent: running twice in a row leaves the workspace unchanged the
// second time.
type Pass interface {
	// Name returns the unique identifier for this pass (e.g. "dedupe-people").
	Name() string

	// Interval is the minimum time between scheduled runs. Zero means the
	// pass runs whenever asked.
	Interval() time.Duration

	// Run executes the pass against one workspace.
	Run(ctx context.Context, workspaceID string) (*model.PassResult, error)
}

// Registry maps pass names to their implementations.
type Registry struct {
	passes map[string]Pass
	order  []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{passes: make(map[string]Pass)}
}

// Register adds a pass to the registry.
func (r *Registry) Register(p Pass) {
	name := p.Name()
	if _, ok := r.passes[name]; !ok {
		r.order = append(r.order, name)
	}
	r.passes[name] = p
}

// Get returns a pass by name.
func (r *Registry) Get(name string) (Pass, error) {
	p, ok := r.passes[name]
	if !ok {
		return nil, eris.Errorf("passes: unknown pass %q", name)
	}
	return p, nil
}

// Select returns the named passes, or every registered pass when names is
// empty, in registration order.
func (r *Registry) Select(names []string) ([]Pass, error) {
	if len(names) > 0 {
		out := make([]Pass, 0, len(names))
		for _, name := range names {
			p, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}

	out := make([]Pass, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.passes[name])
	}
	return out, nil
}

// AllNames returns all registered pass names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
