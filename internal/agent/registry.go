package agent

import (
	"fmt"
	"sort"
)

// Registry maps agent names to implementations so the executor and the
// failure handler share one invocation path.
type Registry struct {
	agents map[Name]Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[Name]Agent)}
}

// Register adds an agent under its own name. Registering the same name twice
// is a programming error.
func (r *Registry) Register(a Agent) error {
	name := a.Name()
	if _, ok := r.agents[name]; ok {
		return fmt.Errorf("agent %q already registered", name)
	}
	r.agents[name] = a
	return nil
}

// MustRegister registers a set of agents and panics on duplicates. Used at
// wiring time where a duplicate is a bug, not a runtime condition.
func (r *Registry) MustRegister(agents ...Agent) {
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the agent registered under name.
func (r *Registry) Lookup(name Name) (Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names returns the registered agent names in stable order.
func (r *Registry) Names() []Name {
	names := make([]Name, 0, len(r.agents))
	for n := range r.agents {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
