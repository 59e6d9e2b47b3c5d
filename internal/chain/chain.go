// Package chain holds the static agent dependency graph. The graph is the
// single source of truth for execution-order checks: the executor asks it
// whether an agent may run, and the debugger walks it to classify upstream
// state during failure analysis.
package chain

import (
	"fmt"

	"github.com/jmercier/leadpilot/internal/agent"
)

// Graph maps each agent to the agents that must have completed before it may
// run. An agent absent from the map is a root with zero dependencies.
type Graph struct {
	deps map[agent.Name][]agent.Name
}

// Default returns the built-in campaign dependency chain.
func Default() *Graph {
	return &Graph{deps: map[agent.Name][]agent.Name{
		agent.Strategy:        {},
		agent.Planning:        {agent.Strategy},
		agent.CampaignStarter: {agent.Strategy, agent.Planning},
		agent.Scraper:         {agent.CampaignStarter},
		agent.Cleaner:         {agent.Scraper},
		agent.Classifier:      {agent.Cleaner},
	}}
}

// FromConfig builds a graph from a config-level map and validates it is
// acyclic. An empty map yields the default chain.
func FromConfig(cfg map[string][]string) (*Graph, error) {
	if len(cfg) == 0 {
		return Default(), nil
	}
	deps := make(map[agent.Name][]agent.Name, len(cfg))
	for name, list := range cfg {
		var ds []agent.Name
		for _, d := range list {
			ds = append(ds, agent.Name(d))
		}
		deps[agent.Name(name)] = ds
	}
	g := &Graph{deps: deps}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Dependencies returns the agents that must complete before name may run.
// Unknown agents have no dependencies.
func (g *Graph) Dependencies(name agent.Name) []agent.Name {
	return g.deps[name]
}

// CanRun reports whether every dependency of name is in the succeeded set.
func (g *Graph) CanRun(name agent.Name, succeeded map[agent.Name]bool) bool {
	for _, dep := range g.deps[name] {
		if !succeeded[dep] {
			return false
		}
	}
	return true
}

// Missing returns the dependencies of name not present in the succeeded set.
func (g *Graph) Missing(name agent.Name, succeeded map[agent.Name]bool) []agent.Name {
	var missing []agent.Name
	for _, dep := range g.deps[name] {
		if !succeeded[dep] {
			missing = append(missing, dep)
		}
	}
	return missing
}

// Validate rejects cyclic graphs. Called once at config load time.
func (g *Graph) Validate() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[agent.Name]int, len(g.deps))

	var visit func(n agent.Name, path []agent.Name) error
	visit = func(n agent.Name, path []agent.Name) error {
		switch state[n] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle through %q (path %v)", n, append(path, n))
		}
		state[n] = visiting
		for _, dep := range g.deps[n] {
			if err := visit(dep, append(path, n)); err != nil {
				return err
			}
		}
		state[n] = done
		return nil
	}

	for n := range g.deps {
		if err := visit(n, nil); err != nil {
			return err
		}
	}
	return nil
}
