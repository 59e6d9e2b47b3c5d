// Package agents contains the concrete pipeline agents: strategy, planning,
// campaign start, scraping, cleaning, classification, export, messaging,
// analytics, and pivot. Each one implements the agent contract and is wired
// into the registry by RegisterAll.
package agents

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/config"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/store"
)

// Deps carries everything the agents need.
type Deps struct {
	Oracle oracle.Oracle
	Store  *store.Store
	Repo   campaign.Repository
	Config config.AgentsConfig
	Log    *zap.Logger
}

// RegisterAll constructs every agent and registers it.
func RegisterAll(reg *agent.Registry, d Deps) error {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	all := []agent.Agent{
		NewStrategy(d.Oracle, d.Store, d.Config, d.Log),
		NewPlanning(d.Oracle, d.Store, d.Repo, d.Log),
		NewStarter(d.Oracle, d.Store, d.Repo, d.Log),
		NewScraper(d.Config.Scraper, d.Log),
		NewCleaner(d.Config.Cleaner, d.Store, d.Log),
		NewClassifier(d.Store, d.Log),
		NewExporter(d.Config.Exporter, d.Oracle, d.Store, d.Log),
		NewMessenger(d.Config.Messenger, d.Log),
		NewAnalytics(d.Repo, d.Log),
		NewPivot(d.Oracle, d.Store, d.Repo, d.Log),
	}
	for _, a := range all {
		if err := reg.Register(a); err != nil {
			return fmt.Errorf("registering %s: %w", a.Name(), err)
		}
	}
	return nil
}
