package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/agents"
	"github.com/jmercier/leadpilot/internal/brain"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/chain"
	"github.com/jmercier/leadpilot/internal/config"
	"github.com/jmercier/leadpilot/internal/db"
	"github.com/jmercier/leadpilot/internal/debugger"
	"github.com/jmercier/leadpilot/internal/executor"
	"github.com/jmercier/leadpilot/internal/logging"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/store"
)

var configFile string

// app wires the full stack for a command invocation.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	database *db.DB
	repo     campaign.Repository
	registry *agent.Registry
	handler  *debugger.Handler
	exec     *executor.Executor
	pipeline *campaign.Pipeline
	brain    *brain.Brain

	closers []func()
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

// newApp builds every component from the resolved config.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", errs[0])
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, store: store.New(cfg.Store.Dir)}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	a.database, err = db.Open(cfg.DB.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = a.database.Close() })
	if err := a.database.Migrate(); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Postgres.DSN != "" {
		pg, err := campaign.NewPostgresRepository(ctx, cfg.Postgres.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		a.repo = pg
	} else {
		a.repo = campaign.NewStoreRepository(a.store)
	}

	orc, err := oracle.New(oracle.Config{
		Backend:    cfg.Oracle.Backend,
		Model:      cfg.Oracle.Model,
		OllamaHost: cfg.Oracle.OllamaHost,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	graph, err := chain.FromConfig(cfg.Chain)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = agent.NewRegistry()
	if err := agents.RegisterAll(a.registry, agents.Deps{
		Oracle: orc,
		Store:  a.store,
		Repo:   a.repo,
		Config: cfg.Agents,
		Log:    log,
	}); err != nil {
		a.Close()
		return nil, err
	}

	a.handler = debugger.NewHandler(a.registry, graph, a.store, log,
		debugger.WithNiches(cfg.Agents.DefaultNiche, cfg.Agents.FallbackNiche),
		debugger.WithRetryTimeout(cfg.RetryTimeout()),
		debugger.WithReportLog(a.database),
	)
	a.exec = executor.New(a.registry, graph, a.handler, log,
		executor.WithTimeout(cfg.AgentTimeout()),
		executor.WithRunLog(a.database),
	)
	a.pipeline = campaign.NewPipeline(a.registry, a.repo, a.database, log)
	a.brain = brain.New(orc, a.repo, a.store, a.exec, a.pipeline, log)
	return a, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
