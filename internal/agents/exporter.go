package agents

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/config"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/prompt"
	"github.com/jmercier/leadpilot/internal/store"
)

const exportStateKey = "exporter/state.json"

// exportState tracks how many leads went to the CRM today.
type exportState struct {
	Date     string `json:"date"`
	Exported int    `json:"exported"`
}

// qualityRank orders leads for export; hotter first.
var qualityRank = map[string]int{QualityHot: 0, QualityWarm: 1, QualityCold: 2}

// ExporterAgent decides which classified leads go to the CRM now and which
// wait, respecting the configured daily limit. The split itself is
// deterministic; the oracle only advises on how to batch what goes out.
type ExporterAgent struct {
	dailyLimit int
	oracle     oracle.Oracle
	store      *store.Store
	log        *zap.Logger
}

// NewExporter builds the CRM exporter agent.
func NewExporter(cfg config.ExporterConfig, o oracle.Oracle, s *store.Store, log *zap.Logger) *ExporterAgent {
	return &ExporterAgent{dailyLimit: cfg.DailyLimit, oracle: o, store: s, log: log.Named("exporter")}
}

func (a *ExporterAgent) Name() agent.Name { return agent.Exporter }

func (a *ExporterAgent) Run(ctx context.Context, in agent.Input) (agent.Result, error) {
	leads := inputLeads(in, agent.Classifier, "leads")

	state, err := a.loadState()
	if err != nil {
		return agent.Result{}, err
	}

	sorted := make([]campaign.Lead, len(leads))
	copy(sorted, leads)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := qualityRank[sorted[i].Quality], qualityRank[sorted[j].Quality]
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Score > sorted[j].Score
	})

	remaining := a.dailyLimit - state.Exported
	if remaining < 0 {
		remaining = 0
	}
	cut := remaining
	if cut > len(sorted) {
		cut = len(sorted)
	}
	exportNow := sorted[:cut]
	delayed := sorted[cut:]

	state.Exported += len(exportNow)
	if err := a.store.Save(exportStateKey, state); err != nil {
		return agent.Result{}, fmt.Errorf("saving export state: %w", err)
	}

	batching := a.batchingStrategy(ctx, len(exportNow), len(delayed), state.Exported)

	a.log.Info("export decided",
		zap.Int("now", len(exportNow)),
		zap.Int("delayed", len(delayed)),
		zap.Int("exported_today", state.Exported))
	return agent.Completed(agent.Payload{
		"export_now":     exportNow,
		"delayed":        delayed,
		"exported_today": state.Exported,
		"daily_limit":    a.dailyLimit,
		"batching":       batching,
	}), nil
}

// defaultBatching is used whenever the oracle has no usable advice.
var defaultBatching = map[string]any{
	"methode":     "PAR_QUALITE",
	"explication": "group by temperature, hottest first",
}

// batchingStrategy asks the oracle how to batch the outgoing leads. Advice
// only; any failure falls back to the default grouping.
func (a *ExporterAgent) batchingStrategy(ctx context.Context, now, delayed, exportedToday int) map[string]any {
	if a.oracle == nil {
		return defaultBatching
	}
	tmpl, err := prompt.Load("export-batching.md")
	if err != nil {
		return defaultBatching
	}
	p, err := prompt.Render(tmpl, prompt.Vars{
		"export_now_count": fmt.Sprintf("%d", now),
		"delayed_count":    fmt.Sprintf("%d", delayed),
		"daily_limit":      fmt.Sprintf("%d", a.dailyLimit),
		"exported_today":   fmt.Sprintf("%d", exportedToday),
	})
	if err != nil {
		return defaultBatching
	}
	raw, err := a.oracle.Ask(ctx, p)
	if err != nil {
		a.log.Warn("batching advice unavailable", zap.Error(err))
		return defaultBatching
	}
	doc, err := oracle.DecodeMap(raw)
	if err != nil {
		a.log.Warn("batching advice not decodable", zap.Error(err))
		return defaultBatching
	}
	strategy, ok := doc["batching_strategy"].(map[string]any)
	if !ok || len(strategy) == 0 {
		return defaultBatching
	}
	return strategy
}

// loadState returns today's counter, resetting it on day rollover.
func (a *ExporterAgent) loadState() (exportState, error) {
	var state exportState
	if _, err := a.store.Load(exportStateKey, &state); err != nil {
		return state, fmt.Errorf("loading export state: %w", err)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if state.Date != today {
		state = exportState{Date: today}
	}
	return state, nil
}
