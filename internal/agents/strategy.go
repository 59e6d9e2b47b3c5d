package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/config"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/prompt"
	"github.com/jmercier/leadpilot/internal/store"
)

// StrategyAgent picks the niche the next campaign targets. It is the chain
// root: everything downstream depends on its output.
type StrategyAgent struct {
	oracle   oracle.Oracle
	store    *store.Store
	cooldown time.Duration
	log      *zap.Logger
}

// NewStrategy builds the strategy agent.
func NewStrategy(o oracle.Oracle, s *store.Store, cfg config.AgentsConfig, log *zap.Logger) *StrategyAgent {
	return &StrategyAgent{
		oracle:   o,
		store:    s,
		cooldown: time.Duration(cfg.NicheCooldownDays) * 24 * time.Hour,
		log:      log.Named("strategy"),
	}
}

func (a *StrategyAgent) Name() agent.Name { return agent.Strategy }

// Run proposes a niche. A niche already present in the input (a retry with
// a substituted default) is accepted as-is and marked machine-chosen.
func (a *StrategyAgent) Run(ctx context.Context, in agent.Input) (agent.Result, error) {
	if niche := agent.StringField(in, "niche"); niche != "" {
		payload := agent.Payload{
			"niche":         niche,
			"justification": "substituted default niche",
		}
		if sub, _ := in["auto_substituted"].(bool); sub {
			payload["auto_substituted"] = true
		}
		return agent.Completed(payload), nil
	}

	rejected, err := loadRejectedNiches(a.store, a.cooldown)
	if err != nil {
		return agent.Result{}, err
	}

	tmpl, err := prompt.Load("strategy-niche.md")
	if err != nil {
		return agent.Result{}, err
	}
	p, err := prompt.Render(tmpl, prompt.Vars{
		"campaign_summary": summarizeDecision(agent.Decision(in)),
		"rejected_niches":  strings.Join(rejected.names(), ", "),
	})
	if err != nil {
		return agent.Result{}, err
	}

	raw, err := a.oracle.Ask(ctx, p)
	if err != nil {
		return agent.Result{}, fmt.Errorf("asking oracle for niche: %w", err)
	}

	doc, err := oracle.DecodeMap(raw)
	if err != nil {
		// Undecodable answer degrades to an empty proposal, which fails
		// below with a classifiable message.
		a.log.Warn("niche response not decodable", zap.Error(err))
		doc = map[string]any{}
	}

	niche := strings.TrimSpace(agent.StringField(doc, "niche"))
	if niche == "" {
		return agent.Failed("no niche provided"), nil
	}
	if rejected.contains(niche) {
		return agent.Failed(fmt.Sprintf("proposed niche %q was recently rejected", niche)), nil
	}

	payload := agent.Payload{"niche": niche}
	if j := agent.StringField(doc, "justification"); j != "" {
		payload["justification"] = j
	}
	if pc := agent.StringField(doc, "potentiel_conversion"); pc != "" {
		payload["potentiel_conversion"] = pc
	}
	a.log.Info("niche proposed", zap.String("niche", niche))
	return agent.Completed(payload), nil
}

// summarizeDecision renders the brain decision for the prompt.
func summarizeDecision(decision agent.Payload) string {
	if len(decision) == 0 {
		return "no prior campaign context"
	}
	data, err := json.Marshal(decision)
	if err != nil {
		return "no prior campaign context"
	}
	return string(data)
}
