package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/prompt"
	"github.com/jmercier/leadpilot/internal/store"
)

// PlanningAgent reviews the proposed niche before any campaign is created.
// A NO_GO verdict records the niche in the shared rejection memory.
type PlanningAgent struct {
	oracle oracle.Oracle
	store  *store.Store
	repo   campaign.Repository
	log    *zap.Logger
}

// NewPlanning builds the planning agent.
func NewPlanning(o oracle.Oracle, s *store.Store, repo campaign.Repository, log *zap.Logger) *PlanningAgent {
	return &PlanningAgent{oracle: o, store: s, repo: repo, log: log.Named("planning")}
}

func (a *PlanningAgent) Name() agent.Name { return agent.Planning }

func (a *PlanningAgent) Run(ctx context.Context, in agent.Input) (agent.Result, error) {
	strategy := agent.Upstream(in)[string(agent.Strategy)]
	niche := agent.StringField(strategy, "niche")
	if niche == "" {
		return agent.Failed("nothing to review: strategy produced no proposal"), nil
	}

	alreadyScheduled, err := a.nicheHasActiveCampaign(ctx, niche)
	if err != nil {
		return agent.Result{}, err
	}

	tmpl, err := prompt.Load("planning-review.md")
	if err != nil {
		return agent.Result{}, err
	}
	vars := prompt.Vars{
		"niche":                niche,
		"justification":        agent.StringField(strategy, "justification"),
		"potentiel_conversion": agent.StringField(strategy, "potentiel_conversion"),
	}
	if alreadyScheduled {
		vars["already_scheduled"] = "true"
	}
	p, err := prompt.Render(tmpl, vars)
	if err != nil {
		return agent.Result{}, err
	}

	raw, err := a.oracle.Ask(ctx, p)
	if err != nil {
		return agent.Result{}, fmt.Errorf("asking oracle for review: %w", err)
	}

	verdict := "GO"
	justification := "default verdict, review response not decodable"
	if doc, err := oracle.DecodeMap(raw); err != nil {
		a.log.Warn("review response not decodable", zap.Error(err))
	} else {
		if v := strings.ToUpper(agent.StringField(doc, "verdict")); v != "" {
			verdict = v
		}
		if j := agent.StringField(doc, "justification"); j != "" {
			justification = j
		}
	}

	if verdict != "GO" {
		if err := rejectNiche(a.store, niche); err != nil {
			a.log.Warn("recording rejection failed", zap.Error(err))
		}
		return agent.Failed(fmt.Sprintf("planning rejected %q: %s", niche, justification)), nil
	}

	a.log.Info("niche approved", zap.String("niche", niche))
	return agent.Completed(agent.Payload{
		"niche":         niche,
		"verdict":       verdict,
		"justification": justification,
	}), nil
}

func (a *PlanningAgent) nicheHasActiveCampaign(ctx context.Context, niche string) (bool, error) {
	if a.repo == nil {
		return false, nil
	}
	campaigns, err := a.repo.List(ctx)
	if err != nil {
		return false, fmt.Errorf("listing campaigns: %w", err)
	}
	for _, c := range campaigns {
		if c.Status == campaign.StatusActive && normalizeNiche(c.Niche) == normalizeNiche(niche) {
			return true, nil
		}
	}
	return false, nil
}
