package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/prompt"
	"github.com/jmercier/leadpilot/internal/store"
)

// StarterAgent validates the approved niche and creates the campaign record
// with its execution plan.
type StarterAgent struct {
	oracle oracle.Oracle
	store  *store.Store
	repo   campaign.Repository
	log    *zap.Logger
}

// NewStarter builds the campaign starter agent.
func NewStarter(o oracle.Oracle, s *store.Store, repo campaign.Repository, log *zap.Logger) *StarterAgent {
	return &StarterAgent{oracle: o, store: s, repo: repo, log: log.Named("starter")}
}

func (a *StarterAgent) Name() agent.Name { return agent.CampaignStarter }

func (a *StarterAgent) Run(ctx context.Context, in agent.Input) (agent.Result, error) {
	niche := a.resolveNiche(in)
	if niche == "" {
		return agent.Failed("no valid niche provided"), nil
	}

	rejected, err := loadRejectedNiches(a.store, 0)
	if err != nil {
		return agent.Result{}, err
	}
	if _, sub := in["auto_substituted"]; !sub && rejected.contains(niche) {
		return agent.Failed(fmt.Sprintf("niche %q is not valid: recently rejected", niche)), nil
	}

	id := uuid.NewString()
	plan, err := a.buildPlan(ctx, id, niche)
	if err != nil {
		return agent.Result{}, err
	}

	c := &campaign.Campaign{
		ID:        id,
		Niche:     niche,
		Status:    campaign.StatusActive,
		Plan:      plan,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.repo.Save(ctx, c); err != nil {
		return agent.Result{}, fmt.Errorf("creating campaign: %w", err)
	}

	a.log.Info("campaign created",
		zap.String("campaign_id", id),
		zap.String("niche", niche))
	return agent.Completed(agent.Payload{
		"campaign_id": id,
		"niche":       niche,
		"plan":        plan,
	}), nil
}

// resolveNiche prefers an explicit input niche (retry substitution), then
// the upstream strategy result, then the brain decision.
func (a *StarterAgent) resolveNiche(in agent.Input) string {
	if niche := agent.StringField(in, "niche"); niche != "" {
		return strings.TrimSpace(niche)
	}
	if strategy := agent.Upstream(in)[string(agent.Strategy)]; strategy != nil {
		if niche := agent.StringField(strategy, "niche"); niche != "" {
			return strings.TrimSpace(niche)
		}
	}
	return strings.TrimSpace(agent.StringField(agent.Decision(in), "niche"))
}

// buildPlan asks the oracle for a phase plan; an undecodable answer falls
// back to the standard five phases.
func (a *StarterAgent) buildPlan(ctx context.Context, id, niche string) (map[string]any, error) {
	tmpl, err := prompt.Load("campaign-plan.md")
	if err != nil {
		return nil, err
	}
	p, err := prompt.Render(tmpl, prompt.Vars{
		"validated_niche": niche,
		"campaign_id":     id,
		"campaign_params": "standard outbound sequence",
	})
	if err != nil {
		return nil, err
	}
	raw, err := a.oracle.Ask(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("asking oracle for plan: %w", err)
	}
	plan, err := oracle.DecodeMap(raw)
	if err != nil {
		a.log.Warn("plan response not decodable, using standard phases", zap.Error(err))
		return map[string]any{
			"phases": []any{"scrape", "clean", "classify", "export-decision", "contact"},
		}, nil
	}
	return plan, nil
}
