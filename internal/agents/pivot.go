package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/prompt"
	"github.com/jmercier/leadpilot/internal/store"
)

// Pivot verdicts.
const (
	PivotContinue  = "CONTINUE"
	PivotPivot     = "PIVOT"
	PivotDuplicate = "DUPLICATE"
)

// PivotAgent decides, from a campaign's results, whether to keep going,
// abandon the niche, or clone the campaign onto a similar niche.
type PivotAgent struct {
	oracle oracle.Oracle
	store  *store.Store
	repo   campaign.Repository
	log    *zap.Logger
}

// NewPivot builds the pivot agent.
func NewPivot(o oracle.Oracle, s *store.Store, repo campaign.Repository, log *zap.Logger) *PivotAgent {
	return &PivotAgent{oracle: o, store: s, repo: repo, log: log.Named("pivot")}
}

func (a *PivotAgent) Name() agent.Name { return agent.Pivot }

func (a *PivotAgent) Run(ctx context.Context, in agent.Input) (agent.Result, error) {
	id := agent.StringField(in, "campaign_id")
	up := agent.Upstream(in)
	if id == "" {
		if starter := up[string(agent.CampaignStarter)]; starter != nil {
			id = agent.StringField(starter, "campaign_id")
		}
	}
	if id == "" {
		return agent.Failed("no campaign to decide on"), nil
	}

	c, ok, err := a.repo.Get(ctx, id)
	if err != nil {
		return agent.Result{}, err
	}
	if !ok {
		return agent.Failed(fmt.Sprintf("campaign %s not found", id)), nil
	}

	tmpl, err := prompt.Load("pivot-decision.md")
	if err != nil {
		return agent.Result{}, err
	}
	p, err := prompt.Render(tmpl, prompt.Vars{
		"campaign_data":     jsonString(c.Summarize()),
		"analytics_results": jsonString(up[string(agent.Analytics)]),
	})
	if err != nil {
		return agent.Result{}, err
	}

	raw, err := a.oracle.Ask(ctx, p)
	if err != nil {
		return agent.Result{}, fmt.Errorf("asking oracle for pivot decision: %w", err)
	}

	action := PivotContinue
	justification := "default, decision response not decodable"
	if doc, err := oracle.DecodeMap(raw); err != nil {
		a.log.Warn("pivot response not decodable", zap.Error(err))
	} else {
		switch v := strings.ToUpper(agent.StringField(doc, "action")); v {
		case PivotContinue, PivotPivot, PivotDuplicate:
			action = v
		}
		if j := agent.StringField(doc, "justification"); j != "" {
			justification = j
		}
	}

	if action == PivotPivot {
		if err := a.repo.SetStatus(ctx, id, campaign.StatusPivoted); err != nil {
			return agent.Result{}, err
		}
		if err := rejectNiche(a.store, c.Niche); err != nil {
			a.log.Warn("recording pivoted niche failed", zap.Error(err))
		}
	}

	a.log.Info("pivot decided",
		zap.String("campaign_id", id),
		zap.String("action", action))
	return agent.Completed(agent.Payload{
		"campaign_id":   id,
		"action":        action,
		"justification": justification,
	}), nil
}

func jsonString(v any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
