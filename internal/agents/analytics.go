package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
)

// AnalyticsAgent computes the conversion funnel of a finished campaign.
// It sits at the edge of the chain; its failure never blocks other agents.
type AnalyticsAgent struct {
	repo campaign.Repository
	log  *zap.Logger
}

// NewAnalytics builds the analytics agent.
func NewAnalytics(repo campaign.Repository, log *zap.Logger) *AnalyticsAgent {
	return &AnalyticsAgent{repo: repo, log: log.Named("analytics")}
}

func (a *AnalyticsAgent) Name() agent.Name { return agent.Analytics }

func (a *AnalyticsAgent) Run(ctx context.Context, in agent.Input) (agent.Result, error) {
	id := agent.StringField(in, "campaign_id")
	if id == "" {
		if starter := agent.Upstream(in)[string(agent.CampaignStarter)]; starter != nil {
			id = agent.StringField(starter, "campaign_id")
		}
	}
	if id == "" {
		return agent.Failed("no campaign to analyse"), nil
	}

	c, ok, err := a.repo.Get(ctx, id)
	if err != nil {
		return agent.Result{}, err
	}
	if !ok {
		return agent.Failed(fmt.Sprintf("campaign %s not found", id)), nil
	}

	funnel := agent.Payload{
		"campaign_id":  c.ID,
		"niche":        c.Niche,
		"total_leads":  c.TotalLeads,
		"valid_leads":  c.ValidLeads,
		"hot_leads":    c.HotLeads,
		"exported_now": c.ExportedNow,
		"contacted":    c.Contacted,
		"clean_rate":   rate(c.ValidLeads, c.TotalLeads),
		"hot_rate":     rate(c.HotLeads, c.ValidLeads),
		"contact_rate": rate(c.Contacted, c.ValidLeads),
	}
	a.log.Info("campaign analysed", zap.String("campaign_id", c.ID))
	return agent.Completed(funnel), nil
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
