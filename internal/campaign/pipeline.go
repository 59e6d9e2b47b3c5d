package campaign

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/executor"
)

// Phase names, in execution order.
const (
	PhaseScrape   = "scrape"
	PhaseClean    = "clean"
	PhaseClassify = "classify"
	PhaseExport   = "export-decision"
	PhaseContact  = "contact"
)

// phase binds a phase name to the agent that runs it.
type phase struct {
	name  string
	agent agent.Name
}

var phases = []phase{
	{PhaseScrape, agent.Scraper},
	{PhaseClean, agent.Cleaner},
	{PhaseClassify, agent.Classifier},
	{PhaseExport, agent.Exporter},
	{PhaseContact, agent.Messenger},
}

// Result is the outcome of one full pipeline pass over a campaign.
type Result struct {
	CampaignID string        `json:"campaign_id"`
	Status     agent.Status  `json:"status"`
	Phases     []PhaseResult `json:"phases"`
	Error      string        `json:"error,omitempty"`
}

// Pipeline is the fixed five-phase lead pipeline: scrape, clean, classify,
// export-decision, contact. Each phase feeds the next; an empty result where
// leads were required short-circuits the run as Failed without going through
// the failure handler, since "nothing to do" is not "something broke".
type Pipeline struct {
	registry *agent.Registry
	repo     Repository
	runlog   executor.RunLog
	log      *zap.Logger
}

// NewPipeline builds the campaign pipeline.
func NewPipeline(registry *agent.Registry, repo Repository, runlog executor.RunLog, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{registry: registry, repo: repo, runlog: runlog, log: log}
}

// Run executes all phases for the campaign and persists the updated
// campaign state through the repository.
func (p *Pipeline) Run(ctx context.Context, runID string, c *Campaign) (*Result, error) {
	result := &Result{CampaignID: c.ID, Status: agent.StatusCompleted}
	log := p.log.With(zap.String("campaign_id", c.ID), zap.String("niche", c.Niche))
	log.Info("campaign pipeline started")

	prevAgent := agent.Name("")
	var prevPayload agent.Payload

	for _, ph := range phases {
		p.logEvent(runID, c.ID, "phase_started", string(ph.agent), ph.name)

		in := agent.Input{"campaign_id": c.ID, "niche": c.Niche}
		if c.Plan != nil {
			in["plan"] = c.Plan
		}
		if prevPayload != nil {
			in["upstream"] = map[string]agent.Payload{string(prevAgent): prevPayload}
		}

		started := time.Now()
		res := p.invoke(ctx, ph.agent, in)
		elapsed := time.Since(started)

		pr := PhaseResult{
			Phase:      ph.name,
			Status:     string(res.Status),
			Error:      res.Err,
			Metrics:    phaseMetrics(ph.name, res.Payload),
			DurationMs: elapsed.Milliseconds(),
		}

		if res.Status != agent.StatusCompleted {
			pr.Status = string(agent.StatusFailed)
			result.Phases = append(result.Phases, pr)
			result.Status = agent.StatusFailed
			result.Error = res.Err
			log.Warn("phase failed, pipeline stopped",
				zap.String("phase", ph.name), zap.String("error", res.Err))
			break
		}

		if msg := requiredLeadsMissing(ph.name, res.Payload); msg != "" {
			pr.Status = string(agent.StatusFailed)
			pr.Error = msg
			result.Phases = append(result.Phases, pr)
			result.Status = agent.StatusFailed
			result.Error = msg
			log.Warn("phase produced no leads, pipeline stopped",
				zap.String("phase", ph.name))
			break
		}

		result.Phases = append(result.Phases, pr)
		p.logEvent(runID, c.ID, "phase_completed", string(ph.agent), ph.name)
		log.Info("phase completed",
			zap.String("phase", ph.name),
			zap.Any("metrics", pr.Metrics),
			zap.Duration("took", elapsed))

		prevAgent = ph.agent
		prevPayload = res.Payload
		applyMetrics(c, ph.name, pr.Metrics)
	}

	c.Phases = append(c.Phases, result.Phases...)
	if result.Status == agent.StatusCompleted {
		c.Status = StatusCompleted
	} else {
		c.Status = StatusFailed
	}
	if err := p.repo.Save(ctx, c); err != nil {
		return result, fmt.Errorf("persisting campaign after pipeline: %w", err)
	}
	log.Info("campaign pipeline finished", zap.String("status", string(result.Status)))
	return result, nil
}

func (p *Pipeline) invoke(ctx context.Context, name agent.Name, in agent.Input) agent.Result {
	a, ok := p.registry.Lookup(name)
	if !ok {
		return agent.Errored(fmt.Sprintf("agent %q not registered", name))
	}
	res, err := a.Run(ctx, in)
	if err != nil {
		return agent.Errored(err.Error())
	}
	return res
}

func (p *Pipeline) logEvent(runID, campaignID, event, agentName, detail string) {
	if p.runlog == nil {
		return
	}
	_ = p.runlog.LogPipelineEvent(runID, campaignID, event, agentName, detail)
}

// requiredLeadsMissing enforces the non-empty contract of the lead-producing
// phases. The messages are deliberately specific per phase.
func requiredLeadsMissing(phaseName string, payload agent.Payload) string {
	switch phaseName {
	case PhaseScrape:
		if len(LeadsFrom(payload, "leads")) == 0 {
			return "no leads scraped"
		}
	case PhaseClean:
		if len(LeadsFrom(payload, "leads")) == 0 {
			return "no valid leads after cleaning"
		}
	case PhaseClassify:
		if len(LeadsFrom(payload, "leads")) == 0 {
			return "no leads to classify"
		}
	}
	return ""
}

// LeadsFrom extracts a lead list from an agent payload.
func LeadsFrom(p agent.Payload, key string) []Lead {
	if p == nil {
		return nil
	}
	leads, _ := p[key].([]Lead)
	return leads
}

func phaseMetrics(phaseName string, payload agent.Payload) map[string]int {
	m := make(map[string]int)
	switch phaseName {
	case PhaseScrape:
		m["scraped"] = len(LeadsFrom(payload, "leads"))
	case PhaseClean:
		m["valid"] = len(LeadsFrom(payload, "leads"))
		m["rejected"] = intField(payload, "rejected_count")
	case PhaseClassify:
		m["hot"] = intField(payload, "hot")
		m["warm"] = intField(payload, "warm")
		m["cold"] = intField(payload, "cold")
	case PhaseExport:
		m["export_now"] = len(LeadsFrom(payload, "export_now"))
		m["delayed"] = len(LeadsFrom(payload, "delayed"))
	case PhaseContact:
		m["contacted"] = intField(payload, "contacted")
	}
	return m
}

func applyMetrics(c *Campaign, phaseName string, m map[string]int) {
	switch phaseName {
	case PhaseScrape:
		c.TotalLeads = m["scraped"]
	case PhaseClean:
		c.ValidLeads = m["valid"]
	case PhaseClassify:
		c.HotLeads = m["hot"]
	case PhaseExport:
		c.ExportedNow = m["export_now"]
		c.Delayed = m["delayed"]
	case PhaseContact:
		c.Contacted = m["contacted"]
	}
}

func intField(p agent.Payload, key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
