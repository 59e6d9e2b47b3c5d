// Package brain is the top-level orchestrator: it asks the oracle what to
// do next, turns the answer into an agent order, drives the executor, and
// hands successful campaign starts to the lead pipeline.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/executor"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/prompt"
	"github.com/jmercier/leadpilot/internal/store"
)

const decisionsKey = "brain/decisions.jsonl"

// Decision actions.
const (
	ActionNewCampaign = "nouvelle"
	ActionContinue    = "continuer"
	ActionWait        = "attendre"
)

// defaultOrder is the agent sequence used when the oracle's answer is
// unusable.
var defaultOrder = []agent.Name{agent.Strategy, agent.Planning, agent.CampaignStarter}

// knownAgents validates oracle-proposed agent names.
var knownAgents = map[agent.Name]bool{
	agent.Strategy:        true,
	agent.Planning:        true,
	agent.CampaignStarter: true,
	agent.Scraper:         true,
	agent.Cleaner:         true,
	agent.Classifier:      true,
	agent.Exporter:        true,
	agent.Messenger:       true,
	agent.Analytics:       true,
	agent.Pivot:           true,
}

// Decision is one recorded brain verdict.
type Decision struct {
	Action        string       `json:"action"`
	Agents        []agent.Name `json:"agents_to_involve"`
	Justification string       `json:"justification,omitempty"`
	Fallback      bool         `json:"fallback,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// Brain ties the oracle, the executor, and the campaign pipeline together.
type Brain struct {
	oracle   oracle.Oracle
	repo     campaign.Repository
	store    *store.Store
	exec     *executor.Executor
	pipeline *campaign.Pipeline
	log      *zap.Logger
}

// New builds the brain.
func New(o oracle.Oracle, repo campaign.Repository, s *store.Store, exec *executor.Executor, pipeline *campaign.Pipeline, log *zap.Logger) *Brain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Brain{oracle: o, repo: repo, store: s, exec: exec, pipeline: pipeline, log: log.Named("brain")}
}

// Decide asks the oracle for the next move. An unusable answer degrades to
// starting a new campaign with the default agent order, never to an error
// reaching the caller's control flow.
func (b *Brain) Decide(ctx context.Context) (*Decision, error) {
	past, active, err := b.campaignContext(ctx)
	if err != nil {
		return nil, err
	}

	tmpl, err := prompt.Load("brain-decision.md")
	if err != nil {
		return nil, err
	}
	p, err := prompt.Render(tmpl, prompt.Vars{
		"past_campaigns":    past,
		"active_campaigns":  active,
		"unexplored_niches": "any B2B niche not yet campaigned",
	})
	if err != nil {
		return nil, err
	}

	decision := b.fallbackDecision()
	raw, err := b.oracle.Ask(ctx, p)
	if err != nil {
		b.log.Warn("oracle unavailable, using fallback decision", zap.Error(err))
	} else if doc, derr := oracle.DecodeMap(raw); derr != nil {
		b.log.Warn("decision not decodable, using fallback", zap.Error(derr))
	} else {
		decision = b.decisionFrom(doc)
	}

	if err := b.store.Append(decisionsKey, decision); err != nil {
		b.log.Warn("recording decision failed", zap.Error(err))
	}
	b.log.Info("decision made",
		zap.String("action", decision.Action),
		zap.Int("agents", len(decision.Agents)),
		zap.Bool("fallback", decision.Fallback))
	return decision, nil
}

// RunOnce performs one full orchestration pass: decide, run the agent
// chain, and when a campaign was started, run its lead pipeline.
func (b *Brain) RunOnce(ctx context.Context) (*executor.Run, *campaign.Result, error) {
	decision, err := b.Decide(ctx)
	if err != nil {
		return nil, nil, err
	}
	if decision.Action == ActionWait {
		b.log.Info("waiting, no pipeline pass")
		return nil, nil, nil
	}

	run := b.exec.Execute(ctx, decision.Agents, agent.Payload{
		"action":        decision.Action,
		"justification": decision.Justification,
	})

	starter, ok := run.Results[agent.CampaignStarter]
	if !ok || !starter.Succeeded() {
		return run, nil, nil
	}
	id := agent.StringField(starter.Payload, "campaign_id")
	c, found, err := b.repo.Get(ctx, id)
	if err != nil {
		return run, nil, fmt.Errorf("loading started campaign: %w", err)
	}
	if !found {
		return run, nil, fmt.Errorf("started campaign %s not persisted", id)
	}

	pres, err := b.pipeline.Run(ctx, run.RunID, c)
	if err != nil {
		return run, pres, err
	}
	return run, pres, nil
}

func (b *Brain) fallbackDecision() *Decision {
	return &Decision{
		Action:        ActionNewCampaign,
		Agents:        append([]agent.Name(nil), defaultOrder...),
		Justification: "fallback: start a new campaign through the standard chain",
		Fallback:      true,
		Timestamp:     time.Now().UTC(),
	}
}

// decisionFrom validates the oracle's proposal, falling back field by field.
func (b *Brain) decisionFrom(doc map[string]any) *Decision {
	d := &Decision{Timestamp: time.Now().UTC()}
	switch strings.ToLower(agent.StringField(doc, "action")) {
	case ActionNewCampaign:
		d.Action = ActionNewCampaign
	case ActionContinue:
		d.Action = ActionContinue
	case ActionWait:
		d.Action = ActionWait
	default:
		d.Action = ActionNewCampaign
		d.Fallback = true
	}
	d.Justification = agent.StringField(doc, "commentaire")
	if d.Justification == "" {
		d.Justification = agent.StringField(doc, "justification")
	}

	if raw, ok := doc["agents_to_involve"].([]any); ok {
		for _, v := range raw {
			name, _ := v.(string)
			if knownAgents[agent.Name(name)] {
				d.Agents = append(d.Agents, agent.Name(name))
			}
		}
	}
	if len(d.Agents) == 0 {
		d.Agents = append([]agent.Name(nil), defaultOrder...)
		d.Fallback = true
	}
	return d
}

// campaignContext renders past and active campaign summaries for the prompt.
func (b *Brain) campaignContext(ctx context.Context) (past, active string, err error) {
	campaigns, err := b.repo.List(ctx)
	if err != nil {
		return "", "", fmt.Errorf("listing campaigns: %w", err)
	}
	var pastSummaries, activeSummaries []campaign.Summary
	for _, c := range campaigns {
		if c.Status == campaign.StatusActive {
			activeSummaries = append(activeSummaries, c.Summarize())
		} else {
			pastSummaries = append(pastSummaries, c.Summarize())
		}
	}
	return summariesJSON(pastSummaries), summariesJSON(activeSummaries), nil
}

func summariesJSON(s []campaign.Summary) string {
	if len(s) == 0 {
		return "none"
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "none"
	}
	return string(data)
}
