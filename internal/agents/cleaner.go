package agents

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/config"
	"github.com/jmercier/leadpilot/internal/store"
)

const anomalyPatternsKey = "cleaner/anomaly-patterns.json"

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 .\-]{7,14}$`)
)

// disposableDomains are rejected at the enhanced validation level.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"yopmail.com":       true,
	"tempmail.com":      true,
	"guerrillamail.com": true,
}

// CleanerAgent validates and deduplicates scraped leads. A lead survives
// when it keeps at least one valid contact channel. Rejection reasons are
// counted in a persistent anomaly memory so recurring scraper defects show
// up in reporting.
type CleanerAgent struct {
	level string
	store *store.Store
	log   *zap.Logger
}

// NewCleaner builds the cleaner agent.
func NewCleaner(cfg config.CleanerConfig, s *store.Store, log *zap.Logger) *CleanerAgent {
	return &CleanerAgent{level: cfg.ValidationLevel, store: s, log: log.Named("cleaner")}
}

func (a *CleanerAgent) Name() agent.Name { return agent.Cleaner }

func (a *CleanerAgent) Run(_ context.Context, in agent.Input) (agent.Result, error) {
	leads := inputLeads(in, agent.Scraper, "leads")
	if len(leads) == 0 {
		return agent.Failed("nothing to clean"), nil
	}

	seen := make(map[string]bool, len(leads))
	var valid []campaign.Lead
	rejected := 0
	anomalies := make(map[string]int)

	for _, lead := range leads {
		lead.Email = strings.TrimSpace(lead.Email)
		lead.Phone = strings.TrimSpace(lead.Phone)

		if lead.Email != "" && !a.validEmail(lead.Email) {
			anomalies["invalid_email"]++
			lead.Email = ""
		}
		if lead.Phone != "" && !phoneRe.MatchString(lead.Phone) {
			anomalies["invalid_phone"]++
			lead.Phone = ""
		}
		if lead.Email == "" && lead.Phone == "" {
			anomalies["no_contact_channel"]++
			rejected++
			continue
		}

		key := dedupeKey(lead)
		if seen[key] {
			anomalies["duplicate"]++
			rejected++
			continue
		}
		seen[key] = true
		valid = append(valid, lead)
	}

	if err := a.recordAnomalies(anomalies); err != nil {
		a.log.Warn("recording anomaly patterns failed", zap.Error(err))
	}

	a.log.Info("leads cleaned",
		zap.Int("valid", len(valid)),
		zap.Int("rejected", rejected),
		zap.String("level", a.level))
	return agent.Completed(agent.Payload{
		"leads":          valid,
		"valid_count":    len(valid),
		"rejected_count": rejected,
	}), nil
}

// recordAnomalies folds this run's rejection counts into the stored totals.
func (a *CleanerAgent) recordAnomalies(anomalies map[string]int) error {
	if a.store == nil || len(anomalies) == 0 {
		return nil
	}
	totals := make(map[string]int)
	if _, err := a.store.Load(anomalyPatternsKey, &totals); err != nil {
		return err
	}
	for reason, n := range anomalies {
		totals[reason] += n
	}
	return a.store.Save(anomalyPatternsKey, totals)
}

func (a *CleanerAgent) validEmail(email string) bool {
	if !emailRe.MatchString(email) {
		return false
	}
	if a.level == "enhanced" {
		at := strings.LastIndex(email, "@")
		if disposableDomains[strings.ToLower(email[at+1:])] {
			return false
		}
	}
	return true
}

func dedupeKey(lead campaign.Lead) string {
	if lead.Email != "" {
		return "e:" + strings.ToLower(lead.Email)
	}
	return "p:" + lead.Phone
}

// inputLeads pulls a lead list either from the direct input (campaign
// pipeline wiring) or from the named upstream agent's payload.
func inputLeads(in agent.Input, upstream agent.Name, key string) []campaign.Lead {
	if leads, ok := in[key].([]campaign.Lead); ok {
		return leads
	}
	if up := agent.Upstream(in)[string(upstream)]; up != nil {
		return campaign.LeadsFrom(up, key)
	}
	return nil
}
