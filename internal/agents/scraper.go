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
	"github.com/jmercier/leadpilot/internal/config"
)

// ScraperAgent gathers raw leads for a niche from the configured sources.
// Sources run sequentially and their results are concatenated. The sources
// here simulate the Apify and Apollo connectors; real connectors slot in
// behind the same source name.
type ScraperAgent struct {
	sources   []string
	perSource int
	log       *zap.Logger
}

// NewScraper builds the scraper agent.
func NewScraper(cfg config.ScraperConfig, log *zap.Logger) *ScraperAgent {
	return &ScraperAgent{
		sources:   cfg.Sources,
		perSource: cfg.LeadsPerRun,
		log:       log.Named("scraper"),
	}
}

func (a *ScraperAgent) Name() agent.Name { return agent.Scraper }

func (a *ScraperAgent) Run(ctx context.Context, in agent.Input) (agent.Result, error) {
	niche := agent.StringField(in, "niche")
	if niche == "" {
		if starter := agent.Upstream(in)[string(agent.CampaignStarter)]; starter != nil {
			niche = agent.StringField(starter, "niche")
		}
	}
	if niche == "" {
		return agent.Failed("no niche to scrape"), nil
	}

	var all []campaign.Lead
	for _, src := range a.sources {
		if err := ctx.Err(); err != nil {
			return agent.Result{}, err
		}
		leads := a.scrapeSource(src, niche)
		a.log.Info("source scraped",
			zap.String("source", src),
			zap.Int("leads", len(leads)))
		all = append(all, leads...)
	}

	return agent.Completed(agent.Payload{
		"leads":      all,
		"lead_count": len(all),
		"sources":    a.sources,
	}), nil
}

var (
	firstNames = []string{"Julien", "Claire", "Marc", "Sophie", "Antoine", "Camille", "Nicolas", "Laure"}
	lastNames  = []string{"Moreau", "Lefevre", "Garnier", "Dubois", "Renard", "Chevalier", "Perrin", "Collet"}
	positions  = []string{"Fondateur", "Directeur commercial", "Assistant", "Gérant", "Responsable marketing", "CEO"}
)

// scrapeSource produces simulated leads with realistic defects: some have a
// broken email, some have no phone, so the cleaning phase has work to do.
func (a *ScraperAgent) scrapeSource(source, niche string) []campaign.Lead {
	now := time.Now().UTC()
	leads := make([]campaign.Lead, 0, a.perSource)
	for i := 0; i < a.perSource; i++ {
		first := firstNames[i%len(firstNames)]
		last := lastNames[(i/len(firstNames))%len(lastNames)]
		company := fmt.Sprintf("%s %s & Associes", niche, last)

		lead := campaign.Lead{
			ID:        uuid.NewString(),
			Name:      first + " " + last,
			Company:   company,
			Position:  positions[i%len(positions)],
			Email:     fmt.Sprintf("%s.%s@%s.fr", strings.ToLower(first), strings.ToLower(last), slugify(company)),
			Phone:     fmt.Sprintf("+3361234%04d", i),
			Niche:     niche,
			Source:    source,
			ScrapedAt: now,
		}
		// Defect injection, keyed on position so both sources overlap.
		switch {
		case i%5 == 3:
			lead.Email = "contact@"
		case i%7 == 5:
			lead.Phone = ""
		}
		leads = append(leads, lead)
	}
	return leads
}

func slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
