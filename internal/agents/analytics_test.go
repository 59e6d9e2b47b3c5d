package agents

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/store"
)

func TestAnalytics_NoCampaign(t *testing.T) {
	s := store.New(t.TempDir())
	a := NewAnalytics(campaign.NewStoreRepository(s), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusFailed {
		t.Fatalf("status = %s, want FAILED", res.Status)
	}
	if !strings.Contains(res.Err, "no campaign") {
		t.Errorf("error = %q", res.Err)
	}
}

func TestAnalytics_ComputesFunnel(t *testing.T) {
	s := store.New(t.TempDir())
	repo := campaign.NewStoreRepository(s)
	seedCampaign(t, repo, &campaign.Campaign{
		ID:         "c1",
		Niche:      "Avocats",
		Status:     campaign.StatusCompleted,
		TotalLeads: 50,
		ValidLeads: 40,
		HotLeads:   10,
		Contacted:  20,
	})
	a := NewAnalytics(repo, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"campaign_id": "c1"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Err)
	}

	if got := res.Payload["clean_rate"]; got != 0.8 {
		t.Errorf("clean_rate = %v, want 0.8", got)
	}
	if got := res.Payload["hot_rate"]; got != 0.25 {
		t.Errorf("hot_rate = %v, want 0.25", got)
	}
	if got := res.Payload["contact_rate"]; got != 0.5 {
		t.Errorf("contact_rate = %v, want 0.5", got)
	}
	if got := res.Payload["total_leads"]; got != 50 {
		t.Errorf("total_leads = %v, want 50", got)
	}
}

func TestAnalytics_EmptyCampaignHasZeroRates(t *testing.T) {
	s := store.New(t.TempDir())
	repo := campaign.NewStoreRepository(s)
	seedCampaign(t, repo, &campaign.Campaign{ID: "c1", Niche: "Avocats", Status: campaign.StatusFailed})
	a := NewAnalytics(repo, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"campaign_id": "c1"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := res.Payload["clean_rate"]; got != 0.0 {
		t.Errorf("clean_rate = %v, want 0 for an empty campaign", got)
	}
}

func TestAnalytics_CampaignIDFromUpstreamStarter(t *testing.T) {
	s := store.New(t.TempDir())
	repo := campaign.NewStoreRepository(s)
	seedCampaign(t, repo, &campaign.Campaign{ID: "c1", Niche: "Avocats", Status: campaign.StatusCompleted})
	a := NewAnalytics(repo, zap.NewNop())

	in := agent.Input{
		"upstream": map[string]agent.Payload{
			string(agent.CampaignStarter): {"campaign_id": "c1"},
		},
	}
	res, err := a.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Err)
	}
	if got := agent.StringField(res.Payload, "campaign_id"); got != "c1" {
		t.Errorf("campaign_id = %q, want c1", got)
	}
}
