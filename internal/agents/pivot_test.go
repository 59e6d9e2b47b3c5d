package agents

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/oracle"
	"github.com/jmercier/leadpilot/internal/store"
)

func seedCampaign(t *testing.T, repo campaign.Repository, c *campaign.Campaign) {
	t.Helper()
	if err := repo.Save(context.Background(), c); err != nil {
		t.Fatal(err)
	}
}

func TestPivot_NoCampaign(t *testing.T) {
	s := store.New(t.TempDir())
	a := NewPivot(fakeOracle{}, s, campaign.NewStoreRepository(s), zap.NewNop())

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

func TestPivot_UnknownCampaign(t *testing.T) {
	s := store.New(t.TempDir())
	a := NewPivot(fakeOracle{}, s, campaign.NewStoreRepository(s), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"campaign_id": "ghost"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusFailed {
		t.Fatalf("status = %s, want FAILED", res.Status)
	}
}

func TestPivot_ContinueKeepsCampaign(t *testing.T) {
	s := store.New(t.TempDir())
	repo := campaign.NewStoreRepository(s)
	seedCampaign(t, repo, &campaign.Campaign{ID: "c1", Niche: "Avocats", Status: campaign.StatusCompleted})

	o := fakeOracle{resp: `{"action": "CONTINUE", "justification": "conversion is healthy"}`}
	a := NewPivot(o, s, repo, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"campaign_id": "c1"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Err)
	}
	if got := agent.StringField(res.Payload, "action"); got != PivotContinue {
		t.Errorf("action = %q, want CONTINUE", got)
	}

	c, _, err := repo.Get(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != campaign.StatusCompleted {
		t.Errorf("campaign status = %s, want unchanged", c.Status)
	}
}

func TestPivot_PivotMarksCampaignAndRejectsNiche(t *testing.T) {
	s := store.New(t.TempDir())
	repo := campaign.NewStoreRepository(s)
	seedCampaign(t, repo, &campaign.Campaign{ID: "c1", Niche: "Avocats", Status: campaign.StatusCompleted})

	o := fakeOracle{resp: `{"action": "PIVOT", "justification": "no traction"}`}
	a := NewPivot(o, s, repo, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"campaign_id": "c1"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := agent.StringField(res.Payload, "action"); got != PivotPivot {
		t.Fatalf("action = %q, want PIVOT", got)
	}

	c, _, err := repo.Get(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != campaign.StatusPivoted {
		t.Errorf("campaign status = %s, want pivoted", c.Status)
	}

	rejected, err := loadRejectedNiches(s, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !rejected.contains("Avocats") {
		t.Error("pivoted niche should be recorded as rejected")
	}
}

func TestPivot_UndecodableDecisionDefaultsToContinue(t *testing.T) {
	s := store.New(t.TempDir())
	repo := campaign.NewStoreRepository(s)
	seedCampaign(t, repo, &campaign.Campaign{ID: "c1", Niche: "Avocats", Status: campaign.StatusCompleted})

	a := NewPivot(fakeOracle{resp: "hard to say"}, s, repo, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"campaign_id": "c1"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := agent.StringField(res.Payload, "action"); got != PivotContinue {
		t.Errorf("action = %q, want default CONTINUE", got)
	}
}

func TestPivot_CampaignIDFromUpstreamStarter(t *testing.T) {
	s := store.New(t.TempDir())
	repo := campaign.NewStoreRepository(s)
	seedCampaign(t, repo, &campaign.Campaign{ID: "c1", Niche: "Avocats", Status: campaign.StatusCompleted})

	o := fakeOracle{resp: `{"action": "DUPLICATE", "justification": "clone onto notaries"}`}
	a := NewPivot(o, s, repo, zap.NewNop())

	in := agent.Input{
		"upstream": map[string]agent.Payload{
			string(agent.CampaignStarter): {"campaign_id": "c1"},
		},
	}
	res, err := a.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := agent.StringField(res.Payload, "action"); got != PivotDuplicate {
		t.Errorf("action = %q, want DUPLICATE", got)
	}
	if got := agent.StringField(res.Payload, "campaign_id"); got != "c1" {
		t.Errorf("campaign_id = %q, want c1", got)
	}
}

func TestPivot_SimOracleDecisionDecodes(t *testing.T) {
	s := store.New(t.TempDir())
	repo := campaign.NewStoreRepository(s)
	seedCampaign(t, repo, &campaign.Campaign{ID: "c1", Niche: "Avocats", Status: campaign.StatusCompleted})

	a := NewPivot(oracle.NewSim(), s, repo, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"campaign_id": "c1"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := agent.StringField(res.Payload, "action"); got != PivotContinue {
		t.Errorf("action = %q, want CONTINUE from the sim", got)
	}
	if got := agent.StringField(res.Payload, "justification"); strings.Contains(got, "not decodable") {
		t.Errorf("justification = %q, want the sim's reasoning, not the decode fallback", got)
	}
}
