package agents

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/config"
	"github.com/jmercier/leadpilot/internal/store"
)

func classifiedLeads() []campaign.Lead {
	return []campaign.Lead{
		{ID: "cold", Quality: QualityCold, Score: 20},
		{ID: "hot-low", Quality: QualityHot, Score: 75},
		{ID: "warm", Quality: QualityWarm, Score: 50},
		{ID: "hot-high", Quality: QualityHot, Score: 95},
	}
}

func TestExporter_SplitsByDailyLimit(t *testing.T) {
	a := NewExporter(config.ExporterConfig{DailyLimit: 2}, nil, store.New(t.TempDir()), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"leads": classifiedLeads()})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Err)
	}

	now := campaign.LeadsFrom(res.Payload, "export_now")
	delayed := campaign.LeadsFrom(res.Payload, "delayed")
	if len(now) != 2 || len(delayed) != 2 {
		t.Fatalf("split = %d now / %d delayed, want 2/2", len(now), len(delayed))
	}

	// Hot leads first, highest score first.
	if now[0].ID != "hot-high" || now[1].ID != "hot-low" {
		t.Errorf("export_now = [%s %s], want [hot-high hot-low]", now[0].ID, now[1].ID)
	}
	if delayed[0].ID != "warm" || delayed[1].ID != "cold" {
		t.Errorf("delayed = [%s %s], want [warm cold]", delayed[0].ID, delayed[1].ID)
	}
	if res.Payload["exported_today"] != 2 {
		t.Errorf("exported_today = %v, want 2", res.Payload["exported_today"])
	}
}

func TestExporter_CountsAcrossRuns(t *testing.T) {
	s := store.New(t.TempDir())
	a := NewExporter(config.ExporterConfig{DailyLimit: 3}, nil, s, zap.NewNop())

	// First run exports 2 of 2.
	res, err := a.Run(context.Background(), agent.Input{"leads": classifiedLeads()[:2]})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(campaign.LeadsFrom(res.Payload, "export_now")); got != 2 {
		t.Fatalf("first run exported %d, want 2", got)
	}

	// Second run only has 1 slot left today.
	res, err = a.Run(context.Background(), agent.Input{"leads": classifiedLeads()})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(campaign.LeadsFrom(res.Payload, "export_now")); got != 1 {
		t.Errorf("second run exported %d, want 1", got)
	}
	if res.Payload["exported_today"] != 3 {
		t.Errorf("exported_today = %v, want 3", res.Payload["exported_today"])
	}
}

func TestExporter_DayRolloverResetsCounter(t *testing.T) {
	s := store.New(t.TempDir())
	// Yesterday's counter is maxed out.
	if err := s.Save(exportStateKey, exportState{
		Date:     time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"),
		Exported: 99,
	}); err != nil {
		t.Fatal(err)
	}
	a := NewExporter(config.ExporterConfig{DailyLimit: 2}, nil, s, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"leads": classifiedLeads()})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(campaign.LeadsFrom(res.Payload, "export_now")); got != 2 {
		t.Errorf("exported %d after rollover, want 2", got)
	}
}

func TestExporter_LimitExhausted(t *testing.T) {
	s := store.New(t.TempDir())
	if err := s.Save(exportStateKey, exportState{
		Date:     time.Now().UTC().Format("2006-01-02"),
		Exported: 5,
	}); err != nil {
		t.Fatal(err)
	}
	a := NewExporter(config.ExporterConfig{DailyLimit: 5}, nil, s, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"leads": classifiedLeads()})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(campaign.LeadsFrom(res.Payload, "export_now")); got != 0 {
		t.Errorf("exported %d with exhausted limit, want 0", got)
	}
	if got := len(campaign.LeadsFrom(res.Payload, "delayed")); got != 4 {
		t.Errorf("delayed %d, want all 4", got)
	}
}

func TestExporter_BatchingAdviceFromOracle(t *testing.T) {
	o := fakeOracle{resp: `{"batching_strategy": {"methode": "PAR_SOURCE", "explication": "group by origin"}}`}
	a := NewExporter(config.ExporterConfig{DailyLimit: 5}, o, store.New(t.TempDir()), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"leads": classifiedLeads()})
	if err != nil {
		t.Fatal(err)
	}
	batching, ok := res.Payload["batching"].(map[string]any)
	if !ok {
		t.Fatalf("batching = %v, want a strategy map", res.Payload["batching"])
	}
	if batching["methode"] != "PAR_SOURCE" {
		t.Errorf("methode = %v, want PAR_SOURCE", batching["methode"])
	}
}

func TestExporter_BatchingFallsBackOnBadAdvice(t *testing.T) {
	a := NewExporter(config.ExporterConfig{DailyLimit: 5}, fakeOracle{resp: "no idea"}, store.New(t.TempDir()), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"leads": classifiedLeads()})
	if err != nil {
		t.Fatal(err)
	}
	batching, ok := res.Payload["batching"].(map[string]any)
	if !ok {
		t.Fatalf("batching = %v, want the default strategy", res.Payload["batching"])
	}
	if batching["methode"] != "PAR_QUALITE" {
		t.Errorf("methode = %v, want default PAR_QUALITE", batching["methode"])
	}
}
