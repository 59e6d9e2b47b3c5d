package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/config"
	"github.com/jmercier/leadpilot/internal/store"
)

type fakeOracle struct {
	resp string
	err  error
}

func (f fakeOracle) Ask(context.Context, string) (string, error) {
	return f.resp, f.err
}

func testAgentsConfig() config.AgentsConfig {
	return config.AgentsConfig{NicheCooldownDays: 30}
}

func TestStrategy_AcceptsSubstitutedNiche(t *testing.T) {
	a := NewStrategy(fakeOracle{}, store.New(t.TempDir()), testAgentsConfig(), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{"niche": "Avocats", "auto_substituted": true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Err)
	}
	if agent.StringField(res.Payload, "niche") != "Avocats" {
		t.Errorf("niche = %v, want Avocats", res.Payload["niche"])
	}
	if sub, _ := res.Payload["auto_substituted"].(bool); !sub {
		t.Error("payload should carry the auto_substituted marker")
	}
}

func TestStrategy_ProposesNicheFromOracle(t *testing.T) {
	o := fakeOracle{resp: "```json\n{\"niche\": \"Notaires\", \"justification\": \"untapped\", \"potentiel_conversion\": \"fort\"}\n```"}
	a := NewStrategy(o, store.New(t.TempDir()), testAgentsConfig(), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Err)
	}
	if agent.StringField(res.Payload, "niche") != "Notaires" {
		t.Errorf("niche = %v, want Notaires", res.Payload["niche"])
	}
	if agent.StringField(res.Payload, "justification") != "untapped" {
		t.Errorf("justification = %v", res.Payload["justification"])
	}
}

func TestStrategy_UndecodableResponseFails(t *testing.T) {
	o := fakeOracle{resp: "I cannot decide on a niche right now."}
	a := NewStrategy(o, store.New(t.TempDir()), testAgentsConfig(), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusFailed {
		t.Fatalf("status = %s, want FAILED", res.Status)
	}
	if res.Err != "no niche provided" {
		t.Errorf("error = %q, want no niche provided", res.Err)
	}
}

func TestStrategy_EmptyNicheFails(t *testing.T) {
	o := fakeOracle{resp: `{"niche": "  ", "justification": "none"}`}
	a := NewStrategy(o, store.New(t.TempDir()), testAgentsConfig(), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusFailed || res.Err != "no niche provided" {
		t.Errorf("result = %s (%q), want FAILED no niche provided", res.Status, res.Err)
	}
}

func TestStrategy_RejectedNicheFails(t *testing.T) {
	s := store.New(t.TempDir())
	if err := rejectNiche(s, "Plombiers"); err != nil {
		t.Fatal(err)
	}
	o := fakeOracle{resp: `{"niche": "Plombiers"}`}
	a := NewStrategy(o, s, testAgentsConfig(), zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusFailed {
		t.Fatalf("status = %s, want FAILED", res.Status)
	}
	if !strings.Contains(res.Err, "recently rejected") {
		t.Errorf("error = %q, want a recently-rejected message", res.Err)
	}
}

func TestStrategy_OracleErrorIsInfrastructure(t *testing.T) {
	o := fakeOracle{err: context.DeadlineExceeded}
	a := NewStrategy(o, store.New(t.TempDir()), testAgentsConfig(), zap.NewNop())

	if _, err := a.Run(context.Background(), agent.Input{}); err == nil {
		t.Fatal("expected error when the oracle is unreachable")
	}
}

func TestRejectedNiches_CooldownWindow(t *testing.T) {
	s := store.New(t.TempDir())
	if err := rejectNiche(s, "Plombiers"); err != nil {
		t.Fatal(err)
	}

	// Inside the window.
	active, err := loadRejectedNiches(s, 30*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !active.contains("plombiers") || !active.contains(" Plombiers ") {
		t.Error("rejection should match case and whitespace variants")
	}

	// A zero cooldown keeps every recorded rejection.
	all, err := loadRejectedNiches(s, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !all.contains("Plombiers") {
		t.Error("zero cooldown should keep all rejections")
	}
}
