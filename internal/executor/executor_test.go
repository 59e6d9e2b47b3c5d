package executor

import (
	"context"
	"testing"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/chain"
)

type stubAgent struct {
	name agent.Name
	run  func(ctx context.Context, in agent.Input) (agent.Result, error)
}

func (s stubAgent) Name() agent.Name { return s.name }

func (s stubAgent) Run(ctx context.Context, in agent.Input) (agent.Result, error) {
	return s.run(ctx, in)
}

func completing(name agent.Name) stubAgent {
	return stubAgent{name: name, run: func(context.Context, agent.Input) (agent.Result, error) {
		return agent.Completed(agent.Payload{"from": string(name)}), nil
	}}
}

func failing(name agent.Name, msg string) stubAgent {
	return stubAgent{name: name, run: func(context.Context, agent.Input) (agent.Result, error) {
		return agent.Failed(msg), nil
	}}
}

type stubHandler struct {
	outcome  Outcome
	failures []Failure
}

func (h *stubHandler) Handle(_ context.Context, f Failure) Outcome {
	h.failures = append(h.failures, f)
	return h.outcome
}

func newExecutor(t *testing.T, handler FailureHandler, agents ...agent.Agent) *Executor {
	t.Helper()
	reg := agent.NewRegistry()
	reg.MustRegister(agents...)
	return New(reg, chain.Default(), handler, nil)
}

var coreOrder = []agent.Name{agent.Strategy, agent.Planning, agent.CampaignStarter}

func TestExecute_AllComplete(t *testing.T) {
	var planningInput agent.Input
	planning := stubAgent{name: agent.Planning, run: func(_ context.Context, in agent.Input) (agent.Result, error) {
		planningInput = in
		return agent.Completed(agent.Payload{"verdict": "GO"}), nil
	}}
	e := newExecutor(t, &stubHandler{},
		completing(agent.Strategy), planning, completing(agent.CampaignStarter))

	run := e.Execute(context.Background(), coreOrder, agent.Payload{"action": "nouvelle"})

	if run.Status != agent.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", run.Status)
	}
	if run.ChainBroken {
		t.Error("chain should not be broken")
	}
	for _, name := range coreOrder {
		if !run.Succeeded[name] {
			t.Errorf("%s not in succeeded set", name)
		}
	}

	// Planning receives the brain decision and the strategy payload.
	if d := agent.Decision(planningInput); agent.StringField(d, "action") != "nouvelle" {
		t.Errorf("planning decision = %v, want action nouvelle", d)
	}
	up := agent.Upstream(planningInput)
	if up == nil || agent.StringField(up[string(agent.Strategy)], "from") != string(agent.Strategy) {
		t.Errorf("planning upstream = %v, want strategy payload", up)
	}
}

func TestExecute_MissingDependencyBreaksChain(t *testing.T) {
	// Strategy is not in the order, so Planning has an unmet dependency.
	e := newExecutor(t, &stubHandler{},
		completing(agent.Planning), completing(agent.CampaignStarter))

	run := e.Execute(context.Background(), []agent.Name{agent.Planning, agent.CampaignStarter}, nil)

	if !run.ChainBroken {
		t.Fatal("chain should be broken by the missing dependency")
	}
	if run.Results[agent.Planning].Status != agent.StatusSkipped {
		t.Errorf("planning status = %s, want SKIPPED", run.Results[agent.Planning].Status)
	}
	if got := run.Results[agent.CampaignStarter]; got.Status != agent.StatusSkipped {
		t.Errorf("starter status = %s, want SKIPPED", got.Status)
	} else if reason, _ := got.Payload["reason"].(string); reason != "chain broken upstream" {
		t.Errorf("starter skip reason = %q, want chain broken upstream", reason)
	}
	if run.Status != agent.StatusFailed {
		t.Errorf("status = %s, want FAILED", run.Status)
	}
}

func TestExecute_RetrySuccessKeepsChainAlive(t *testing.T) {
	retry := agent.Completed(agent.Payload{"niche": "Avocats", "auto_substituted": true})
	handler := &stubHandler{outcome: Outcome{Resolved: true, RetryResult: &retry}}

	planningRan := false
	planning := stubAgent{name: agent.Planning, run: func(_ context.Context, in agent.Input) (agent.Result, error) {
		planningRan = true
		up := agent.Upstream(in)
		if agent.StringField(up[string(agent.Strategy)], "niche") != "Avocats" {
			t.Errorf("planning upstream = %v, want substituted niche", up)
		}
		return agent.Completed(nil), nil
	}}

	e := newExecutor(t, handler,
		failing(agent.Strategy, "no niche provided"), planning, completing(agent.CampaignStarter))
	run := e.Execute(context.Background(), coreOrder, nil)

	if len(handler.failures) != 1 {
		t.Fatalf("handler called %d times, want 1", len(handler.failures))
	}
	if handler.failures[0].Agent != agent.Strategy {
		t.Errorf("handler saw %s, want StrategyAgent", handler.failures[0].Agent)
	}
	if !run.Succeeded[agent.Strategy] {
		t.Error("strategy should be in succeeded set after retry")
	}
	if got := run.Results[agent.Strategy]; got.Status != agent.StatusCompleted {
		t.Errorf("strategy result = %s, want COMPLETED replacement", got.Status)
	}
	if !planningRan {
		t.Error("planning should run after a successful retry")
	}
	if run.ChainBroken || run.Status != agent.StatusCompleted {
		t.Errorf("run = %s chainBroken=%v, want COMPLETED unbroken", run.Status, run.ChainBroken)
	}
}

func TestExecute_EscalationBreaksChain(t *testing.T) {
	handler := &stubHandler{outcome: Outcome{RequiresHuman: true}}
	e := newExecutor(t, handler,
		failing(agent.Strategy, "connection timeout"), completing(agent.Planning), completing(agent.CampaignStarter))

	run := e.Execute(context.Background(), coreOrder, nil)

	if !run.ChainBroken {
		t.Fatal("chain should be broken")
	}
	if !run.RequiresHuman {
		t.Error("run should be flagged for human attention")
	}
	if got := run.Results[agent.Strategy]; got.Status != agent.StatusFailed {
		t.Errorf("strategy result = %s, want FAILED preserved", got.Status)
	}
	for _, name := range []agent.Name{agent.Planning, agent.CampaignStarter} {
		if run.Results[name].Status != agent.StatusSkipped {
			t.Errorf("%s status = %s, want SKIPPED", name, run.Results[name].Status)
		}
	}
}

func TestExecute_WarnContinuesWithoutSuccess(t *testing.T) {
	handler := &stubHandler{outcome: Outcome{Warn: true}}
	e := newExecutor(t, handler,
		completing(agent.Strategy), failing(agent.Analytics, "no campaign to analyse"), completing(agent.Planning))

	run := e.Execute(context.Background(), []agent.Name{agent.Strategy, agent.Analytics, agent.Planning}, nil)

	if run.ChainBroken {
		t.Fatal("a tolerated failure must not break the chain")
	}
	if run.Succeeded[agent.Analytics] {
		t.Error("analytics must not count as succeeded")
	}
	if run.Results[agent.Analytics].Status != agent.StatusFailed {
		t.Errorf("analytics result = %s, want FAILED kept", run.Results[agent.Analytics].Status)
	}
	if run.Results[agent.Planning].Status != agent.StatusCompleted {
		t.Errorf("planning status = %s, want COMPLETED", run.Results[agent.Planning].Status)
	}
	// The run as a whole still failed: one agent did not complete.
	if run.Status != agent.StatusFailed {
		t.Errorf("status = %s, want FAILED", run.Status)
	}
}

func TestExecute_FailedRetryBreaksChain(t *testing.T) {
	retry := agent.Failed("still no niche")
	handler := &stubHandler{outcome: Outcome{Resolved: true, RetryResult: &retry, RequiresHuman: true}}
	e := newExecutor(t, handler,
		failing(agent.Strategy, "no niche provided"), completing(agent.Planning))

	run := e.Execute(context.Background(), []agent.Name{agent.Strategy, agent.Planning}, nil)

	if !run.ChainBroken {
		t.Error("chain should break when the retry also failed")
	}
	if run.Succeeded[agent.Strategy] {
		t.Error("strategy must not count as succeeded")
	}
	if !run.RequiresHuman {
		t.Error("failed retry should escalate")
	}
}

func TestExecute_AgentErrorBreaksChainWithoutHandler(t *testing.T) {
	handler := &stubHandler{}
	erroring := stubAgent{name: agent.Strategy, run: func(context.Context, agent.Input) (agent.Result, error) {
		return agent.Result{}, context.DeadlineExceeded
	}}
	e := newExecutor(t, handler, erroring, completing(agent.Planning))

	run := e.Execute(context.Background(), []agent.Name{agent.Strategy, agent.Planning}, nil)

	if len(handler.failures) != 0 {
		t.Errorf("handler called %d times for an ERROR, want 0", len(handler.failures))
	}
	if run.Results[agent.Strategy].Status != agent.StatusError {
		t.Errorf("strategy status = %s, want ERROR", run.Results[agent.Strategy].Status)
	}
	if !run.ChainBroken {
		t.Error("chain should be broken")
	}
}

func TestExecute_PanicBecomesError(t *testing.T) {
	panicking := stubAgent{name: agent.Strategy, run: func(context.Context, agent.Input) (agent.Result, error) {
		panic("boom")
	}}
	e := newExecutor(t, &stubHandler{}, panicking)

	run := e.Execute(context.Background(), []agent.Name{agent.Strategy}, nil)

	if got := run.Results[agent.Strategy]; got.Status != agent.StatusError {
		t.Errorf("status = %s, want ERROR", got.Status)
	}
	if !run.ChainBroken {
		t.Error("chain should be broken after a panic")
	}
}

func TestExecute_UnregisteredAgent(t *testing.T) {
	e := New(agent.NewRegistry(), chain.Default(), &stubHandler{}, nil)

	run := e.Execute(context.Background(), []agent.Name{agent.Strategy}, nil)

	if got := run.Results[agent.Strategy]; got.Status != agent.StatusError {
		t.Errorf("status = %s, want ERROR for unregistered agent", got.Status)
	}
}

func TestExecute_DefaultsSeedInput(t *testing.T) {
	var seen agent.Input
	a := stubAgent{name: agent.Strategy, run: func(_ context.Context, in agent.Input) (agent.Result, error) {
		seen = in
		return agent.Completed(nil), nil
	}}
	reg := agent.NewRegistry()
	reg.MustRegister(a)
	e := New(reg, chain.Default(), &stubHandler{}, nil,
		WithDefaults(func(name agent.Name) agent.Input {
			return agent.Input{"niche_cooldown_days": 30}
		}))

	e.Execute(context.Background(), []agent.Name{agent.Strategy}, nil)

	if v, _ := seen["niche_cooldown_days"].(int); v != 30 {
		t.Errorf("defaults not seeded, input = %v", seen)
	}
}

func TestExecute_CompletedWithErrorNotCountedAsSuccess(t *testing.T) {
	tainted := stubAgent{name: agent.Strategy, run: func(context.Context, agent.Input) (agent.Result, error) {
		return agent.Result{
			Status:  agent.StatusCompleted,
			Payload: agent.Payload{"niche": "Avocats"},
			Err:     "partial read from source",
		}, nil
	}}
	handler := &stubHandler{}
	e := newExecutor(t, handler, tainted, completing(agent.Planning), completing(agent.CampaignStarter))

	run := e.Execute(context.Background(), coreOrder, nil)

	if run.Succeeded[agent.Strategy] {
		t.Error("completed-with-error result must not count as success")
	}
	if res := run.Results[agent.Planning]; res.Status != agent.StatusSkipped {
		t.Errorf("planning status = %s, want SKIPPED on unmet dependency", res.Status)
	}
	if !run.ChainBroken {
		t.Error("chain should be broken for agents downstream of the tainted result")
	}
	if run.Status != agent.StatusFailed {
		t.Errorf("final status = %s, want FAILED", run.Status)
	}
	if len(handler.failures) != 0 {
		t.Errorf("handler called %d times, want 0", len(handler.failures))
	}
}
