// Package executor runs a dependency-ordered list of agents, enforcing
// skip and chain-break semantics and delegating failures to a handler.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/chain"
)

// Failure carries everything the failure handler needs to analyse one
// failed agent invocation.
type Failure struct {
	RunID    string
	Agent    agent.Name
	Result   agent.Result
	Input    agent.Input
	Results  map[agent.Name]agent.Result
	Decision agent.Payload
}

// Outcome is the handler's verdict on a failure.
type Outcome struct {
	// Resolved means a retry was attempted and succeeded; RetryResult
	// holds the replacement result.
	Resolved    bool
	RetryResult *agent.Result
	// Warn means the failure is tolerable: the result stays Failed but
	// the chain is not broken.
	Warn          bool
	RequiresHuman bool
}

// FailureHandler decides what happens after an agent fails. It must not
// return an error; any internal trouble degrades to an escalation verdict.
type FailureHandler interface {
	Handle(ctx context.Context, f Failure) Outcome
}

// Run is the record of one orchestration pass.
type Run struct {
	RunID         string                       `json:"run_id"`
	Results       map[agent.Name]agent.Result  `json:"results"`
	Succeeded     map[agent.Name]bool          `json:"succeeded"`
	ChainBroken   bool                         `json:"chain_broken"`
	RequiresHuman bool                         `json:"requires_human"`
	Status        agent.Status                 `json:"status"`
	StartedAt     time.Time                    `json:"started_at"`
	FinishedAt    time.Time                    `json:"finished_at"`
}

// RunLog receives per-agent execution records. Implemented by the SQLite
// run log; a nil RunLog disables recording.
type RunLog interface {
	LogAgentRun(runID, agentName, status string, retried bool, durationMs int, errText string) error
	LogPipelineEvent(runID, campaignID, event, agentName, detail string) error
}

// Executor drives one ordered pass over a set of registered agents.
type Executor struct {
	registry *agent.Registry
	graph    *chain.Graph
	handler  FailureHandler
	defaults func(agent.Name) agent.Input
	timeout  time.Duration
	runlog   RunLog
	log      *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithDefaults supplies static per-agent input defaults.
func WithDefaults(fn func(agent.Name) agent.Input) Option {
	return func(e *Executor) { e.defaults = fn }
}

// WithTimeout bounds each agent invocation.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithRunLog records agent runs and pipeline events.
func WithRunLog(rl RunLog) Option {
	return func(e *Executor) { e.runlog = rl }
}

// New builds an Executor over the given registry and dependency graph.
func New(registry *agent.Registry, graph *chain.Graph, handler FailureHandler, log *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		graph:    graph,
		handler:  handler,
		timeout:  2 * time.Minute,
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Execute runs the named agents in order. Agents whose dependencies did not
// complete are skipped; a missing-dependency skip breaks the chain so every
// later agent is skipped too. Failed agents go through the failure handler,
// whose verdict decides whether the chain continues.
func (e *Executor) Execute(ctx context.Context, order []agent.Name, decision agent.Payload) *Run {
	run := &Run{
		RunID:     uuid.NewString(),
		Results:   make(map[agent.Name]agent.Result, len(order)),
		Succeeded: make(map[agent.Name]bool, len(order)),
		StartedAt: time.Now(),
	}
	log := e.log.With(zap.String("run_id", run.RunID))
	log.Info("pipeline run started", zap.Int("agents", len(order)))
	e.logEvent(run.RunID, "run_started", "", fmt.Sprintf("agents=%d", len(order)))

	for _, name := range order {
		if run.ChainBroken {
			run.Results[name] = agent.Skipped("chain broken upstream")
			e.logAgent(run.RunID, name, run.Results[name], false, 0)
			continue
		}
		if missing := e.graph.Missing(name, run.Succeeded); len(missing) > 0 {
			// A genuine unmet dependency breaks the chain for everyone after.
			run.Results[name] = agent.Skipped(fmt.Sprintf("missing dependencies: %v", missing))
			run.ChainBroken = true
			log.Warn("agent skipped, chain broken",
				zap.String("agent", string(name)),
				zap.Any("missing", missing))
			e.logEvent(run.RunID, "chain_broken", string(name), fmt.Sprintf("missing=%v", missing))
			e.logAgent(run.RunID, name, run.Results[name], false, 0)
			continue
		}

		in := e.assembleInput(name, decision, run)
		started := time.Now()
		res := e.invoke(ctx, name, in)
		elapsed := time.Since(started)
		retried := false

		switch res.Status {
		case agent.StatusCompleted:
			// Completed with a non-empty error does not satisfy dependents.
			if res.Succeeded() {
				run.Succeeded[name] = true
				log.Info("agent completed",
					zap.String("agent", string(name)),
					zap.Duration("took", elapsed))
			} else {
				log.Warn("agent completed with an error, not counted as success",
					zap.String("agent", string(name)),
					zap.String("error", res.Err))
			}

		case agent.StatusError:
			run.ChainBroken = true
			log.Error("agent errored",
				zap.String("agent", string(name)),
				zap.String("error", res.Err))

		case agent.StatusFailed:
			log.Warn("agent failed",
				zap.String("agent", string(name)),
				zap.String("error", res.Err))
			outcome := e.handler.Handle(ctx, Failure{
				RunID:    run.RunID,
				Agent:    name,
				Result:   res,
				Input:    in,
				Results:  run.Results,
				Decision: decision,
			})
			switch {
			case outcome.Resolved && outcome.RetryResult != nil && outcome.RetryResult.Succeeded():
				res = *outcome.RetryResult
				retried = true
				run.Succeeded[name] = true
				log.Info("agent recovered after retry", zap.String("agent", string(name)))
			case outcome.Warn:
				// Tolerated failure. The result stays Failed, the agent is
				// not counted as succeeded, but the chain is not broken.
				log.Warn("continuing despite failure", zap.String("agent", string(name)))
			default:
				run.ChainBroken = true
				if outcome.RequiresHuman {
					run.RequiresHuman = true
					e.logEvent(run.RunID, "escalated", string(name), res.Err)
				}
			}
		}

		run.Results[name] = res
		e.logAgent(run.RunID, name, res, retried, int(elapsed.Milliseconds()))
	}

	run.FinishedAt = time.Now()
	run.Status = finalStatus(run)
	log.Info("pipeline run finished",
		zap.String("status", string(run.Status)),
		zap.Bool("chain_broken", run.ChainBroken),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)))
	e.logEvent(run.RunID, "run_completed", "", string(run.Status))
	return run
}

// assembleInput seeds an agent's input from its static defaults, the
// orchestration decision, and the payloads of its completed dependencies.
func (e *Executor) assembleInput(name agent.Name, decision agent.Payload, run *Run) agent.Input {
	in := agent.Input{}
	if e.defaults != nil {
		for k, v := range e.defaults(name) {
			in[k] = v
		}
	}
	if decision != nil {
		in["brain_decision"] = decision
	}
	upstream := make(map[string]agent.Payload)
	for _, dep := range e.graph.Dependencies(name) {
		if res, ok := run.Results[dep]; ok && res.Status == agent.StatusCompleted {
			upstream[string(dep)] = res.Payload
		}
	}
	if len(upstream) > 0 {
		in["upstream"] = upstream
	}
	return in
}

// invoke runs one agent under the configured timeout. A panic or a non-nil
// error from the agent becomes an Error result rather than crashing the run.
func (e *Executor) invoke(ctx context.Context, name agent.Name, in agent.Input) (res agent.Result) {
	a, ok := e.registry.Lookup(name)
	if !ok {
		return agent.Errored(fmt.Sprintf("agent %q not registered", name))
	}

	defer func() {
		if r := recover(); r != nil {
			res = agent.Errored(fmt.Sprintf("agent %s panicked: %v", name, r))
		}
	}()

	cctx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	out, err := a.Run(cctx, in)
	if err != nil {
		return agent.Errored(err.Error())
	}
	return out
}

func (e *Executor) logAgent(runID string, name agent.Name, res agent.Result, retried bool, durationMs int) {
	if e.runlog == nil {
		return
	}
	if err := e.runlog.LogAgentRun(runID, string(name), string(res.Status), retried, durationMs, res.Err); err != nil {
		e.log.Warn("recording agent run failed", zap.Error(err))
	}
}

func (e *Executor) logEvent(runID, event, agentName, detail string) {
	if e.runlog == nil {
		return
	}
	if err := e.runlog.LogPipelineEvent(runID, "", event, agentName, detail); err != nil {
		e.log.Warn("recording pipeline event failed", zap.Error(err))
	}
}

// finalStatus is Completed only when every non-skipped agent completed.
func finalStatus(run *Run) agent.Status {
	for _, res := range run.Results {
		switch res.Status {
		case agent.StatusSkipped, agent.StatusCompleted:
		default:
			return agent.StatusFailed
		}
	}
	if run.ChainBroken {
		return agent.StatusFailed
	}
	return agent.StatusCompleted
}
