// Package debugger implements the failure handler: it analyses a failed
// agent against the dependency chain, classifies the error through an
// ordered rule table, and either retries the agent once with a substituted
// default input or escalates to a human.
package debugger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/chain"
	"github.com/jmercier/leadpilot/internal/executor"
	"github.com/jmercier/leadpilot/internal/store"
)

const reportsKey = "debugger/failure-reports.jsonl"

// Action is the handler's verdict on one failure.
type Action string

const (
	ActionAutoResolve         Action = "AUTO_RESOLVE"
	ActionNotifyAdmin         Action = "NOTIFY_ADMIN"
	ActionContinueWithWarning Action = "CONTINUE_WITH_WARNING"
)

// ChainAnalysis records the state of the failed agent's dependencies at the
// moment of failure.
type ChainAnalysis struct {
	Satisfied []agent.Name `json:"satisfied,omitempty"`
	Failed    []agent.Name `json:"failed,omitempty"`
	Missing   []agent.Name `json:"missing,omitempty"`
}

// Resolution describes the chosen remediation.
type Resolution struct {
	Action        Action      `json:"action"`
	Details       string      `json:"details,omitempty"`
	RetryAgent    agent.Name  `json:"retry_agent,omitempty"`
	ModifiedInput agent.Input `json:"modified_input,omitempty"`
	RequiresHuman bool        `json:"requires_human"`
}

// FailureReport is the full record persisted for every handled failure.
type FailureReport struct {
	RunID       string        `json:"run_id"`
	Agent       agent.Name    `json:"agent"`
	Error       string        `json:"error"`
	Category    Category      `json:"category"`
	Criticality Criticality   `json:"criticality"`
	Chain       ChainAnalysis `json:"chain_analysis"`
	Resolution  Resolution    `json:"resolution"`
	RetryResult *agent.Result `json:"retry_result,omitempty"`
	Resolved    bool          `json:"resolved"`
	Timestamp   time.Time     `json:"timestamp"`
}

// ReportLog persists failure reports to the run-log database. A nil
// ReportLog disables it.
type ReportLog interface {
	LogFailureReport(runID, agentName, category, criticality, action string, resolved, requiresHuman bool, errText string) error
}

// Handler implements executor.FailureHandler.
type Handler struct {
	registry      *agent.Registry
	graph         *chain.Graph
	history       *History
	store         *store.Store
	reportLog     ReportLog
	defaultNiche  string
	fallbackNiche string
	retryTimeout  time.Duration
	log           *zap.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithNiches overrides the substituted default niches used for retries.
func WithNiches(defaultNiche, fallbackNiche string) HandlerOption {
	return func(h *Handler) {
		h.defaultNiche = defaultNiche
		h.fallbackNiche = fallbackNiche
	}
}

// WithRetryTimeout bounds the one-shot retry invocation.
func WithRetryTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.retryTimeout = d }
}

// WithReportLog records failure reports in the run-log database.
func WithReportLog(rl ReportLog) HandlerOption {
	return func(h *Handler) { h.reportLog = rl }
}

// NewHandler builds the failure handler.
func NewHandler(registry *agent.Registry, graph *chain.Graph, s *store.Store, log *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry:      registry,
		graph:         graph,
		history:       NewHistory(s),
		store:         s,
		defaultNiche:  "Avocats",
		fallbackNiche: "Consultants",
		retryTimeout:  time.Minute,
		log:           log,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

// Handle analyses the failure and returns a verdict. It never errors: any
// internal trouble degrades to an escalation so the pipeline always gets a
// terminal answer.
func (h *Handler) Handle(ctx context.Context, f executor.Failure) executor.Outcome {
	report := h.analyse(ctx, f)

	if err := h.persist(report); err != nil {
		h.log.Warn("persisting failure report failed", zap.Error(err))
	}

	return executor.Outcome{
		Resolved:      report.Resolved,
		RetryResult:   report.RetryResult,
		Warn:          report.Resolution.Action == ActionContinueWithWarning,
		RequiresHuman: report.Resolution.RequiresHuman,
	}
}

// Report runs the analysis without side effects on the pipeline, for
// inspection tooling.
func (h *Handler) Report(ctx context.Context, f executor.Failure) *FailureReport {
	return h.analyse(ctx, f)
}

func (h *Handler) analyse(ctx context.Context, f executor.Failure) (report *FailureReport) {
	report = &FailureReport{
		RunID:     f.RunID,
		Agent:     f.Agent,
		Error:     f.Result.Err,
		Timestamp: time.Now().UTC(),
	}
	// Degrade to escalation if anything below panics.
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("failure analysis panicked", zap.Any("panic", r))
			report.Resolution = Resolution{
				Action:        ActionNotifyAdmin,
				Details:       fmt.Sprintf("failure analysis broke: %v", r),
				RequiresHuman: true,
			}
			report.Resolved = false
		}
	}()

	report.Chain = h.analyseChain(f.Agent, f.Results)
	report.Category = Classify(f.Agent, f.Result.Err)
	report.Criticality = Grade(f.Agent, report.Category, report.Chain)

	pattern, err := h.history.Record(f.Agent, f.Result.Err)
	if err != nil {
		h.log.Warn("recording issue pattern failed", zap.Error(err))
	}

	report.Resolution = h.decide(f, report)
	h.log.Info("failure classified",
		zap.String("agent", string(f.Agent)),
		zap.String("category", string(report.Category)),
		zap.String("criticality", string(report.Criticality)),
		zap.String("action", string(report.Resolution.Action)))

	if report.Resolution.Action == ActionAutoResolve {
		retry := h.retry(ctx, report.Resolution.RetryAgent, report.Resolution.ModifiedInput)
		report.RetryResult = &retry
		report.Resolved = retry.Succeeded()
		if pattern != nil {
			if err := h.history.RecordResolution(pattern.PatternID, report.Resolved); err != nil {
				h.log.Warn("recording resolution failed", zap.Error(err))
			}
		}
		if !report.Resolved {
			// The retry already spent our one shot; hand the rest to a human.
			report.Resolution.RequiresHuman = true
		}
	}

	return report
}

// analyseChain classifies each dependency of the failed agent as satisfied,
// failed, or missing at the time of failure.
func (h *Handler) analyseChain(name agent.Name, results map[agent.Name]agent.Result) ChainAnalysis {
	var analysis ChainAnalysis
	for _, dep := range h.graph.Dependencies(name) {
		res, ok := results[dep]
		switch {
		case !ok:
			analysis.Missing = append(analysis.Missing, dep)
		case res.Status == agent.StatusCompleted:
			analysis.Satisfied = append(analysis.Satisfied, dep)
		default:
			analysis.Failed = append(analysis.Failed, dep)
		}
	}
	return analysis
}

// decide applies the fixed decision table keyed by (category, agent).
func (h *Handler) decide(f executor.Failure, report *FailureReport) Resolution {
	switch {
	case report.Category == CategoryDataMissing && f.Agent == agent.Strategy:
		in := cloneInput(f.Input)
		in["niche"] = h.defaultNiche
		in["auto_substituted"] = true
		return Resolution{
			Action:        ActionAutoResolve,
			Details:       fmt.Sprintf("retrying with substituted default niche %q", h.defaultNiche),
			RetryAgent:    agent.Strategy,
			ModifiedInput: in,
		}

	case report.Category == CategoryDataValidation && f.Agent == agent.CampaignStarter:
		if upstreamNiche(f.Results) != "" {
			// Upstream did provide a niche; it was rejected on its merits,
			// so substituting another one would paper over a real decision.
			return Resolution{
				Action:        ActionNotifyAdmin,
				Details:       "proposed niche was rejected, not absent",
				RequiresHuman: true,
			}
		}
		in := cloneInput(f.Input)
		in["niche"] = h.fallbackNiche
		in["auto_substituted"] = true
		return Resolution{
			Action:        ActionAutoResolve,
			Details:       fmt.Sprintf("no upstream niche, retrying with fallback %q", h.fallbackNiche),
			RetryAgent:    agent.CampaignStarter,
			ModifiedInput: in,
		}

	case report.Criticality == CriticalityLow:
		return Resolution{
			Action:  ActionContinueWithWarning,
			Details: "non-blocking agent, pipeline proceeds without it",
		}

	default:
		return Resolution{
			Action:        ActionNotifyAdmin,
			Details:       fmt.Sprintf("no automatic remediation for %s/%s", report.Category, report.Criticality),
			RequiresHuman: true,
		}
	}
}

// retry invokes the named agent once with the substituted input. The result
// is final: it never goes back through Handle.
func (h *Handler) retry(ctx context.Context, name agent.Name, in agent.Input) (res agent.Result) {
	a, ok := h.registry.Lookup(name)
	if !ok {
		return agent.Errored(fmt.Sprintf("retry agent %q not registered", name))
	}

	defer func() {
		if r := recover(); r != nil {
			res = agent.Errored(fmt.Sprintf("retry of %s panicked: %v", name, r))
		}
	}()

	cctx := ctx
	if h.retryTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, h.retryTimeout)
		defer cancel()
	}

	out, err := a.Run(cctx, in)
	if err != nil {
		return agent.Errored(err.Error())
	}
	return out
}

func (h *Handler) persist(report *FailureReport) error {
	if err := h.store.Append(reportsKey, report); err != nil {
		return fmt.Errorf("appending failure report: %w", err)
	}
	if h.reportLog != nil {
		if err := h.reportLog.LogFailureReport(
			report.RunID, string(report.Agent), string(report.Category),
			string(report.Criticality), string(report.Resolution.Action),
			report.Resolved, report.Resolution.RequiresHuman, report.Error,
		); err != nil {
			return err
		}
	}
	return nil
}

// upstreamNiche looks for a niche in the strategy agent's recorded result.
func upstreamNiche(results map[agent.Name]agent.Result) string {
	res, ok := results[agent.Strategy]
	if !ok {
		return ""
	}
	return agent.StringField(res.Payload, "niche")
}

func cloneInput(in agent.Input) agent.Input {
	out := make(agent.Input, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}
