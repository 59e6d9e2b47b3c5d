// Package agent defines the contract every pipeline agent implements and the
// typed result that replaces the loose status-string dictionaries the agents
// exchange. A Result is created once per invocation and never mutated; a retry
// supersedes it with a fresh Result.
package agent

import "context"

// Name identifies one of the fixed set of agents. The set is closed at compile
// time; the dependency chain and the failure rules key on these values.
type Name string

const (
	Strategy        Name = "StrategyAgent"
	Planning        Name = "PlanningAgent"
	CampaignStarter Name = "CampaignStarterAgent"
	Scraper         Name = "ScraperAgent"
	Cleaner         Name = "CleanerAgent"
	Classifier      Name = "ClassifierAgent"
	Exporter        Name = "CRMExporterAgent"
	Messenger       Name = "MessengerAgent"
	Analytics       Name = "AnalyticsAgent"
	Pivot           Name = "PivotAgent"
	Debugger        Name = "DebuggerAgent"
	Brain           Name = "DecisionBrainAgent"
)

// Status is the outcome of one agent invocation.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"  // the agent ran and reported a business failure
	StatusSkipped   Status = "SKIPPED" // dependency unmet or chain already broken
	StatusError     Status = "ERROR"   // the invocation itself crashed or timed out
)

// Input is the string-keyed context an agent receives. The executor seeds it
// with per-agent defaults, the brain decision under "brain_decision", and the
// payloads of completed dependencies under "upstream".
type Input map[string]any

// Payload is the data an agent produces on completion.
type Payload map[string]any

// Result is the outcome of one agent invocation. Err is inhabited only when
// Status is FAILED or ERROR.
type Result struct {
	Status  Status  `json:"status"`
	Payload Payload `json:"payload,omitempty"`
	Err     string  `json:"error,omitempty"`
}

// Completed builds a successful Result carrying payload.
func Completed(p Payload) Result {
	return Result{Status: StatusCompleted, Payload: p}
}

// Failed builds a soft business-failure Result.
func Failed(msg string) Result {
	return Result{Status: StatusFailed, Err: msg}
}

// Skipped builds a non-execution Result. The reason goes in the payload so it
// survives persistence without pretending to be an error.
func Skipped(reason string) Result {
	return Result{Status: StatusSkipped, Payload: Payload{"reason": reason}}
}

// Errored builds an infrastructure-level failure Result.
func Errored(msg string) Result {
	return Result{Status: StatusError, Err: msg}
}

// Succeeded reports whether the invocation completed cleanly.
func (r Result) Succeeded() bool {
	return r.Status == StatusCompleted && r.Err == ""
}

// Agent is the uniform unit-of-work contract: one pipeline stage.
// Run returns a Result for business outcomes (including soft failures); a
// non-nil error means the invocation itself broke and is recorded as ERROR.
type Agent interface {
	Name() Name
	Run(ctx context.Context, in Input) (Result, error)
}

// Upstream extracts the dependency payloads the executor seeded into in.
func Upstream(in Input) map[string]Payload {
	up, ok := in["upstream"].(map[string]Payload)
	if !ok {
		return nil
	}
	return up
}

// Decision extracts the brain decision object seeded into in, if any.
func Decision(in Input) Payload {
	switch d := in["brain_decision"].(type) {
	case Payload:
		return d
	case map[string]any:
		return Payload(d)
	}
	return nil
}

// StringField reads a string value from an input map, tolerating absence.
func StringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
