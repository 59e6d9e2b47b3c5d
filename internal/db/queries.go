package db

import (
	"database/sql"
	"fmt"
)

// PipelineEvent represents a row in the pipeline_events table.
type PipelineEvent struct {
	ID         int
	RunID      string
	CampaignID string
	Event      string
	Agent      string
	Detail     string
	Timestamp  string
}

// AgentRun represents a row in the agent_runs table.
type AgentRun struct {
	ID         int
	RunID      string
	Agent      string
	Status     string
	Retried    bool
	DurationMs int
	Error      string
	Timestamp  string
}

// FailureReportRow represents a row in the failure_reports table.
type FailureReportRow struct {
	ID            int
	RunID         string
	Agent         string
	Category      string
	Criticality   string
	Action        string
	Resolved      bool
	RequiresHuman bool
	Error         string
	Timestamp     string
}

// LogPipelineEvent inserts a pipeline event.
func (d *DB) LogPipelineEvent(runID, campaignID, event, agentName, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO pipeline_events (run_id, campaign_id, event, agent, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, nullable(campaignID), event, nullable(agentName), nullable(detail),
	)
	if err != nil {
		return fmt.Errorf("log pipeline event: %w", err)
	}
	return nil
}

// LogAgentRun inserts an agent run record.
func (d *DB) LogAgentRun(runID, agentName, status string, retried bool, durationMs int, errText string) error {
	_, err := d.conn.Exec(
		`INSERT INTO agent_runs (run_id, agent, status, retried, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, agentName, status, retried, durationMs, nullable(errText),
	)
	if err != nil {
		return fmt.Errorf("log agent run: %w", err)
	}
	return nil
}

// LogFailureReport inserts a failure report record.
func (d *DB) LogFailureReport(runID, agentName, category, criticality, action string, resolved, requiresHuman bool, errText string) error {
	_, err := d.conn.Exec(
		`INSERT INTO failure_reports (run_id, agent, category, criticality, action, resolved, requires_human, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, agentName, category, criticality, action, resolved, requiresHuman, nullable(errText),
	)
	if err != nil {
		return fmt.Errorf("log failure report: %w", err)
	}
	return nil
}

// GetRunHistory returns all pipeline events for a run, newest first.
func (d *DB) GetRunHistory(runID string) ([]PipelineEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, campaign_id, event, agent, detail, timestamp
		 FROM pipeline_events WHERE run_id = ? ORDER BY timestamp DESC, id DESC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run history: %w", err)
	}
	defer rows.Close()

	var events []PipelineEvent
	for rows.Next() {
		var e PipelineEvent
		var campaignID, agentName, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &campaignID, &e.Event, &agentName, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pipeline event: %w", err)
		}
		e.CampaignID = campaignID.String
		e.Agent = agentName.String
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetAgentRuns returns agent runs for a run ID in insertion order.
func (d *DB) GetAgentRuns(runID string) ([]AgentRun, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, agent, status, retried, duration_ms, error, timestamp
		 FROM agent_runs WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get agent runs: %w", err)
	}
	defer rows.Close()
	return scanAgentRuns(rows)
}

// GetRecentFailures returns the most recent failure reports for an agent.
func (d *DB) GetRecentFailures(agentName string, limit int) ([]FailureReportRow, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, agent, category, criticality, action, resolved, requires_human, error, timestamp
		 FROM failure_reports WHERE agent = ? ORDER BY id DESC LIMIT ?`,
		agentName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get recent failures: %w", err)
	}
	defer rows.Close()

	var reports []FailureReportRow
	for rows.Next() {
		var r FailureReportRow
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Agent, &r.Category, &r.Criticality, &r.Action, &r.Resolved, &r.RequiresHuman, &errText, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan failure report: %w", err)
		}
		r.Error = errText.String
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetLatestAgentRun returns the most recent run record for an agent, or nil.
func (d *DB) GetLatestAgentRun(agentName string) (*AgentRun, error) {
	row := d.conn.QueryRow(
		`SELECT id, run_id, agent, status, retried, duration_ms, error, timestamp
		 FROM agent_runs WHERE agent = ? ORDER BY id DESC LIMIT 1`,
		agentName,
	)
	var r AgentRun
	var durationMs sql.NullInt64
	var errText sql.NullString
	err := row.Scan(&r.ID, &r.RunID, &r.Agent, &r.Status, &r.Retried, &durationMs, &errText, &r.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest agent run: %w", err)
	}
	r.DurationMs = int(durationMs.Int64)
	r.Error = errText.String
	return &r, nil
}

func scanAgentRuns(rows *sql.Rows) ([]AgentRun, error) {
	var runs []AgentRun
	for rows.Next() {
		var r AgentRun
		var durationMs sql.NullInt64
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Agent, &r.Status, &r.Retried, &durationMs, &errText, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan agent run: %w", err)
		}
		r.DurationMs = int(durationMs.Int64)
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
