package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// AgentDuration holds duration stats for an agent.
type AgentDuration struct {
	Agent string  `json:"agent"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg_seconds"`
	P50   float64 `json:"p50_seconds"`
	P95   float64 `json:"p95_seconds"`
}

// QueryAgentDurations returns average and percentile run durations per agent.
func QueryAgentDurations(database DB, since string) ([]AgentDuration, error) {
	query := `
		SELECT agent, duration_ms
		FROM agent_runs
		WHERE duration_ms IS NOT NULL AND status != 'SKIPPED'`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query agent durations: %w", err)
	}
	defer rows.Close()

	agentDurations := make(map[string][]float64)
	for rows.Next() {
		var agentName string
		var durationMs int
		if err := rows.Scan(&agentName, &durationMs); err != nil {
			return nil, fmt.Errorf("scan agent duration: %w", err)
		}
		agentDurations[agentName] = append(agentDurations[agentName], float64(durationMs)/1000.0)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []AgentDuration
	for agentName, durations := range agentDurations {
		sort.Float64s(durations)
		results = append(results, AgentDuration{
			Agent: agentName,
			Count: len(durations),
			Avg:   avg(durations),
			P50:   percentile(durations, 50),
			P95:   percentile(durations, 95),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Agent < results[j].Agent
	})
	return results, nil
}

// AgentFailureRate holds failure and recovery stats per agent.
type AgentFailureRate struct {
	Agent        string  `json:"agent"`
	Total        int     `json:"total"`
	FailRate     float64 `json:"fail_rate_pct"`
	RetryRate    float64 `json:"retry_rate_pct"`
	AutoResolved float64 `json:"auto_resolved_pct"`
}

// QueryFailureRates returns per-agent failure rates and how often the
// failure handler recovered them without human help.
func QueryFailureRates(database DB, since string) ([]AgentFailureRate, error) {
	query := `
		SELECT agent,
			COUNT(*) as total,
			SUM(CASE WHEN status IN ('FAILED', 'ERROR') THEN 1 ELSE 0 END) as failed,
			SUM(CASE WHEN retried = 1 THEN 1 ELSE 0 END) as retried
		FROM agent_runs
		WHERE status != 'SKIPPED'`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY agent`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failure rates: %w", err)
	}
	defer rows.Close()

	type agentInfo struct {
		total, failed, retried int
	}
	agentData := make(map[string]*agentInfo)
	for rows.Next() {
		var agentName string
		var total, failed, retried int
		if err := rows.Scan(&agentName, &total, &failed, &retried); err != nil {
			return nil, fmt.Errorf("scan failure rate: %w", err)
		}
		agentData[agentName] = &agentInfo{total: total, failed: failed, retried: retried}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Auto-resolution counts from failure_reports
	frQuery := `
		SELECT agent,
			COUNT(*) as reports,
			SUM(CASE WHEN resolved = 1 THEN 1 ELSE 0 END) as resolved
		FROM failure_reports`

	frArgs := []interface{}{}
	if since != "" {
		frQuery += ` WHERE timestamp >= ?`
		frArgs = append(frArgs, since)
	}
	frQuery += ` GROUP BY agent`

	frRows, err := database.Conn().Query(frQuery, frArgs...)
	if err != nil {
		return nil, fmt.Errorf("query resolution rates: %w", err)
	}
	defer frRows.Close()

	type reportInfo struct {
		reports, resolved int
	}
	reportData := make(map[string]reportInfo)
	for frRows.Next() {
		var agentName string
		var reports, resolved int
		if err := frRows.Scan(&agentName, &reports, &resolved); err != nil {
			return nil, fmt.Errorf("scan resolution rate: %w", err)
		}
		reportData[agentName] = reportInfo{reports: reports, resolved: resolved}
	}
	if err := frRows.Err(); err != nil {
		return nil, err
	}

	var results []AgentFailureRate
	for agentName, info := range agentData {
		ri := reportData[agentName]
		results = append(results, AgentFailureRate{
			Agent:        agentName,
			Total:        info.total,
			FailRate:     pct(info.failed, info.total),
			RetryRate:    pct(info.retried, info.total),
			AutoResolved: pct(ri.resolved, max(ri.reports, 1)),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Agent < results[j].Agent
	})
	return results, nil
}

// FailureCategory holds counts for a failure category.
type FailureCategory struct {
	Category  string  `json:"category"`
	Total     int     `json:"total"`
	Resolved  float64 `json:"resolved_pct"`
	Escalated float64 `json:"escalated_pct"`
	TopAgent  string  `json:"top_agent"`
}

// QueryFailureCategories returns which failure categories occur most and
// their resolution outcomes.
func QueryFailureCategories(database DB, since string) ([]FailureCategory, error) {
	query := `
		SELECT category,
			COUNT(*) as total,
			SUM(CASE WHEN resolved = 1 THEN 1 ELSE 0 END) as resolved,
			SUM(CASE WHEN requires_human = 1 THEN 1 ELSE 0 END) as escalated
		FROM failure_reports`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY category ORDER BY total DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failure categories: %w", err)
	}
	defer rows.Close()

	var results []FailureCategory
	for rows.Next() {
		var fc FailureCategory
		var resolved, escalated int
		if err := rows.Scan(&fc.Category, &fc.Total, &resolved, &escalated); err != nil {
			return nil, fmt.Errorf("scan failure category: %w", err)
		}
		fc.Resolved = pct(resolved, fc.Total)
		fc.Escalated = pct(escalated, fc.Total)
		results = append(results, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Most frequent failing agent per category
	for i := range results {
		topQuery := `
			SELECT agent, COUNT(*) as cnt
			FROM failure_reports
			WHERE category = ?`
		tArgs := []interface{}{results[i].Category}
		if since != "" {
			topQuery += ` AND timestamp >= ?`
			tArgs = append(tArgs, since)
		}
		topQuery += ` GROUP BY agent ORDER BY cnt DESC LIMIT 1`

		var agentName string
		var cnt int
		if err := database.Conn().QueryRow(topQuery, tArgs...).Scan(&agentName, &cnt); err == nil {
			results[i].TopAgent = agentName
		}
	}

	return results, nil
}

// RunThroughput holds pipeline run metrics for a time period.
type RunThroughput struct {
	Period      string `json:"period"`
	Started     int    `json:"started"`
	Completed   int    `json:"completed"`
	ChainBroken int    `json:"chain_broken"`
	Escalated   int    `json:"escalated"`
}

// QueryRunThroughput returns run outcomes grouped by week.
func QueryRunThroughput(database DB, since string) ([]RunThroughput, error) {
	query := `
		SELECT
			strftime('%Y-W%W', timestamp) as period,
			SUM(CASE WHEN event = 'run_started' THEN 1 ELSE 0 END) as started,
			SUM(CASE WHEN event = 'run_completed' THEN 1 ELSE 0 END) as completed,
			SUM(CASE WHEN event = 'chain_broken' THEN 1 ELSE 0 END) as chain_broken,
			SUM(CASE WHEN event = 'escalated' THEN 1 ELSE 0 END) as escalated
		FROM pipeline_events
		WHERE event IN ('run_started', 'run_completed', 'chain_broken', 'escalated')`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY period ORDER BY period DESC LIMIT 10`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run throughput: %w", err)
	}
	defer rows.Close()

	var results []RunThroughput
	for rows.Next() {
		var rt RunThroughput
		if err := rows.Scan(&rt.Period, &rt.Started, &rt.Completed, &rt.ChainBroken, &rt.Escalated); err != nil {
			return nil, fmt.Errorf("scan throughput: %w", err)
		}
		results = append(results, rt)
	}
	return results, rows.Err()
}

// RunEvent holds a single event for run-detail view.
type RunEvent struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Event     string `json:"event"`
	Agent     string `json:"agent,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// QueryRunDetail returns the full timeline for a specific run.
func QueryRunDetail(database DB, runID string) ([]RunEvent, error) {
	var results []RunEvent

	peRows, err := database.Conn().Query(
		`SELECT timestamp, event, agent, detail
		 FROM pipeline_events WHERE run_id = ? ORDER BY timestamp, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pipeline events: %w", err)
	}
	defer peRows.Close()

	for peRows.Next() {
		var e RunEvent
		var agentName, detail sql.NullString
		if err := peRows.Scan(&e.Timestamp, &e.Event, &agentName, &detail); err != nil {
			return nil, fmt.Errorf("scan pipeline event: %w", err)
		}
		e.Type = "pipeline"
		e.Agent = agentName.String
		e.Detail = detail.String
		results = append(results, e)
	}
	if err := peRows.Err(); err != nil {
		return nil, err
	}

	arRows, err := database.Conn().Query(
		`SELECT timestamp, agent, status, retried, duration_ms, error
		 FROM agent_runs WHERE run_id = ? ORDER BY timestamp, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query agent runs: %w", err)
	}
	defer arRows.Close()

	for arRows.Next() {
		var ts, agentName, status string
		var retried bool
		var durationMs sql.NullInt64
		var errText sql.NullString
		if err := arRows.Scan(&ts, &agentName, &status, &retried, &durationMs, &errText); err != nil {
			return nil, fmt.Errorf("scan agent run: %w", err)
		}

		detail := fmt.Sprintf("%s (%dms)", status, durationMs.Int64)
		if retried {
			detail += " after retry"
		}
		if errText.Valid && errText.String != "" {
			detail += ": " + errText.String
		}

		results = append(results, RunEvent{
			Timestamp: ts,
			Type:      "agent",
			Event:     status,
			Agent:     agentName,
			Detail:    detail,
		})
	}
	if err := arRows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp < results[j].Timestamp
	})

	return results, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
