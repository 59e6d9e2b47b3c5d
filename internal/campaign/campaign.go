// Package campaign holds the campaign domain model and the concrete
// five-phase lead pipeline that turns a validated niche into contacted
// prospects.
package campaign

import (
	"time"
)

// Campaign status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusPivoted   = "pivoted"
)

// Lead is one scraped prospect flowing through the pipeline.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Position  string    `json:"position,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Niche     string    `json:"niche"`
	Source    string    `json:"source"`
	Score     int       `json:"score,omitempty"`
	Quality   string    `json:"quality,omitempty"` // HOT, WARM, COLD
	ScrapedAt time.Time `json:"scraped_at"`
}

// PhaseResult records one pipeline phase's outcome and metrics.
type PhaseResult struct {
	Phase      string         `json:"phase"`
	Status     string         `json:"status"` // COMPLETED or FAILED
	Error      string         `json:"error,omitempty"`
	Metrics    map[string]int `json:"metrics,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// Campaign is one niche campaign and its accumulated pipeline state.
type Campaign struct {
	ID        string         `json:"id"`
	Niche     string         `json:"niche"`
	Status    string         `json:"status"`
	Plan      map[string]any `json:"plan,omitempty"`
	Phases    []PhaseResult  `json:"phases,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	TotalLeads  int `json:"total_leads"`
	ValidLeads  int `json:"valid_leads"`
	HotLeads    int `json:"hot_leads"`
	ExportedNow int `json:"exported_now"`
	Delayed     int `json:"delayed"`
	Contacted   int `json:"contacted"`
}

// Summary is the compact view of a campaign fed to the decision brain.
type Summary struct {
	ID         string `json:"id"`
	Niche      string `json:"niche"`
	Status     string `json:"status"`
	TotalLeads int    `json:"total_leads"`
	HotLeads   int    `json:"hot_leads"`
	Contacted  int    `json:"contacted"`
}

// Summarize builds the brain-facing view.
func (c *Campaign) Summarize() Summary {
	return Summary{
		ID:         c.ID,
		Niche:      c.Niche,
		Status:     c.Status,
		TotalLeads: c.TotalLeads,
		HotLeads:   c.HotLeads,
		Contacted:  c.Contacted,
	}
}
