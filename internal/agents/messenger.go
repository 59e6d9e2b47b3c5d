package agents

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/config"
)

// Contact channels by lead quality.
const (
	ChannelEmailAndCall = "email_and_call"
	ChannelEmail        = "email"
	ChannelNurture      = "nurture_sequence"
)

// MessengerAgent schedules outreach for the leads the exporter released.
// Sending itself happens through external channel adapters; this agent
// produces the contact schedule.
type MessengerAgent struct {
	timezone string
	log      *zap.Logger
}

// NewMessenger builds the messenger agent.
func NewMessenger(cfg config.MessengerConfig, log *zap.Logger) *MessengerAgent {
	return &MessengerAgent{timezone: cfg.Timezone, log: log.Named("messenger")}
}

func (a *MessengerAgent) Name() agent.Name { return agent.Messenger }

func (a *MessengerAgent) Run(_ context.Context, in agent.Input) (agent.Result, error) {
	leads := inputLeads(in, agent.Exporter, "export_now")

	loc, err := time.LoadLocation(a.timezone)
	if err != nil {
		loc = time.UTC
	}
	slot := nextBusinessSlot(time.Now().In(loc))

	messages := make([]map[string]any, 0, len(leads))
	for _, lead := range leads {
		channel := ChannelNurture
		switch lead.Quality {
		case QualityHot:
			channel = ChannelEmailAndCall
		case QualityWarm:
			channel = ChannelEmail
		}
		messages = append(messages, map[string]any{
			"lead_id":      lead.ID,
			"channel":      channel,
			"scheduled_at": slot.Format(time.RFC3339),
		})
		slot = slot.Add(15 * time.Minute)
	}

	a.log.Info("outreach scheduled", zap.Int("contacted", len(messages)))
	return agent.Completed(agent.Payload{
		"contacted": len(messages),
		"messages":  messages,
	}), nil
}

// nextBusinessSlot returns the next 09:00-18:00 weekday moment at or after t.
func nextBusinessSlot(t time.Time) time.Time {
	for {
		switch {
		case t.Weekday() == time.Saturday || t.Weekday() == time.Sunday:
			t = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
		case t.Hour() < 9:
			t = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, t.Location())
		case t.Hour() >= 18:
			t = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
		default:
			return t
		}
	}
}
