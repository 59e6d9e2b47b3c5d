package agents

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/config"
)

func exporterUpstream(leads []campaign.Lead) agent.Input {
	return agent.Input{
		"upstream": map[string]agent.Payload{
			string(agent.Exporter): {"export_now": leads},
		},
	}
}

func TestMessenger_ChannelPerQuality(t *testing.T) {
	a := NewMessenger(config.MessengerConfig{Timezone: "Europe/Paris"}, zap.NewNop())
	leads := []campaign.Lead{
		{ID: "l1", Quality: QualityHot},
		{ID: "l2", Quality: QualityWarm},
		{ID: "l3", Quality: QualityCold},
	}

	res, err := a.Run(context.Background(), exporterUpstream(leads))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Err)
	}
	if got := res.Payload["contacted"]; got != 3 {
		t.Fatalf("contacted = %v, want 3", got)
	}

	messages, ok := res.Payload["messages"].([]map[string]any)
	if !ok || len(messages) != 3 {
		t.Fatalf("messages = %v, want 3 entries", res.Payload["messages"])
	}
	wantChannels := []string{ChannelEmailAndCall, ChannelEmail, ChannelNurture}
	for i, m := range messages {
		if m["channel"] != wantChannels[i] {
			t.Errorf("message %d channel = %v, want %s", i, m["channel"], wantChannels[i])
		}
	}
}

func TestMessenger_SlotsSpacedFifteenMinutes(t *testing.T) {
	a := NewMessenger(config.MessengerConfig{Timezone: "UTC"}, zap.NewNop())
	leads := []campaign.Lead{
		{ID: "l1", Quality: QualityHot},
		{ID: "l2", Quality: QualityHot},
	}

	res, err := a.Run(context.Background(), exporterUpstream(leads))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	messages := res.Payload["messages"].([]map[string]any)

	first, err := time.Parse(time.RFC3339, messages[0]["scheduled_at"].(string))
	if err != nil {
		t.Fatal(err)
	}
	second, err := time.Parse(time.RFC3339, messages[1]["scheduled_at"].(string))
	if err != nil {
		t.Fatal(err)
	}
	if got := second.Sub(first); got != 15*time.Minute {
		t.Errorf("slot spacing = %s, want 15m", got)
	}
}

func TestMessenger_NoLeadsSchedulesNothing(t *testing.T) {
	a := NewMessenger(config.MessengerConfig{Timezone: "Europe/Paris"}, zap.NewNop())

	res, err := a.Run(context.Background(), agent.Input{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s", res.Status)
	}
	if got := res.Payload["contacted"]; got != 0 {
		t.Errorf("contacted = %v, want 0", got)
	}
}

func TestMessenger_BadTimezoneFallsBackToUTC(t *testing.T) {
	a := NewMessenger(config.MessengerConfig{Timezone: "Mars/Olympus"}, zap.NewNop())
	leads := []campaign.Lead{{ID: "l1", Quality: QualityHot}}

	res, err := a.Run(context.Background(), exporterUpstream(leads))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != agent.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Err)
	}
}

func TestNextBusinessSlot(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			name: "within business hours",
			at:   time.Date(2024, 6, 12, 11, 30, 0, 0, time.UTC), // Wednesday
			want: time.Date(2024, 6, 12, 11, 30, 0, 0, time.UTC),
		},
		{
			name: "before opening",
			at:   time.Date(2024, 6, 12, 7, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "after closing rolls to next day",
			at:   time.Date(2024, 6, 12, 19, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 13, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "saturday rolls to monday",
			at:   time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "friday evening rolls past the weekend",
			at:   time.Date(2024, 6, 14, 20, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextBusinessSlot(tc.at); !got.Equal(tc.want) {
				t.Errorf("nextBusinessSlot(%s) = %s, want %s", tc.at, got, tc.want)
			}
		})
	}
}
