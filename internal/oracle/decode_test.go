package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDecodeMap_Strategies(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string // expected value of key "niche"
	}{
		{
			name: "json fence",
			raw:  "```json\n{\"niche\": \"Avocats\"}\n```",
			want: "Avocats",
		},
		{
			name: "unlabelled fence",
			raw:  "```\n{\"niche\": \"Avocats\"}\n```",
			want: "Avocats",
		},
		{
			name: "bare json",
			raw:  `{"niche": "Avocats"}`,
			want: "Avocats",
		},
		{
			name: "bare json with whitespace",
			raw:  "\n\n  {\"niche\": \"Avocats\"}  \n",
			want: "Avocats",
		},
		{
			name: "json embedded in prose",
			raw:  `Sure! Here is the answer: {"niche": "Avocats"} Hope that helps.`,
			want: "Avocats",
		},
		{
			name: "fence preferred over surrounding prose",
			raw:  "The answer is below.\n```json\n{\"niche\": \"Avocats\"}\n```\nLet me know!",
			want: "Avocats",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMap(tt.raw)
			if err != nil {
				t.Fatalf("DecodeMap() error: %v", err)
			}
			if got, _ := m["niche"].(string); got != tt.want {
				t.Errorf("niche = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeInto_Typed(t *testing.T) {
	var verdict struct {
		Verdict    string  `json:"verdict"`
		Confidence float64 `json:"confidence"`
	}
	raw := "```json\n{\"verdict\": \"NO_GO\", \"confidence\": 0.3}\n```"
	if err := DecodeInto(raw, &verdict); err != nil {
		t.Fatalf("DecodeInto() error: %v", err)
	}
	if verdict.Verdict != "NO_GO" || verdict.Confidence != 0.3 {
		t.Errorf("decoded %+v, want NO_GO/0.3", verdict)
	}
}

func TestDecodeInto_Array(t *testing.T) {
	var niches []string
	raw := `Top candidates: ["Avocats", "Notaires"] based on history.`
	if err := DecodeInto(raw, &niches); err != nil {
		t.Fatalf("DecodeInto() error: %v", err)
	}
	if len(niches) != 2 || niches[0] != "Avocats" {
		t.Errorf("decoded %v, want [Avocats Notaires]", niches)
	}
}

func TestDecodeMap_GarbageReturnsDecodeError(t *testing.T) {
	_, err := DecodeMap("I could not produce a structured answer, sorry.")
	if err == nil {
		t.Fatal("expected error for undecodable response")
	}
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("error type = %T, want *DecodeError", err)
	}
	if len(derr.Attempts) == 0 {
		t.Error("DecodeError should list the attempted strategies")
	}
	if !strings.Contains(err.Error(), "direct") {
		t.Errorf("error should name the direct strategy, got: %v", err)
	}
}

func TestDecodeMap_BrokenFenceFallsThrough(t *testing.T) {
	// The fenced content is broken but a valid object follows in prose.
	raw := "```json\nniche: broken\n```\nFixed version: {\"niche\": \"Avocats\"}"
	m, err := DecodeMap(raw)
	if err != nil {
		t.Fatalf("DecodeMap() error: %v", err)
	}
	// The brace window spans from the first { to the last }, which here is
	// only valid once the fence candidates are rejected.
	if _, ok := m["niche"]; !ok {
		t.Errorf("expected a niche key, got %v", m)
	}
}

func TestDecodeError_TruncatesRaw(t *testing.T) {
	raw := strings.Repeat("x", 500)
	_, err := DecodeMap(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 400 {
		t.Errorf("error message should truncate the raw response, got %d chars", len(err.Error()))
	}
}

func TestSim_MarkersDecodable(t *testing.T) {
	sim := NewSim()
	tests := []struct {
		marker  string
		wantKey string
	}{
		{"strategic decision for the whole system", "action"},
		{"select one promising niche", "niche"},
		{"validate the proposed niche", "verdict"},
		{"campaign execution plan", "execution_plan"},
		{"export batching strategy", "batching_strategy"},
		{"pivot, continue or duplicate", "justification"},
	}

	for _, tt := range tests {
		t.Run(tt.wantKey, func(t *testing.T) {
			raw, err := sim.Ask(context.Background(), "prompt containing "+tt.marker)
			if err != nil {
				t.Fatalf("Ask() error: %v", err)
			}
			m, err := DecodeMap(raw)
			if err != nil {
				t.Fatalf("sim response not decodable: %v", err)
			}
			if _, ok := m[tt.wantKey]; !ok {
				t.Errorf("response missing key %q: %v", tt.wantKey, m)
			}
		})
	}
}

func TestSim_UnknownPromptReturnsEmptyObject(t *testing.T) {
	raw, err := NewSim().Ask(context.Background(), "something unrecognised")
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	m, err := DecodeMap(raw)
	if err != nil {
		t.Fatalf("DecodeMap() error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty object, got %v", m)
	}
}

func TestSim_ResponseOverride(t *testing.T) {
	sim := &Sim{Responses: map[string]string{
		"select one promising niche": `{"niche": "Plombiers"}`,
	}}
	raw, err := sim.Ask(context.Background(), "please select one promising niche now")
	if err != nil {
		t.Fatalf("Ask() error: %v", err)
	}
	m, err := DecodeMap(raw)
	if err != nil {
		t.Fatalf("DecodeMap() error: %v", err)
	}
	if m["niche"] != "Plombiers" {
		t.Errorf("niche = %v, want override Plombiers", m["niche"])
	}
}
