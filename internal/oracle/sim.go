package oracle

import (
	"context"
	"encoding/json"
	"strings"
)

// Sim is a deterministic offline oracle. It inspects the prompt for the
// marker phrases the built-in templates carry and returns a canned
// JSON-shaped answer, fenced the way real models tend to fence their output
// so the decode path gets exercised end to end.
type Sim struct {
	// Responses overrides the canned answer for a marker; used by tests.
	Responses map[string]string
}

// NewSim creates a simulator with the default canned answers.
func NewSim() *Sim {
	return &Sim{}
}

func (s *Sim) Ask(_ context.Context, prompt string) (string, error) {
	for marker, resp := range s.Responses {
		if strings.Contains(prompt, marker) {
			return resp, nil
		}
	}

	switch {
	case strings.Contains(prompt, "strategic decision for the whole system"):
		return fence(map[string]any{
			"decision_process": []string{
				"No active campaign is close to its conversion target",
				"Several niches remain unexplored in the knowledge base",
				"System load allows one more concurrent campaign",
				"A new campaign maximises expected information gain",
			},
			"action":            "nouvelle",
			"campagne_cible":    nil,
			"commentaire":       "Start a fresh campaign on an unexplored niche",
			"priorite":          "haute",
			"agents_to_involve": []string{"StrategyAgent", "PlanningAgent", "CampaignStarterAgent"},
		}), nil

	case strings.Contains(prompt, "select one promising niche"):
		return fence(map[string]any{
			"niche":                "Coachs sportifs",
			"justification":        "Underexplored niche with strong reachability by email",
			"potentiel_conversion": "moyen",
		}), nil

	case strings.Contains(prompt, "validate the proposed niche"):
		return fence(map[string]any{
			"verdict":    "GO",
			"confidence": 0.8,
			"reason":     "Niche is specific, reachable and not in cooldown",
		}), nil

	case strings.Contains(prompt, "campaign execution plan"):
		return fence(map[string]any{
			"execution_plan": map[string]any{
				"phases": []map[string]any{
					{"name": "scraping", "agents": []string{"ScraperAgent"}, "priority": "high"},
					{"name": "cleaning", "agents": []string{"CleanerAgent"}, "priority": "high"},
					{"name": "classification", "agents": []string{"ClassifierAgent"}, "priority": "high"},
					{"name": "export", "agents": []string{"CRMExporterAgent"}, "priority": "medium"},
					{"name": "contact", "agents": []string{"MessengerAgent"}, "priority": "medium"},
				},
			},
		}), nil

	case strings.Contains(prompt, "export batching strategy"):
		return fence(map[string]any{
			"batching_strategy": map[string]any{
				"methode":     "PAR_QUALITE",
				"explication": "Group leads by temperature so outreach stays personalised",
			},
		}), nil

	case strings.Contains(prompt, "pivot, continue or duplicate"):
		return fence(map[string]any{
			"action":        "CONTINUE",
			"confidence":    0.7,
			"justification": "Response rate is above the floor and cost per lead is stable",
		}), nil
	}

	// Unknown prompt: an empty object, which every caller treats as "use the
	// documented default".
	return "{}", nil
}

func fence(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return "```json\n" + string(data) + "\n```"
}
