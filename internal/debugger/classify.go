package debugger

import (
	"strings"

	"github.com/jmercier/leadpilot/internal/agent"
)

// Category labels a failure by its likely cause.
type Category string

const (
	CategoryDataMissing     Category = "DATA_MISSING"
	CategoryDataValidation  Category = "DATA_VALIDATION"
	CategoryConnectionError Category = "CONNECTION_ERROR"
	CategoryPermissionError Category = "PERMISSION_ERROR"
	CategoryFormatError     Category = "FORMAT_ERROR"
	CategoryGeneralError    Category = "GENERAL_ERROR"
)

// Criticality grades how urgent a failure is.
type Criticality string

const (
	CriticalityLow    Criticality = "LOW"
	CriticalityMedium Criticality = "MEDIUM"
	CriticalityHigh   Criticality = "HIGH"
)

// rule is one entry of the ordered classification table. An empty Agent
// matches any agent; Contains are all required, case-insensitively.
type rule struct {
	Agent    agent.Name
	Contains []string
	Category Category
}

// classificationRules is evaluated top to bottom; the first match wins.
var classificationRules = []rule{
	{Agent: agent.Strategy, Contains: []string{"niche"}, Category: CategoryDataMissing},
	{Agent: agent.CampaignStarter, Contains: []string{"niche", "valid"}, Category: CategoryDataValidation},
	{Contains: []string{"connection"}, Category: CategoryConnectionError},
	{Contains: []string{"timeout"}, Category: CategoryConnectionError},
	{Contains: []string{"unreachable"}, Category: CategoryConnectionError},
	{Contains: []string{"permission"}, Category: CategoryPermissionError},
	{Contains: []string{"unauthorized"}, Category: CategoryPermissionError},
	{Contains: []string{"forbidden"}, Category: CategoryPermissionError},
	{Contains: []string{"format"}, Category: CategoryFormatError},
	{Contains: []string{"parse"}, Category: CategoryFormatError},
	{Contains: []string{"decode"}, Category: CategoryFormatError},
	{Contains: []string{"json"}, Category: CategoryFormatError},
}

// Classify matches the failed agent and error message against the rule
// table. Unmatched failures fall back to GENERAL_ERROR.
func Classify(name agent.Name, errMsg string) Category {
	msg := strings.ToLower(errMsg)
	for _, r := range classificationRules {
		if r.Agent != "" && r.Agent != name {
			continue
		}
		matched := true
		for _, want := range r.Contains {
			if !strings.Contains(msg, want) {
				matched = false
				break
			}
		}
		if matched {
			return r.Category
		}
	}
	return CategoryGeneralError
}

// leafAgents sit at the edge of the chain; their failures never block
// upstream work.
var leafAgents = map[agent.Name]bool{
	agent.Analytics: true,
	agent.Messenger: true,
	agent.Pivot:     true,
}

// Grade determines criticality. A root-cause data gap in the strategy agent
// is High; an echo of an earlier problem (unmet or failed dependency) is
// downgraded to Medium. Leaf agents stay Low.
func Grade(name agent.Name, category Category, analysis ChainAnalysis) Criticality {
	if leafAgents[name] {
		return CriticalityLow
	}
	crit := CriticalityMedium
	if name == agent.Strategy && category == CategoryDataMissing {
		crit = CriticalityHigh
	}
	if crit == CriticalityHigh && (len(analysis.Failed) > 0 || len(analysis.Missing) > 0) {
		crit = CriticalityMedium
	}
	return crit
}
