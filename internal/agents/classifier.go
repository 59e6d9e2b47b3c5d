package agents

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/campaign"
	"github.com/jmercier/leadpilot/internal/store"
)

const scoringKey = "classifier/scoring.json"

// Lead quality labels.
const (
	QualityHot  = "HOT"
	QualityWarm = "WARM"
	QualityCold = "COLD"
)

// ScoringConfig is the weighted scoring table. Operators can override it
// through the document store.
type ScoringConfig struct {
	EmailWeight    int            `json:"email_weight"`
	PhoneWeight    int            `json:"phone_weight"`
	PositionWeight int            `json:"position_weight"`
	SourceWeights  map[string]int `json:"source_weights"`
	HotThreshold   int            `json:"hot_threshold"`
	WarmThreshold  int            `json:"warm_threshold"`
}

// defaultScoring is used when no override document exists.
var defaultScoring = ScoringConfig{
	EmailWeight:    40,
	PhoneWeight:    20,
	PositionWeight: 30,
	SourceWeights:  map[string]int{"apollo": 10, "apify": 5},
	HotThreshold:   70,
	WarmThreshold:  40,
}

// decisionMakerTerms mark positions that carry buying power.
var decisionMakerTerms = []string{"fondateur", "founder", "ceo", "directeur", "director", "gérant", "gerant", "président", "president"}

// ClassifierAgent scores cleaned leads and labels them HOT, WARM, or COLD.
type ClassifierAgent struct {
	store *store.Store
	log   *zap.Logger
}

// NewClassifier builds the classifier agent.
func NewClassifier(s *store.Store, log *zap.Logger) *ClassifierAgent {
	return &ClassifierAgent{store: s, log: log.Named("classifier")}
}

func (a *ClassifierAgent) Name() agent.Name { return agent.Classifier }

func (a *ClassifierAgent) Run(_ context.Context, in agent.Input) (agent.Result, error) {
	leads := inputLeads(in, agent.Cleaner, "leads")
	if len(leads) == 0 {
		return agent.Failed("no leads to classify"), nil
	}

	cfg, err := a.scoring()
	if err != nil {
		return agent.Result{}, err
	}

	var hot, warm, cold int
	scored := make([]campaign.Lead, 0, len(leads))
	for _, lead := range leads {
		lead.Score = score(lead, cfg)
		switch {
		case lead.Score >= cfg.HotThreshold:
			lead.Quality = QualityHot
			hot++
		case lead.Score >= cfg.WarmThreshold:
			lead.Quality = QualityWarm
			warm++
		default:
			lead.Quality = QualityCold
			cold++
		}
		scored = append(scored, lead)
	}

	a.log.Info("leads classified",
		zap.Int("hot", hot), zap.Int("warm", warm), zap.Int("cold", cold))
	return agent.Completed(agent.Payload{
		"leads": scored,
		"hot":   hot,
		"warm":  warm,
		"cold":  cold,
	}), nil
}

func (a *ClassifierAgent) scoring() (ScoringConfig, error) {
	cfg := defaultScoring
	if _, err := a.store.Load(scoringKey, &cfg); err != nil {
		return cfg, err
	}
	if cfg.HotThreshold <= cfg.WarmThreshold {
		cfg = defaultScoring
	}
	return cfg, nil
}

func score(lead campaign.Lead, cfg ScoringConfig) int {
	s := 0
	if lead.Email != "" {
		s += cfg.EmailWeight
	}
	if lead.Phone != "" {
		s += cfg.PhoneWeight
	}
	if isDecisionMaker(lead.Position) {
		s += cfg.PositionWeight
	}
	s += cfg.SourceWeights[strings.ToLower(lead.Source)]
	return s
}

func isDecisionMaker(position string) bool {
	p := strings.ToLower(position)
	for _, term := range decisionMakerTerms {
		if strings.Contains(p, term) {
			return true
		}
	}
	return false
}
