package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmercier/leadpilot/internal/store"
)

const rejectedNichesKey = "strategy/rejected-niches.json"

// rejectedNiches is the shared memory of niches turned down by planning or
// pivoted away from, with the time of rejection.
type rejectedNiches map[string]time.Time

// loadRejectedNiches returns the niches still inside their cooldown window.
// A non-positive cooldown keeps every recorded rejection.
func loadRejectedNiches(s *store.Store, cooldown time.Duration) (rejectedNiches, error) {
	all := make(rejectedNiches)
	if _, err := s.Load(rejectedNichesKey, &all); err != nil {
		return nil, fmt.Errorf("loading rejected niches: %w", err)
	}
	if cooldown <= 0 {
		return all, nil
	}
	active := make(rejectedNiches, len(all))
	cutoff := time.Now().Add(-cooldown)
	for niche, when := range all {
		if when.After(cutoff) {
			active[niche] = when
		}
	}
	return active, nil
}

// rejectNiche records a niche rejection in the shared memory.
func rejectNiche(s *store.Store, niche string) error {
	all := make(rejectedNiches)
	if _, err := s.Load(rejectedNichesKey, &all); err != nil {
		return fmt.Errorf("loading rejected niches: %w", err)
	}
	all[normalizeNiche(niche)] = time.Now().UTC()
	if err := s.Save(rejectedNichesKey, all); err != nil {
		return fmt.Errorf("saving rejected niches: %w", err)
	}
	return nil
}

func (r rejectedNiches) contains(niche string) bool {
	_, ok := r[normalizeNiche(niche)]
	return ok
}

func (r rejectedNiches) names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	return names
}

func normalizeNiche(niche string) string {
	return strings.ToLower(strings.TrimSpace(niche))
}
