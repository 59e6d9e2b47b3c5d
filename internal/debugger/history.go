package debugger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmercier/leadpilot/internal/agent"
	"github.com/jmercier/leadpilot/internal/store"
)

const patternsKey = "debugger/issue-patterns.json"

// signatureLen bounds how much of the error message contributes to the
// pattern signature, so small variations still map to one pattern.
const signatureLen = 60

// IssuePattern counts recurrences of one (agent, error signature) pair
// across pipeline runs. Patterns are never deleted.
type IssuePattern struct {
	PatternID             string    `json:"pattern_id"`
	Agent                 string    `json:"agent"`
	ErrorSignature        string    `json:"error_signature"`
	Occurrences           int       `json:"occurrences"`
	LastOccurrence        time.Time `json:"last_occurrence"`
	SuccessfulResolutions int       `json:"successful_resolutions"`
	TotalResolutions      int       `json:"total_resolutions"`
}

// History persists issue patterns through the document store.
type History struct {
	store *store.Store
}

// NewHistory builds a History over the given store.
func NewHistory(s *store.Store) *History {
	return &History{store: s}
}

// Signature derives the pattern key from an agent name and error message.
// Truncation never splits a rune; the key must survive a JSON round trip
// unchanged or reloaded patterns stop matching fresh signatures.
func Signature(name agent.Name, errMsg string) string {
	msg := strings.ToLower(strings.TrimSpace(errMsg))
	if len(msg) > signatureLen {
		cut := signatureLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return fmt.Sprintf("%s|%s", name, msg)
}

// Record increments the occurrence count for the matching pattern, creating
// it on first sight, and returns the updated pattern.
func (h *History) Record(name agent.Name, errMsg string) (*IssuePattern, error) {
	patterns, err := h.load()
	if err != nil {
		return nil, err
	}

	sig := Signature(name, errMsg)
	p, ok := patterns[sig]
	if !ok {
		p = &IssuePattern{
			PatternID:      sig,
			Agent:          string(name),
			ErrorSignature: sig,
		}
		patterns[sig] = p
	}
	p.Occurrences++
	p.LastOccurrence = time.Now().UTC()

	if err := h.store.Save(patternsKey, patterns); err != nil {
		return nil, fmt.Errorf("saving issue patterns: %w", err)
	}
	return p, nil
}

// RecordResolution counts one resolution attempt against a pattern.
func (h *History) RecordResolution(patternID string, success bool) error {
	patterns, err := h.load()
	if err != nil {
		return err
	}
	p, ok := patterns[patternID]
	if !ok {
		return fmt.Errorf("unknown issue pattern %q", patternID)
	}
	p.TotalResolutions++
	if success {
		p.SuccessfulResolutions++
	}
	if err := h.store.Save(patternsKey, patterns); err != nil {
		return fmt.Errorf("saving issue patterns: %w", err)
	}
	return nil
}

// Patterns returns all known issue patterns.
func (h *History) Patterns() (map[string]*IssuePattern, error) {
	return h.load()
}

func (h *History) load() (map[string]*IssuePattern, error) {
	patterns := make(map[string]*IssuePattern)
	if _, err := h.store.Load(patternsKey, &patterns); err != nil {
		return nil, fmt.Errorf("loading issue patterns: %w", err)
	}
	return patterns, nil
}
