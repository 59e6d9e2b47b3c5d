package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Raw strings cannot contain backticks, hence \x60.
var (
	fencedJSONRe = regexp.MustCompile("(?s)\x60\x60\x60json\\s*(.*?)\\s*\x60\x60\x60")
	fencedAnyRe  = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60")
)

// DecodeError reports that no parsing strategy produced valid JSON. Each
// attempted strategy and its failure is listed so the decode path is
// observable instead of silently defaulting deep inside business logic.
type DecodeError struct {
	Attempts []string
	Raw      string
}

func (e *DecodeError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("oracle response not decodable as JSON (%s); raw: %q",
		strings.Join(e.Attempts, "; "), raw)
}

// candidates returns the JSON texts to try, in strategy order:
// 1. a ```json fenced block, 2. any fenced block, 3. the trimmed response
// itself, 4. the widest {...} or [...] window inside conversational text.
func candidates(raw string) []struct{ strategy, text string } {
	trimmed := strings.TrimSpace(raw)
	var out []struct{ strategy, text string }

	if m := fencedJSONRe.FindStringSubmatch(trimmed); len(m) > 1 {
		out = append(out, struct{ strategy, text string }{"json-fence", m[1]})
	}
	if m := fencedAnyRe.FindStringSubmatch(trimmed); len(m) > 1 {
		out = append(out, struct{ strategy, text string }{"fence", m[1]})
	}
	out = append(out, struct{ strategy, text string }{"direct", trimmed})

	if w := braceWindow(trimmed); w != "" {
		out = append(out, struct{ strategy, text string }{"brace-window", w})
	}
	return out
}

// braceWindow extracts the widest object or array span from text that embeds
// JSON in prose.
func braceWindow(s string) string {
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		first := strings.Index(s, pair[0])
		last := strings.LastIndex(s, pair[1])
		if first != -1 && last > first {
			return s[first : last+1]
		}
	}
	return ""
}

// DecodeInto parses an oracle response into v, trying each strategy in order.
// On total failure it returns a *DecodeError; callers fall back to their
// documented default object rather than propagating a crash.
func DecodeInto(raw string, v any) error {
	derr := &DecodeError{Raw: raw}
	for _, c := range candidates(raw) {
		if !json.Valid([]byte(c.text)) {
			derr.Attempts = append(derr.Attempts, c.strategy+": not valid JSON")
			continue
		}
		if err := json.Unmarshal([]byte(c.text), v); err != nil {
			derr.Attempts = append(derr.Attempts, fmt.Sprintf("%s: %v", c.strategy, err))
			continue
		}
		return nil
	}
	return derr
}

// DecodeMap parses an oracle response into a generic JSON object.
func DecodeMap(raw string) (map[string]any, error) {
	var m map[string]any
	if err := DecodeInto(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
