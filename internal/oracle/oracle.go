// Package oracle is the LLM call boundary. The core treats the model as an
// external capability: given a prompt it returns a JSON-shaped answer, and
// Decode turns the raw text into a typed value with fence-stripping applied
// as one explicit parsing strategy among several.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotInitialized is returned when a provider is used before Init.
var ErrNotInitialized = errors.New("oracle: provider not initialized")

// Config selects and configures a provider.
type Config struct {
	Backend    string // "gemini", "ollama", "sim"
	Model      string
	OllamaHost string
}

// Oracle asks the model for a completion. Implementations must honor ctx
// cancellation; the executor budgets every call.
type Oracle interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// New builds the configured provider. An empty backend defaults to the
// deterministic simulator so the pipeline stays runnable without credentials.
func New(cfg Config) (Oracle, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", "sim":
		return NewSim(), nil
	case "gemini":
		return newGemini(cfg)
	case "ollama":
		return newOllama(cfg)
	default:
		return nil, fmt.Errorf("unsupported oracle backend: %s", cfg.Backend)
	}
}
