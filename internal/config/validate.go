package config

import (
	"fmt"
	"time"

	"github.com/jmercier/leadpilot/internal/chain"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedBackends is the set of valid oracle backend names.
var recognizedBackends = map[string]bool{
	"sim":    true,
	"gemini": true,
	"ollama": true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Oracle.Backend != "" && !recognizedBackends[cfg.Oracle.Backend] {
		errs = append(errs, ValidationError{
			Field:   "oracle.backend",
			Message: fmt.Sprintf("unrecognized backend %q", cfg.Oracle.Backend),
		})
	}

	if _, err := chain.FromConfig(cfg.Chain); err != nil {
		errs = append(errs, ValidationError{Field: "chain", Message: err.Error()})
	}

	for field, value := range map[string]string{
		"executor.agent_timeout": cfg.Executor.AgentTimeout,
		"executor.retry_timeout": cfg.Executor.RetryTimeout,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid duration %q", value)})
		} else if d <= 0 {
			errs = append(errs, ValidationError{Field: field, Message: "must be positive"})
		}
	}

	if cfg.Agents.Exporter.DailyLimit < 0 {
		errs = append(errs, ValidationError{Field: "agents.exporter.daily_limit", Message: "must not be negative"})
	}
	if cfg.Agents.Scraper.LeadsPerRun < 0 {
		errs = append(errs, ValidationError{Field: "agents.scraper.leads_per_run", Message: "must not be negative"})
	}
	for i, src := range cfg.Agents.Scraper.Sources {
		if src != "apify" && src != "apollo" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("agents.scraper.sources[%d]", i),
				Message: fmt.Sprintf("unrecognized source %q", src),
			})
		}
	}

	switch cfg.Agents.Cleaner.ValidationLevel {
	case "", "basic", "standard", "enhanced":
	default:
		errs = append(errs, ValidationError{
			Field:   "agents.cleaner.validation_level",
			Message: fmt.Sprintf("unrecognized level %q", cfg.Agents.Cleaner.ValidationLevel),
		})
	}

	if cfg.Agents.Messenger.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Agents.Messenger.Timezone); err != nil {
			errs = append(errs, ValidationError{
				Field:   "agents.messenger.timezone",
				Message: fmt.Sprintf("unknown timezone %q", cfg.Agents.Messenger.Timezone),
			})
		}
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unrecognized level %q", cfg.Logging.Level),
		})
	}

	return errs
}
