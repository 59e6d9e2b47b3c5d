package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it fills in defaults for any fields left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the first
// one found. Search order: ./leadpilot.yaml, ~/.leadpilot/config.yaml. When
// none exists it returns the built-in defaults.
func LoadDefault() (*Config, error) {
	candidates := []string{"leadpilot.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".leadpilot", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// Defaults returns the built-in configuration used when no file overrides it.
func Defaults() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// AgentTimeout parses the configured per-agent timeout.
func (c *Config) AgentTimeout() time.Duration {
	d, err := time.ParseDuration(c.Executor.AgentTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// RetryTimeout parses the configured auto-retry timeout.
func (c *Config) RetryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Executor.RetryTimeout)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// applyDefaults fills zero-valued fields with the built-in defaults.
func applyDefaults(cfg *Config) {
	if cfg.Oracle.Backend == "" {
		cfg.Oracle.Backend = "sim"
	}
	if cfg.Executor.AgentTimeout == "" {
		cfg.Executor.AgentTimeout = "2m"
	}
	if cfg.Executor.RetryTimeout == "" {
		cfg.Executor.RetryTimeout = "1m"
	}
	if cfg.Agents.DefaultNiche == "" {
		cfg.Agents.DefaultNiche = "Avocats"
	}
	if cfg.Agents.FallbackNiche == "" {
		cfg.Agents.FallbackNiche = "Consultants"
	}
	if cfg.Agents.NicheCooldownDays == 0 {
		cfg.Agents.NicheCooldownDays = 30
	}
	if len(cfg.Agents.Scraper.Sources) == 0 {
		cfg.Agents.Scraper.Sources = []string{"apify", "apollo"}
	}
	if cfg.Agents.Scraper.LeadsPerRun == 0 {
		cfg.Agents.Scraper.LeadsPerRun = 50
	}
	if cfg.Agents.Cleaner.ValidationLevel == "" {
		cfg.Agents.Cleaner.ValidationLevel = "standard"
	}
	if cfg.Agents.Exporter.DailyLimit == 0 {
		cfg.Agents.Exporter.DailyLimit = 25
	}
	if cfg.Agents.Messenger.Timezone == "" {
		cfg.Agents.Messenger.Timezone = "Europe/Paris"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 28
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = filepath.Join(home, ".leadpilot")
	}
	if cfg.DB.Path == "" {
		cfg.DB.Path = filepath.Join(home, ".leadpilot", "leadpilot.db")
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(home, ".leadpilot", "leadpilot.log")
	}
}
