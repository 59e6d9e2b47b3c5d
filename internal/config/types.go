package config

// Config is the top-level configuration structure parsed from leadpilot YAML.
type Config struct {
	Oracle   OracleConfig        `yaml:"oracle"`
	Chain    map[string][]string `yaml:"chain"`
	Agents   AgentsConfig        `yaml:"agents"`
	Executor ExecutorConfig      `yaml:"executor"`
	Store    StoreConfig         `yaml:"store"`
	DB       DBConfig            `yaml:"db"`
	Postgres PostgresConfig      `yaml:"postgres"`
	Logging  LoggingConfig       `yaml:"logging"`
}

// OracleConfig selects the LLM backend. Backend "sim" runs the deterministic
// simulator; API keys come from the environment, never from this file.
type OracleConfig struct {
	Backend    string `yaml:"backend"`
	Model      string `yaml:"model"`
	OllamaHost string `yaml:"ollama_host"`
}

// ExecutorConfig bounds agent invocations. Durations are Go duration strings.
type ExecutorConfig struct {
	AgentTimeout string `yaml:"agent_timeout"`
	RetryTimeout string `yaml:"retry_timeout"`
}

// AgentsConfig holds per-agent defaults.
type AgentsConfig struct {
	DefaultNiche      string          `yaml:"default_niche"`
	FallbackNiche     string          `yaml:"fallback_niche"`
	NicheCooldownDays int             `yaml:"niche_cooldown_days"`
	Scraper           ScraperConfig   `yaml:"scraper"`
	Cleaner           CleanerConfig   `yaml:"cleaner"`
	Exporter          ExporterConfig  `yaml:"exporter"`
	Messenger         MessengerConfig `yaml:"messenger"`
}

// ScraperConfig selects lead sources for the scraping phase.
type ScraperConfig struct {
	Sources     []string `yaml:"sources"` // "apify", "apollo"
	LeadsPerRun int      `yaml:"leads_per_run"`
}

// CleanerConfig tunes lead validation.
type CleanerConfig struct {
	ValidationLevel string `yaml:"validation_level"` // "basic", "standard", "enhanced"
}

// ExporterConfig bounds CRM export volume.
type ExporterConfig struct {
	DailyLimit int `yaml:"daily_limit"`
}

// MessengerConfig tunes contact scheduling.
type MessengerConfig struct {
	Timezone string `yaml:"timezone"`
}

// StoreConfig locates the flat-file document store.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// DBConfig locates the SQLite run log.
type DBConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig enables the Postgres campaign repository when DSN is set;
// otherwise campaigns persist to the document store.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig configures the zap logger and its rotating file sink.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}
