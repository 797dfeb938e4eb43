// Package config loads schoolgrid-engine configuration from YAML and
// environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for schoolgrid-engine.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables override YAML values. Secrets (API
// keys, passwords) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// LLMConfig selects and configures the completion provider. The provider
// is chosen by which credential is configured: an Anthropic API key wins
// over an OpenAI-compatible endpoint when both are present.
type LLMConfig struct {
	// OpenAI-compatible endpoint (OpenAI, vLLM, Ollama, ...).
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	// Anthropic credentials. If set, the Anthropic client is used.
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-3-5-haiku-latest"`

	// TimeoutSeconds bounds every completion call. A timeout counts as
	// an execution error and consumes a retry attempt.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`

	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`
}

// DatabaseConfig holds the school-records database connection settings.
// The engine only ever issues SELECT statements against it.
type DatabaseConfig struct {
	// Driver selects the executor dialect: "postgres" or "mssql".
	Driver         string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"schoolgrid"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"school_records"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// PipelineConfig tunes query-pipeline behavior.
type PipelineConfig struct {
	// MaxAttempts is the total number of execute attempts per query,
	// each retry regenerating SQL with the prior database error fed
	// back into the prompt.
	MaxAttempts int `yaml:"max_attempts" env:"PIPELINE_MAX_ATTEMPTS" env-default:"3"`

	// QueryTimeoutSeconds bounds a single SQL execution.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"QUERY_TIMEOUT_SECONDS" env-default:"30"`

	// SampleCacheTTLMinutes is how long example rows are cached for
	// prompt grounding.
	SampleCacheTTLMinutes int `yaml:"sample_cache_ttl_minutes" env:"SAMPLE_CACHE_TTL_MINUTES" env-default:"5"`
}

// URL builds a connection URL for the configured driver.
func (d DatabaseConfig) URL() string {
	if d.Driver == "mssql" {
		return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			d.User, d.Password, d.Host, d.Port, d.Database)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// LLMTimeout returns the completion timeout as a duration.
func (l LLMConfig) LLMTimeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// QueryTimeout returns the SQL execution timeout as a duration.
func (p PipelineConfig) QueryTimeout() time.Duration {
	return time.Duration(p.QueryTimeoutSeconds) * time.Second
}

// SampleCacheTTL returns the example-row cache TTL as a duration.
func (p PipelineConfig) SampleCacheTTL() time.Duration {
	return time.Duration(p.SampleCacheTTLMinutes) * time.Minute
}

// Load reads configuration from config.yaml (if present) and the
// environment.
func Load(version string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.LLM.Endpoint == "" && c.LLM.AnthropicAPIKey == "" {
		return fmt.Errorf("no LLM provider configured: set LLM_ENDPOINT or ANTHROPIC_API_KEY")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "mssql" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline max_attempts must be at least 1")
	}
	return nil
}
