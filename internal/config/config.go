// Package config loads the logscout application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// API Keys
	OpenAIKey string `yaml:"openai_key"`

	// Model Configuration
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`

	// Log dataset
	LogCSV string `yaml:"log_csv"`

	// Semantic search
	TopK int `yaml:"top_k"`

	// HTTP
	Port        int      `yaml:"port"`
	MetricsPort int      `yaml:"metrics_port"`
	CORSOrigins []string `yaml:"cors_origins"`

	// OpenAI call rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Tracing
	Tracing TracingConfig `yaml:"tracing"`
}

// RateLimitConfig bounds outbound completion/embedding calls.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// TracingConfig selects the trace exporter.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "otlp"
	Endpoint string `yaml:"endpoint"`
}

// Load reads configuration from a YAML file, applies defaults and falls back
// to the environment for secrets.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.TopK == 0 {
		c.TopK = 25
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9090
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"http://localhost:5173"}
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 2
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 4
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("openai_key is required (or set OPENAI_API_KEY)")
	}
	if c.LogCSV == "" {
		return fmt.Errorf("log_csv is required")
	}
	if c.Port == c.MetricsPort {
		return fmt.Errorf("port and metrics_port must differ")
	}
	return nil
}
