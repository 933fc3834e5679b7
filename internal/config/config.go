// Package config handles application configuration using Viper.
// Viper merges YAML files, environment variables, and defaults in priority
// order; the result is loaded into typed structs, not read as raw keys.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fleveque/trademark-service/internal/model"
)

// Config is the root configuration struct. `mapstructure` tags tell Viper
// how to map YAML/env keys to struct fields.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	CORS       CORSConfig       `mapstructure:"cors"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	// DatabasePath is the SQLite file holding the LLM call ledger.
	DatabasePath string `mapstructure:"database_path"`
}

type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LLMConfig struct {
	// ProviderOrder controls which LLM providers are used and in what order.
	// First provider is primary, rest are fallbacks. Example: ["anthropic", "openai"]
	ProviderOrder []string        `mapstructure:"provider_order"`
	Anthropic     AnthropicConfig `mapstructure:"anthropic"`
	OpenAI        OpenAIConfig    `mapstructure:"openai"`
	// RatePerMinute caps generation attempts across the whole process. 0 disables it.
	RatePerMinute int `mapstructure:"rate_per_minute"`
	// Timeout bounds a single generation attempt.
	Timeout time.Duration `mapstructure:"timeout"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AssessmentConfig struct {
	// FailurePolicy is "lenient" (neutral fallbacks, partial batches) or "strict".
	FailurePolicy    string        `mapstructure:"failure_policy"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	BatchDelay       time.Duration `mapstructure:"batch_delay"`
	// LexiconPath replaces the embedded coined-term lexicon when set.
	LexiconPath string `mapstructure:"lexicon_path"`
}

// Policy parses FailurePolicy.
func (a AssessmentConfig) Policy() (model.FailurePolicy, error) {
	return model.ParseFailurePolicy(a.FailurePolicy)
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
// An empty configPath looks for config.yaml in . and ./config; a missing
// file there is fine, since defaults and env are enough.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults apply when neither file nor env provides a value
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.database_path", "./storage/trademark-service.db")
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("llm.provider_order", []string{"anthropic", "openai"})
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.rate_per_minute", 60)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("assessment.failure_policy", "lenient")
	v.SetDefault("assessment.batch_concurrency", 3)
	v.SetDefault("assessment.batch_delay", time.Second)
	v.SetDefault("assessment.lexicon_path", "")
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// TRADEMARK_ prefix + nested keys: TRADEMARK_SERVER_PORT=9090 → server.port=9090
	v.SetEnvPrefix("TRADEMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would only fail later, deep in a request.
func (c *Config) Validate() error {
	if _, err := c.Assessment.Policy(); err != nil {
		return fmt.Errorf("assessment.failure_policy: %w", err)
	}
	if c.Assessment.BatchConcurrency < 1 {
		return fmt.Errorf("assessment.batch_concurrency must be at least 1, got %d", c.Assessment.BatchConcurrency)
	}
	if c.Assessment.BatchDelay < 0 {
		return fmt.Errorf("assessment.batch_delay must not be negative, got %s", c.Assessment.BatchDelay)
	}
	if c.LLM.RatePerMinute < 0 {
		return fmt.Errorf("llm.rate_per_minute must not be negative, got %d", c.LLM.RatePerMinute)
	}
	for _, name := range c.LLM.ProviderOrder {
		switch name {
		case "anthropic", "openai":
		default:
			return fmt.Errorf("llm.provider_order: unknown provider %q", name)
		}
	}
	return nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
