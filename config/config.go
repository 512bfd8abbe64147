// Package config handles loading and validating the service configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/patchpilot/patchpilot/review"
)

// ConfigParseError indicates a configuration file exists but contains
// invalid content. This is distinct from "file not found", which means the
// file was never configured.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("invalid config at %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// Config is the service configuration shared by the API server and the
// worker. Values come from defaults, then an optional YAML file, then
// environment variables, each layer overriding the previous one.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `yaml:"database_url"`
	// RedisURL is the connection string for the job queue broker.
	RedisURL string `yaml:"redis_url"`
	// QueueKey overrides the Redis list the queue uses.
	QueueKey string `yaml:"queue_key"`

	// AnthropicAPIKey authenticates model calls.
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	// Model overrides the default Claude model when non-empty.
	Model string `yaml:"model"`

	// GitHubToken authenticates diff fetches with a personal access token.
	// When empty and no App credentials are set, requests go out
	// unauthenticated, which works for public repositories only.
	GitHubToken string `yaml:"github_token"`
	// GitHubAppID and GitHubPrivateKey select GitHub App authentication.
	GitHubAppID      int64  `yaml:"github_app_id"`
	GitHubPrivateKey string `yaml:"github_private_key"`

	// Port is the API server listen port.
	Port string `yaml:"port"`

	// Workers is the number of concurrent analyses one worker process runs.
	Workers int `yaml:"workers"`

	// Review holds the token budgets for the review workflow.
	Review ReviewConfig `yaml:"review"`
}

// ReviewConfig carries the token budgets driving the review workflow.
type ReviewConfig struct {
	PrimaryBudget   int `yaml:"primary_budget"`
	LongPRThreshold int `yaml:"long_pr_threshold"`
	BatchBudget     int `yaml:"batch_budget"`
	ChunkBudget     int `yaml:"chunk_budget"`
}

// Default returns the configuration defaults.
func Default() *Config {
	limits := review.DefaultLimits()
	return &Config{
		Port:    "8080",
		Workers: 4,
		Review: ReviewConfig{
			PrimaryBudget:   limits.PrimaryBudget,
			LongPRThreshold: limits.LongPRThreshold,
			BatchBudget:     limits.BatchBudget,
			ChunkBudget:     limits.ChunkBudget,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment variable overrides, then validates the result. An
// empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, &ConfigParseError{Path: path, Err: err}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides config fields from environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("QUEUE_KEY"); v != "" {
		c.QueueKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHubToken = v
	}
	if v := os.Getenv("GITHUB_APP_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GITHUB_APP_ID: %w", err)
		}
		c.GitHubAppID = id
	}
	if v := os.Getenv("GITHUB_PRIVATE_KEY"); v != "" {
		c.GitHubPrivateKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WORKERS: %w", err)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks that the configuration is runnable. Broken budgets are
// rejected here so no analysis ever starts under them.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.GitHubAppID != 0 && c.GitHubPrivateKey == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY is required when GITHUB_APP_ID is set")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if err := c.Limits().Validate(); err != nil {
		return err
	}
	return nil
}

// Limits converts the configured budgets into the workflow's limits value.
func (c *Config) Limits() review.Limits {
	return review.Limits{
		PrimaryBudget:   c.Review.PrimaryBudget,
		LongPRThreshold: c.Review.LongPRThreshold,
		BatchBudget:     c.Review.BatchBudget,
		ChunkBudget:     c.Review.ChunkBudget,
	}
}
