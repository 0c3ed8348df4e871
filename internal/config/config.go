// Package config loads application settings from defaults, an optional
// YAML file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	GithubToken          string        `mapstructure:"GITHUB_TOKEN"`
	DataDir              string        `mapstructure:"DATA_DIR"`
	LLMBaseURL           string        `mapstructure:"LLM_BASE_URL"`
	LLMModel             string        `mapstructure:"LLM_MODEL"`
	LLMAPIKey            string        `mapstructure:"LLM_API_KEY"`
	LLMTimeout           time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMRequestsPerMinute int           `mapstructure:"LLM_REQUESTS_PER_MINUTE"`
	ListenAddr           string        `mapstructure:"LISTEN_ADDR"`
}

var defaults = map[string]any{
	"GITHUB_TOKEN":            "",
	"DATA_DIR":                "data",
	"LLM_BASE_URL":            "http://localhost:11434/v1/",
	"LLM_MODEL":               "llama3.1:8b",
	"LLM_API_KEY":             "ollama",
	"LLM_TIMEOUT":             "60s",
	"LLM_REQUESTS_PER_MINUTE": 30,
	"LISTEN_ADDR":             ":8080",
}

// ErrMissingToken is returned by RequireToken when GITHUB_TOKEN is unset.
var ErrMissingToken = errors.New("GITHUB_TOKEN environment variable is not set")

// Load reads configuration. An empty path looks for ./repo-insights.yaml
// and silently continues without it; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("repo-insights")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.LLMTimeout < 0 {
		return nil, errors.New("LLM_TIMEOUT must not be negative")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR must not be empty")
	}
	return &cfg, nil
}

// RequireToken fails when no GitHub token is configured.
func (c *Config) RequireToken() error {
	if c.GithubToken == "" {
		return ErrMissingToken
	}
	return nil
}
