package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RESILIENT_"

// Load builds a Config from defaults, an optional YAML or JSON file, and
// environment overrides, then validates it. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(cfg)
	resolveSecrets(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}

	// Credentials
	if v := os.Getenv(EnvPrefix + "RENEW_URL"); v != "" {
		cfg.Credentials.RenewURL = v
	}
	if v := os.Getenv(EnvPrefix + "RENEW_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Credentials.RenewTimeout = d
		}
	}

	// Chat
	if v := os.Getenv(EnvPrefix + "CHAT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Chat.Timeout = d
		}
	}
	if v := os.Getenv(EnvPrefix + "CHAT_HISTORY_TURNS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Chat.HistoryTurns = i
		}
	}
	if v := os.Getenv(EnvPrefix + "CHAT_MAX_TOKENS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Chat.MaxTokens = i
		}
	}
	if v := os.Getenv(EnvPrefix + "CHAT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Chat.Temperature = f
		}
	}
	if v := os.Getenv(EnvPrefix + "CHAT_REQUIRES_AUTH"); v != "" {
		cfg.Chat.RequiresAuth = v == "true" || v == "1"
	}

	// Suitability
	if v := os.Getenv(EnvPrefix + "ML_ENDPOINT"); v != "" {
		if p, ok := cfg.Providers[cfg.Suitability.Provider]; ok {
			p.Endpoint = v
			cfg.Providers[cfg.Suitability.Provider] = p
		}
	}
	if v := os.Getenv(EnvPrefix + "ML_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Suitability.Timeout = d
		}
	}
	if v := os.Getenv(EnvPrefix + "ML_REQUIRES_AUTH"); v != "" {
		cfg.Suitability.RequiresAuth = v == "true" || v == "1"
	}

	// Rate limit
	if v := os.Getenv(EnvPrefix + "RATE_LIMIT_ENABLED"); v != "" {
		cfg.RateLimit.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPrefix + "RATE_LIMIT_TPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.TokensPerSecond = f
		}
	}

	// Observability
	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		cfg.Observability.MetricsEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ADDR"); v != "" {
		cfg.Observability.MetricsAddr = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	// Temporal
	if v := os.Getenv(EnvPrefix + "TEMPORAL_HOST"); v != "" {
		cfg.Temporal.HostPort = v
	}
	if v := os.Getenv(EnvPrefix + "TEMPORAL_NAMESPACE"); v != "" {
		cfg.Temporal.Namespace = v
	}
	if v := os.Getenv(EnvPrefix + "TASK_QUEUE"); v != "" {
		cfg.Temporal.TaskQueue = v
	}
}

// resolveSecrets reads API keys and session tokens from the environment
// variables named in the config.
func resolveSecrets(cfg *Config) {
	for name, p := range cfg.Providers {
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
			cfg.Providers[name] = p
		}
	}
	if cfg.Credentials.AccessToken == "" && cfg.Credentials.AccessTokenEnv != "" {
		cfg.Credentials.AccessToken = os.Getenv(cfg.Credentials.AccessTokenEnv)
	}
	if cfg.Credentials.RefreshToken == "" && cfg.Credentials.RefreshTokenEnv != "" {
		cfg.Credentials.RefreshToken = os.Getenv(cfg.Credentials.RefreshTokenEnv)
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be > 0")
	}
	for name, p := range c.Providers {
		if p.Kind != KindChat && p.Kind != KindInference {
			return fmt.Errorf("provider %s: kind must be %q or %q", name, KindChat, KindInference)
		}
		if p.Endpoint == "" {
			return fmt.Errorf("provider %s: endpoint is required", name)
		}
		if p.Kind == KindChat && p.Model == "" {
			return fmt.Errorf("provider %s: model is required for chat providers", name)
		}
		if p.MaxResponseBytes < 0 {
			return fmt.Errorf("provider %s: max_response_bytes must be >= 0", name)
		}
	}

	if err := c.requireProvider("chat.primary_provider", c.Chat.PrimaryProvider, KindChat); err != nil {
		return err
	}
	if c.Chat.FallbackProvider != "" {
		if err := c.requireProvider("chat.fallback_provider", c.Chat.FallbackProvider, KindChat); err != nil {
			return err
		}
	}
	if err := c.requireProvider("suitability.provider", c.Suitability.Provider, KindInference); err != nil {
		return err
	}

	if c.Chat.HistoryTurns < 0 {
		return fmt.Errorf("chat.history_turns must be >= 0")
	}
	if c.Chat.MaxTokens < 1 {
		return fmt.Errorf("chat.max_tokens must be >= 1")
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("chat.temperature must be between 0 and 2")
	}
	if c.Chat.TopP <= 0 || c.Chat.TopP > 1 {
		return fmt.Errorf("chat.top_p must be in (0, 1]")
	}
	if c.Chat.Timeout <= 0 || c.Suitability.Timeout <= 0 {
		return fmt.Errorf("ladder timeouts must be > 0")
	}
	if c.Chat.FallbackMessage == "" {
		return fmt.Errorf("chat.fallback_message is required")
	}
	if c.Credentials.RenewTimeout <= 0 {
		return fmt.Errorf("credentials.renew_timeout must be > 0")
	}
	if (c.Chat.RequiresAuth || c.Suitability.RequiresAuth) && c.Credentials.RenewURL == "" {
		return fmt.Errorf("credentials.renew_url is required when a ladder requires auth")
	}
	if c.RateLimit.Enabled && (c.RateLimit.TokensPerSecond <= 0 || c.RateLimit.BurstSize < 1) {
		return fmt.Errorf("rate_limit requires tokens_per_second > 0 and burst_size >= 1")
	}
	return nil
}

func (c *Config) requireProvider(field, name, kind string) error {
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}
	p, ok := c.Providers[name]
	if !ok {
		return fmt.Errorf("%s: provider %q is not configured", field, name)
	}
	if p.Kind != kind {
		return fmt.Errorf("%s: provider %q has kind %q, want %q", field, name, p.Kind, kind)
	}
	return nil
}
