package configuration

import (
	"net/http"
	"time"
)

// Provider kinds select which adapter serves a configured provider.
const (
	KindChat      = "chat"
	KindInference = "inference"
)

// Config holds configuration for the resilient call layer.
// Includes provider settings, credential renewal, ladder parameters,
// rate limiting and observability options.
type Config struct {
	// HTTP client configuration
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"http_timeout"`
	HTTPClient  *http.Client  `json:"-" yaml:"-"`

	// Provider configurations keyed by provider name.
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`

	// Credential renewal configuration
	Credentials CredentialsConfig `json:"credentials" yaml:"credentials"`

	// Chat ladder configuration
	Chat ChatConfig `json:"chat" yaml:"chat"`

	// Suitability ladder configuration
	Suitability SuitabilityConfig `json:"suitability" yaml:"suitability"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	// Observability configuration
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`

	// Temporal worker configuration
	Temporal TemporalConfig `json:"temporal" yaml:"temporal"`
}

// ProviderConfig holds provider-specific configuration and authentication.
type ProviderConfig struct {
	Kind      string            `json:"kind" yaml:"kind"`
	Endpoint  string            `json:"endpoint" yaml:"endpoint"`
	Model     string            `json:"model" yaml:"model"`
	APIKey    string            `json:"-" yaml:"-"` // Sensitive, not serialized
	APIKeyEnv string            `json:"api_key_env" yaml:"api_key_env"`
	Timeout   time.Duration     `json:"timeout" yaml:"timeout"`
	Headers   map[string]string `json:"headers" yaml:"headers"`

	// MaxResponseBytes caps how much of a response body is read; zero means
	// DefaultMaxResponseBytes.
	MaxResponseBytes int64 `json:"max_response_bytes" yaml:"max_response_bytes"`
}

// ResponseLimit returns the effective response body cap.
func (p ProviderConfig) ResponseLimit() int64 {
	if p.MaxResponseBytes > 0 {
		return p.MaxResponseBytes
	}
	return DefaultMaxResponseBytes
}

// CredentialsConfig controls the session credential coordinator.
type CredentialsConfig struct {
	RenewURL        string        `json:"renew_url" yaml:"renew_url"`
	RenewTimeout    time.Duration `json:"renew_timeout" yaml:"renew_timeout"`
	AccessToken     string        `json:"-" yaml:"-"` // Sensitive
	RefreshToken    string        `json:"-" yaml:"-"` // Sensitive
	AccessTokenEnv  string        `json:"access_token_env" yaml:"access_token_env"`
	RefreshTokenEnv string        `json:"refresh_token_env" yaml:"refresh_token_env"`
}

// ChatConfig controls the chat-completion ladder.
type ChatConfig struct {
	PrimaryProvider  string        `json:"primary_provider" yaml:"primary_provider"`
	FallbackProvider string        `json:"fallback_provider" yaml:"fallback_provider"`
	RequiresAuth     bool          `json:"requires_auth" yaml:"requires_auth"`
	SystemPrompt     string        `json:"system_prompt" yaml:"system_prompt"`
	HistoryTurns     int           `json:"history_turns" yaml:"history_turns"`
	MaxMessageChars  int           `json:"max_message_chars" yaml:"max_message_chars"`
	MaxReplyChars    int           `json:"max_reply_chars" yaml:"max_reply_chars"`
	MaxTokens        int           `json:"max_tokens" yaml:"max_tokens"`
	Temperature      float64       `json:"temperature" yaml:"temperature"`
	TopP             float64       `json:"top_p" yaml:"top_p"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	FallbackMessage  string        `json:"fallback_message" yaml:"fallback_message"`
}

// SuitabilityConfig controls the crop suitability ladder.
type SuitabilityConfig struct {
	Provider     string        `json:"provider" yaml:"provider"`
	RequiresAuth bool          `json:"requires_auth" yaml:"requires_auth"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
}

// RateLimitConfig controls the per-provider in-memory token buckets.
type RateLimitConfig struct {
	TokensPerSecond float64 `json:"tokens_per_second" yaml:"tokens_per_second"`
	BurstSize       int     `json:"burst_size" yaml:"burst_size"`
	Enabled         bool    `json:"enabled" yaml:"enabled"`
}

// ObservabilityConfig controls metrics and logging.
type ObservabilityConfig struct {
	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsAddr    string `json:"metrics_addr" yaml:"metrics_addr"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
	LogFormat      string `json:"log_format" yaml:"log_format"`
	RedactPrompts  bool   `json:"redact_prompts" yaml:"redact_prompts"`
}

// TemporalConfig holds the worker connection settings.
type TemporalConfig struct {
	HostPort  string `json:"host_port" yaml:"host_port"`
	Namespace string `json:"namespace" yaml:"namespace"`
	TaskQueue string `json:"task_queue" yaml:"task_queue"`
}
