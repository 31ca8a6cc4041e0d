package configuration

import (
	"time"
)

// HTTP and connection constants.
const (
	DefaultHTTPTimeoutSeconds = 90
	DefaultRenewTimeout       = 10 * time.Second
	DefaultMaxResponseBytes   = 4 << 20
)

// Provider names used by the default ladders.
const (
	DefaultPrimaryProvider  = "primary"
	DefaultFallbackProvider = "fallback"
	DefaultMLProvider       = "ml"
)

// Chat ladder constants.
const (
	DefaultChatTimeout     = 60 * time.Second
	DefaultHistoryTurns    = 10
	DefaultMaxMessageChars = 4000
	DefaultMaxReplyChars   = 4000
	DefaultMaxTokens       = 512
	DefaultTemperature     = 0.7
	DefaultTopP            = 0.9
	DefaultSystemPrompt    = "You are an agricultural assistant. Answer farming questions clearly and concisely."
	DefaultFallbackMessage = "Sorry, the assistant is unavailable right now. Please try again in a moment."
)

// Suitability ladder constants.
const (
	DefaultInferenceTimeout = 3 * time.Second
)

// Rate limiting constants.
const (
	DefaultTokensPerSecond = 10
	DefaultBurstSize       = 20
)

// Observability and worker constants.
const (
	DefaultMetricsAddr  = ":9090"
	DefaultTaskQueue    = "resilient-calls"
	DefaultNamespace    = "default"
	DefaultTemporalHost = "localhost:7233"
)

// DefaultConfig returns production-ready configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout: DefaultHTTPTimeoutSeconds * time.Second,
		Providers: map[string]ProviderConfig{
			DefaultPrimaryProvider: {
				Kind:      KindChat,
				Endpoint:  "https://router.huggingface.co/v1",
				Model:     "meta-llama/Llama-3.1-8B-Instruct",
				APIKeyEnv: "RESILIENT_PRIMARY_API_KEY",
				Timeout:   DefaultChatTimeout,
			},
			DefaultFallbackProvider: {
				Kind:      KindChat,
				Endpoint:  "https://router.huggingface.co/v1",
				Model:     "mistralai/Mistral-7B-Instruct-v0.3",
				APIKeyEnv: "RESILIENT_FALLBACK_API_KEY",
				Timeout:   DefaultChatTimeout,
			},
			DefaultMLProvider: {
				Kind:     KindInference,
				Endpoint: "http://localhost:8000",
				Timeout:  DefaultInferenceTimeout,
			},
		},
		Credentials: CredentialsConfig{
			RenewTimeout:    DefaultRenewTimeout,
			AccessTokenEnv:  "RESILIENT_ACCESS_TOKEN",
			RefreshTokenEnv: "RESILIENT_REFRESH_TOKEN",
		},
		Chat: ChatConfig{
			PrimaryProvider:  DefaultPrimaryProvider,
			FallbackProvider: DefaultFallbackProvider,
			SystemPrompt:     DefaultSystemPrompt,
			HistoryTurns:     DefaultHistoryTurns,
			MaxMessageChars:  DefaultMaxMessageChars,
			MaxReplyChars:    DefaultMaxReplyChars,
			MaxTokens:        DefaultMaxTokens,
			Temperature:      DefaultTemperature,
			TopP:             DefaultTopP,
			Timeout:          DefaultChatTimeout,
			FallbackMessage:  DefaultFallbackMessage,
		},
		Suitability: SuitabilityConfig{
			Provider: DefaultMLProvider,
			Timeout:  DefaultInferenceTimeout,
		},
		RateLimit: RateLimitConfig{
			TokensPerSecond: DefaultTokensPerSecond,
			BurstSize:       DefaultBurstSize,
			Enabled:         true,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: true,
			MetricsAddr:    DefaultMetricsAddr,
			LogLevel:       "info",
			LogFormat:      "json",
			RedactPrompts:  true,
		},
		Temporal: TemporalConfig{
			HostPort:  DefaultTemporalHost,
			Namespace: DefaultNamespace,
			TaskQueue: DefaultTaskQueue,
		},
	}
}
