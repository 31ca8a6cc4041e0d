package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ahrav/go-resilient/internal/llm/configuration"
	"github.com/ahrav/go-resilient/internal/llm/transport"
)

const chatCompletionsPath = "/chat/completions"

// ChatAdapter implements transport.ProviderAdapter for OpenAI-compatible
// chat-completion endpoints. Replies are normalized to plain text from either
// the choices envelope or a flat generated_text envelope.
type ChatAdapter struct {
	name   string
	config configuration.ProviderConfig
}

// NewChatAdapter creates a chat adapter registered under name.
func NewChatAdapter(name string, cfg configuration.ProviderConfig) *ChatAdapter {
	return &ChatAdapter{name: name, config: cfg}
}

// Name returns the provider name.
func (a *ChatAdapter) Name() string {
	return a.name
}

// Build constructs a chat-completion request.
func (a *ChatAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	if req.Operation != transport.OpChat {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}

	model := req.Model
	if model == "" {
		model = a.config.Model
	}

	body := map[string]any{
		"model":    model,
		"messages": req.Messages,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.TopP > 0 {
		body["top_p"] = req.TopP
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(a.config.Endpoint, "/")
	if !strings.HasSuffix(endpoint, chatCompletionsPath) {
		endpoint += chatCompletionsPath
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	setAuthorization(httpReq, req.AccessToken, a.config.APIKey)
	if req.TraceID != "" {
		httpReq.Header.Set("X-Request-ID", req.TraceID)
	}
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// Parse extracts the reply text from a chat-completion response.
func (a *ChatAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	limit := a.config.ResponseLimit()
	body, truncated, err := readBody(httpResp.Body, limit)
	if err != nil {
		return nil, err
	}

	// Error bodies are classified from their capped prefix.
	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return nil, parseErrorResponse(a.name, httpResp.StatusCode, httpResp.Header, body)
	}
	if truncated {
		return nil, oversized(a.name, limit)
	}

	content, usage, err := extractChatContent(body)
	if err != nil {
		return nil, invalidResponse(a.name, err.Error())
	}

	return &transport.Response{
		Content:            content,
		ProviderRequestIDs: requestIDs(httpResp.Header),
		Usage:              usage,
		Headers:            httpResp.Header,
		RawBody:            body,
	}, nil
}

type chatEnvelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	GeneratedText string `json:"generated_text"`
	Usage         struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

type generatedText struct {
	GeneratedText string `json:"generated_text"`
}

// extractChatContent unifies the supported success envelopes:
// {"choices":[{"message":{"content":…}}]}, {"generated_text":…} and
// [{"generated_text":…}].
func extractChatContent(body []byte) (string, transport.NormalizedUsage, error) {
	trimmed := bytes.TrimSpace(body)
	var usage transport.NormalizedUsage

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []generatedText
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", usage, fmt.Errorf("malformed response: %w", err)
		}
		if len(items) == 0 || strings.TrimSpace(items[0].GeneratedText) == "" {
			return "", usage, fmt.Errorf("response contains no generated text")
		}
		return items[0].GeneratedText, usage, nil
	}

	var env chatEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return "", usage, fmt.Errorf("malformed response: %w", err)
	}
	usage = transport.NormalizedUsage{
		PromptTokens:     env.Usage.PromptTokens,
		CompletionTokens: env.Usage.CompletionTokens,
		TotalTokens:      env.Usage.TotalTokens,
	}

	var content string
	switch {
	case len(env.Choices) > 0 && env.Choices[0].Message.Content != "":
		content = env.Choices[0].Message.Content
	case len(env.Choices) > 0:
		content = env.Choices[0].Text
	default:
		content = env.GeneratedText
	}
	if strings.TrimSpace(content) == "" {
		return "", usage, fmt.Errorf("response contains no message content")
	}
	return content, usage, nil
}

// setAuthorization prefers the session access token over the static API key.
func setAuthorization(httpReq *http.Request, accessToken, apiKey string) {
	token := accessToken
	if token == "" {
		token = apiKey
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
}
