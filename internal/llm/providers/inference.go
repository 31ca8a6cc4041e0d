package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/internal/llm/configuration"
	"github.com/ahrav/go-resilient/internal/llm/transport"
)

const predictPath = "/predict"

// InferenceAdapter implements transport.ProviderAdapter for the crop
// suitability prediction service.
type InferenceAdapter struct {
	name   string
	config configuration.ProviderConfig
}

// NewInferenceAdapter creates an inference adapter registered under name.
func NewInferenceAdapter(name string, cfg configuration.ProviderConfig) *InferenceAdapter {
	return &InferenceAdapter{name: name, config: cfg}
}

// Name returns the provider name.
func (a *InferenceAdapter) Name() string {
	return a.name
}

// Build posts the feature payload to the predict endpoint.
func (a *InferenceAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	if req.Operation != transport.OpSuitability {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}
	if req.Features == nil {
		return nil, fmt.Errorf("suitability request without features")
	}

	jsonBody, err := json.Marshal(req.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(a.config.Endpoint, "/")
	if !strings.HasSuffix(endpoint, predictPath) {
		endpoint += predictPath
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

// Parse extracts the ranked recommendation list. A response without a
// non-empty, well-formed list is an invalid response.
func (a *InferenceAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
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

	var resp struct {
		Recommendations []domain.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, invalidResponse(a.name, "malformed response: "+err.Error())
	}
	if len(resp.Recommendations) == 0 {
		return nil, invalidResponse(a.name, "response missing recommendations")
	}
	for i := range resp.Recommendations {
		if err := resp.Recommendations[i].Validate(); err != nil {
			return nil, invalidResponse(a.name, fmt.Sprintf("recommendation %d: %v", i, err))
		}
	}

	return &transport.Response{
		Recommendations:    resp.Recommendations,
		ProviderRequestIDs: requestIDs(httpResp.Header),
		Headers:            httpResp.Header,
		RawBody:            body,
	}, nil
}
