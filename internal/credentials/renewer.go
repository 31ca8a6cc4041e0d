package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
)

// Renewer exchanges a refresh token for a new credential pair.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (Pair, error)
}

// RenewerFunc adapts a function to the Renewer interface.
type RenewerFunc func(ctx context.Context, refreshToken string) (Pair, error)

// Renew implements Renewer.
func (f RenewerFunc) Renew(ctx context.Context, refreshToken string) (Pair, error) {
	return f(ctx, refreshToken)
}

// maxRenewalBody caps how much of a renewal response is read.
const maxRenewalBody = 1 << 20

// HTTPRenewer renews credentials against a token endpoint that accepts
// {"refresh_token": "..."} and answers {"access_token": "...", "refresh_token": "..."}.
type HTTPRenewer struct {
	URL    string
	Client *http.Client
}

// NewHTTPRenewer returns an HTTPRenewer; a nil client uses http.DefaultClient.
func NewHTTPRenewer(url string, client *http.Client) *HTTPRenewer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRenewer{URL: url, Client: client}
}

// Renew posts the refresh token. A 2xx response without an access token is a
// failure; a response without a refresh token keeps the current one.
func (r *HTTPRenewer) Renew(ctx context.Context, refreshToken string) (Pair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return Pair{}, &llmerrors.RenewalError{Reason: "marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return Pair{}, &llmerrors.RenewalError{Reason: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return Pair{}, &llmerrors.RenewalError{Reason: "renewal request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRenewalBody))
	if err != nil {
		return Pair{}, &llmerrors.RenewalError{StatusCode: resp.StatusCode, Reason: "read response", Cause: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Pair{}, &llmerrors.RenewalError{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("token endpoint rejected renewal: %s", bytes.TrimSpace(raw)),
		}
	}

	var pair Pair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return Pair{}, &llmerrors.RenewalError{StatusCode: resp.StatusCode, Reason: "malformed renewal response", Cause: err}
	}
	if pair.AccessToken == "" {
		return Pair{}, &llmerrors.RenewalError{StatusCode: resp.StatusCode, Reason: "renewal response missing access token"}
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}
