package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/internal/llm/transport"
)

func sampleInput() *domain.SuitabilityInput {
	return &domain.SuitabilityInput{
		District:     "Anuradhapura",
		Season:       domain.SeasonMaha,
		SoilPH:       6.3,
		SoilType:     domain.SoilLoam,
		Drainage:     domain.DrainageModerate,
		Slope:        domain.SlopeFlat,
		Irrigation:   true,
		RainfallMM:   1100,
		TemperatureC: 28,
		LandSize:     2.5,
	}
}

func TestInferenceAdapter_RoundTrip(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"recommendations":[{"crop":"Rice","score":91.5,"reason":"good"},{"crop":"Maize","score":80}]}`))
	}))
	defer srv.Close()

	router, err := NewRouter(map[string]configuration.ProviderConfig{
		"ml": {Kind: configuration.KindInference, Endpoint: srv.URL},
	})
	require.NoError(t, err)

	resp, err := transport.NewHTTPHandler(srv.Client(), router).Handle(context.Background(), &transport.Request{
		Operation:   transport.OpSuitability,
		Provider:    "ml",
		Features:    sampleInput(),
		AccessToken: "session-token",
	})
	require.NoError(t, err)

	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, "Rice", resp.Recommendations[0].Crop)
	assert.InDelta(t, 91.5, resp.Recommendations[0].Score, 0.001)

	for _, key := range []string{"district", "season", "soil_ph", "soil_type", "drainage", "slope", "irrigation", "rainfall_mm", "temperature_c", "land_size"} {
		assert.Contains(t, received, key)
	}
}

func TestInferenceAdapter_InvalidResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing_list", body: `{"status":"ok"}`},
		{name: "empty_list", body: `{"recommendations":[]}`},
		{name: "crop_missing", body: `{"recommendations":[{"score":50}]}`},
		{name: "score_out_of_range", body: `{"recommendations":[{"crop":"Rice","score":150}]}`},
		{name: "malformed", body: `<html>oops</html>`},
	}

	adapter := NewInferenceAdapter("ml", configuration.ProviderConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.Parse(&http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, llmerrors.ErrInvalidResponse)
			assert.True(t, llmerrors.IsTransient(err))
		})
	}
}

func TestInferenceAdapter_BuildValidation(t *testing.T) {
	adapter := NewInferenceAdapter("ml", configuration.ProviderConfig{Endpoint: "http://ml.local/predict"})

	_, err := adapter.Build(context.Background(), &transport.Request{Operation: transport.OpChat})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = adapter.Build(context.Background(), &transport.Request{Operation: transport.OpSuitability})
	assert.Error(t, err)

	httpReq, err := adapter.Build(context.Background(), &transport.Request{Operation: transport.OpSuitability, Features: sampleInput()})
	require.NoError(t, err)
	assert.Equal(t, "http://ml.local/predict", httpReq.URL.String())
	assert.Empty(t, httpReq.Header.Get("Authorization"))
}

func TestRouter(t *testing.T) {
	router, err := NewRouter(map[string]configuration.ProviderConfig{
		"primary": {Kind: configuration.KindChat},
		"ml":      {Kind: configuration.KindInference},
	})
	require.NoError(t, err)

	a, err := router.Pick("primary")
	require.NoError(t, err)
	assert.IsType(t, &ChatAdapter{}, a)

	a, err = router.Pick("ml")
	require.NoError(t, err)
	assert.IsType(t, &InferenceAdapter{}, a)

	_, err = router.Pick("missing")
	assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)

	_, err = NewRouter(map[string]configuration.ProviderConfig{"x": {Kind: "grpc"}})
	assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
}

func TestInferenceAdapter_ParseResponseLimit(t *testing.T) {
	body := `{"recommendations":[{"crop":"Rice","score":90,"reason":"wet season"}]}`

	adapter := NewInferenceAdapter("ml", configuration.ProviderConfig{MaxResponseBytes: int64(len(body))})
	resp, err := adapter.Parse(&http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	})
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 1)

	padded := body + strings.Repeat(" ", 64)
	_, err = adapter.Parse(&http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(padded)),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, llmerrors.ErrInvalidResponse)
	assert.True(t, llmerrors.IsTransient(err))
}

func TestProviderConfig_ResponseLimit(t *testing.T) {
	assert.EqualValues(t, configuration.DefaultMaxResponseBytes, configuration.ProviderConfig{}.ResponseLimit())
	assert.EqualValues(t, 512, configuration.ProviderConfig{MaxResponseBytes: 512}.ResponseLimit())
}
