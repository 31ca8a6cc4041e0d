package activity

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/internal/suitability"
	"github.com/ahrav/go-resilient/pkg/activity"
	"github.com/ahrav/go-resilient/pkg/events"
)

type chatFunc func(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error)

func (f chatFunc) Reply(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error) {
	return f(ctx, req)
}

type recommendFunc func(ctx context.Context, in domain.SuitabilityInput) (domain.SuitabilityResult, error)

func (f recommendFunc) Recommend(ctx context.Context, in domain.SuitabilityInput) (domain.SuitabilityResult, error) {
	return f(ctx, in)
}

func plot() domain.SuitabilityInput {
	return domain.SuitabilityInput{
		District:     "Anuradhapura",
		Season:       domain.SeasonMaha,
		SoilPH:       6.3,
		SoilType:     domain.SoilLoam,
		Drainage:     domain.DrainageModerate,
		Slope:        domain.SlopeFlat,
		Irrigation:   true,
		RainfallMM:   1100,
		TemperatureC: 28,
		LandSize:     2,
	}
}

func answeredEvents(t *testing.T, sink *events.MemorySink) []AnsweredEvent {
	t.Helper()
	var out []AnsweredEvent
	for _, env := range sink.OfType(events.TypeLadderAnswered) {
		var ev AnsweredEvent
		require.NoError(t, json.Unmarshal(env.Payload, &ev))
		out = append(out, ev)
	}
	return out
}

func TestChat(t *testing.T) {
	tests := []struct {
		name        string
		reply       domain.ChatReply
		wantSuccess bool
	}{
		{
			name:        "model answer",
			reply:       domain.ChatReply{Text: "Plant in October.", Source: domain.SourceFallbackModel, Model: "fallback", Success: true},
			wantSuccess: true,
		},
		{
			name:  "degraded answer is still a result",
			reply: domain.ChatReply{Text: "Sorry", Source: domain.SourceDegraded, Error: "gateway timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestActivityEnvironment()

			sink := events.NewMemorySink()
			acts := NewActivities(activity.NewBaseActivities(sink), chatFunc(func(context.Context, domain.ChatRequest) (domain.ChatReply, error) {
				return tt.reply, nil
			}), nil)
			env.RegisterActivity(acts.Chat)

			val, err := env.ExecuteActivity(acts.Chat, domain.ChatRequest{SessionID: "s-1", Message: "When to plant?"})
			require.NoError(t, err)

			var got domain.ChatReply
			require.NoError(t, val.Get(&got))
			assert.Equal(t, tt.reply, got)

			evs := answeredEvents(t, sink)
			require.Len(t, evs, 1)
			assert.Equal(t, "chat", evs[0].Operation)
			assert.Equal(t, tt.reply.Source, evs[0].Source)
			assert.Equal(t, tt.wantSuccess, evs[0].Success)
			assert.Equal(t, "s-1", sink.Events()[0].SessionID)
		})
	}
}

func TestActivityErrors(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		wantType         string
		wantNonRetryable bool
	}{
		{
			name:             "caller input",
			err:              &llmerrors.ValidationError{Field: "message", Message: "required", Cause: domain.ErrInvalidChatRequest},
			wantType:         ErrorTypeValidation,
			wantNonRetryable: true,
		},
		{
			name:             "session terminated",
			err:              &llmerrors.RenewalError{StatusCode: 401, Reason: "refresh token revoked"},
			wantType:         ErrorTypeSession,
			wantNonRetryable: true,
		},
		{
			name:     "transient provider failure",
			err:      &llmerrors.ProviderError{Provider: "ml", StatusCode: 503, Type: llmerrors.ErrorTypeProvider},
			wantType: ErrorTypeProvider,
		},
		{
			name:             "fatal provider failure",
			err:              &llmerrors.ProviderError{Provider: "ml", StatusCode: 403, Type: llmerrors.ErrorTypePermission},
			wantType:         ErrorTypeProvider,
			wantNonRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestActivityEnvironment()

			sink := events.NewMemorySink()
			acts := NewActivities(activity.NewBaseActivities(sink),
				chatFunc(func(context.Context, domain.ChatRequest) (domain.ChatReply, error) {
					return domain.ChatReply{}, tt.err
				}),
				recommendFunc(func(context.Context, domain.SuitabilityInput) (domain.SuitabilityResult, error) {
					return domain.SuitabilityResult{}, tt.err
				}))
			env.RegisterActivity(acts.Chat)
			env.RegisterActivity(acts.RecommendCrops)

			_, err := env.ExecuteActivity(acts.Chat, domain.ChatRequest{Message: "hi"})
			var appErr *temporal.ApplicationError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantType, appErr.Type())
			assert.Equal(t, tt.wantNonRetryable, appErr.NonRetryable())

			_, err = env.ExecuteActivity(acts.RecommendCrops, plot())
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantType, appErr.Type())
			assert.Equal(t, tt.wantNonRetryable, appErr.NonRetryable())

			assert.Empty(t, sink.Events(), "failures emit no answer events")
		})
	}
}

func TestRecommendCrops_RulesOnly(t *testing.T) {
	svc, err := suitability.NewService(nil, nil, configuration.DefaultConfig().Suitability)
	require.NoError(t, err)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	sink := events.NewMemorySink()
	acts := NewActivities(activity.NewBaseActivities(sink), nil, svc)
	env.RegisterActivity(acts.RecommendCrops)

	val, err := env.ExecuteActivity(acts.RecommendCrops, plot())
	require.NoError(t, err)

	var res domain.SuitabilityResult
	require.NoError(t, val.Get(&res))
	assert.Equal(t, domain.SourceRules, res.Source)
	require.NotEmpty(t, res.Recommendations)
	assert.Equal(t, "Rice", res.Recommendations[0].Crop)

	evs := answeredEvents(t, sink)
	require.Len(t, evs, 1)
	assert.Equal(t, domain.SourceRules, evs[0].Source)
	assert.Equal(t, suitability.RungRules, evs[0].Provider)

	env0 := sink.Events()[0]
	assert.Equal(t, "default-test-workflow-id", env0.WorkflowID)
}

func TestRecommendCrops_InvalidInputIsNonRetryable(t *testing.T) {
	svc, err := suitability.NewService(nil, nil, configuration.DefaultConfig().Suitability)
	require.NoError(t, err)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	acts := NewActivities(activity.NewBaseActivities(nil), nil, svc)
	env.RegisterActivity(acts.RecommendCrops)

	in := plot()
	in.Season = "Monsoon"

	_, err = env.ExecuteActivity(acts.RecommendCrops, in)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrorTypeValidation, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestUnconfiguredServices(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	acts := NewActivities(activity.NewBaseActivities(nil), nil, nil)
	env.RegisterActivity(acts.Chat)
	env.RegisterActivity(acts.RecommendCrops)

	_, err := env.ExecuteActivity(acts.Chat, domain.ChatRequest{Message: "hi"})
	assert.Error(t, err)

	_, err = env.ExecuteActivity(acts.RecommendCrops, plot())
	assert.Error(t, err)
}
