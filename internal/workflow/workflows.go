package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-resilient/internal/activity"
	"github.com/ahrav/go-resilient/internal/domain"
)

// Activity timeouts. A chat turn may run both model rungs back to back.
const (
	ChatActivityTimeout        = 3 * time.Minute
	SuitabilityActivityTimeout = 30 * time.Second
)

// Version gate change IDs.
const (
	chatVersionID        = "chat.v"
	suitabilityVersionID = "suitability.v"
)

// a is used only to reference activity methods by value.
var a *activity.Activities

func retryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:        time.Second,
		BackoffCoefficient:     2.0,
		MaximumInterval:        time.Minute,
		MaximumAttempts:        3,
		NonRetryableErrorTypes: activity.NonRetryableErrorTypes,
	}
}

// ChatWorkflow answers one chat turn.
func ChatWorkflow(ctx workflow.Context, req domain.ChatRequest) (domain.ChatReply, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, chatVersionID, workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return domain.ChatReply{}, temporal.NewNonRetryableApplicationError(
			"invalid chat request",
			activity.ErrorTypeValidation,
			err,
		)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: ChatActivityTimeout,
		RetryPolicy:         retryPolicy(),
	})

	var reply domain.ChatReply
	if err := workflow.ExecuteActivity(ctx, a.Chat, req).Get(ctx, &reply); err != nil {
		return domain.ChatReply{}, err
	}
	return reply, nil
}

// RecommendCropsWorkflow ranks crops for a plot.
func RecommendCropsWorkflow(ctx workflow.Context, in domain.SuitabilityInput) (domain.SuitabilityResult, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, suitabilityVersionID, workflow.DefaultVersion, currentVersion)

	if err := in.Validate(); err != nil {
		return domain.SuitabilityResult{}, temporal.NewNonRetryableApplicationError(
			"invalid suitability input",
			activity.ErrorTypeValidation,
			err,
		)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: SuitabilityActivityTimeout,
		RetryPolicy:         retryPolicy(),
	})

	var res domain.SuitabilityResult
	if err := workflow.ExecuteActivity(ctx, a.RecommendCrops, in).Get(ctx, &res); err != nil {
		return domain.SuitabilityResult{}, err
	}

	workflow.GetLogger(ctx).Info("Crops recommended", "source", res.Source)
	return res, nil
}
