package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-resilient/internal/activity"
	"github.com/ahrav/go-resilient/internal/workflow"
	baseactivity "github.com/ahrav/go-resilient/pkg/activity"
)

// RegisterAll registers every workflow and activity with w. It must be called
// once, before the worker starts.
func RegisterAll(w sdkworker.Worker, svc *Services) {
	base := baseactivity.NewBaseActivities(svc.Sink)
	acts := activity.NewActivities(base, svc.Chat, svc.Suitability)

	w.RegisterWorkflow(workflow.ChatWorkflow)
	w.RegisterWorkflow(workflow.RecommendCropsWorkflow)

	w.RegisterActivity(acts.Chat)
	w.RegisterActivity(acts.RecommendCrops)
}
