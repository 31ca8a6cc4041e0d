// Package activity exposes the chat and suitability ladders as Temporal activities.
package activity

import (
	"context"
	"errors"

	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/pkg/activity"
	"github.com/ahrav/go-resilient/pkg/events"
)

// ChatReplier answers chat turns. *chat.Service satisfies it.
type ChatReplier interface {
	Reply(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error)
}

// Recommender ranks crops for a plot. *suitability.Service satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, in domain.SuitabilityInput) (domain.SuitabilityResult, error)
}

// AnsweredEvent is the payload of a ladder.answered event.
type AnsweredEvent struct {
	Operation string        `json:"operation"`
	Source    domain.Source `json:"source"`
	Provider  string        `json:"provider,omitempty"`
	Success   bool          `json:"success"`
}

// Activities holds the services behind each activity.
type Activities struct {
	activity.BaseActivities
	chat        ChatReplier
	suitability Recommender
}

// NewActivities creates Activities. Either service may be nil, in which case
// its activity fails with a non-retryable error.
func NewActivities(base activity.BaseActivities, chat ChatReplier, suitability Recommender) *Activities {
	return &Activities{BaseActivities: base, chat: chat, suitability: suitability}
}

// Chat answers one chat turn through the chat ladder. A degraded reply is a
// successful result; only invalid requests and caller cancellation fail.
func (a *Activities) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error) {
	if a.chat == nil {
		return domain.ChatReply{}, nonRetryable(ErrorTypeProvider, errors.New("chat service not configured"), "chat unavailable")
	}

	reply, err := a.chat.Reply(ctx, req)
	if err != nil {
		return domain.ChatReply{}, toApplicationError(err, "chat failed")
	}

	if !reply.Success {
		activity.SafeLogError(ctx, "Chat answered with degraded reply", "error", reply.Error)
	}

	a.Emit(ctx, events.TypeLadderAnswered, req.SessionID, AnsweredEvent{
		Operation: "chat",
		Source:    reply.Source,
		Provider:  reply.Model,
		Success:   reply.Success,
	})
	return reply, nil
}

// RecommendCrops ranks crops for in through the suitability ladder.
func (a *Activities) RecommendCrops(ctx context.Context, in domain.SuitabilityInput) (domain.SuitabilityResult, error) {
	if a.suitability == nil {
		return domain.SuitabilityResult{}, nonRetryable(ErrorTypeProvider, errors.New("suitability service not configured"), "suitability unavailable")
	}

	res, err := a.suitability.Recommend(ctx, in)
	if err != nil {
		return domain.SuitabilityResult{}, toApplicationError(err, "crop recommendation failed")
	}

	activity.SafeLog(ctx, "Crops recommended",
		"source", res.Source,
		"count", len(res.Recommendations))

	a.Emit(ctx, events.TypeLadderAnswered, "", AnsweredEvent{
		Operation: "suitability",
		Source:    res.Source,
		Provider:  res.Provider,
		Success:   true,
	})
	return res, nil
}
