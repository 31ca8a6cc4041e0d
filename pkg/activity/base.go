// Package activity provides common infrastructure for Temporal activity implementations:
// workflow context extraction, safe logging and best-effort event emission that
// work both inside a Temporal activity and in plain unit tests.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-resilient/pkg/events"
)

// Event emission retry settings.
const (
	emitAttempts   = 2
	emitRetryDelay = 200 * time.Millisecond
)

// WorkflowContext contains metadata extracted from the Temporal activity context.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
	TaskQueue  string
	Attempt    int32
}

// BaseActivities provides event emission, context extraction and safe logging
// shared by every activity type.
type BaseActivities struct {
	eventSink events.EventSink
	source    string
}

// NewBaseActivities creates a BaseActivities that emits to sink. A nil sink
// disables event emission.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink, source: "activity"}
}

// GetWorkflowContext extracts workflow execution details from ctx. Outside an
// activity (where activity.GetInfo panics) it returns a fixed test workflow ID
// and a random run ID.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	var wfCtx WorkflowContext

	func() {
		defer func() {
			if r := recover(); r != nil {
				wfCtx = WorkflowContext{
					WorkflowID: "550e8400-e29b-41d4-a716-446655440000",
					RunID:      "test-run-" + uuid.New().String()[:8],
					ActivityID: "test-activity",
					Attempt:    1,
				}
			}
		}()

		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
		wfCtx.TaskQueue = info.TaskQueue
		wfCtx.Attempt = info.Attempt
	}()

	return wfCtx
}

// Emit builds an envelope of eventType carrying payload, stamps it with the
// workflow context and session, and appends it via EmitEventSafe.
func (b *BaseActivities) Emit(ctx context.Context, eventType, sessionID string, payload any) {
	if b.eventSink == nil {
		return
	}

	env, err := events.New(eventType, b.source, payload)
	if err != nil {
		SafeLogError(ctx, "Failed to build event", "event_type", eventType, "error", err)
		return
	}

	wf := b.GetWorkflowContext(ctx)
	env.WorkflowID = wf.WorkflowID
	env.RunID = wf.RunID
	env.SessionID = sessionID
	// Stable across retries of the same scheduled activity.
	env.IdempotencyKey = fmt.Sprintf("%s:%s:%s:%s", wf.WorkflowID, wf.RunID, wf.ActivityID, eventType)

	b.EmitEventSafe(ctx, env, eventType)
}

// EmitEventSafe appends envelope with one short retry. Emission never fails
// the calling activity; failures are logged and dropped.
func (b *BaseActivities) EmitEventSafe(ctx context.Context, envelope events.Envelope, description string) {
	if b.eventSink == nil {
		return
	}

	var lastErr error
	for attempt := range emitAttempts {
		if attempt > 0 {
			select {
			case <-time.After(emitRetryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}

		SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
			"event_type", envelope.Type,
			"idempotency_key", envelope.IdempotencyKey)
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, emitAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat records a heartbeat; it is ignored outside an activity.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs at INFO through the activity logger, or does nothing outside an activity.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		_ = recover()
	}()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError logs at ERROR through the activity logger, or does nothing outside an activity.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		_ = recover()
	}()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records activity heartbeat details; it is ignored outside an activity.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() {
		_ = recover()
	}()
	activity.RecordHeartbeat(ctx, details...)
}
