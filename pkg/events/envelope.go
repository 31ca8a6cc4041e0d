// Package events provides the generic event infrastructure for domain event emission.
// It defines the Envelope type for wrapping domain events with consistent metadata
// and the EventSink interface for event storage/transmission.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the schema version stamped on new envelopes.
const EnvelopeVersion = "1.0.0"

// Event types emitted by the call layer.
const (
	TypeSessionTerminated = "session.terminated"
	TypeLadderAnswered    = "ladder.answered"
)

// Envelope wraps domain events with consistent metadata for reliable event processing.
// This provides a generic container that can hold any domain-specific event payload
// while maintaining standard fields for routing, idempotency, and observability.
type Envelope struct {
	// ID uniquely identifies this event instance.
	// Generated as a UUID for each event emission.
	ID string `json:"id"`

	// Type identifies the event for routing and processing.
	// Examples: "session.terminated", "ladder.answered"
	Type string `json:"type"`

	// Source identifies the component that emitted this event.
	// Examples: "credentials", "chat-activity"
	Source string `json:"source"`

	// Version enables schema evolution and backward compatibility.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey ensures exactly-once processing during retries.
	// Activities derive it from the workflow context; other emitters use the ID.
	IdempotencyKey string `json:"idempotency_key"`

	// SessionID identifies the user session the event belongs to, when known.
	SessionID string `json:"session_id,omitempty"`

	// WorkflowID identifies the Temporal workflow that triggered this event.
	WorkflowID string `json:"workflow_id,omitempty"`

	// RunID identifies the specific workflow execution run.
	RunID string `json:"run_id,omitempty"`

	// Payload contains the domain-specific event data as JSON.
	// Schema varies by Type and Version.
	Payload json.RawMessage `json:"payload"`
}

// New builds an envelope with a fresh ID, the current time and payload
// marshaled to JSON.
func New(eventType, source string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	id := uuid.New().String()
	return Envelope{
		ID:             id,
		Type:           eventType,
		Source:         source,
		Version:        EnvelopeVersion,
		Timestamp:      time.Now().UTC(),
		IdempotencyKey: id,
		Payload:        raw,
	}, nil
}

// EventSink defines the interface for emitting events to downstream consumers.
type EventSink interface {
	// Append adds an event to the sink with best-effort delivery.
	// Implementations should handle idempotency (duplicate events are no-ops)
	// and return quickly to avoid blocking the caller.
	//
	// Callers should not fail their primary operation due to event sink failures.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink is a null implementation of EventSink for testing or when events are disabled.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}
