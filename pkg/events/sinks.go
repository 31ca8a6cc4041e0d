package events

import (
	"context"
	"log/slog"
	"sync"
)

// MemorySink keeps envelopes in memory, deduplicated by idempotency key.
// It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []Envelope
	seen   map[string]struct{}
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Append stores envelope unless its idempotency key was already stored.
func (m *MemorySink) Append(_ context.Context, envelope Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := envelope.IdempotencyKey
	if key == "" {
		key = envelope.ID
	}
	if key != "" {
		if _, dup := m.seen[key]; dup {
			return nil
		}
		m.seen[key] = struct{}{}
	}
	m.events = append(m.events, envelope)
	return nil
}

// Events returns a copy of the stored envelopes in append order.
func (m *MemorySink) Events() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, len(m.events))
	copy(out, m.events)
	return out
}

// OfType returns the stored envelopes with the given type.
func (m *MemorySink) OfType(eventType string) []Envelope {
	var out []Envelope
	for _, e := range m.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// LogSink writes envelopes to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a LogSink; a nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default().With("component", "events")
	}
	return &LogSink{logger: logger}
}

// Append logs the envelope at info level.
func (l *LogSink) Append(ctx context.Context, envelope Envelope) error {
	l.logger.InfoContext(ctx, "event emitted",
		"event_id", envelope.ID,
		"type", envelope.Type,
		"source", envelope.Source,
		"session_id", envelope.SessionID,
		"workflow_id", envelope.WorkflowID,
		"payload", string(envelope.Payload),
	)
	return nil
}
