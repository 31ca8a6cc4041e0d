package domain

import "time"

// Source identifies which ladder rung ultimately produced an answer.
// Every operation result carries one so callers and tests can assert the path taken.
type Source string

const (
	// SourcePrimaryModel marks an answer from the primary chat model.
	SourcePrimaryModel Source = "primary-model"
	// SourceFallbackModel marks an answer from the secondary chat model.
	SourceFallbackModel Source = "fallback-model"
	// SourceDegraded marks the fixed apology returned when every chat rung failed.
	SourceDegraded Source = "degraded"
	// SourceMLService marks recommendations from the remote inference service.
	SourceMLService Source = "ml-service"
	// SourceRules marks recommendations from the deterministic rule-based scorer.
	SourceRules Source = "rules"
)

// String returns the source identifier.
func (s Source) String() string { return string(s) }

// Attempt is one rung invocation on the path to an answer. Results carry the
// full trail so callers can see which providers failed before one answered.
type Attempt struct {
	Rung      string        `json:"rung"`
	Error     string        `json:"error,omitempty"`
	Escalated bool          `json:"escalated"`
	Duration  time.Duration `json:"duration"`
}
