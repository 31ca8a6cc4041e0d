package domain

import (
	"fmt"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

// Chat message roles understood by chat-completion providers.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message of a conversation history.
type ChatTurn struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is a new user turn plus the conversation that preceded it.
// History is ordered oldest first.
type ChatRequest struct {
	SessionID string     `json:"session_id,omitempty"`
	Message   string     `json:"message" validate:"required"`
	History   []ChatTurn `json:"history,omitempty" validate:"dive"`
}

// Validate checks the request for caller errors before any provider is contacted.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChatRequest, &FieldError{Field: "message", Tag: "required", Value: r.Message})
	}
	return validateStruct(r, ErrInvalidChatRequest)
}

// ChatReply is the chat operation's result envelope.
// Success is false only for the degraded apology, in which case Error carries the
// raw provider failure so the boundary layer can log it while rendering Text.
type ChatReply struct {
	Text    string `json:"text"`
	Source  Source `json:"source"`
	Model   string `json:"model,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Attempts lists the rungs tried, including the failed ones behind a degraded reply.
	Attempts []Attempt `json:"attempts,omitempty"`
}
