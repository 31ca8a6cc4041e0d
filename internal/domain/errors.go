package domain

import "errors"

// ErrInvalidChatRequest indicates that a chat request contains invalid data.
var ErrInvalidChatRequest = errors.New("invalid chat request")

// ErrInvalidSuitabilityInput indicates that suitability scoring input is invalid.
var ErrInvalidSuitabilityInput = errors.New("invalid suitability input")

// ErrInvalidRecommendation indicates that a recommendation violates its bounds.
var ErrInvalidRecommendation = errors.New("invalid recommendation")
