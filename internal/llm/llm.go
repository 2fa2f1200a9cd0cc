package llm

import (
	"context"
	"errors"
	"fmt"

	"ai-diet-planner/internal/shared"
)

// Generation parameters sent with every request. They are not user
// configurable.
const (
	Temperature     = 0.7
	MaxOutputTokens = 4096
)

// ErrNoContent is returned when a successful response carries no text at
// candidates[0].content.parts[0].text.
var ErrNoContent = errors.New("no content generated")

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator generates text from a prompt using the caller's credential.
// Implementations issue exactly one upstream call per invocation.
type TextGenerator interface {
	GenerateContent(ctx context.Context, apiKey, prompt string) (ContentResponse, error)
}

// StatusError is a non-success answer from the upstream API.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini api error: status=%d %s body=%s", e.StatusCode, e.Status, e.Body)
}
