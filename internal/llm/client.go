// Package llm calls a chat-completion model and normalizes its responses.
package llm

import (
	"context"
	"encoding/json"
)

// Prompt is the system and user message pair sent to the model.
type Prompt struct {
	System string
	User   string
}

// Client sends a prompt and returns the provider's raw response body.
// Response shapes vary by provider; see Normalize.
type Client interface {
	Complete(ctx context.Context, p Prompt) (json.RawMessage, error)
}
