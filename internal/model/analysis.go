package model

// Message is the assistant message of a chat completion choice.
type Message struct {
	Content string `json:"content"`
}

// Choice is one completion alternative.
type Choice struct {
	Message Message `json:"message"`
}

// ModelResponse is the canonical shape every model provider is normalized to.
type ModelResponse struct {
	Choices []Choice `json:"choices"`
}

// NewModelResponse wraps a single piece of assistant text.
func NewModelResponse(content string) *ModelResponse {
	return &ModelResponse{Choices: []Choice{{Message: Message{Content: content}}}}
}

// Content returns the first choice's text, or "" when there is none.
func (r *ModelResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
