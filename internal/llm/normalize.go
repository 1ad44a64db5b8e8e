package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"MarketLens/internal/model"
)

// ErrNoContent means a provider response carried no assistant text.
var ErrNoContent = errors.New("model response has no content")

// Normalize maps a provider response into the canonical
// {choices:[{message:{content}}]} shape. It understands OpenAI chat and
// legacy completions, Anthropic messages, flat {output_text|completion|result}
// objects and bare JSON strings. A body that is not JSON is rejected.
func Normalize(raw []byte) (*model.ModelResponse, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, ErrNoContent
	}

	var anyResp any
	if err := json.Unmarshal([]byte(trimmed), &anyResp); err != nil {
		return nil, fmt.Errorf("%w: body is not JSON: %v", ErrNoContent, err)
	}

	switch v := anyResp.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, ErrNoContent
		}
		return model.NewModelResponse(v), nil
	case map[string]any:
		if resp := fromChoices(v); resp != nil {
			return resp, nil
		}
		if s := fromContentBlocks(v["content"]); s != "" {
			return model.NewModelResponse(s), nil
		}
		for _, k := range []string{"output_text", "completion", "output", "result", "text"} {
			if s, ok := v[k].(string); ok && strings.TrimSpace(s) != "" {
				return model.NewModelResponse(s), nil
			}
		}
		if msg, ok := v["message"].(map[string]any); ok {
			if s := contentString(msg["content"]); s != "" {
				return model.NewModelResponse(s), nil
			}
		}
	}
	return nil, ErrNoContent
}

// fromChoices keeps every choice that has text, in order.
func fromChoices(m map[string]any) *model.ModelResponse {
	arr, ok := m["choices"].([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	resp := &model.ModelResponse{}
	for _, c := range arr {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		var text string
		if msg, ok := cm["message"].(map[string]any); ok {
			text = contentString(msg["content"])
		}
		if text == "" {
			text, _ = cm["text"].(string)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		resp.Choices = append(resp.Choices, model.Choice{Message: model.Message{Content: text}})
	}
	if len(resp.Choices) == 0 {
		return nil
	}
	return resp
}

// contentString accepts either a plain string or a list of typed text blocks.
func contentString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fromContentBlocks(v)
}

func fromContentBlocks(v any) string {
	blocks, ok := v.([]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, blk := range blocks {
		bm, ok := blk.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := bm["text"].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String()
}
