package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MarketLens/internal/trace"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIConfig configures an OpenAI-compatible chat-completions client.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Proxy       string
	Timeout     time.Duration
}

// OpenAIClient posts prompts to {BaseURL}/chat/completions.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIClient creates a client with optional proxy support.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, p Prompt) (json.RawMessage, error) {
	requestID := uuid.NewString()
	ctx, span := trace.StartSpan(ctx, "llm.Complete",
		attribute.String("request_id", requestID),
		attribute.String("model", c.cfg.Model),
	)
	defer span.End()

	if c.cfg.APIKey == "" {
		err := errors.New("llm api key missing")
		trace.RecordError(span, err)
		return nil, err
	}

	messages := []map[string]string{}
	if p.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": p.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": p.User})

	body := map[string]any{
		"model":       c.cfg.Model,
		"messages":    messages,
		"temperature": c.cfg.Temperature,
	}
	if c.cfg.MaxTokens > 0 {
		body["max_tokens"] = c.cfg.MaxTokens
	}
	bb, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bb))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log.Printf("[INFO] llm request %s: model=%s prompt_bytes=%d", requestID, c.cfg.Model, len(p.System)+len(p.User))
	began := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		trace.RecordError(span, err)
		return nil, fmt.Errorf("llm request %s: %w", requestID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		trace.RecordError(span, err)
		return nil, fmt.Errorf("llm read body %s: %w", requestID, err)
	}
	log.Printf("[INFO] llm response %s: status=%d bytes=%d latency=%s",
		requestID, resp.StatusCode, len(respBody), time.Since(began).Round(time.Millisecond))

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("llm http %d: %s", resp.StatusCode, truncate(string(respBody), 512))
		trace.RecordError(span, err)
		return nil, err
	}
	return json.RawMessage(respBody), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
