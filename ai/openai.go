// Package ai provides the structured completion capability used by the
// travel pipeline: an OpenAI-compatible chat completion client plus a
// coercion layer that turns loosely formatted model output into typed Go
// values.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tripweaver/tripweaver/core"
)

// OpenAIClient implements core.AIClient against any OpenAI-compatible
// chat completions endpoint.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	httpClient  *http.Client
	logger      core.Logger
	telemetry   core.Telemetry
}

// ClientOption configures an OpenAIClient
type ClientOption func(*OpenAIClient)

// WithHTTPClient replaces the default HTTP client (used to inject the
// traced client from the telemetry package).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *OpenAIClient) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) ClientOption {
	return func(o *OpenAIClient) { o.logger = l }
}

// WithTelemetry sets the telemetry provider.
func WithTelemetry(t core.Telemetry) ClientOption {
	return func(o *OpenAIClient) { o.telemetry = t }
}

// NewOpenAIClient creates a completion client from configuration.
func NewOpenAIClient(cfg core.AIConfig, opts ...ClientOption) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	c := &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  maxRetries,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      &core.NoOpLogger{},
		telemetry:   &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// GenerateResponse sends a chat completion request and returns the raw
// model output. Transient failures (429 and 5xx) are retried with
// exponential backoff up to the configured budget.
func (c *OpenAIClient) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "ai.generate_response")
	defer span.End()

	span.SetAttribute("ai.prompt_length", len(prompt))

	if c.apiKey == "" {
		err := fmt.Errorf("API key not configured: %w", core.ErrMissingConfiguration)
		span.RecordError(err)
		return nil, err
	}

	options = c.applyDefaults(options)
	span.SetAttribute("ai.model", options.Model)

	messages := []chatMessage{}
	if options.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: options.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       options.Model,
		Messages:    messages,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	resp, raw, err := c.executeWithRetry(ctx, body)
	if err != nil {
		c.logger.Error("Completion request failed", map[string]interface{}{
			"operation":   "ai_request",
			"model":       options.Model,
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		span.RecordError(err)
		return nil, err
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices in completion response: %w", core.ErrEmptyCompletion)
		span.RecordError(err)
		return nil, err
	}

	c.logger.Debug("Completion request succeeded", map[string]interface{}{
		"operation":    "ai_request",
		"model":        resp.Model,
		"total_tokens": resp.Usage.TotalTokens,
		"duration_ms":  time.Since(start).Milliseconds(),
		"raw_bytes":    len(raw),
	})
	c.telemetry.RecordMetric("ai.request.tokens", float64(resp.Usage.TotalTokens), map[string]string{
		"model": resp.Model,
	})

	return &core.AIResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: core.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAIClient) applyDefaults(options *core.AIOptions) *core.AIOptions {
	out := &core.AIOptions{}
	if options != nil {
		*out = *options
	}
	if out.Model == "" {
		out.Model = c.model
	}
	if out.Temperature == 0 {
		out.Temperature = c.temperature
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = c.maxTokens
	}
	return out
}

func (c *OpenAIClient) executeWithRetry(ctx context.Context, body []byte) (*chatResponse, []byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
			c.logger.Warn("Retrying completion request", map[string]interface{}{
				"operation": "ai_request_retry",
				"attempt":   attempt + 1,
				"error":     lastErr.Error(),
			})
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("completion call: %v: %w", err, core.ErrConnectionFailed)
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("completion backend returned %d: %w", resp.StatusCode, core.ErrRequestFailed)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, nil, fmt.Errorf("completion backend returned %d: %s: %w", resp.StatusCode, truncateForLog(string(raw), 200), core.ErrRequestFailed)
		}

		var parsed chatResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, nil, fmt.Errorf("failed to parse completion response: %w", err)
		}
		return &parsed, raw, nil
	}

	return nil, nil, fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries, lastErr)
}

func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
