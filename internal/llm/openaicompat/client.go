// Package openaicompat implements the llm.Client contract against any
// OpenAI-compatible chat-completions endpoint. Both reasoning backends of
// the triage service speak this wire format: the hosted primary (Gemini
// via OpenRouter) and the local secondary (Qwen via LiteLLM).
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kernowlab/triage/internal/llm"
)

const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.3
	DefaultTimeout     = 30 * time.Second
)

// Config holds the static settings of one backend endpoint.
type Config struct {
	// Name identifies the backend in logs and metrics, e.g. "primary".
	Name string
	// BaseURL is the API root, e.g. https://openrouter.ai/api/v1.
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Model is the model identifier at the provider.
	Model string
	// Timeout bounds a single call; DefaultTimeout when zero. The caller's
	// ctx can always cut this shorter.
	Timeout time.Duration
}

// Client calls one OpenAI-compatible chat-completions endpoint.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

var _ llm.Client = (*Client)(nil)

// New creates a client for one endpoint.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Model
	}
	return &Client{
		name:    name,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Name implements llm.Client.
func (c *Client) Name() string { return c.name }

// chatRequest is the OpenAI chat-completions request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the subset of the response body we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.TokenUsage `json:"usage"`
}

// Complete implements llm.Client against POST {base}/chat/completions.
// HTTP 429 maps to llm.ErrRateLimited, transport failures and 5xx map to
// llm.ErrUnavailable, and an empty or undecodable body maps to
// llm.ErrMalformedOutput.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = DefaultMaxTokens
	}
	if req.JSONOutput {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", llm.ErrUnavailable, c.name, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %v", llm.ErrUnavailable, c.name, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", llm.ErrRateLimited, c.name)
	case httpResp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s: status %d: %s", llm.ErrUnavailable, c.name, httpResp.StatusCode, truncate(respBody, 200))
	case httpResp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: status %d: %s", c.name, httpResp.StatusCode, truncate(respBody, 200))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", llm.ErrMalformedOutput, c.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: %s: empty completion", llm.ErrMalformedOutput, c.name)
	}

	return &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage:   resp.Usage,
	}, nil
}

// SetBaseURL overrides the endpoint base URL. Used in tests.
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
