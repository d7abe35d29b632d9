// Package llm defines the reasoning backend contract consumed by
// specialists and the synthesizer, and the error taxonomy that drives
// fallback escalation.
package llm

import (
	"context"
	"errors"
)

// Message is one turn of a conversation sent to a reasoning backend.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// CompletionRequest asks a backend to produce one completion.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// JSONOutput requests a JSON-object response format where the backend
	// supports it. Callers still validate the parsed output themselves.
	JSONOutput bool
}

// TokenUsage tracks token consumption reported by the backend.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is a backend's structured output.
type CompletionResponse struct {
	Content string
	Usage   TokenUsage
}

// Client is an opaque reasoning capability: produce a completion from a
// context, fallibly, within whatever bound the caller's ctx imposes.
// Implementations must be safe for concurrent use; a Client handle is a
// process-wide, initialize-once, read-only resource.
type Client interface {
	// Complete performs one completion call. Errors are classified via
	// errors.Is against the sentinels below.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name identifies the backend for logging and metrics.
	Name() string
}

// Sentinel errors returned (wrapped) by backend clients. The distinction
// between rate-limited and other failures drives the fallback controller.
var (
	// ErrRateLimited is returned when the backend rejects the call with a
	// rate-limit response (HTTP 429).
	ErrRateLimited = errors.New("backend rate limited")

	// ErrUnavailable covers connection failures and server-side errors:
	// the backend cannot currently serve requests at all.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrMalformedOutput is returned when the backend answered but its
	// output could not be parsed into the expected structure.
	ErrMalformedOutput = errors.New("malformed backend output")
)
