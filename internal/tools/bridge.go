// Package tools provides the domain tool capabilities that specialists
// query while investigating an alert. Tools live behind per-domain REST
// bridge services exposing POST /api/call; this package wraps that bridge
// and scopes each specialist to its own bounded capability set.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultCallTimeout bounds a single tool call at the HTTP client. The
// dispatcher's shared deadline is the hard ceiling; this only keeps one
// slow tool from eating the whole budget.
const DefaultCallTimeout = 10 * time.Second

// Result is the structured outcome of one tool call as returned by the
// bridge. Status is "success" or "error".
type Result struct {
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the call produced usable output.
func (r *Result) OK() bool { return r != nil && r.Status == "success" }

// BridgeConfig holds the static bridge settings loaded at process start.
type BridgeConfig struct {
	// Endpoints maps bridge service name (infrastructure, observability,
	// knowledge, home) to its base URL.
	Endpoints map[string]string
	// Token is sent as a bearer token when non-empty.
	Token string
	// CallTimeout bounds one call; DefaultCallTimeout when zero.
	CallTimeout time.Duration
}

// Bridge calls tools on the per-domain REST bridge services. It holds no
// per-request state and is safe for concurrent use.
type Bridge struct {
	endpoints  map[string]string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBridge creates a bridge client from static configuration.
func NewBridge(cfg BridgeConfig, logger *zap.Logger) *Bridge {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoints := make(map[string]string, len(cfg.Endpoints))
	for name, url := range cfg.Endpoints {
		endpoints[name] = url
	}
	return &Bridge{
		endpoints:  endpoints,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type callRequest struct {
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Call invokes one tool on the named bridge service. Transport failures
// and non-2xx responses come back as errors; the bridge itself reports
// tool-level failures inside Result. Callers treat every outcome as
// untrusted, fallible data.
func (b *Bridge) Call(ctx context.Context, service, tool string, args map[string]interface{}) (*Result, error) {
	base, ok := b.endpoints[service]
	if !ok {
		return nil, fmt.Errorf("unknown bridge service %q", service)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	reqBody, err := json.Marshal(callRequest{Tool: tool, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("marshal call: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/call", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		b.logger.Debug("tool call transport failure",
			zap.String("service", service), zap.String("tool", tool), zap.Error(err))
		return nil, fmt.Errorf("call %s/%s: %w", service, tool, err)
	}
	defer httpResp.Body.Close()

	switch httpResp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("call %s/%s: not authorized (status %d)", service, tool, httpResp.StatusCode)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("call %s/%s: status %d", service, tool, httpResp.StatusCode)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("call %s/%s: read response: %w", service, tool, err)
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("call %s/%s: decode response: %w", service, tool, err)
	}
	return &result, nil
}
