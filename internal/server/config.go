package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kernowlab/triage/internal/llm/openaicompat"
	"github.com/kernowlab/triage/internal/tools"
)

// Config represents the server configuration. Policy values (deadline,
// thresholds, authority weights) live in the policy file loaded by
// internal/config; this struct covers process wiring only.
type Config struct {
	// Server settings
	HTTPPort int    `json:"http_port"`
	Host     string `json:"host"`

	// PolicyPath is the path to the YAML policy file (weights,
	// thresholds). Empty means built-in defaults.
	PolicyPath string `json:"policy_path"`

	// Primary reasoning backend (OpenAI-compatible chat completions)
	PrimaryBaseURL string `json:"primary_base_url"`
	PrimaryAPIKey  string `json:"primary_api_key"`
	PrimaryModel   string `json:"primary_model"`

	// Secondary reasoning backend (same wire format, local endpoint)
	SecondaryBaseURL string `json:"secondary_base_url"`
	SecondaryAPIKey  string `json:"secondary_api_key"`
	SecondaryModel   string `json:"secondary_model"`

	// Tool bridge settings
	BridgeEndpoints map[string]string `json:"bridge_endpoints"`
	BridgeToken     string            `json:"bridge_token"`

	// MaxConcurrent bounds investigations running at once; further
	// requests are rejected with 503.
	MaxConcurrent int64 `json:"max_concurrent"`

	// RateLimitPerMin is the per-client request budget. Zero disables
	// rate limiting.
	RateLimitPerMin int `json:"rate_limit_per_min"`

	// AllowedOrigins is a comma-separated list of permitted WebSocket
	// origins. Use "*" to allow all origins (development only).
	// Defaults to localhost origins.
	AllowedOrigins []string `json:"allowed_origins"`

	// Logging settings
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Defaults
		HTTPPort:        8080,
		Host:            "0.0.0.0",
		MaxConcurrent:   8,
		RateLimitPerMin: 60,
		SecondaryModel:  "qwen2.5:7b",
		LogLevel:        "info",
	}

	// HTTP Port
	if port := os.Getenv("TRIAGE_HTTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid TRIAGE_HTTP_PORT: %w", err)
		}
		cfg.HTTPPort = p
	}

	// Host
	if host := os.Getenv("TRIAGE_HOST"); host != "" {
		cfg.Host = host
	}

	cfg.PolicyPath = os.Getenv("TRIAGE_POLICY_FILE")

	// Reasoning backends
	cfg.PrimaryBaseURL = os.Getenv("TRIAGE_PRIMARY_BASE_URL")
	cfg.PrimaryAPIKey = os.Getenv("TRIAGE_PRIMARY_API_KEY")
	cfg.PrimaryModel = os.Getenv("TRIAGE_PRIMARY_MODEL")

	cfg.SecondaryBaseURL = os.Getenv("TRIAGE_SECONDARY_BASE_URL")
	cfg.SecondaryAPIKey = os.Getenv("TRIAGE_SECONDARY_API_KEY")
	if model := os.Getenv("TRIAGE_SECONDARY_MODEL"); model != "" {
		cfg.SecondaryModel = model
	}

	// Tool bridge: "service=url" pairs, comma-separated.
	if eps := os.Getenv("TRIAGE_BRIDGE_ENDPOINTS"); eps != "" {
		cfg.BridgeEndpoints = make(map[string]string)
		for _, pair := range splitCSV(eps) {
			name, url, ok := strings.Cut(pair, "=")
			if !ok || name == "" || url == "" {
				return nil, fmt.Errorf("invalid TRIAGE_BRIDGE_ENDPOINTS entry: %q (want service=url)", pair)
			}
			cfg.BridgeEndpoints[strings.TrimSpace(name)] = strings.TrimSpace(url)
		}
	}
	cfg.BridgeToken = os.Getenv("TRIAGE_BRIDGE_TOKEN")

	// Concurrency bound
	if v := os.Getenv("TRIAGE_MAX_CONCURRENT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid TRIAGE_MAX_CONCURRENT (must be >= 1): %s", v)
		}
		cfg.MaxConcurrent = n
	}

	// Rate limit
	if v := os.Getenv("TRIAGE_RATE_LIMIT_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid TRIAGE_RATE_LIMIT_PER_MIN: %s", v)
		}
		cfg.RateLimitPerMin = n
	}

	// WebSocket allowed origins (comma-separated)
	if origins := os.Getenv("TRIAGE_WS_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}

	// Logging
	if level := os.Getenv("TRIAGE_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	cfg.LogFile = os.Getenv("TRIAGE_LOG_FILE")

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitCSV splits a comma-separated string into trimmed non-empty parts.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	// A reasoning backend needs a reachable URL; both may be absent, in
	// which case every investigation settles on the rule-based tier.
	if c.PrimaryBaseURL != "" && c.PrimaryModel == "" {
		return fmt.Errorf("primary backend requires TRIAGE_PRIMARY_MODEL")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// PrimaryClientConfig maps the env settings onto the backend client
// config, empty when no primary backend is configured.
func (c *Config) PrimaryClientConfig() (openaicompat.Config, bool) {
	if c.PrimaryBaseURL == "" {
		return openaicompat.Config{}, false
	}
	return openaicompat.Config{
		Name:    "primary",
		BaseURL: c.PrimaryBaseURL,
		APIKey:  c.PrimaryAPIKey,
		Model:   c.PrimaryModel,
		Timeout: 30 * time.Second,
	}, true
}

// SecondaryClientConfig maps the env settings onto the backend client
// config, empty when no secondary backend is configured.
func (c *Config) SecondaryClientConfig() (openaicompat.Config, bool) {
	if c.SecondaryBaseURL == "" {
		return openaicompat.Config{}, false
	}
	return openaicompat.Config{
		Name:    "secondary",
		BaseURL: c.SecondaryBaseURL,
		APIKey:  c.SecondaryAPIKey,
		Model:   c.SecondaryModel,
		Timeout: 30 * time.Second,
	}, true
}

// BridgeConfig maps the env settings onto the tool bridge config.
func (c *Config) BridgeConfig() tools.BridgeConfig {
	return tools.BridgeConfig{
		Endpoints: c.BridgeEndpoints,
		Token:     c.BridgeToken,
	}
}
