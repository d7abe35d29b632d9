package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, int64(8), cfg.MaxConcurrent)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TRIAGE_HTTP_PORT", "9999")
	t.Setenv("TRIAGE_PRIMARY_BASE_URL", "https://openrouter.example/api/v1")
	t.Setenv("TRIAGE_PRIMARY_API_KEY", "sk-test")
	t.Setenv("TRIAGE_PRIMARY_MODEL", "google/gemini-2.0-flash")
	t.Setenv("TRIAGE_BRIDGE_ENDPOINTS", "infrastructure=http://infra:8100, observability=http://obs:8101")
	t.Setenv("TRIAGE_BRIDGE_TOKEN", "bridge-token")
	t.Setenv("TRIAGE_MAX_CONCURRENT", "3")
	t.Setenv("TRIAGE_WS_ALLOWED_ORIGINS", "https://ops.example,*")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.HTTPPort)
	assert.Equal(t, "https://openrouter.example/api/v1", cfg.PrimaryBaseURL)
	assert.Equal(t, int64(3), cfg.MaxConcurrent)
	assert.Equal(t, map[string]string{
		"infrastructure": "http://infra:8100",
		"observability":  "http://obs:8101",
	}, cfg.BridgeEndpoints)
	assert.Equal(t, []string{"https://ops.example", "*"}, cfg.AllowedOrigins)

	cc, ok := cfg.PrimaryClientConfig()
	require.True(t, ok)
	assert.Equal(t, "primary", cc.Name)
	assert.Equal(t, "google/gemini-2.0-flash", cc.Model)

	_, ok = cfg.SecondaryClientConfig()
	assert.False(t, ok, "secondary should be absent when unset")
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "TRIAGE_HTTP_PORT", "not-a-number"},
		{"bad max concurrent", "TRIAGE_MAX_CONCURRENT", "0"},
		{"bad bridge endpoints", "TRIAGE_BRIDGE_ENDPOINTS", "nourl"},
		{"bad log level", "TRIAGE_LOG_LEVEL", "chatty"},
		{"primary without model", "TRIAGE_PRIMARY_BASE_URL", "https://x.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
