package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Manager loads the policy file via Viper and watches it for edits.
// Policy values are immutable per process: an edit is logged so operators
// know a restart is needed, but the running configuration never changes
// under a request's feet.
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	logger     *zap.Logger
}

// NewManager creates a manager for the given policy file path. An empty
// path means defaults plus environment overrides only.
func NewManager(configPath string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		configPath: configPath,
		config:     DefaultConfig(),
		logger:     logger,
	}
}

// Load reads the policy file, environment overrides, and defaults.
func (m *Manager) Load() error {
	m.viper = viper.New()
	m.viper.SetConfigType("yaml")
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	}

	m.viper.SetEnvPrefix("TRIAGE")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	if m.configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); notFound || os.IsNotExist(err) {
				m.logger.Info("policy file not found, using defaults",
					zap.String("path", m.configPath))
			} else {
				return fmt.Errorf("read policy file: %w", err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := m.viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal policy file: %w", err)
	}
	m.config = cfg

	if errs := m.config.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return fmt.Errorf("policy validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
	}
	return nil
}

// Get returns the loaded configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// Watch logs when the policy file changes on disk. The loaded values stay
// as they were; weights and thresholds are initialize-once resources.
func (m *Manager) Watch() {
	if m.viper == nil || m.configPath == "" {
		return
	}
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		m.logger.Warn("policy file changed on disk; restart to apply",
			zap.String("path", e.Name), zap.String("op", e.Op.String()))
	})
	m.viper.WatchConfig()
}

func (m *Manager) setDefaults() {
	defaults := DefaultConfig()
	m.viper.SetDefault("dispatch.deadline", defaults.Dispatch.Deadline)
	m.viper.SetDefault("synthesis.actionable_threshold", defaults.Synthesis.ActionableThreshold)
	m.viper.SetDefault("synthesis.benign_threshold", defaults.Synthesis.BenignThreshold)
	m.viper.SetDefault("synthesis.retry_backoff", defaults.Synthesis.RetryBackoff)
	m.viper.SetDefault("synthesis.secondary_confidence_cap", defaults.Synthesis.SecondaryConfidenceCap)
}
