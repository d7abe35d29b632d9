// Package config loads the triage policy file: dispatch deadline,
// synthesis thresholds, and the authority weighting rules. The file is
// read once at startup and the resulting values are immutable for the
// lifetime of the process.
package config

import (
	"fmt"
	"time"

	"github.com/kernowlab/triage/internal/authority"
)

// Config contains all policy configuration fields.
type Config struct {
	// Dispatch configuration
	Dispatch struct {
		// Deadline is the shared fan-out deadline applied to the whole
		// specialist dispatch, not per specialist.
		Deadline time.Duration `mapstructure:"deadline"`
	} `mapstructure:"dispatch"`

	// Synthesis configuration
	Synthesis struct {
		// ActionableThreshold: verdict ACTIONABLE when weighted
		// confidence is at or above it.
		ActionableThreshold float64 `mapstructure:"actionable_threshold"`
		// BenignThreshold: verdict BENIGN when weighted confidence is at
		// or below it.
		BenignThreshold float64 `mapstructure:"benign_threshold"`
		// RetryBackoff is the fixed pause before the single retry of a
		// transient tier failure.
		RetryBackoff time.Duration `mapstructure:"retry_backoff"`
		// SecondaryConfidenceCap bounds the confidence a secondary-tier
		// result may claim; the local model reasons with less context.
		SecondaryConfidenceCap float64 `mapstructure:"secondary_confidence_cap"`
	} `mapstructure:"synthesis"`

	// Authority weighting rules
	Authority struct {
		Rules []authority.Rule `mapstructure:"rules"`
	} `mapstructure:"authority"`
}

// DefaultConfig returns the built-in policy defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Dispatch.Deadline = 15 * time.Second
	cfg.Synthesis.ActionableThreshold = 0.6
	cfg.Synthesis.BenignThreshold = 0.3
	cfg.Synthesis.RetryBackoff = 500 * time.Millisecond
	cfg.Synthesis.SecondaryConfidenceCap = 0.7
	return cfg
}

// Validate checks the configuration for defects that would make even the
// rule-based tier unable to produce an answer.
func (c *Config) Validate() []error {
	var errs []error

	if c.Dispatch.Deadline <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.deadline must be positive, got %s", c.Dispatch.Deadline))
	}

	s := c.Synthesis
	if s.ActionableThreshold <= 0 || s.ActionableThreshold > 1 {
		errs = append(errs, fmt.Errorf("synthesis.actionable_threshold must be in (0,1], got %v", s.ActionableThreshold))
	}
	if s.BenignThreshold < 0 || s.BenignThreshold >= 1 {
		errs = append(errs, fmt.Errorf("synthesis.benign_threshold must be in [0,1), got %v", s.BenignThreshold))
	}
	if s.BenignThreshold >= s.ActionableThreshold {
		errs = append(errs, fmt.Errorf("synthesis.benign_threshold (%v) must be below actionable_threshold (%v)",
			s.BenignThreshold, s.ActionableThreshold))
	}
	if s.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("synthesis.retry_backoff must not be negative, got %s", s.RetryBackoff))
	}
	if s.SecondaryConfidenceCap <= 0 || s.SecondaryConfidenceCap > 1 {
		errs = append(errs, fmt.Errorf("synthesis.secondary_confidence_cap must be in (0,1], got %v", s.SecondaryConfidenceCap))
	}

	if _, err := authority.NewTable(c.Authority.Rules); err != nil {
		errs = append(errs, fmt.Errorf("authority rules: %w", err))
	}

	return errs
}
