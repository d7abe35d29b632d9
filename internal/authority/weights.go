// Package authority holds the static weighting table that tells synthesis
// how much trust each specialist domain carries for a given alert
// category. The table is pure lookup: loaded at process start, read-only
// thereafter, no behavior beyond resolution.
package authority

import (
	"fmt"

	"github.com/kernowlab/triage/internal/models"
)

// UniformWeight is the per-domain weight used when no rule matches.
const UniformWeight = 1.0

// Rule maps one alert category to per-domain weights. A rule matches
// either by exact alert name or by label subset; exactly one of Alert and
// MatchLabels must be set.
type Rule struct {
	// Alert matches alert.Name exactly when non-empty.
	Alert string `mapstructure:"alert"`
	// MatchLabels matches when every key=value pair is present in the
	// alert's labels.
	MatchLabels map[string]string `mapstructure:"match_labels"`
	// Weights are non-negative per-domain weights. Domains absent from
	// the map get weight 0 for this category. Weights need not sum to 1;
	// the synthesizer normalizes at use time.
	Weights map[models.Domain]float64 `mapstructure:"weights"`
}

// Table resolves an alert to its per-domain authority weights.
type Table struct {
	byName     map[string]Rule
	labelRules []Rule // evaluated in configuration order
}

// NewTable validates the rule set and builds the lookup table.
func NewTable(rules []Rule) (*Table, error) {
	t := &Table{byName: make(map[string]Rule)}
	for i, rule := range rules {
		switch {
		case rule.Alert != "" && len(rule.MatchLabels) > 0:
			return nil, fmt.Errorf("rule %d: alert and match_labels are mutually exclusive", i)
		case rule.Alert == "" && len(rule.MatchLabels) == 0:
			return nil, fmt.Errorf("rule %d: one of alert or match_labels is required", i)
		case len(rule.Weights) == 0:
			return nil, fmt.Errorf("rule %d: weights are required", i)
		}
		for domain, w := range rule.Weights {
			if !models.IsValidDomain(domain) {
				return nil, fmt.Errorf("rule %d: unknown domain %q", i, domain)
			}
			if w < 0 {
				return nil, fmt.Errorf("rule %d: negative weight for %s", i, domain)
			}
		}
		if rule.Alert != "" {
			if _, dup := t.byName[rule.Alert]; dup {
				return nil, fmt.Errorf("rule %d: duplicate rule for alert %q", i, rule.Alert)
			}
			t.byName[rule.Alert] = rule
		} else {
			t.labelRules = append(t.labelRules, rule)
		}
	}
	return t, nil
}

// WeightsFor resolves the authority weights for an alert. Resolution
// order: exact name match, then the first label rule whose selector is a
// subset of the alert's labels, then the uniform default.
func (t *Table) WeightsFor(alert models.Alert) map[models.Domain]float64 {
	if rule, ok := t.byName[alert.Name]; ok {
		return expand(rule.Weights)
	}
	for _, rule := range t.labelRules {
		if subsetOf(rule.MatchLabels, alert.Labels) {
			return expand(rule.Weights)
		}
	}
	return Uniform()
}

// Uniform returns the default table: every domain at equal weight.
func Uniform() map[models.Domain]float64 {
	weights := make(map[models.Domain]float64, len(models.Domains()))
	for _, d := range models.Domains() {
		weights[d] = UniformWeight
	}
	return weights
}

// expand copies rule weights, filling unmentioned domains with 0 so the
// returned map always covers every configured domain.
func expand(weights map[models.Domain]float64) map[models.Domain]float64 {
	out := make(map[models.Domain]float64, len(models.Domains()))
	for _, d := range models.Domains() {
		out[d] = weights[d]
	}
	return out
}

func subsetOf(selector, labels map[string]string) bool {
	for key, want := range selector {
		if labels[key] != want {
			return false
		}
	}
	return true
}
