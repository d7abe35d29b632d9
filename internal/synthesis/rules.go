package synthesis

// rules.go: the deterministic rule-based synthesis tier. No reasoning
// backend involved: a normalized weighted average over the OK findings
// with fixed verdict thresholds. This tier cannot fail at runtime; its
// only failure mode is a configuration defect caught by Validate.

import (
	"fmt"
	"strings"

	"github.com/kernowlab/triage/internal/models"
)

// RuleEngine holds the rule-based tier's thresholds.
type RuleEngine struct {
	// ActionableThreshold: ACTIONABLE when weighted confidence >= it.
	ActionableThreshold float64
	// BenignThreshold: BENIGN when weighted confidence <= it.
	BenignThreshold float64
}

// Validate catches configuration defects. A broken rule engine means the
// system cannot produce even a degraded answer, so this is checked at
// startup, not per request.
func (e *RuleEngine) Validate() error {
	if e.ActionableThreshold <= 0 || e.ActionableThreshold > 1 {
		return fmt.Errorf("actionable threshold %v out of range (0,1]", e.ActionableThreshold)
	}
	if e.BenignThreshold < 0 || e.BenignThreshold >= 1 {
		return fmt.Errorf("benign threshold %v out of range [0,1)", e.BenignThreshold)
	}
	if e.BenignThreshold >= e.ActionableThreshold {
		return fmt.Errorf("benign threshold %v must be below actionable threshold %v",
			e.BenignThreshold, e.ActionableThreshold)
	}
	return nil
}

// Synthesize computes the deterministic verdict. ERROR and TIMEOUT
// findings are excluded from both numerator and denominator; with no OK
// findings at all the verdict is INCONCLUSIVE with confidence 0.
func (e *RuleEngine) Synthesize(alert models.Alert, findings []models.SpecialistFinding, weights map[models.Domain]float64) models.SynthesisResult {
	var weightedSum, totalWeight float64
	okCount := 0
	var summaries, recommendations []string

	for _, f := range findings {
		if f.Status != models.StatusOK {
			continue
		}
		okCount++
		w := weights[f.Domain]
		weightedSum += w * f.Confidence
		totalWeight += w
		if f.Summary != "" {
			summaries = append(summaries, fmt.Sprintf("%s: %s", f.Domain, f.Summary))
		}
		if f.Recommendation != "" {
			recommendations = append(recommendations, f.Recommendation)
		}
	}

	if okCount == 0 || totalWeight == 0 {
		return models.SynthesisResult{
			Verdict:    models.VerdictInconclusive,
			Confidence: 0,
			Synthesis: fmt.Sprintf("No specialist completed an assessment of alert %q; %s",
				alert.Name, heuristicNote(alert)),
			SuggestedAction: heuristicAction(alert),
			Strategy:        models.StrategyRuleBased,
		}
	}

	confidence := weightedSum / totalWeight

	var verdict models.Verdict
	switch {
	case confidence >= e.ActionableThreshold:
		verdict = models.VerdictActionable
	case confidence <= e.BenignThreshold:
		verdict = models.VerdictBenign
	default:
		verdict = models.VerdictInconclusive
	}

	synthesis := strings.Join(truncateSlice(summaries, 3), "; ")
	if synthesis == "" {
		synthesis = fmt.Sprintf("Alert %q investigated by %d specialists; %s",
			alert.Name, okCount, heuristicNote(alert))
	}

	action := ""
	if len(recommendations) > 0 {
		action = recommendations[0]
	} else if verdict == models.VerdictActionable {
		action = heuristicAction(alert)
	}

	return models.SynthesisResult{
		Verdict:         verdict,
		Confidence:      confidence,
		Synthesis:       synthesis,
		SuggestedAction: action,
		Strategy:        models.StrategyRuleBased,
	}
}

// Pattern tables for the heuristic text fallback, used only when no
// specialist produced usable summaries or recommendations.
var (
	criticalPatterns = []string{
		"oom", "crashloop", "down", "failed", "error", "critical",
		"disk", "full", "exhausted", "unreachable", "timeout",
	}
	warningPatterns = []string{
		"high", "elevated", "slow", "latency", "pending", "degraded",
	}
	noisePatterns = []string{
		"info", "resolved", "cleared", "recovered", "normal",
	}
)

func heuristicNote(alert models.Alert) string {
	name := strings.ToLower(alert.Name)
	switch {
	case matchesAny(name, criticalPatterns) || alert.Severity == models.SeverityCritical:
		return "alert name matches critical patterns, manual review recommended"
	case matchesAny(name, warningPatterns) || alert.Severity == models.SeverityWarning:
		return "alert may indicate a developing issue"
	case matchesAny(name, noisePatterns) || alert.Severity == models.SeverityInfo:
		return "alert appears informational"
	default:
		return "no classification patterns matched"
	}
}

func heuristicAction(alert models.Alert) string {
	name := strings.ToLower(alert.Name)
	switch {
	case matchesAny(name, criticalPatterns) || alert.Severity == models.SeverityCritical:
		return "Check pod and service status and recent events"
	case matchesAny(name, warningPatterns):
		return "Review metrics and logs for the affected component"
	default:
		return ""
	}
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func truncateSlice(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
