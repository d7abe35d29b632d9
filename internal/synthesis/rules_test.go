package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernowlab/triage/internal/models"
)

func defaultRules() *RuleEngine {
	return &RuleEngine{ActionableThreshold: 0.6, BenignThreshold: 0.3}
}

func uniformWeights() map[models.Domain]float64 {
	w := make(map[models.Domain]float64)
	for _, d := range models.Domains() {
		w[d] = 1.0
	}
	return w
}

func okFinding(domain models.Domain, confidence float64) models.SpecialistFinding {
	return models.SpecialistFinding{
		Domain:     domain,
		Status:     models.StatusOK,
		Summary:    "assessment from " + string(domain),
		Confidence: confidence,
	}
}

func TestRuleEngineValidate(t *testing.T) {
	assert.NoError(t, defaultRules().Validate())
	assert.Error(t, (&RuleEngine{ActionableThreshold: 0, BenignThreshold: 0.3}).Validate())
	assert.Error(t, (&RuleEngine{ActionableThreshold: 1.2, BenignThreshold: 0.3}).Validate())
	assert.Error(t, (&RuleEngine{ActionableThreshold: 0.6, BenignThreshold: -0.1}).Validate())
	assert.Error(t, (&RuleEngine{ActionableThreshold: 0.3, BenignThreshold: 0.6}).Validate())
}

func TestSynthesizeEqualWeightsIsPlainMean(t *testing.T) {
	findings := []models.SpecialistFinding{
		okFinding(models.DomainPlatform, 0.9),
		okFinding(models.DomainNetwork, 0.5),
		okFinding(models.DomainSecurity, 0.7),
	}

	result := defaultRules().Synthesize(models.Alert{Name: "X"}, findings, uniformWeights())

	assert.InDelta(t, (0.9+0.5+0.7)/3, result.Confidence, 1e-9)
	assert.Equal(t, models.VerdictActionable, result.Verdict)
	assert.Equal(t, models.StrategyRuleBased, result.Strategy)
}

func TestSynthesizeExcludesFailedFindings(t *testing.T) {
	// The property from the fallback scenario: security errored, the four
	// others report 0.4 under uniform weights. The weighted confidence is
	// exactly 0.4 and the verdict BENIGN; the ERROR slot influences
	// nothing.
	findings := []models.SpecialistFinding{
		models.ErrorFinding(models.DomainSecurity, "backend down"),
		okFinding(models.DomainPlatform, 0.4),
		okFinding(models.DomainNetwork, 0.4),
		okFinding(models.DomainReliability, 0.4),
		okFinding(models.DomainDataLayer, 0.4),
	}

	result := defaultRules().Synthesize(models.Alert{Name: "X"}, findings, uniformWeights())

	assert.InDelta(t, 0.4, result.Confidence, 1e-9)
	assert.Equal(t, models.VerdictBenign, result.Verdict)
}

func TestSynthesizeWeighting(t *testing.T) {
	findings := []models.SpecialistFinding{
		okFinding(models.DomainPlatform, 0.9),
		okFinding(models.DomainNetwork, 0.1),
	}
	weights := map[models.Domain]float64{
		models.DomainPlatform: 3.0,
		models.DomainNetwork:  1.0,
	}

	result := defaultRules().Synthesize(models.Alert{Name: "X"}, findings, weights)

	assert.InDelta(t, (3.0*0.9+1.0*0.1)/4.0, result.Confidence, 1e-9)
	assert.Equal(t, models.VerdictActionable, result.Verdict)
}

func TestSynthesizeThresholdBoundaries(t *testing.T) {
	engine := defaultRules()
	w := uniformWeights()

	// Exactly at the actionable threshold is ACTIONABLE.
	result := engine.Synthesize(models.Alert{Name: "X"},
		[]models.SpecialistFinding{okFinding(models.DomainPlatform, 0.6)}, w)
	assert.Equal(t, models.VerdictActionable, result.Verdict)

	// Exactly at the benign threshold is BENIGN.
	result = engine.Synthesize(models.Alert{Name: "X"},
		[]models.SpecialistFinding{okFinding(models.DomainPlatform, 0.3)}, w)
	assert.Equal(t, models.VerdictBenign, result.Verdict)

	// Between the thresholds is INCONCLUSIVE.
	result = engine.Synthesize(models.Alert{Name: "X"},
		[]models.SpecialistFinding{okFinding(models.DomainPlatform, 0.45)}, w)
	assert.Equal(t, models.VerdictInconclusive, result.Verdict)
}

func TestSynthesizeNoOKFindings(t *testing.T) {
	findings := []models.SpecialistFinding{
		models.ErrorFinding(models.DomainPlatform, "boom"),
		models.TimeoutFinding(models.DomainNetwork),
	}

	result := defaultRules().Synthesize(models.Alert{Name: "TotalOutage"}, findings, uniformWeights())

	assert.Equal(t, models.VerdictInconclusive, result.Verdict)
	assert.Zero(t, result.Confidence)
	assert.NotEmpty(t, result.Synthesis)
}

func TestSynthesizeZeroTotalWeight(t *testing.T) {
	// OK findings whose domains all carry weight zero cannot support a
	// verdict either way.
	findings := []models.SpecialistFinding{okFinding(models.DomainDataLayer, 0.9)}
	weights := map[models.Domain]float64{models.DomainDataLayer: 0}

	result := defaultRules().Synthesize(models.Alert{Name: "X"}, findings, weights)

	assert.Equal(t, models.VerdictInconclusive, result.Verdict)
	assert.Zero(t, result.Confidence)
}

func TestSynthesizeDeterministic(t *testing.T) {
	findings := []models.SpecialistFinding{
		okFinding(models.DomainPlatform, 0.8),
		okFinding(models.DomainReliability, 0.6),
	}
	w := uniformWeights()
	alert := models.Alert{Name: "KubePodCrashLooping", Severity: models.SeverityCritical}

	first := defaultRules().Synthesize(alert, findings, w)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, defaultRules().Synthesize(alert, findings, w))
	}
}

func TestHeuristicTextFallback(t *testing.T) {
	// An actionable verdict with no specialist recommendation still
	// carries a suggested action driven by the alert name patterns.
	findings := []models.SpecialistFinding{
		{Domain: models.DomainPlatform, Status: models.StatusOK, Confidence: 0.9},
	}

	result := defaultRules().Synthesize(
		models.Alert{Name: "ServiceDown", Severity: models.SeverityCritical},
		findings, uniformWeights())

	assert.Equal(t, models.VerdictActionable, result.Verdict)
	assert.NotEmpty(t, result.SuggestedAction)
	assert.NotEmpty(t, result.Synthesis)
}
