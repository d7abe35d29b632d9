// Package synthesis combines the full specialist finding set into one
// verdict. Three strategies are tried in order, each a complete
// degradation tier: a high-capability reasoning backend, a smaller local
// backend with the same contract, and a deterministic rule-based scorer.
// The fallback controller decides when to retry and when to escalate.
package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kernowlab/triage/internal/llm"
	"github.com/kernowlab/triage/internal/metrics"
	"github.com/kernowlab/triage/internal/models"
)

// Config holds the synthesizer's static settings.
type Config struct {
	// ActionableThreshold and BenignThreshold parameterize the
	// rule-based tier.
	ActionableThreshold float64
	BenignThreshold     float64
	// RetryBackoff is the fixed pause before the single same-tier retry.
	RetryBackoff time.Duration
	// SecondaryConfidenceCap bounds confidence claimed by the secondary
	// tier, which reasons with a smaller model.
	SecondaryConfidenceCap float64
}

// Synthesizer owns the three tiers. Client handles are process-wide,
// initialize-once, read-only resources passed in at construction; the
// synthesizer itself holds no per-request state.
type Synthesizer struct {
	primary   llm.Client
	secondary llm.Client
	rules     *RuleEngine
	cfg       Config
	logger    *zap.Logger

	// OnEscalation, when set, is notified as tiers are abandoned. It
	// must not block.
	OnEscalation func(from, to models.Strategy)
}

// New creates a synthesizer. Either backend client may be nil, in which
// case its tier is skipped as unavailable. The rule-based tier is
// validated here: a defective rule configuration is fatal at startup.
func New(primary, secondary llm.Client, cfg Config, logger *zap.Logger) (*Synthesizer, error) {
	rules := &RuleEngine{
		ActionableThreshold: cfg.ActionableThreshold,
		BenignThreshold:     cfg.BenignThreshold,
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rule-based tier misconfigured: %w", err)
	}
	if cfg.SecondaryConfidenceCap <= 0 {
		cfg.SecondaryConfidenceCap = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		primary:   primary,
		secondary: secondary,
		rules:     rules,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Synthesize produces the final verdict for an alert from its findings
// and authority weights. The returned error is non-nil only when every
// tier failed fatally, which indicates a configuration defect; the
// reasoning tiers degrade, they do not fail the call.
func (s *Synthesizer) Synthesize(ctx context.Context, alert models.Alert, findings []models.SpecialistFinding, weights map[models.Domain]float64) (models.SynthesisResult, error) {
	if err := s.rules.Validate(); err != nil {
		return models.SynthesisResult{}, fmt.Errorf("rule-based tier misconfigured: %w", err)
	}

	fc := NewController(s.cfg.RetryBackoff)
	for fc.State() != StateDone {
		state := fc.State()
		result, err := s.attempt(ctx, state, alert, findings, weights)
		if err == nil {
			fc.Succeed()
			result.Strategy = state.Strategy()
			result.FallbackUsed = state != StatePrimary
			return result, nil
		}

		kind := Classify(err)
		s.logger.Warn("synthesis tier failed",
			zap.String("tier", state.String()),
			zap.String("alert", alert.Name),
			zap.Error(err))

		decision := fc.Fail(kind)
		if decision.Retry {
			select {
			case <-time.After(decision.Backoff):
			case <-ctx.Done():
				fc.Fail(FailureUnavailable)
			}
			continue
		}
		metrics.FallbackEscalations.WithLabelValues(state.String(), fc.State().String()).Inc()
		if s.OnEscalation != nil && fc.State() <= StateRuleBased {
			s.OnEscalation(state.Strategy(), fc.State().Strategy())
		}
	}

	// The ladder ran past rule-based without a result; only reachable
	// through a defect, since the rule tier cannot fail at runtime.
	return models.SynthesisResult{}, errors.New("all synthesis tiers failed")
}

var errTierUnavailable = fmt.Errorf("tier not configured: %w", llm.ErrUnavailable)

func (s *Synthesizer) attempt(ctx context.Context, state State, alert models.Alert, findings []models.SpecialistFinding, weights map[models.Domain]float64) (models.SynthesisResult, error) {
	switch state {
	case StatePrimary:
		if s.primary == nil {
			return models.SynthesisResult{}, errTierUnavailable
		}
		return s.completeTier(ctx, s.primary, alert, findings, weights, 1)
	case StateSecondary:
		if s.secondary == nil {
			return models.SynthesisResult{}, errTierUnavailable
		}
		return s.completeTier(ctx, s.secondary, alert, findings, weights, s.cfg.SecondaryConfidenceCap)
	default:
		return s.rules.Synthesize(alert, findings, weights), nil
	}
}

// verdictOutput is the structured verdict expected from a reasoning tier.
type verdictOutput struct {
	Verdict         string  `json:"verdict"`
	Confidence      float64 `json:"confidence"`
	Synthesis       string  `json:"synthesis"`
	SuggestedAction string  `json:"suggested_action"`
}

const synthesisPrompt = `You are synthesizing findings from multiple specialist agents investigating an alert.

Weight each finding by the domain authority weight given with it. Findings
with status ERROR or TIMEOUT carry no evidence and count as low-confidence
signals only.

Output JSON with:
- verdict: ACTIONABLE (needs fix), BENIGN (no action needed), INCONCLUSIVE (needs more investigation)
- confidence: 0.0-1.0
- synthesis: brief explanation of the root cause
- suggested_action: specific next step if actionable, else empty string`

func (s *Synthesizer) completeTier(ctx context.Context, client llm.Client, alert models.Alert, findings []models.SpecialistFinding, weights map[models.Domain]float64, confidenceCap float64) (models.SynthesisResult, error) {
	start := time.Now()
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: synthesisPrompt},
			{Role: "user", Content: findingsMessage(alert, findings, weights)},
		},
		MaxTokens:   500,
		Temperature: 0.2,
		JSONOutput:  true,
	})
	metrics.LLMRequestDuration.WithLabelValues(client.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(client.Name(), statusLabel(err)).Inc()
		return models.SynthesisResult{}, err
	}
	metrics.LLMRequestsTotal.WithLabelValues(client.Name(), "ok").Inc()

	var out verdictOutput
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &out); err != nil {
		return models.SynthesisResult{}, fmt.Errorf("%w: %v", llm.ErrMalformedOutput, err)
	}

	verdict := models.Verdict(out.Verdict)
	switch verdict {
	case models.VerdictActionable, models.VerdictBenign, models.VerdictInconclusive:
	default:
		return models.SynthesisResult{}, fmt.Errorf("%w: unknown verdict %q", llm.ErrMalformedOutput, out.Verdict)
	}

	confidence := out.Confidence
	if confidence < 0 || confidence > 1 {
		return models.SynthesisResult{}, fmt.Errorf("%w: confidence %v out of range", llm.ErrMalformedOutput, out.Confidence)
	}
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	return models.SynthesisResult{
		Verdict:         verdict,
		Confidence:      confidence,
		Synthesis:       out.Synthesis,
		SuggestedAction: out.SuggestedAction,
	}, nil
}

// findingsMessage renders the full finding set, including failed slots,
// with their weights, in deterministic domain order.
func findingsMessage(alert models.Alert, findings []models.SpecialistFinding, weights map[models.Domain]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert: %s (%s)\n", alert.Name, alert.Severity)
	if alert.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", alert.Description)
	}
	b.WriteString("\nSpecialist findings:\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "\n**%s** (weight: %.2f)\nStatus: %s\nSummary: %s\n",
			strings.ToUpper(string(f.Domain)), weights[f.Domain], f.Status, orNone(f.Summary))
		if f.Status == models.StatusOK {
			fmt.Fprintf(&b, "Confidence: %.2f\n", f.Confidence)
		}
		if len(f.Evidence) > 0 {
			fmt.Fprintf(&b, "Evidence: %s\n", excerptJoined(f.Evidence, 200))
		}
		if f.Recommendation != "" {
			fmt.Fprintf(&b, "Recommendation: %s\n", f.Recommendation)
		}
	}
	b.WriteString("\nSynthesize these findings into a final verdict and action.\n")
	return b.String()
}

func statusLabel(err error) string {
	switch Classify(err) {
	case FailureRateLimited:
		return "rate_limited"
	case FailureUnavailable:
		return "unavailable"
	default:
		if errors.Is(err, llm.ErrMalformedOutput) {
			return "malformed"
		}
		return "error"
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func excerptJoined(parts []string, limit int) string {
	joined := strings.Join(parts, " | ")
	if len(joined) <= limit {
		return joined
	}
	return joined[:limit]
}
