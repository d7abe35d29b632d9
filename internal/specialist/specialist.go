// Package specialist implements the domain-scoped reasoning agents that
// investigate one facet of an alert each. A specialist gathers evidence
// through its bounded tool capability set, asks the reasoning backend for
// an assessment, and returns a structured finding. It never returns an
// error to its caller: every internal failure is absorbed into a finding
// with status ERROR. Timing is the dispatcher's responsibility; the
// specialist imposes no deadline of its own but honors ctx cancellation.
package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kernowlab/triage/internal/llm"
	"github.com/kernowlab/triage/internal/metrics"
	"github.com/kernowlab/triage/internal/models"
	"github.com/kernowlab/triage/internal/tools"
)

// Agent is the capability interface every specialist implements. The set
// of implementations is closed and resolved through a static mapping from
// domain identifier to gatherer and prompt.
type Agent interface {
	Domain() models.Domain
	Investigate(ctx context.Context, alert models.Alert) models.SpecialistFinding
}

// gatherFunc collects domain evidence for an alert. It returns text
// excerpts and the names of the tools it called; individual tool failures
// are skipped, not fatal.
type gatherFunc func(ctx context.Context, caps *tools.Capabilities, alert models.Alert) (evidence, toolsUsed []string)

// Specialist is one domain-scoped reasoning agent.
type Specialist struct {
	domain models.Domain
	client llm.Client
	caps   *tools.Capabilities
	gather gatherFunc
	prompt string
	logger *zap.Logger
}

var _ Agent = (*Specialist)(nil)

// New builds the specialist for one domain.
func New(domain models.Domain, client llm.Client, bridge *tools.Bridge, logger *zap.Logger) (*Specialist, error) {
	gather, ok := gatherers[domain]
	if !ok {
		return nil, fmt.Errorf("unknown specialist domain %q", domain)
	}
	prompt, ok := prompts[domain]
	if !ok {
		return nil, fmt.Errorf("no prompt for specialist domain %q", domain)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Specialist{
		domain: domain,
		client: client,
		caps:   tools.CapabilitiesFor(domain, bridge),
		gather: gather,
		prompt: prompt,
		logger: logger.With(zap.String("domain", string(domain))),
	}, nil
}

// NewAll builds the full closed set of specialists in canonical order.
func NewAll(client llm.Client, bridge *tools.Bridge, logger *zap.Logger) ([]Agent, error) {
	agents := make([]Agent, 0, len(models.Domains()))
	for _, domain := range models.Domains() {
		sp, err := New(domain, client, bridge, logger)
		if err != nil {
			return nil, err
		}
		agents = append(agents, sp)
	}
	return agents, nil
}

// Domain implements Agent.
func (s *Specialist) Domain() models.Domain { return s.domain }

// Investigate implements Agent. It always returns a finding for its
// domain, stamped with the elapsed time.
func (s *Specialist) Investigate(ctx context.Context, alert models.Alert) models.SpecialistFinding {
	start := time.Now()
	finding := s.investigate(ctx, alert)
	finding.Domain = s.domain
	finding.LatencyMS = time.Since(start).Milliseconds()

	metrics.SpecialistFindings.WithLabelValues(string(s.domain), string(finding.Status)).Inc()
	metrics.SpecialistDuration.WithLabelValues(string(s.domain)).Observe(time.Since(start).Seconds())
	return finding
}

func (s *Specialist) investigate(ctx context.Context, alert models.Alert) models.SpecialistFinding {
	evidence, toolsUsed := s.gather(ctx, s.caps, alert)

	if err := ctx.Err(); err != nil {
		finding := models.ErrorFinding(s.domain, fmt.Sprintf("investigation cancelled: %v", err))
		finding.ToolsUsed = toolsUsed
		return finding
	}

	analysis, err := s.analyze(ctx, alert, evidence)
	if err != nil {
		s.logger.Warn("specialist analysis failed", zap.String("alert", alert.Name), zap.Error(err))
		finding := models.ErrorFinding(s.domain, fmt.Sprintf("analysis failed: %v", err))
		finding.Evidence = evidence
		finding.ToolsUsed = toolsUsed
		return finding
	}

	return models.SpecialistFinding{
		Status:         models.StatusOK,
		Summary:        analysis.Summary,
		Confidence:     clamp01(analysis.Confidence),
		Evidence:       evidence,
		Recommendation: analysis.Recommendation,
		ToolsUsed:      toolsUsed,
	}
}

// analysis is the structured assessment expected back from the backend.
type analysis struct {
	Summary        string  `json:"summary"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

func (s *Specialist) analyze(ctx context.Context, alert models.Alert, evidence []string) (*analysis, error) {
	if s.client == nil {
		return nil, fmt.Errorf("no reasoning backend configured: %w", llm.ErrUnavailable)
	}

	evidenceText := "No domain data available"
	if len(evidence) > 0 {
		evidenceText = strings.Join(evidence, "\n\n")
	}

	user := fmt.Sprintf(`Alert: %s
Severity: %s
Labels: %s
Description: %s

Evidence from investigation:
%s

Analyze this alert and provide your assessment.`,
		alert.Name, alert.Severity, formatLabels(alert.Labels), orNA(alert.Description), evidenceText)

	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: s.prompt},
			{Role: "user", Content: user},
		},
		MaxTokens:   500,
		Temperature: 0.3,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	var result analysis
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedOutput, err)
	}
	if result.Summary == "" {
		return nil, fmt.Errorf("%w: assessment missing summary", llm.ErrMalformedOutput)
	}
	return &result, nil
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "{}"
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// stripFences removes a markdown code fence wrapper some models emit
// around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
