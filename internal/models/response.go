package models

// Verdict is the orchestrator's final classification of an alert.
type Verdict string

const (
	VerdictActionable   Verdict = "ACTIONABLE"
	VerdictBenign       Verdict = "BENIGN"
	VerdictInconclusive Verdict = "INCONCLUSIVE"
)

// Strategy names the synthesis tier that produced a result.
type Strategy string

const (
	StrategyPrimary   Strategy = "primary"
	StrategySecondary Strategy = "secondary"
	StrategyRuleBased Strategy = "rule-based"
)

// SynthesisResult is the outcome of combining all specialist findings
// into a single verdict. FallbackUsed is true whenever Strategy is not
// primary.
type SynthesisResult struct {
	Verdict         Verdict  `json:"verdict"`
	Confidence      float64  `json:"confidence"`
	Synthesis       string   `json:"synthesis"`
	SuggestedAction string   `json:"suggested_action,omitempty"`
	FallbackUsed    bool     `json:"fallback_used"`
	Strategy        Strategy `json:"strategy"`
}

// InvestigationResponse is the outbound payload of the investigate
// operation. Findings always contains exactly one entry per configured
// specialist domain, in Domains() order, regardless of failures.
type InvestigationResponse struct {
	RequestID       string              `json:"request_id"`
	Verdict         Verdict             `json:"verdict"`
	Confidence      float64             `json:"confidence"`
	Findings        []SpecialistFinding `json:"findings"`
	Synthesis       string              `json:"synthesis"`
	SuggestedAction string              `json:"suggested_action,omitempty"`
	FallbackUsed    bool                `json:"fallback_used"`
	Strategy        Strategy            `json:"strategy"`
	LatencyMS       int64               `json:"latency_ms"`
}
