package models

// Domain identifies one of the fixed specialist domains. The set is closed
// and known at build time; Domains() returns it in its canonical order.
type Domain string

const (
	DomainDataLayer   Domain = "datalayer"
	DomainNetwork     Domain = "network"
	DomainPlatform    Domain = "platform"
	DomainReliability Domain = "reliability"
	DomainSecurity    Domain = "security"
)

// Domains returns all specialist domains sorted by identifier. Findings are
// always rendered in this order so downstream weighting and logging are
// deterministic regardless of completion order.
func Domains() []Domain {
	return []Domain{
		DomainDataLayer,
		DomainNetwork,
		DomainPlatform,
		DomainReliability,
		DomainSecurity,
	}
}

// IsValidDomain reports whether d names a configured specialist domain.
func IsValidDomain(d Domain) bool {
	for _, known := range Domains() {
		if d == known {
			return true
		}
	}
	return false
}

// FindingStatus is the outcome class of one specialist investigation.
type FindingStatus string

const (
	StatusOK      FindingStatus = "OK"
	StatusError   FindingStatus = "ERROR"
	StatusTimeout FindingStatus = "TIMEOUT"
)

// SpecialistFinding is the structured result of one specialist's
// investigation of an alert. Produced exactly once per specialist per
// request and never mutated after creation. Confidence is 0 whenever
// Status is not OK.
type SpecialistFinding struct {
	Domain         Domain        `json:"domain"`
	Status         FindingStatus `json:"status"`
	Summary        string        `json:"summary"`
	Confidence     float64       `json:"confidence"`
	Evidence       []string      `json:"evidence,omitempty"`
	Recommendation string        `json:"recommendation,omitempty"`
	ToolsUsed      []string      `json:"tools_used,omitempty"`
	LatencyMS      int64         `json:"latency_ms"`
}

// ErrorFinding builds the synthetic finding used when a specialist fails
// outright. The diagnostic goes into Summary so it survives into the
// response.
func ErrorFinding(domain Domain, diagnostic string) SpecialistFinding {
	return SpecialistFinding{
		Domain:  domain,
		Status:  StatusError,
		Summary: diagnostic,
	}
}

// TimeoutFinding builds the synthetic finding for a specialist still
// running when the dispatch deadline elapsed.
func TimeoutFinding(domain Domain) SpecialistFinding {
	return SpecialistFinding{
		Domain:  domain,
		Status:  StatusTimeout,
		Summary: "specialist did not complete before the dispatch deadline",
	}
}
