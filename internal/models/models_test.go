package models

import (
	"testing"
)

func TestInvestigationRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     InvestigationRequest
		wantErr bool
	}{
		{
			name: "valid minimal request",
			req: InvestigationRequest{
				Alert: Alert{Name: "KubePodCrashLooping"},
			},
		},
		{
			name: "valid full request",
			req: InvestigationRequest{
				RequestID: "req-1",
				Alert: Alert{
					Name:        "HighErrorRate",
					Severity:    SeverityCritical,
					Labels:      map[string]string{"namespace": "prod"},
					Description: "5xx rate above threshold",
				},
			},
		},
		{
			name:    "missing alert name",
			req:     InvestigationRequest{Alert: Alert{Severity: SeverityWarning}},
			wantErr: true,
		},
		{
			name:    "empty request",
			req:     InvestigationRequest{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAlertLabel(t *testing.T) {
	a := Alert{Labels: map[string]string{"namespace": "prod", "service": "api"}}
	if got := a.Label("namespace"); got != "prod" {
		t.Errorf("Label(namespace) = %q, want prod", got)
	}
	if got := a.Label("missing"); got != "" {
		t.Errorf("Label(missing) = %q, want empty", got)
	}

	var empty Alert
	if got := empty.Label("any"); got != "" {
		t.Errorf("Label on nil map = %q, want empty", got)
	}
}

func TestDomainsCanonicalOrder(t *testing.T) {
	domains := Domains()
	if len(domains) != 5 {
		t.Fatalf("Domains() returned %d domains, want 5", len(domains))
	}
	// Sorted lexically so responses render deterministically.
	for i := 1; i < len(domains); i++ {
		if domains[i-1] >= domains[i] {
			t.Errorf("Domains() not sorted at index %d: %s >= %s", i, domains[i-1], domains[i])
		}
	}
	for _, d := range domains {
		if !IsValidDomain(d) {
			t.Errorf("canonical domain %s not valid", d)
		}
	}
	if IsValidDomain("storage") {
		t.Error("IsValidDomain accepted unknown domain")
	}
}

func TestSyntheticFindings(t *testing.T) {
	ef := ErrorFinding(DomainSecurity, "backend exploded")
	if ef.Domain != DomainSecurity || ef.Status != StatusError {
		t.Errorf("ErrorFinding = %+v", ef)
	}
	if ef.Confidence != 0 {
		t.Errorf("ErrorFinding confidence = %v, want 0", ef.Confidence)
	}
	if ef.Summary == "" {
		t.Error("ErrorFinding should carry a diagnostic summary")
	}

	tf := TimeoutFinding(DomainNetwork)
	if tf.Domain != DomainNetwork || tf.Status != StatusTimeout {
		t.Errorf("TimeoutFinding = %+v", tf)
	}
	if tf.Confidence != 0 {
		t.Errorf("TimeoutFinding confidence = %v, want 0", tf.Confidence)
	}
}
