package models

// Package models defines the core data types shared by the triage service:
// alerts, specialist findings, synthesis results, and the request/response
// pair of the investigate operation.

import "fmt"

// Severity classifies how urgent an alert is at the source.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an incoming alert as delivered by the monitoring stack.
// It is immutable once received.
type Alert struct {
	Name        string            `json:"name"`
	Labels      map[string]string `json:"labels,omitempty"`
	Severity    Severity          `json:"severity"`
	Description string            `json:"description,omitempty"`
}

// Label returns the value of a label, or "" when absent.
func (a Alert) Label(key string) string {
	return a.Labels[key]
}

// InvestigationRequest is the inbound payload of the investigate operation.
// RequestID is caller-supplied and used for correlation only.
type InvestigationRequest struct {
	RequestID string `json:"request_id"`
	Alert     Alert  `json:"alert"`
}

// Validate rejects malformed requests before any dispatch work begins.
func (r *InvestigationRequest) Validate() error {
	if r.Alert.Name == "" {
		return fmt.Errorf("alert name is required")
	}
	return nil
}
