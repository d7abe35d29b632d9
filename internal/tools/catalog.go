package tools

import (
	"context"
	"fmt"

	"github.com/kernowlab/triage/internal/models"
	"github.com/kernowlab/triage/internal/metrics"
)

// Spec describes one tool available through a bridge service.
type Spec struct {
	Name         string
	Service      string // bridge service that provides the tool
	RequiredArgs []string
	OptionalArgs []string
	RiskLevel    string // low, medium, high; investigation tools are all read-only/low
	Description  string
}

// catalog is the closed registry of query tools visible to specialists.
// Action tools (restarts, scaling, deletes) are deliberately absent: an
// investigation only observes.
var catalog = map[string]Spec{
	"kubectl_get_pods": {
		Name: "kubectl_get_pods", Service: "infrastructure",
		RequiredArgs: []string{"namespace"}, OptionalArgs: []string{"name", "label_selector"},
		RiskLevel: "low", Description: "List pods in a namespace",
	},
	"kubectl_get_events": {
		Name: "kubectl_get_events", Service: "infrastructure",
		RequiredArgs: []string{"namespace"}, OptionalArgs: []string{"field_selector", "limit"},
		RiskLevel: "low", Description: "Get Kubernetes events",
	},
	"kubectl_logs": {
		Name: "kubectl_logs", Service: "infrastructure",
		RequiredArgs: []string{"namespace", "pod"}, OptionalArgs: []string{"container", "tail"},
		RiskLevel: "low", Description: "Get pod logs",
	},
	"kubectl_get_services": {
		Name: "kubectl_get_services", Service: "infrastructure",
		RequiredArgs: []string{"namespace"}, OptionalArgs: []string{"name"},
		RiskLevel: "low", Description: "List services in a namespace",
	},
	"kubectl_get_deployments": {
		Name: "kubectl_get_deployments", Service: "infrastructure",
		RequiredArgs: []string{"namespace"},
		RiskLevel:    "low", Description: "List deployments in a namespace",
	},
	"kubectl_get_ingresses": {
		Name: "kubectl_get_ingresses", Service: "infrastructure",
		RequiredArgs: []string{"namespace"},
		RiskLevel:    "low", Description: "List ingresses in a namespace",
	},
	"list_secrets": {
		Name: "list_secrets", Service: "infrastructure",
		RequiredArgs: []string{"path"},
		RiskLevel:    "low", Description: "List secret names under a path (names only, no values)",
	},
	"query_metrics_instant": {
		Name: "query_metrics_instant", Service: "observability",
		RequiredArgs: []string{"query"}, OptionalArgs: []string{"time"},
		RiskLevel: "low", Description: "Run an instant PromQL query",
	},
	"list_alerts": {
		Name: "list_alerts", Service: "observability",
		RiskLevel: "low", Description: "List currently firing alerts",
	},
	"coroot_get_recent_anomalies": {
		Name: "coroot_get_recent_anomalies", Service: "observability",
		RiskLevel: "low", Description: "Get recently detected service anomalies",
	},
	"adguard_list_rewrites": {
		Name: "adguard_list_rewrites", Service: "home",
		RiskLevel: "low", Description: "List DNS rewrite rules",
	},
	"adguard_get_query_log": {
		Name: "adguard_get_query_log", Service: "home",
		OptionalArgs: []string{"search", "limit"},
		RiskLevel:    "low", Description: "Get recent DNS query log entries",
	},
	"search_runbooks": {
		Name: "search_runbooks", Service: "knowledge",
		RequiredArgs: []string{"query"},
		RiskLevel:    "low", Description: "Search operational runbooks",
	},
	"search_entities": {
		Name: "search_entities", Service: "knowledge",
		RequiredArgs: []string{"query"},
		RiskLevel:    "low", Description: "Search the infrastructure knowledge graph",
	},
}

// Lookup returns the catalog entry for a tool name.
func Lookup(name string) (Spec, bool) {
	spec, ok := catalog[name]
	return spec, ok
}

// domainTools scopes each specialist domain to its bounded capability set.
var domainTools = map[models.Domain][]string{
	models.DomainPlatform: {
		"kubectl_get_pods", "kubectl_get_events", "kubectl_logs", "kubectl_get_deployments",
	},
	models.DomainNetwork: {
		"adguard_list_rewrites", "adguard_get_query_log",
		"kubectl_get_services", "kubectl_get_ingresses", "kubectl_get_deployments",
	},
	models.DomainSecurity: {
		"list_secrets", "kubectl_get_events",
	},
	models.DomainReliability: {
		"query_metrics_instant", "list_alerts", "coroot_get_recent_anomalies",
	},
	models.DomainDataLayer: {
		"search_entities", "search_runbooks",
	},
}

// Capabilities is the bounded set of tools one specialist may call.
// Calls outside the set or with missing required arguments are rejected
// before they reach the bridge.
type Capabilities struct {
	domain  models.Domain
	bridge  *Bridge
	allowed map[string]Spec
}

// CapabilitiesFor builds the capability set for a specialist domain.
func CapabilitiesFor(domain models.Domain, bridge *Bridge) *Capabilities {
	allowed := make(map[string]Spec)
	for _, name := range domainTools[domain] {
		if spec, ok := catalog[name]; ok {
			allowed[name] = spec
		}
	}
	return &Capabilities{domain: domain, bridge: bridge, allowed: allowed}
}

// Names returns the tool names visible to this capability set.
func (c *Capabilities) Names() []string {
	names := make([]string, 0, len(c.allowed))
	for _, name := range domainTools[c.domain] {
		if _, ok := c.allowed[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Call validates the tool against this domain's capability set and
// forwards it to the bridge.
func (c *Capabilities) Call(ctx context.Context, tool string, args map[string]interface{}) (*Result, error) {
	spec, ok := c.allowed[tool]
	if !ok {
		return nil, fmt.Errorf("tool %q is not available to the %s specialist", tool, c.domain)
	}
	for _, required := range spec.RequiredArgs {
		if _, present := args[required]; !present {
			return nil, fmt.Errorf("tool %q: missing required argument %q", tool, required)
		}
	}
	if c.bridge == nil {
		return nil, fmt.Errorf("tool %q: no bridge configured", tool)
	}

	result, err := c.bridge.Call(ctx, spec.Service, tool, args)
	status := "success"
	if err != nil || !result.OK() {
		status = "error"
	}
	metrics.ToolCalls.WithLabelValues(string(c.domain), tool, status).Inc()
	return result, err
}
