package specialist

// domains.go: per-domain evidence gathering.
//
// Each gatherer queries its bounded capability set and collects short
// text excerpts. A failed tool call is skipped; the reasoning backend is
// told whatever evidence survived. The tool name is recorded whether or
// not the call succeeded so findings show what was attempted.

import (
	"context"
	"fmt"
	"strings"

	"github.com/kernowlab/triage/internal/models"
	"github.com/kernowlab/triage/internal/tools"
)

const (
	excerptLimit  = 500
	evidenceLimit = 6
)

var gatherers = map[models.Domain]gatherFunc{
	models.DomainPlatform:    gatherPlatform,
	models.DomainNetwork:     gatherNetwork,
	models.DomainSecurity:    gatherSecurity,
	models.DomainReliability: gatherReliability,
	models.DomainDataLayer:   gatherDataLayer,
}

// collector accumulates evidence excerpts and attempted tool names.
type collector struct {
	caps      *tools.Capabilities
	evidence  []string
	toolsUsed []string
}

// call runs one tool and, on success, appends a titled excerpt.
func (c *collector) call(ctx context.Context, title, tool string, args map[string]interface{}) *tools.Result {
	if len(c.evidence) >= evidenceLimit || ctx.Err() != nil {
		return nil
	}
	c.toolsUsed = append(c.toolsUsed, tool)
	result, err := c.caps.Call(ctx, tool, args)
	if err != nil || !result.OK() {
		return nil
	}
	c.evidence = append(c.evidence, fmt.Sprintf("%s:\n%s", title, excerpt(result.Output, excerptLimit)))
	return result
}

func gatherPlatform(ctx context.Context, caps *tools.Capabilities, alert models.Alert) ([]string, []string) {
	c := &collector{caps: caps}
	namespace := namespaceOf(alert)
	pod := alert.Label("pod")

	if pod != "" {
		c.call(ctx, "Pod status", "kubectl_get_pods",
			map[string]interface{}{"namespace": namespace, "name": pod})
		c.call(ctx, "Events", "kubectl_get_events",
			map[string]interface{}{"namespace": namespace, "field_selector": "involvedObject.name=" + pod})
		if nameContainsAny(alert, "crash", "oom") {
			c.call(ctx, "Logs", "kubectl_logs",
				map[string]interface{}{"namespace": namespace, "pod": pod, "tail": 30})
		}
	} else {
		c.call(ctx, "Deployments", "kubectl_get_deployments",
			map[string]interface{}{"namespace": namespace})
		c.call(ctx, "Events", "kubectl_get_events",
			map[string]interface{}{"namespace": namespace})
	}
	return c.evidence, c.toolsUsed
}

func gatherNetwork(ctx context.Context, caps *tools.Capabilities, alert models.Alert) ([]string, []string) {
	c := &collector{caps: caps}
	namespace := namespaceOf(alert)
	service := alert.Label("service")

	c.call(ctx, "DNS rewrites", "adguard_list_rewrites", nil)

	if nameContainsAny(alert, "dns", "resolve", "unreachable", "timeout", "connection") {
		search := service
		if search == "" {
			search = namespace
		}
		c.call(ctx, "Recent DNS queries for "+search, "adguard_get_query_log",
			map[string]interface{}{"search": search, "limit": 20})
	}

	if service != "" {
		c.call(ctx, "Service", "kubectl_get_services",
			map[string]interface{}{"namespace": namespace, "name": service})
		c.call(ctx, "Ingresses", "kubectl_get_ingresses",
			map[string]interface{}{"namespace": namespace})
		c.call(ctx, "Deployments", "kubectl_get_deployments",
			map[string]interface{}{"namespace": namespace})
	}
	return c.evidence, c.toolsUsed
}

func gatherSecurity(ctx context.Context, caps *tools.Capabilities, alert models.Alert) ([]string, []string) {
	c := &collector{caps: caps}
	namespace := namespaceOf(alert)

	service := alert.Label("service")
	if service == "" {
		service = alert.Label("pod")
	}
	if service != "" {
		// Check common secret paths, first hit wins.
		for _, path := range []string{"/platform/" + service, "/infrastructure/" + service} {
			if c.call(ctx, "Secrets at "+path, "list_secrets",
				map[string]interface{}{"path": path}) != nil {
				break
			}
		}
	}

	if nameContainsAny(alert, "auth", "401", "403", "forbidden") {
		c.call(ctx, "Events", "kubectl_get_events",
			map[string]interface{}{"namespace": namespace})
	}
	return c.evidence, c.toolsUsed
}

func gatherReliability(ctx context.Context, caps *tools.Capabilities, alert models.Alert) ([]string, []string) {
	c := &collector{caps: caps}

	c.call(ctx, "Recent anomalies", "coroot_get_recent_anomalies", nil)

	service := alert.Label("service")
	if service == "" {
		service = alert.Label("pod")
	}
	if service != "" {
		errQuery := fmt.Sprintf(`sum(rate(http_requests_total{service=%q,status=~"5.."}[5m]))`, service)
		c.call(ctx, "Error rate", "query_metrics_instant",
			map[string]interface{}{"query": errQuery})

		latQuery := fmt.Sprintf(`histogram_quantile(0.95, rate(http_request_duration_seconds_bucket{service=%q}[5m]))`, service)
		c.call(ctx, "P95 latency", "query_metrics_instant",
			map[string]interface{}{"query": latQuery})
	}
	return c.evidence, c.toolsUsed
}

func gatherDataLayer(ctx context.Context, caps *tools.Capabilities, alert models.Alert) ([]string, []string) {
	c := &collector{caps: caps}

	context100 := excerpt(strings.TrimSpace(alert.Name+" "+alert.Description), 100)
	c.call(ctx, "Related entities", "search_entities",
		map[string]interface{}{"query": context100})
	c.call(ctx, "Related runbooks", "search_runbooks",
		map[string]interface{}{"query": alert.Name})
	return c.evidence, c.toolsUsed
}

func namespaceOf(alert models.Alert) string {
	if ns := alert.Label("namespace"); ns != "" {
		return ns
	}
	return "default"
}

func nameContainsAny(alert models.Alert, substrings ...string) bool {
	name := strings.ToLower(alert.Name)
	for _, sub := range substrings {
		if strings.Contains(name, sub) {
			return true
		}
	}
	return false
}

func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
