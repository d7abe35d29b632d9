package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kernowlab/triage/internal/authority"
	"github.com/kernowlab/triage/internal/models"
	"github.com/kernowlab/triage/internal/tools"
)

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// writeError writes a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth handles liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReady handles readiness probes. Ready means the pipeline is
// built and the server accepts investigations; it does not probe the
// reasoning backends, which may come and go.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	ready := s.running && s.investigator != nil
	s.mu.RUnlock()

	if !ready {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// agentInfo describes one configured specialist for the listing endpoint.
type agentInfo struct {
	Domain        models.Domain `json:"domain"`
	Tools         []string      `json:"tools"`
	DefaultWeight float64       `json:"default_weight"`
}

// handleAgents lists the configured specialist domains, their visible
// tool capabilities, and the uniform default weights.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uniform := authority.Uniform()
	agents := make([]agentInfo, 0, len(models.Domains()))
	for _, domain := range models.Domains() {
		agents = append(agents, agentInfo{
			Domain:        domain,
			Tools:         tools.CapabilitiesFor(domain, nil).Names(),
			DefaultWeight: uniform[domain],
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": agents,
		"count":  len(agents),
	})
}
