package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kernowlab/triage/internal/metrics"
	"github.com/kernowlab/triage/internal/models"
)

// handleInvestigate runs one synchronous investigation. The request is
// validated before any specialist is dispatched; a malformed alert is a
// caller error, not an INCONCLUSIVE verdict.
func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.InvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RejectedRequests.WithLabelValues("malformed_body").Inc()
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		metrics.RejectedRequests.WithLabelValues("invalid_alert").Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	// Admission control: reject rather than queue when the pipeline is
	// saturated, so callers can shed load upstream.
	if !s.sem.TryAcquire(1) {
		metrics.RejectedRequests.WithLabelValues("saturated").Inc()
		s.logger.Warn("investigation rejected, pipeline saturated",
			zap.String("request_id", req.RequestID),
			zap.String("alert", req.Alert.Name))
		s.writeError(w, http.StatusServiceUnavailable, "too many concurrent investigations")
		return
	}
	defer s.sem.Release(1)

	resp := s.investigator.Investigate(r.Context(), req)
	s.writeJSON(w, http.StatusOK, resp)
}
