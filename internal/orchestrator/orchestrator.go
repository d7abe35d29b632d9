// Package orchestrator ties the pipeline together: resolve authority
// weights for the alert, fan the investigation out to every specialist,
// synthesize the findings into a verdict, and assemble the response.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kernowlab/triage/internal/authority"
	"github.com/kernowlab/triage/internal/dispatch"
	"github.com/kernowlab/triage/internal/metrics"
	"github.com/kernowlab/triage/internal/models"
	"github.com/kernowlab/triage/internal/synthesis"
)

// EventType tags a progress event emitted during an investigation.
type EventType string

const (
	EventStarted    EventType = "investigation_started"
	EventFinding    EventType = "specialist_finding"
	EventEscalation EventType = "synthesis_escalation"
	EventCompleted  EventType = "investigation_completed"
)

// Event is a progress notification for one investigation. Finding is set
// for specialist_finding events; From/To for synthesis_escalation;
// Response for investigation_completed.
type Event struct {
	Type      EventType                     `json:"type"`
	RequestID string                        `json:"request_id"`
	Alert     string                        `json:"alert"`
	Finding   *models.SpecialistFinding     `json:"finding,omitempty"`
	From      models.Strategy               `json:"from,omitempty"`
	To        models.Strategy               `json:"to,omitempty"`
	Response  *models.InvestigationResponse `json:"response,omitempty"`
	Timestamp time.Time                     `json:"timestamp"`
}

// Observer receives progress events. Implementations must not block; the
// orchestrator calls them inline on the request path.
type Observer interface {
	Notify(Event)
}

// Orchestrator executes one investigation end to end. It holds only
// immutable resources and is safe for concurrent use.
type Orchestrator struct {
	dispatcher  *dispatch.Dispatcher
	synthesizer *synthesis.Synthesizer
	authority   *authority.Table
	logger      *zap.Logger
	observer    Observer
}

// New creates an orchestrator. observer may be nil.
func New(d *dispatch.Dispatcher, s *synthesis.Synthesizer, table *authority.Table, observer Observer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		dispatcher:  d,
		synthesizer: s,
		authority:   table,
		logger:      logger,
		observer:    observer,
	}
}

// Investigate runs the full pipeline for one request. It does not fail:
// specialist failures surface as ERROR or TIMEOUT findings, synthesis
// degradation surfaces through fallback_used and strategy, and a fatal
// synthesis failure collapses to an INCONCLUSIVE verdict at confidence
// zero rather than an error to the caller. The request must already be
// validated.
func (o *Orchestrator) Investigate(ctx context.Context, req models.InvestigationRequest) models.InvestigationResponse {
	start := time.Now()
	o.emit(Event{Type: EventStarted, RequestID: req.RequestID, Alert: req.Alert.Name})
	o.logger.Info("investigation started",
		zap.String("request_id", req.RequestID),
		zap.String("alert", req.Alert.Name),
		zap.String("severity", string(req.Alert.Severity)))

	weights := o.authority.WeightsFor(req.Alert)

	prev := o.dispatcher.OnFinding
	d := *o.dispatcher
	d.OnFinding = func(f models.SpecialistFinding) {
		if prev != nil {
			prev(f)
		}
		finding := f
		o.emit(Event{Type: EventFinding, RequestID: req.RequestID, Alert: req.Alert.Name, Finding: &finding})
	}
	byDomain := d.Dispatch(ctx, req.Alert)
	findings := dispatch.Ordered(byDomain)

	synth := o.synthesize(ctx, req, findings, weights)

	resp := models.InvestigationResponse{
		RequestID:       req.RequestID,
		Verdict:         synth.Verdict,
		Confidence:      synth.Confidence,
		Findings:        findings,
		Synthesis:       synth.Synthesis,
		SuggestedAction: synth.SuggestedAction,
		FallbackUsed:    synth.FallbackUsed,
		Strategy:        synth.Strategy,
		LatencyMS:       time.Since(start).Milliseconds(),
	}

	metrics.InvestigationsTotal.WithLabelValues(string(resp.Verdict), string(resp.Strategy)).Inc()
	metrics.InvestigationDuration.Observe(time.Since(start).Seconds())
	o.logger.Info("investigation completed",
		zap.String("request_id", req.RequestID),
		zap.String("alert", req.Alert.Name),
		zap.String("verdict", string(resp.Verdict)),
		zap.Float64("confidence", resp.Confidence),
		zap.String("strategy", string(resp.Strategy)),
		zap.Bool("fallback_used", resp.FallbackUsed),
		zap.Int64("latency_ms", resp.LatencyMS))
	o.emit(Event{Type: EventCompleted, RequestID: req.RequestID, Alert: req.Alert.Name, Response: &resp})
	return resp
}

func (o *Orchestrator) synthesize(ctx context.Context, req models.InvestigationRequest, findings []models.SpecialistFinding, weights map[models.Domain]float64) models.SynthesisResult {
	s := *o.synthesizer
	s.OnEscalation = func(from, to models.Strategy) {
		o.emit(Event{Type: EventEscalation, RequestID: req.RequestID, Alert: req.Alert.Name, From: from, To: to})
	}
	result, err := s.Synthesize(ctx, req.Alert, findings, weights)
	if err != nil {
		// Only reachable through a configuration defect. The caller
		// still gets a well-formed response.
		o.logger.Error("synthesis failed on every tier",
			zap.String("request_id", req.RequestID),
			zap.String("alert", req.Alert.Name),
			zap.Error(err))
		return models.SynthesisResult{
			Verdict:      models.VerdictInconclusive,
			Confidence:   0,
			Synthesis:    "Synthesis unavailable; findings attached for manual review.",
			FallbackUsed: true,
			Strategy:     models.StrategyRuleBased,
		}
	}
	return result
}

func (o *Orchestrator) emit(ev Event) {
	if o.observer == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	o.observer.Notify(ev)
}
