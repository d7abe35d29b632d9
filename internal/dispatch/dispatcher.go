// Package dispatch fans an alert out to every configured specialist
// concurrently under one shared deadline, tolerates partial failure, and
// returns a complete finding set: one entry per specialist, always.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kernowlab/triage/internal/models"
	"github.com/kernowlab/triage/internal/specialist"
)

// DefaultDeadline is the shared deadline applied to the whole fan-out.
const DefaultDeadline = 15 * time.Second

// Dispatcher runs all specialist investigations for one alert in
// parallel. It holds only immutable resources and is safe for concurrent
// use across requests.
type Dispatcher struct {
	specialists []specialist.Agent
	deadline    time.Duration
	logger      *zap.Logger

	// OnFinding, when set, is called from the collecting goroutine as
	// each finding arrives (completion order, not domain order). It must
	// not block.
	OnFinding func(models.SpecialistFinding)
}

// New creates a dispatcher over the given specialist set.
func New(specialists []specialist.Agent, deadline time.Duration, logger *zap.Logger) *Dispatcher {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		specialists: specialists,
		deadline:    deadline,
		logger:      logger,
	}
}

// Deadline returns the configured shared deadline.
func (d *Dispatcher) Deadline() time.Duration { return d.deadline }

// Dispatch starts every specialist as close to simultaneously as
// possible and joins them under the shared deadline. Specialists still
// running at the deadline are cancelled and abandoned; their slots are
// filled with TIMEOUT findings and any result they later produce is
// discarded. A panicking specialist yields an ERROR finding; the
// dispatch itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert) map[models.Domain]models.SpecialistFinding {
	dispatchCtx, cancel := context.WithTimeout(ctx, d.deadline)
	defer cancel()

	// Buffered so abandoned specialists never block on send.
	resultCh := make(chan models.SpecialistFinding, len(d.specialists))
	for _, agent := range d.specialists {
		go d.run(dispatchCtx, agent, alert, resultCh)
	}

	findings := make(map[models.Domain]models.SpecialistFinding, len(d.specialists))
	for len(findings) < len(d.specialists) {
		select {
		case finding := <-resultCh:
			findings[finding.Domain] = finding
			if d.OnFinding != nil {
				d.OnFinding(finding)
			}
		case <-dispatchCtx.Done():
			// Deadline elapsed (or the caller gave up): cancel the
			// stragglers and fill their slots without waiting for them.
			for _, agent := range d.specialists {
				domain := agent.Domain()
				if _, done := findings[domain]; !done {
					d.logger.Warn("specialist timed out",
						zap.String("domain", string(domain)),
						zap.String("alert", alert.Name),
						zap.Duration("deadline", d.deadline))
					findings[domain] = models.TimeoutFinding(domain)
					if d.OnFinding != nil {
						d.OnFinding(findings[domain])
					}
				}
			}
			return findings
		}
	}
	return findings
}

// run executes one specialist, converting a panic into an ERROR finding.
func (d *Dispatcher) run(ctx context.Context, agent specialist.Agent, alert models.Alert, resultCh chan<- models.SpecialistFinding) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("specialist panicked",
				zap.String("domain", string(agent.Domain())),
				zap.Any("panic", r))
			resultCh <- models.ErrorFinding(agent.Domain(), fmt.Sprintf("specialist panicked: %v", r))
		}
	}()
	resultCh <- agent.Investigate(ctx, alert)
}

// Ordered renders a finding set in canonical domain order. Missing
// domains (which should not happen after Dispatch) become ERROR slots so
// the invariant of one finding per specialist holds under any defect.
func Ordered(findings map[models.Domain]models.SpecialistFinding) []models.SpecialistFinding {
	ordered := make([]models.SpecialistFinding, 0, len(models.Domains()))
	for _, domain := range models.Domains() {
		if finding, ok := findings[domain]; ok {
			ordered = append(ordered, finding)
		} else {
			ordered = append(ordered, models.ErrorFinding(domain, "no finding produced"))
		}
	}
	return ordered
}
