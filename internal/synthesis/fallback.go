package synthesis

// fallback.go: the escalation policy for the tiered synthesizer, made
// explicit as a small state machine so it is independently testable.

import (
	"context"
	"errors"
	"time"

	"github.com/kernowlab/triage/internal/llm"
	"github.com/kernowlab/triage/internal/models"
)

// FailureKind classifies a tier failure for escalation purposes.
type FailureKind int

const (
	// FailureTransient covers failures worth one retry on the same tier:
	// malformed output and cancelled or timed-out individual calls.
	FailureTransient FailureKind = iota
	// FailureRateLimited escalates immediately; retrying a throttled
	// backend only burns latency.
	FailureRateLimited
	// FailureUnavailable escalates immediately; the backend is down.
	FailureUnavailable
)

// Classify maps a tier error to its failure kind.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return FailureRateLimited
	case errors.Is(err, llm.ErrUnavailable):
		return FailureUnavailable
	case errors.Is(err, llm.ErrMalformedOutput),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return FailureTransient
	default:
		return FailureTransient
	}
}

// State is the controller's position in the escalation ladder.
type State int

const (
	StatePrimary State = iota
	StateSecondary
	StateRuleBased
	StateDone
)

// Strategy returns the models.Strategy a state corresponds to.
func (s State) Strategy() models.Strategy {
	switch s {
	case StatePrimary:
		return models.StrategyPrimary
	case StateSecondary:
		return models.StrategySecondary
	default:
		return models.StrategyRuleBased
	}
}

func (s State) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateSecondary:
		return "secondary"
	case StateRuleBased:
		return "rule-based"
	default:
		return "done"
	}
}

// Decision tells the synthesizer what to do after a failed attempt.
type Decision struct {
	// Retry means run the current tier once more after Backoff.
	Retry   bool
	Backoff time.Duration
}

// Controller drives escalation through the tiers. One controller serves
// one synthesis call; it is not shared across requests.
type Controller struct {
	state   State
	retried [StateRuleBased + 1]bool
	backoff time.Duration
}

// NewController starts at the primary tier with the given retry backoff.
func NewController(backoff time.Duration) *Controller {
	return &Controller{state: StatePrimary, backoff: backoff}
}

// State returns the tier the synthesizer should attempt next.
func (c *Controller) State() State { return c.state }

// Succeed marks the current tier as having produced a result.
func (c *Controller) Succeed() { c.state = StateDone }

// Fail records a classified failure of the current tier and decides
// between a single same-tier retry and escalation. Only transient
// failures are retried, and only once per tier; rate-limited and
// unavailable failures escalate immediately to bound total latency.
func (c *Controller) Fail(kind FailureKind) Decision {
	if kind == FailureTransient && c.state <= StateRuleBased && !c.retried[c.state] {
		c.retried[c.state] = true
		return Decision{Retry: true, Backoff: c.backoff}
	}
	c.state++
	return Decision{}
}
