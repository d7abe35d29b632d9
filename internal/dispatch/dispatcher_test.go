package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/kernowlab/triage/internal/models"
	"github.com/kernowlab/triage/internal/specialist"
)

// fakeAgent is a scriptable specialist.
type fakeAgent struct {
	domain models.Domain
	mode   string // "ok", "hang", "panic", "slow-ok"
	delay  time.Duration
}

var _ specialist.Agent = (*fakeAgent)(nil)

func (f *fakeAgent) Domain() models.Domain { return f.domain }

func (f *fakeAgent) Investigate(ctx context.Context, alert models.Alert) models.SpecialistFinding {
	switch f.mode {
	case "hang":
		// Ignores cancellation entirely; the dispatcher must abandon it.
		select {}
	case "panic":
		panic("specialist exploded")
	case "slow-ok":
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.ErrorFinding(f.domain, "cancelled")
		}
	}
	return models.SpecialistFinding{
		Domain:     f.domain,
		Status:     models.StatusOK,
		Summary:    "looks fine",
		Confidence: 0.5,
	}
}

func allOKAgents() []specialist.Agent {
	agents := make([]specialist.Agent, 0, len(models.Domains()))
	for _, d := range models.Domains() {
		agents = append(agents, &fakeAgent{domain: d, mode: "ok"})
	}
	return agents
}

func TestDispatchAllComplete(t *testing.T) {
	d := New(allOKAgents(), 5*time.Second, nil)

	findings := d.Dispatch(context.Background(), models.Alert{Name: "TestAlert"})

	if len(findings) != len(models.Domains()) {
		t.Fatalf("got %d findings, want %d", len(findings), len(models.Domains()))
	}
	for domain, f := range findings {
		if f.Status != models.StatusOK {
			t.Errorf("domain %s status = %s", domain, f.Status)
		}
	}
}

func TestDispatchAbandonsStragglers(t *testing.T) {
	agents := []specialist.Agent{
		&fakeAgent{domain: models.DomainPlatform, mode: "ok"},
		&fakeAgent{domain: models.DomainNetwork, mode: "hang"},
		&fakeAgent{domain: models.DomainSecurity, mode: "ok"},
	}
	deadline := 200 * time.Millisecond
	d := New(agents, deadline, nil)

	start := time.Now()
	findings := d.Dispatch(context.Background(), models.Alert{Name: "TestAlert"})
	elapsed := time.Since(start)

	// The hanging specialist never honors cancellation; the dispatcher
	// must still return shortly after the deadline.
	if elapsed > deadline+500*time.Millisecond {
		t.Errorf("Dispatch took %s, deadline was %s", elapsed, deadline)
	}

	if len(findings) != 3 {
		t.Fatalf("got %d findings, want 3", len(findings))
	}
	if findings[models.DomainPlatform].Status != models.StatusOK {
		t.Errorf("platform status = %s", findings[models.DomainPlatform].Status)
	}
	if findings[models.DomainNetwork].Status != models.StatusTimeout {
		t.Errorf("network status = %s, want TIMEOUT", findings[models.DomainNetwork].Status)
	}
	if findings[models.DomainNetwork].Confidence != 0 {
		t.Errorf("timed-out finding confidence = %v, want 0", findings[models.DomainNetwork].Confidence)
	}
	if findings[models.DomainSecurity].Status != models.StatusOK {
		t.Errorf("security status = %s", findings[models.DomainSecurity].Status)
	}
}

func TestDispatchPanicBecomesError(t *testing.T) {
	agents := []specialist.Agent{
		&fakeAgent{domain: models.DomainPlatform, mode: "panic"},
		&fakeAgent{domain: models.DomainNetwork, mode: "ok"},
	}
	d := New(agents, 5*time.Second, nil)

	findings := d.Dispatch(context.Background(), models.Alert{Name: "TestAlert"})

	if findings[models.DomainPlatform].Status != models.StatusError {
		t.Errorf("panicking specialist status = %s, want ERROR", findings[models.DomainPlatform].Status)
	}
	if findings[models.DomainNetwork].Status != models.StatusOK {
		t.Errorf("healthy specialist status = %s", findings[models.DomainNetwork].Status)
	}
}

func TestDispatchSlowButWithinDeadline(t *testing.T) {
	agents := []specialist.Agent{
		&fakeAgent{domain: models.DomainPlatform, mode: "slow-ok", delay: 50 * time.Millisecond},
		&fakeAgent{domain: models.DomainNetwork, mode: "ok"},
	}
	d := New(agents, 2*time.Second, nil)

	findings := d.Dispatch(context.Background(), models.Alert{Name: "TestAlert"})

	for domain, f := range findings {
		if f.Status != models.StatusOK {
			t.Errorf("domain %s status = %s", domain, f.Status)
		}
	}
}

func TestDispatchOnFinding(t *testing.T) {
	d := New(allOKAgents(), 5*time.Second, nil)

	seen := make(chan models.Domain, len(models.Domains()))
	d.OnFinding = func(f models.SpecialistFinding) { seen <- f.Domain }

	d.Dispatch(context.Background(), models.Alert{Name: "TestAlert"})
	close(seen)

	domains := make(map[models.Domain]bool)
	for domain := range seen {
		domains[domain] = true
	}
	if len(domains) != len(models.Domains()) {
		t.Errorf("OnFinding saw %d domains, want %d", len(domains), len(models.Domains()))
	}
}

func TestDispatchParentContextCancellation(t *testing.T) {
	agents := []specialist.Agent{
		&fakeAgent{domain: models.DomainPlatform, mode: "slow-ok", delay: 10 * time.Second},
	}
	d := New(agents, 30*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	findings := d.Dispatch(ctx, models.Alert{Name: "TestAlert"})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Dispatch took %s after parent cancellation", elapsed)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
}

func TestOrdered(t *testing.T) {
	findings := map[models.Domain]models.SpecialistFinding{
		models.DomainSecurity: {Domain: models.DomainSecurity, Status: models.StatusOK},
		models.DomainPlatform: {Domain: models.DomainPlatform, Status: models.StatusOK},
	}

	ordered := Ordered(findings)
	if len(ordered) != len(models.Domains()) {
		t.Fatalf("Ordered returned %d findings, want %d", len(ordered), len(models.Domains()))
	}
	for i, want := range models.Domains() {
		if ordered[i].Domain != want {
			t.Errorf("position %d domain = %s, want %s", i, ordered[i].Domain, want)
		}
	}
	// Missing domains get an ERROR placeholder rather than a hole.
	for _, f := range ordered {
		switch f.Domain {
		case models.DomainSecurity, models.DomainPlatform:
			if f.Status != models.StatusOK {
				t.Errorf("domain %s status = %s", f.Domain, f.Status)
			}
		default:
			if f.Status != models.StatusError {
				t.Errorf("missing domain %s status = %s, want ERROR", f.Domain, f.Status)
			}
		}
	}
}
