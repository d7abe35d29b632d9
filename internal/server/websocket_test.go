package server

import (
	"net/http"
	"testing"

	"github.com/kernowlab/triage/internal/orchestrator"
)

func TestHubCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", nil, "", true},
		{"default allows localhost", nil, "http://localhost", true},
		{"default allows localhost with port", nil, "http://localhost:5173", true},
		{"default rejects other hosts", nil, "https://evil.example", false},
		{"wildcard allows anything", []string{"*"}, "https://anywhere.example", true},
		{"explicit origin allowed", []string{"https://ops.example"}, "https://ops.example", true},
		{"explicit origin with port", []string{"https://ops.example"}, "https://ops.example:8443", true},
		{"explicit list rejects others", []string{"https://ops.example"}, "https://other.example", false},
		{"prefix must stop at port separator", []string{"http://localhost"}, "http://localhost.evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHub(tt.allowed, nil)
			r, _ := http.NewRequest(http.MethodGet, "/ws/investigations", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := h.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestHubBroadcast(t *testing.T) {
	h := newHub(nil, nil)

	id1, ch1, ok := h.subscribe()
	if !ok {
		t.Fatal("subscribe failed")
	}
	_, ch2, ok := h.subscribe()
	if !ok {
		t.Fatal("subscribe failed")
	}

	h.Notify(orchestrator.Event{Type: orchestrator.EventStarted, RequestID: "r1"})

	for i, ch := range []chan orchestrator.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.RequestID != "r1" {
				t.Errorf("subscriber %d got %+v", i, ev)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}

	// After unsubscribe the channel is closed and no longer receives.
	h.unsubscribe(id1)
	if _, open := <-ch1; open {
		t.Error("unsubscribed channel still open")
	}

	h.Notify(orchestrator.Event{Type: orchestrator.EventCompleted, RequestID: "r2"})
	select {
	case ev := <-ch2:
		if ev.RequestID != "r2" {
			t.Errorf("got %+v", ev)
		}
	default:
		t.Error("remaining subscriber received nothing")
	}
}

func TestHubSlowSubscriberDropsEvents(t *testing.T) {
	h := newHub(nil, nil)
	_, ch, ok := h.subscribe()
	if !ok {
		t.Fatal("subscribe failed")
	}

	// Overfill the buffer; Notify must never block.
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Notify(orchestrator.Event{Type: orchestrator.EventFinding})
	}

	if len(ch) != subscriberBuffer {
		t.Errorf("buffered events = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestHubClose(t *testing.T) {
	h := newHub(nil, nil)
	_, ch, ok := h.subscribe()
	if !ok {
		t.Fatal("subscribe failed")
	}

	h.close()

	if _, open := <-ch; open {
		t.Error("channel still open after hub close")
	}
	if _, _, ok := h.subscribe(); ok {
		t.Error("subscribe succeeded on a closed hub")
	}
}
