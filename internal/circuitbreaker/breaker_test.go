package circuitbreaker

import (
	"testing"
	"time"
)

func TestClosedAllowsRequests(t *testing.T) {
	b := New("test", 3, time.Minute)

	for i := 0; i < 10; i++ {
		if !b.Allow() {
			t.Fatal("closed breaker should allow requests")
		}
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	b := New("test", 3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Error("should still be closed below threshold")
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Errorf("expected open after 3 failures, got %s", b.State())
	}
	if b.Allow() {
		t.Error("open breaker should reject requests")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New("test", 3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != StateClosed {
		t.Error("non-consecutive failures should not trip the breaker")
	}
}

func TestHalfOpenProbe(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond)

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(20 * time.Millisecond)

	// First request after the open window becomes the probe.
	if !b.Allow() {
		t.Fatal("expected probe to be allowed after open duration")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	// Concurrent requests are rejected while the probe is in flight.
	if b.Allow() {
		t.Error("second request during probe should be rejected")
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
}

func TestFailedProbeReopens(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("expected probe to be allowed")
	}
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Errorf("expected open after failed probe, got %s", b.State())
	}
}
