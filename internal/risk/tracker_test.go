package risk

import (
	"testing"
	"time"
)

func fp(ip, device string, at time.Time) SessionFingerprint {
	return SessionFingerprint{SourceIP: ip, DeviceFingerprint: device, ObservedAt: at}
}

func TestFirstObservation(t *testing.T) {
	// Brand-new user: no baseline at all.
	prior := RiskState{UserID: "u1"}
	at := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)

	flags, next := ComputeUpdate(prior, fp("1.1.1.1", "dev-A", at))

	if !flags.IPChanged || !flags.DeviceChanged {
		t.Errorf("expected both flags raised for new user, got %+v", flags)
	}
	if next.IPChangeCount != 0 || next.DeviceChangeCount != 0 {
		t.Errorf("first observation must not bump counters, got ip=%d device=%d",
			next.IPChangeCount, next.DeviceChangeCount)
	}
	if next.TransactionCount24h != 1 {
		t.Errorf("expected velocity count 1, got %d", next.TransactionCount24h)
	}
	if next.LastIP != "1.1.1.1" || next.LastDevice != "dev-A" {
		t.Errorf("baseline not replaced: %+v", next)
	}
	if !next.LastTransactionTime.Equal(at) {
		t.Errorf("expected last transaction time %v, got %v", at, next.LastTransactionTime)
	}
}

func TestIPChangeOnly(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	prior := RiskState{
		UserID:              "u1",
		LastIP:              "1.1.1.1",
		LastDevice:          "dev-A",
		LastTransactionTime: base,
		TransactionCount24h: 1,
	}

	flags, next := ComputeUpdate(prior, fp("2.2.2.2", "dev-A", base.Add(time.Hour)))

	if !flags.IPChanged {
		t.Error("expected IP change flag")
	}
	if flags.DeviceChanged {
		t.Error("did not expect device change flag")
	}
	if next.IPChangeCount != 1 {
		t.Errorf("expected ipChangeCount 1, got %d", next.IPChangeCount)
	}
	if next.DeviceChangeCount != 0 {
		t.Errorf("expected deviceChangeCount 0, got %d", next.DeviceChangeCount)
	}
	if next.TransactionCount24h != 2 {
		t.Errorf("expected velocity count 2, got %d", next.TransactionCount24h)
	}
}

func TestVelocityReset(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	prior := RiskState{
		UserID:              "u1",
		LastIP:              "1.1.1.1",
		LastDevice:          "dev-A",
		LastTransactionTime: base,
		TransactionCount24h: 7,
	}

	// 25h gap resets the window regardless of the prior count.
	_, next := ComputeUpdate(prior, fp("1.1.1.1", "dev-A", base.Add(25*time.Hour)))
	if next.TransactionCount24h != 1 {
		t.Errorf("expected velocity reset to 1, got %d", next.TransactionCount24h)
	}

	// Exactly 24h is outside the window (strict less-than).
	_, next = ComputeUpdate(prior, fp("1.1.1.1", "dev-A", base.Add(24*time.Hour)))
	if next.TransactionCount24h != 1 {
		t.Errorf("expected velocity reset at exactly 24h, got %d", next.TransactionCount24h)
	}

	_, next = ComputeUpdate(prior, fp("1.1.1.1", "dev-A", base.Add(24*time.Hour-time.Second)))
	if next.TransactionCount24h != 8 {
		t.Errorf("expected velocity 8 just inside window, got %d", next.TransactionCount24h)
	}
}

func TestCountersNonDecreasing(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := RiskState{UserID: "u1"}

	observations := []SessionFingerprint{
		fp("1.1.1.1", "dev-A", at),
		fp("1.1.1.1", "dev-A", at.Add(1*time.Hour)),
		fp("2.2.2.2", "dev-A", at.Add(2*time.Hour)),
		fp("2.2.2.2", "dev-B", at.Add(30*time.Hour)),
		fp("1.1.1.1", "dev-B", at.Add(31*time.Hour)),
	}

	prevIP, prevDevice := 0, 0
	for i, obs := range observations {
		_, next := ComputeUpdate(state, obs)
		if next.IPChangeCount < prevIP || next.DeviceChangeCount < prevDevice {
			t.Fatalf("step %d: counters decreased: %+v", i, next)
		}
		prevIP, prevDevice = next.IPChangeCount, next.DeviceChangeCount
		state = next
	}

	if state.IPChangeCount != 2 {
		t.Errorf("expected 2 IP changes over the sequence, got %d", state.IPChangeCount)
	}
	if state.DeviceChangeCount != 1 {
		t.Errorf("expected 1 device change over the sequence, got %d", state.DeviceChangeCount)
	}
}

func TestComputeUpdateIsPure(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	prior := RiskState{
		UserID:              "u1",
		LastIP:              "1.1.1.1",
		LastDevice:          "dev-A",
		LastTransactionTime: base,
		TransactionCount24h: 3,
		IPChangeCount:       2,
		DeviceChangeCount:   1,
	}
	obs := fp("3.3.3.3", "dev-C", base.Add(time.Minute))

	flags1, next1 := ComputeUpdate(prior, obs)
	flags2, next2 := ComputeUpdate(prior, obs)

	if flags1 != flags2 || next1 != next2 {
		t.Error("identical inputs produced different outputs")
	}
	if prior.IPChangeCount != 2 || prior.LastIP != "1.1.1.1" {
		t.Error("prior state was mutated")
	}
}
