package risk

import "time"

// VelocityWindow is the trailing window for the transaction velocity counter.
const VelocityWindow = 24 * time.Hour

// ComputeUpdate compares an observed fingerprint against the prior state and
// returns the change flags for the current transaction plus the next state
// to persist. Pure function: the caller persists the next state only after
// the decision step succeeds, so a failed decision never touches stored
// state.
//
// Counter semantics: a flag is raised whenever the observed value differs
// from the baseline, including when there is no baseline at all. The
// cumulative counter increments only when a previously set value actually
// changed — the first observation for a user never counts as a change.
func ComputeUpdate(prior RiskState, observed SessionFingerprint) (ChangeFlags, RiskState) {
	flags := ChangeFlags{
		IPChanged:     prior.LastIP == "" || observed.SourceIP != prior.LastIP,
		DeviceChanged: prior.LastDevice == "" || observed.DeviceFingerprint != prior.LastDevice,
	}

	next := prior
	if flags.IPChanged && prior.LastIP != "" {
		next.IPChangeCount++
	}
	if flags.DeviceChanged && prior.LastDevice != "" {
		next.DeviceChangeCount++
	}

	// Velocity: consecutive transactions less than 24h apart extend the
	// chain; a gap of 24h or more starts a fresh window. The current
	// transaction always counts as at least one.
	if !prior.LastTransactionTime.IsZero() && observed.ObservedAt.Sub(prior.LastTransactionTime) < VelocityWindow {
		next.TransactionCount24h = prior.TransactionCount24h + 1
	} else {
		next.TransactionCount24h = 1
	}

	next.LastIP = observed.SourceIP
	next.LastDevice = observed.DeviceFingerprint
	next.LastTransactionTime = observed.ObservedAt

	return flags, next
}
