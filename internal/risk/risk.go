// Package risk tracks per-user behavioral state for fraud screening.
//
// Each user carries a persisted RiskState: the last session fingerprint seen,
// cumulative fingerprint-change counters, and a trailing-24h transaction
// velocity counter. ComputeUpdate compares a newly observed fingerprint
// against that baseline and produces both the instantaneous change flags fed
// to the classifier and the next state to persist.
package risk

import "time"

// SessionFingerprint is the observed origin of a single request.
// Constructed per request, never persisted directly.
type SessionFingerprint struct {
	SourceIP          string    `json:"sourceIp"`
	DeviceFingerprint string    `json:"deviceFingerprint"`
	ObservedAt        time.Time `json:"observedAt"`
}

// RiskState is the persisted behavioral baseline for one user.
//
// Zero LastIP/LastDevice/LastTransactionTime mean the field has never been
// observed. The change counters are monotonically non-decreasing over a
// user's lifetime.
type RiskState struct {
	UserID              string    `json:"userId"`
	LastIP              string    `json:"lastIp,omitempty"`
	LastDevice          string    `json:"lastDevice,omitempty"`
	LastTransactionTime time.Time `json:"lastTransactionTime,omitzero"`
	TransactionCount24h int       `json:"transactionCount24h"`
	IPChangeCount       int       `json:"ipChangeCount"`
	DeviceChangeCount   int       `json:"deviceChangeCount"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ChangeFlags are the instantaneous signals for the current transaction:
// whether the fingerprint differs from the last one seen. A user with no
// prior baseline raises both flags. Distinct from the cumulative counters,
// which only move when there was a previous value to change from.
type ChangeFlags struct {
	IPChanged     bool
	DeviceChanged bool
}
