// Package payment implements transaction screening for payguard.
//
// A submitted payment runs a read-compute-decide-write pipeline: read the
// user's persisted risk state, compute change flags and the proposed next
// state, render a fraud decision, and persist the next state only after the
// decision succeeded. A failed classification therefore never corrupts
// stored state.
//
// Registration must precede any transaction: submitting a payment for an
// unknown user is an error, never an implicit bootstrap. The first
// transaction after registration sees an empty baseline, which raises both
// change flags without moving the cumulative counters.
package payment

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tkaria/payguard/internal/risk"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already registered")
)

// ValidationError rejects malformed input before any state is read.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// RegisterRequest is the request body for registering a user.
type RegisterRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// SubmitRequest is the request body for submitting a payment for screening.
// SourceIP may be empty, in which case the transport fills it from the
// connection. A zero ObservedAt means "now".
type SubmitRequest struct {
	Amount            float64   `json:"amount"`
	SourceIP          string    `json:"sourceIp"`
	DeviceFingerprint string    `json:"deviceFingerprint"`
	ObservedAt        time.Time `json:"observedAt"`
}

// Validate checks the request before any state is touched.
func (r *SubmitRequest) Validate() error {
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return &ValidationError{Field: "amount", Message: "must be a finite number"}
	}
	if r.Amount <= 0 {
		return &ValidationError{Field: "amount", Message: "must be positive"}
	}
	if r.SourceIP == "" {
		return &ValidationError{Field: "sourceIp", Message: "is required"}
	}
	if r.DeviceFingerprint == "" {
		return &ValidationError{Field: "deviceFingerprint", Message: "is required"}
	}
	return nil
}

// Store persists per-user risk state: one document per user, keyed by user
// ID, last-write-wins. The service layers read-modify-write discipline on
// top (per-user serialization), so implementations only need atomic
// create-if-absent semantics.
type Store interface {
	Create(ctx context.Context, state *risk.RiskState) error
	Get(ctx context.Context, userID string) (*risk.RiskState, error)
	Update(ctx context.Context, state *risk.RiskState) error
}
