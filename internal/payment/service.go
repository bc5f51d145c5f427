package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tkaria/payguard/internal/decision"
	"github.com/tkaria/payguard/internal/logging"
	"github.com/tkaria/payguard/internal/metrics"
	"github.com/tkaria/payguard/internal/risk"
	"github.com/tkaria/payguard/internal/traces"
)

// EventSink receives rendered decisions for live streaming.
type EventSink interface {
	DecisionRendered(d *decision.Decision)
}

// Service provides payment screening business logic.
type Service struct {
	store  Store
	engine *decision.Engine
	events EventSink
	locks  sync.Map // userID → *sync.Mutex
}

// NewService creates a payment screening service.
func NewService(store Store, engine *decision.Engine) *Service {
	return &Service{store: store, engine: engine}
}

// WithEvents sets an optional sink for rendered decisions.
func (s *Service) WithEvents(sink EventSink) *Service {
	s.events = sink
	return s
}

// Register creates a zero-valued risk state for a new user.
func (s *Service) Register(ctx context.Context, userID string) (*risk.RiskState, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "is required"}
	}

	now := time.Now()
	state := &risk.RiskState{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, state); err != nil {
		return nil, err
	}

	metrics.UsersRegisteredTotal.Inc()
	logging.L(ctx).Info("user registered", "user_id", userID)
	return state, nil
}

// State returns the current risk state for a user.
func (s *Service) State(ctx context.Context, userID string) (*risk.RiskState, error) {
	return s.store.Get(ctx, userID)
}

// Submit screens one payment for a user and returns the rendered decision.
//
// The state write happens only after the decision step succeeded: a
// classifier failure surfaces as an error with stored state untouched, and a
// failed write surfaces as an error even though a decision was rendered,
// since silently losing the counter update would break their monotonicity.
//
// Submissions for the same user are serialized so concurrent transactions
// cannot interleave the read-modify-write on the counters.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (*decision.Decision, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "is required"}
	}
	if err := req.Validate(); err != nil {
		metrics.SubmissionErrorsTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	ctx, span := traces.StartSpan(ctx, "payment.submit",
		attribute.String("user.id", userID),
		attribute.Float64("payment.amount", req.Amount),
	)
	defer span.End()

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	prior, err := s.store.Get(ctx, userID)
	if err != nil {
		metrics.SubmissionErrorsTotal.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("load risk state: %w", err)
	}

	observed := risk.SessionFingerprint{
		SourceIP:          req.SourceIP,
		DeviceFingerprint: req.DeviceFingerprint,
		ObservedAt:        req.ObservedAt,
	}
	if observed.ObservedAt.IsZero() {
		observed.ObservedAt = time.Now()
	}

	flags, next := risk.ComputeUpdate(*prior, observed)

	d, err := s.engine.Decide(ctx, userID, req.Amount, flags, next, observed)
	if err != nil {
		metrics.SubmissionErrorsTotal.WithLabelValues("classifier").Inc()
		logging.L(ctx).Error("classification failed", "user_id", userID, "error", err)
		return nil, err
	}

	next.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, &next); err != nil {
		// The decision was rendered but the counters were not persisted.
		// Report the whole submission as failed rather than hand out a
		// decision whose state update was lost.
		metrics.SubmissionErrorsTotal.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("persist risk state: %w", err)
	}

	metrics.DecisionsTotal.WithLabelValues(string(d.Label)).Inc()
	if s.events != nil {
		s.events.DecisionRendered(d)
	}

	logging.L(ctx).Info("payment screened",
		"user_id", userID,
		"label", d.Label,
		"allowed", d.Allowed,
		"txn_count_24h", next.TransactionCount24h,
	)

	return d, nil
}

// userLock returns the submission mutex for a user.
func (s *Service) userLock(userID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
