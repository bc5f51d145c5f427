package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/tkaria/payguard/internal/idgen"
	"github.com/tkaria/payguard/internal/risk"
)

// Hours in [oddTimeStart, oddTimeEnd) are considered unusual for legitimate
// activity. Half-open: hour 4 is odd, hour 5 is not.
const (
	oddTimeStart = 0
	oddTimeEnd   = 5
)

// IsOddTime reports whether t falls in the unusual-activity hour range.
func IsOddTime(t time.Time) bool {
	h := t.Hour()
	return h >= oddTimeStart && h < oddTimeEnd
}

// Engine assembles feature vectors and renders decisions.
type Engine struct {
	classifier Classifier
}

// NewEngine creates a decision engine over the given classification boundary.
func NewEngine(classifier Classifier) *Engine {
	return &Engine{classifier: classifier}
}

// Decide builds the feature vector for one transaction, invokes the
// classifier, and renders the decision.
//
// The classifier sees the instantaneous change flags; the returned risk
// factors carry the cumulative counters from the proposed next state. Any
// classifier failure or out-of-domain label surfaces as ErrClassifier —
// never a defaulted verdict.
func (e *Engine) Decide(ctx context.Context, userID string, amount float64, flags risk.ChangeFlags, next risk.RiskState, observed risk.SessionFingerprint) (*Decision, error) {
	fv := FeatureVector{
		Amount:              amount,
		IsMaliciousIP:       boolToInt(flags.IPChanged),
		IsMaliciousDevice:   boolToInt(flags.DeviceChanged),
		IsOddTime:           boolToInt(IsOddTime(observed.ObservedAt)),
		TransactionCount24h: next.TransactionCount24h,
	}

	label, err := e.classifier.Classify(ctx, fv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifier, err)
	}
	if label != 0 && label != 1 {
		return nil, fmt.Errorf("%w: out-of-domain label %d", ErrClassifier, label)
	}

	d := &Decision{
		ID:     idgen.WithPrefix("dec_"),
		UserID: userID,
		Label:  LabelNormal,
		RiskFactors: RiskFactors{
			IPChangeCount:     next.IPChangeCount,
			DeviceChangeCount: next.DeviceChangeCount,
			IsOddTime:         fv.IsOddTime,
		},
		Fingerprint: observed,
		DecidedAt:   time.Now(),
	}
	if label == 1 {
		d.Label = LabelFraud
	}
	d.Allowed = d.Label == LabelNormal

	return d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
