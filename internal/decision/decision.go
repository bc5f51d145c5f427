// Package decision renders fraud decisions from derived transaction features.
//
// The engine assembles a bounded feature vector from the transaction amount
// and the risk tracker's output, invokes the classification boundary, and
// maps the binary label to an allow/deny decision. The classifier itself is
// an injected collaborator; this package never defaults to a label when
// classification fails.
package decision

import (
	"context"
	"errors"
	"time"

	"github.com/tkaria/payguard/internal/risk"
)

// ErrClassifier indicates the classification boundary failed or returned an
// out-of-domain result. No decision exists for the transaction and the
// caller must not persist the proposed state update.
var ErrClassifier = errors.New("classification failed")

// Label is the rendered classifier verdict.
type Label string

const (
	LabelFraud  Label = "Fraud"
	LabelNormal Label = "Normal"
)

// FeatureVector is the classifier input derived from one transaction.
// Flag fields are 0/1 integers so the vector matches the model's training
// schema; JSON keys follow the model service's wire contract.
type FeatureVector struct {
	Amount              float64 `json:"amount"`
	IsMaliciousIP       int     `json:"is_mal_ip"`
	IsMaliciousDevice   int     `json:"is_mal_device"`
	IsOddTime           int     `json:"odd_time"`
	TransactionCount24h int     `json:"txn_count_24h"`
}

// Classifier is the classification boundary. Implementations return 0
// (normal) or 1 (fraud); anything else is treated as a malformed result.
type Classifier interface {
	Classify(ctx context.Context, fv FeatureVector) (int, error)
}

// RiskFactors are the cumulative behavioral counters echoed in a Decision.
// These come from the persisted state, not the instantaneous flags: they
// answer "how many times has this ever changed", not "did it change now".
type RiskFactors struct {
	IPChangeCount     int `json:"ipChangeCount"`
	DeviceChangeCount int `json:"deviceChangeCount"`
	IsOddTime         int `json:"oddTime"`
}

// Decision is the rendered outcome for one transaction.
type Decision struct {
	ID          string                  `json:"id"`
	UserID      string                  `json:"userId"`
	Label       Label                   `json:"label"`
	Allowed     bool                    `json:"allowed"`
	RiskFactors RiskFactors             `json:"riskFactors"`
	Fingerprint risk.SessionFingerprint `json:"fingerprint"`
	DecidedAt   time.Time               `json:"decidedAt"`
}
