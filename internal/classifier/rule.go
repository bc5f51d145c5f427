package classifier

import (
	"context"

	"github.com/tkaria/payguard/internal/decision"
)

// RulePattern is a single weighted fraud signal over a feature vector.
type RulePattern struct {
	Name   string
	Weight int
	Detect func(fv decision.FeatureVector) bool
}

// RuleClassifier is a deterministic weighted-rule classifier used in demo
// mode and tests, when no model server is configured. It approximates the
// trained model: each matching pattern adds its weight, and vectors at or
// above the threshold are labeled fraudulent.
type RuleClassifier struct {
	patterns  []RulePattern
	threshold int
}

// DefaultFraudThreshold is the score at which a vector is labeled fraud.
const DefaultFraudThreshold = 60

// NewRuleClassifier creates a rule classifier with the default patterns.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		threshold: DefaultFraudThreshold,
		patterns: []RulePattern{
			{
				Name:   "large_amount",
				Weight: 30,
				Detect: func(fv decision.FeatureVector) bool { return fv.Amount >= 1000 },
			},
			{
				Name:   "ip_change",
				Weight: 25,
				Detect: func(fv decision.FeatureVector) bool { return fv.IsMaliciousIP == 1 },
			},
			{
				Name:   "device_change",
				Weight: 25,
				Detect: func(fv decision.FeatureVector) bool { return fv.IsMaliciousDevice == 1 },
			},
			{
				Name:   "odd_time",
				Weight: 20,
				Detect: func(fv decision.FeatureVector) bool { return fv.IsOddTime == 1 },
			},
			{
				Name:   "high_velocity",
				Weight: 25,
				Detect: func(fv decision.FeatureVector) bool { return fv.TransactionCount24h > 10 },
			},
		},
	}
}

// WithThreshold overrides the fraud threshold.
func (r *RuleClassifier) WithThreshold(t int) *RuleClassifier {
	r.threshold = t
	return r
}

// Classify scores the vector against all patterns and returns 1 when the
// total weight reaches the threshold, else 0. Never fails.
func (r *RuleClassifier) Classify(ctx context.Context, fv decision.FeatureVector) (int, error) {
	score := 0
	for _, p := range r.patterns {
		if p.Detect(fv) {
			score += p.Weight
		}
	}
	if score >= r.threshold {
		return 1, nil
	}
	return 0, nil
}
