package classifier

import (
	"context"
	"testing"

	"github.com/tkaria/payguard/internal/decision"
)

func TestRuleClassifierBenign(t *testing.T) {
	c := NewRuleClassifier()

	// Small amount, stable fingerprint, daytime, low velocity.
	fv := decision.FeatureVector{Amount: 25, TransactionCount24h: 2}
	label, err := c.Classify(context.Background(), fv)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != 0 {
		t.Errorf("expected 0 for benign vector, got %d", label)
	}
}

func TestRuleClassifierFraudulent(t *testing.T) {
	c := NewRuleClassifier()

	// Large amount at an odd hour from a new IP and device.
	fv := decision.FeatureVector{
		Amount:              2000,
		IsMaliciousIP:       1,
		IsMaliciousDevice:   1,
		IsOddTime:           1,
		TransactionCount24h: 1,
	}
	label, err := c.Classify(context.Background(), fv)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != 1 {
		t.Errorf("expected 1 for high-risk vector, got %d", label)
	}
}

func TestRuleClassifierThreshold(t *testing.T) {
	// With a low threshold a single signal is enough.
	c := NewRuleClassifier().WithThreshold(20)

	fv := decision.FeatureVector{IsOddTime: 1}
	label, _ := c.Classify(context.Background(), fv)
	if label != 1 {
		t.Errorf("expected 1 at lowered threshold, got %d", label)
	}
}

func TestRuleClassifierDeterministic(t *testing.T) {
	c := NewRuleClassifier()
	fv := decision.FeatureVector{Amount: 1500, IsMaliciousIP: 1}

	first, _ := c.Classify(context.Background(), fv)
	for i := 0; i < 10; i++ {
		got, _ := c.Classify(context.Background(), fv)
		if got != first {
			t.Fatal("classification is not deterministic")
		}
	}
}
