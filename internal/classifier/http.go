// Package classifier provides implementations of the classification boundary.
//
// The production implementation calls a remote model server; the rule
// classifier is a deterministic fallback for demo mode and tests. Both
// satisfy decision.Classifier and are injected into the decision engine —
// there are no package-level model handles.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tkaria/payguard/internal/circuitbreaker"
	"github.com/tkaria/payguard/internal/decision"
	"github.com/tkaria/payguard/internal/metrics"
)

// ErrCircuitOpen is returned when the model server circuit breaker is open.
var ErrCircuitOpen = errors.New("model server circuit open")

// HTTPClassifier calls a remote model server.
//
// Wire contract: POST {base}/predict with the JSON feature vector; the
// response body is {"prediction": 0|1} or the label form
// {"prediction": "Fraud"|"Normal"}, depending on the model server build.
// Anything else (transport error, non-200 status, missing or out-of-domain
// prediction) is a classification failure, surfaced to the caller rather
// than coerced into a label.
type HTTPClassifier struct {
	base    string
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

// NewHTTPClassifier creates a classifier client for the model server at base.
func NewHTTPClassifier(base string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClassifier{
		base:    strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New("model_server", 5, 30*time.Second),
	}
}

// Classify sends the feature vector to the model server and returns the
// predicted label.
func (c *HTTPClassifier) Classify(ctx context.Context, fv decision.FeatureVector) (int, error) {
	if !c.breaker.Allow() {
		metrics.ClassifierRequestsTotal.WithLabelValues("circuit_open").Inc()
		return 0, ErrCircuitOpen
	}

	timer := prometheus.NewTimer(metrics.ClassifierRequestDuration)
	defer timer.ObserveDuration()

	label, err := c.predict(ctx, fv)
	if err != nil {
		c.breaker.RecordFailure()
		metrics.ClassifierRequestsTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	c.breaker.RecordSuccess()
	metrics.ClassifierRequestsTotal.WithLabelValues("ok").Inc()
	return label, nil
}

func (c *HTTPClassifier) predict(ctx context.Context, fv decision.FeatureVector) (int, error) {
	body, err := json.Marshal(fv)
	if err != nil {
		return 0, fmt.Errorf("marshal feature vector: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build model server request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model server request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model server returned status %d", resp.StatusCode)
	}

	var out struct {
		Prediction json.RawMessage `json:"prediction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode model server response: %w", err)
	}
	if len(out.Prediction) == 0 || string(out.Prediction) == "null" {
		return 0, fmt.Errorf("model server response missing prediction")
	}

	return parsePrediction(out.Prediction)
}

// parsePrediction accepts both prediction encodings model servers use: the
// raw class index and its rendered label.
func parsePrediction(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n != 0 && n != 1 {
			return 0, fmt.Errorf("model server returned out-of-domain prediction %d", n)
		}
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "Fraud":
			return 1, nil
		case "Normal":
			return 0, nil
		}
		return 0, fmt.Errorf("model server returned out-of-domain prediction %q", s)
	}

	return 0, fmt.Errorf("model server returned unparseable prediction %s", raw)
}
