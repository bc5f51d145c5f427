package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tkaria/payguard/internal/decision"
)

func setupHandlerTestRouter(cl decision.Classifier) (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)

	svc := NewService(NewMemoryStore(), decision.NewEngine(cl))
	handler := NewHandler(svc)

	r := gin.New()
	v1 := r.Group("/v1")
	handler.RegisterRoutes(v1)

	// Simulate auth middleware
	authGroup := v1.Group("")
	authGroup.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-User-ID"); uid != "" {
			c.Set("authUserID", uid)
		}
		c.Next()
	})
	handler.RegisterProtectedRoutes(authGroup)

	return r, svc
}

func postJSON(t *testing.T, router *gin.Engine, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_RegisterUser_201(t *testing.T) {
	router, _ := setupHandlerTestRouter(&stubClassifier{})

	w := postJSON(t, router, "/v1/users", "", RegisterRequest{UserID: "alice"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		State struct {
			UserID              string `json:"userId"`
			TransactionCount24h int    `json:"transactionCount24h"`
		} `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.State.UserID != "alice" {
		t.Errorf("Expected user alice, got %s", resp.State.UserID)
	}
	if resp.State.TransactionCount24h != 0 {
		t.Errorf("Expected zero transaction count, got %d", resp.State.TransactionCount24h)
	}
}

type stubIssuer struct {
	issued []string
}

func (s *stubIssuer) Issue(userID string) (string, error) {
	s.issued = append(s.issued, userID)
	return "tok-" + userID, nil
}

func TestHandler_RegisterUser_ReturnsToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := NewService(NewMemoryStore(), decision.NewEngine(&stubClassifier{}))
	issuer := &stubIssuer{}
	handler := NewHandler(svc).WithTokenIssuer(issuer)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/v1"))

	w := postJSON(t, r, "/v1/users", "", RegisterRequest{UserID: "alice"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Token != "tok-alice" {
		t.Errorf("Expected token tok-alice, got %q", resp.Token)
	}
	if len(issuer.issued) != 1 || issuer.issued[0] != "alice" {
		t.Errorf("Expected one token issued for alice, got %v", issuer.issued)
	}

	// A failed registration must not mint a token.
	w = postJSON(t, r, "/v1/users", "", RegisterRequest{UserID: "alice"})
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if len(issuer.issued) != 1 {
		t.Errorf("Expected no token for duplicate registration, got %v", issuer.issued)
	}
}

func TestHandler_RegisterUser_409(t *testing.T) {
	router, _ := setupHandlerTestRouter(&stubClassifier{})

	postJSON(t, router, "/v1/users", "", RegisterRequest{UserID: "alice"})
	w := postJSON(t, router, "/v1/users", "", RegisterRequest{UserID: "alice"})

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "already_exists" {
		t.Errorf("Expected error code already_exists, got %s", resp.Error)
	}
}

func TestHandler_RegisterUser_400(t *testing.T) {
	router, _ := setupHandlerTestRouter(&stubClassifier{})

	w := postJSON(t, router, "/v1/users", "", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandler_SubmitPayment_200(t *testing.T) {
	router, svc := setupHandlerTestRouter(&stubClassifier{label: 0})
	svc.Register(context.Background(), "alice")

	w := postJSON(t, router, "/v1/payments", "alice", SubmitRequest{
		Amount:            120,
		SourceIP:          "10.0.0.1",
		DeviceFingerprint: "dev-a",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Decision struct {
			ID      string `json:"id"`
			UserID  string `json:"userId"`
			Label   string `json:"label"`
			Allowed bool   `json:"allowed"`
		} `json:"decision"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Decision.ID == "" {
		t.Error("Expected non-empty decision ID")
	}
	if resp.Decision.Label != "Normal" || !resp.Decision.Allowed {
		t.Errorf("Expected (Normal, allowed), got (%s, %v)", resp.Decision.Label, resp.Decision.Allowed)
	}
}

func TestHandler_SubmitPayment_401(t *testing.T) {
	router, _ := setupHandlerTestRouter(&stubClassifier{})

	w := postJSON(t, router, "/v1/payments", "", SubmitRequest{
		Amount: 10, SourceIP: "10.0.0.1", DeviceFingerprint: "dev-a",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandler_SubmitPayment_404(t *testing.T) {
	router, _ := setupHandlerTestRouter(&stubClassifier{})

	w := postJSON(t, router, "/v1/payments", "ghost", SubmitRequest{
		Amount: 10, SourceIP: "10.0.0.1", DeviceFingerprint: "dev-a",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "not_found" {
		t.Errorf("Expected error code not_found, got %s", resp.Error)
	}
}

func TestHandler_SubmitPayment_400(t *testing.T) {
	router, svc := setupHandlerTestRouter(&stubClassifier{})
	svc.Register(context.Background(), "alice")

	w := postJSON(t, router, "/v1/payments", "alice", SubmitRequest{
		Amount: -5, SourceIP: "10.0.0.1", DeviceFingerprint: "dev-a",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "invalid_request" {
		t.Errorf("Expected error code invalid_request, got %s", resp.Error)
	}
}

func TestHandler_SubmitPayment_502(t *testing.T) {
	router, svc := setupHandlerTestRouter(&stubClassifier{err: errors.New("model server down")})
	svc.Register(context.Background(), "alice")

	w := postJSON(t, router, "/v1/payments", "alice", SubmitRequest{
		Amount: 10, SourceIP: "10.0.0.1", DeviceFingerprint: "dev-a",
	})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "classifier_unavailable" {
		t.Errorf("Expected error code classifier_unavailable, got %s", resp.Error)
	}
}

func TestHandler_SubmitPayment_FillsSourceIPFromConnection(t *testing.T) {
	router, svc := setupHandlerTestRouter(&stubClassifier{label: 0})
	svc.Register(context.Background(), "alice")

	// No sourceIp in the body: the handler falls back to the client address,
	// so validation must not reject the request.
	w := postJSON(t, router, "/v1/payments", "alice", map[string]any{
		"amount":            10,
		"deviceFingerprint": "dev-a",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandler_GetRiskState(t *testing.T) {
	router, svc := setupHandlerTestRouter(&stubClassifier{label: 0})
	svc.Register(context.Background(), "alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/users/alice/state", nil)
	req.Header.Set("X-User-ID", "alice")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandler_GetRiskState_ForbiddenForOtherUser(t *testing.T) {
	router, svc := setupHandlerTestRouter(&stubClassifier{label: 0})
	svc.Register(context.Background(), "alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/users/alice/state", nil)
	req.Header.Set("X-User-ID", "bob")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}
}
