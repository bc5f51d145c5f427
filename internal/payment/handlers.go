package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tkaria/payguard/internal/decision"
)

// TokenIssuer mints bearer tokens for newly registered users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Handler provides HTTP endpoints for payment screening.
type Handler struct {
	service *Service
	tokens  TokenIssuer
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// WithTokenIssuer makes registration responses include a bearer token for
// the new user. Without an issuer, clients are expected to obtain tokens
// from an external identity provider.
func (h *Handler) WithTokenIssuer(iss TokenIssuer) *Handler {
	h.tokens = iss
	return h
}

// RegisterRoutes sets up public payment routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.RegisterUser)
}

// RegisterProtectedRoutes sets up protected (auth-required) payment routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/payments", h.SubmitPayment)
	r.GET("/users/:id/state", h.GetRiskState)
}

// RegisterUser handles POST /v1/users
func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "userId is required",
		})
		return
	}

	state, err := h.service.Register(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"state": state}
	if h.tokens != nil {
		token, err := h.tokens.Issue(req.UserID)
		if err != nil {
			writeError(c, err)
			return
		}
		resp["token"] = token
		resp["warning"] = "Store this token securely. It will not be shown again."
	}

	c.JSON(http.StatusCreated, resp)
}

// SubmitPayment handles POST /v1/payments
func (h *Handler) SubmitPayment(c *gin.Context) {
	userID := c.GetString("authUserID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Authenticated user required",
		})
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Malformed payment body",
		})
		return
	}
	if req.SourceIP == "" {
		req.SourceIP = c.ClientIP()
	}

	d, err := h.service.Submit(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decision": d})
}

// GetRiskState handles GET /v1/users/:id/state
func (h *Handler) GetRiskState(c *gin.Context) {
	userID := c.Param("id")

	// Users may only read their own risk state.
	if caller := c.GetString("authUserID"); caller != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "Authenticated user must be the state owner",
		})
		return
	}

	state, err := h.service.State(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

// writeError maps domain errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": verr.Error(),
		})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "User is not registered",
		})
	case errors.Is(err, ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "already_exists",
			"message": "User is already registered",
		})
	case errors.Is(err, decision.ErrClassifier):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "classifier_unavailable",
			"message": "Fraud model is unavailable, try again later",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}
}
