package handler

import (
	"net/http"

	"agentic-checkout/internal/adapter/http/dto"
	"agentic-checkout/internal/adapter/http/middleware"
	"agentic-checkout/internal/core/ports"
	"agentic-checkout/pkg/apperror"
	"agentic-checkout/pkg/response"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler exposes the five checkout session operations. Mutations
// write the service's serialized body verbatim so idempotent replays stay
// byte-equal with the original response.
type CheckoutHandler struct {
	svc ports.CheckoutService
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(svc ports.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

func idempotencyKey(c *gin.Context) string {
	return c.GetHeader(middleware.HeaderIdempotencyKey)
}

// Create handles POST /checkout_sessions.
// A fresh execution answers 201; an idempotent replay answers 200.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.InvalidJSON())
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.Create(c.Request.Context(), idempotencyKey(c), req.ToPorts())
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	response.Raw(c, status, result.Body)
}

// Get handles GET /checkout_sessions/:id.
func (h *CheckoutHandler) Get(c *gin.Context) {
	session, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Update handles POST /checkout_sessions/:id.
func (h *CheckoutHandler) Update(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.InvalidJSON())
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.Update(c.Request.Context(), idempotencyKey(c), c.Param("id"), req.ToPorts())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, result.Body)
}

// Complete handles POST /checkout_sessions/:id/complete.
func (h *CheckoutHandler) Complete(c *gin.Context) {
	var req dto.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.InvalidJSON())
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), idempotencyKey(c), c.Param("id"), req.ToPorts())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, result.Body)
}

// Cancel handles POST /checkout_sessions/:id/cancel. The body, if any, is
// ignored.
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	result, err := h.svc.Cancel(c.Request.Context(), idempotencyKey(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, result.Body)
}
