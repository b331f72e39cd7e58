package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatmypdf/internal/app"
	"chatmypdf/internal/transport/http/response"
)

// LowCreditThreshold is the balance at or below which clients warn the user.
const LowCreditThreshold = 5

type CreditHandler struct {
	payments      *app.PaymentService
	allowOverride bool
}

type SetCreditsRequest struct {
	Credits *int `json:"credits" binding:"required"`
}

type CheckoutRequest struct {
	Tier string `json:"tier" binding:"required"`
}

func NewCreditHandler(payments *app.PaymentService, allowOverride bool) *CreditHandler {
	return &CreditHandler{payments: payments, allowOverride: allowOverride}
}

func (h *CreditHandler) Balance(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	user := ws.Identity.Current()
	if user == nil {
		respondError(c, app.ErrUnauthenticated)
		return
	}
	response.OK(c, gin.H{
		"credits":   user.Credits,
		"available": ws.Identity.Available(),
		"low":       user.Credits <= LowCreditThreshold,
	})
}

func (h *CreditHandler) SetCredits(c *gin.Context) {
	if !h.allowOverride {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "setting credits directly is disabled")
		return
	}
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}

	var req SetCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := ws.Identity.SetCredits(c.Request.Context(), *req.Credits); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, ws.Identity.Current())
}

func (h *CreditHandler) Packs(c *gin.Context) {
	response.OK(c, h.payments.Packs())
}

func (h *CreditHandler) Checkout(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.payments.Checkout(c.Request.Context(), ws, req.Tier)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Notification receives payment provider callbacks. It is not behind auth;
// the signature is checked instead.
func (h *CreditHandler) Notification(c *gin.Context) {
	var req app.PaymentNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.payments.HandleNotification(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, gin.H{"order_id": req.OrderID})
}
