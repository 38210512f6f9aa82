package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/commons/backend/internal/mpesa"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type stkPushRequestPayload struct {
	Phone            string `json:"phone"`
	Amount           int64  `json:"amount"`
	AccountReference string `json:"account_reference"`
	CallbackURL      string `json:"callback_url"`
	Description      string `json:"description"`
}

func (p stkPushRequestPayload) missingFields() []string {
	var missing []string
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	if p.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(p.AccountReference) == "" {
		missing = append(missing, "account_reference")
	}
	if strings.TrimSpace(p.CallbackURL) == "" {
		missing = append(missing, "callback_url")
	}
	return missing
}

type paymentHandler struct {
	initiator PaymentInitiator
	logger    *zap.Logger
}

func (h *paymentHandler) handleSTKPush(c *gin.Context) {
	if h.initiator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments_unavailable", "message": mpesa.ErrNotConfigured.Error()})
		return
	}

	var request stkPushRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_json", "message": err.Error()})
		return
	}
	if missing := request.missingFields(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "missing required fields: " + strings.Join(missing, ", "),
		})
		return
	}

	response, err := h.initiator.STKPush(c.Request.Context(), mpesa.STKPushRequest{
		Phone:            strings.TrimSpace(request.Phone),
		Amount:           request.Amount,
		AccountReference: request.AccountReference,
		CallbackURL:      request.CallbackURL,
		Description:      request.Description,
	})
	switch {
	case err == nil:
		c.Data(http.StatusOK, "application/json; charset=utf-8", response)
	case errors.Is(err, mpesa.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments_unavailable", "message": err.Error()})
	case errors.Is(err, mpesa.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	default:
		h.logger.Error("stk push failed", zap.String("account_reference", request.AccountReference), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment_failed", "message": err.Error()})
	}
}
