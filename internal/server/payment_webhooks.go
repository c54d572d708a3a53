package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
)

type paymentFailureRequest struct {
	// Either the local subscription id or the processor's own
	// subscription reference identifies the subscription.
	SubscriptionID          string `json:"subscription_id"`
	ProviderSubscriptionRef string `json:"provider_subscription_id"`
	InvoiceID               string `json:"invoice_id" binding:"required"`
	AmountCents             int64  `json:"amount_cents"`
	FailureReason           string `json:"failure_reason"`
}

// RecordPaymentFailure is the processor webhook entry point. Repeated
// delivery of the same failure increments the attempt counter instead
// of creating duplicates, so the handler needs no dedup of its own.
func (s *Server) RecordPaymentFailure(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req paymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var subscriptionID int64
	providerRef := strings.TrimSpace(req.ProviderSubscriptionRef)
	if raw := strings.TrimSpace(req.SubscriptionID); raw != "" {
		var err error
		subscriptionID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || subscriptionID <= 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	} else if providerRef == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event, err := s.billingSvc.RecordPaymentFailure(c.Request.Context(), billingcycledomain.RecordPaymentFailureRequest{
		SubscriptionID:          snowflake.ID(subscriptionID),
		ProviderSubscriptionRef: providerRef,
		ProviderInvoiceID:       strings.TrimSpace(req.InvoiceID),
		AmountCents:             req.AmountCents,
		FailureReason:           req.FailureReason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}
