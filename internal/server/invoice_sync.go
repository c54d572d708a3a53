package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) SyncSubscriptionInvoices(c *gin.Context) {
	if s.syncSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	subscriptionID, err := parseIDParam(c, "subscription_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.syncSvc.SyncSubscription(c.Request.Context(), subscriptionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListSubscriptionInvoices(c *gin.Context) {
	if s.syncSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	subscriptionID, err := parseIDParam(c, "subscription_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoices, err := s.syncSvc.Invoices(c.Request.Context(), subscriptionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) SyncArtistInvoices(c *gin.Context) {
	if s.syncSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	artistID, err := parseIDParam(c, "artist_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.syncSvc.SyncArtist(c.Request.Context(), artistID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
