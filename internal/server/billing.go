package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
)

func (s *Server) GetArtistBillingSummary(c *gin.Context) {
	if s.summarySvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	artistID, err := parseIDParam(c, "artist_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.summarySvc.Summary(c.Request.Context(), artistID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) GetArtistUpcomingInvoices(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	artistID, err := parseIDParam(c, "artist_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	previews, err := s.billingSvc.UpcomingInvoices(c.Request.Context(), billingcycledomain.PreviewRequest{
		ArtistID: artistID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"upcoming_invoices": previews})
}

func (s *Server) GetAllUpcomingInvoices(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	previews, err := s.billingSvc.UpcomingInvoices(c.Request.Context(), billingcycledomain.PreviewRequest{})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"upcoming_invoices": previews})
}

func (s *Server) GetBillingCycleInfo(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	subscriptionID, err := parseIDParam(c, "subscription_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	info, err := s.billingSvc.CycleInfo(c.Request.Context(), subscriptionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidRequest
	}
	return snowflake.ID(id), nil
}
