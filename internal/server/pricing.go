package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
)

func (s *Server) ListPriceTiers(c *gin.Context) {
	tiers, err := s.pricingSvc.ListTiers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tiers})
}

func (s *Server) UpsertPriceTier(c *gin.Context) {
	var req pricingdomain.UpsertTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tier, err := s.pricingSvc.UpsertTier(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tier})
}

func (s *Server) DeactivatePriceTier(c *gin.Context) {
	quantity, err := paramInt(c, "quantity")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.pricingSvc.DeactivateTier(c.Request.Context(), quantity); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"quantity_ml": quantity, "active": false}})
}
