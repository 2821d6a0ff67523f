package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetBillingStatus(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := paramInt(c, "year")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	month, err := paramInt(c, "month")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status, err := s.billingSvc.StatusFor(c.Request.Context(), id, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (s *Server) MarkMonthPaid(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := paramInt(c, "year")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	month, err := paramInt(c, "month")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payment, err := s.billingSvc.MarkPaid(c.Request.Context(), id, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}
