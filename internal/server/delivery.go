package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/milkrun/internal/clock"
	"go.uber.org/zap"
)

// ListDeliveriesForPerson returns the person's route for the requested
// date (default today). The ensure pass runs first so a freshly assigned
// customer shows up without waiting for the next reconcile tick.
func (s *Server) ListDeliveriesForPerson(c *gin.Context) {
	personID, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	date := s.zone.Today()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		date, err = clock.ParseDate(raw)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_date", "invalid date, want YYYY-MM-DD"))
			return
		}
	}

	if date == s.zone.Today() {
		if _, err := s.reconciler.EnsureForPerson(c.Request.Context(), personID, date); err != nil {
			// The list below still serves whatever rows exist.
			s.log.Warn("ensure pass failed on dashboard load",
				zap.String("delivery_person_id", personID.String()),
				zap.Error(err),
			)
		}
	}

	rows, err := s.deliverySvc.ListForPerson(c.Request.Context(), personID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) MarkDelivered(c *gin.Context) {
	customerID, err := paramSnowflakeID(c, "customer_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := paramDate(c, "date")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	row, err := s.deliverySvc.MarkDelivered(c.Request.Context(), customerID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": row})
}

func (s *Server) MarkNotDelivered(c *gin.Context) {
	customerID, err := paramSnowflakeID(c, "customer_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := paramDate(c, "date")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	row, err := s.deliverySvc.MarkNotDelivered(c.Request.Context(), customerID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": row})
}
