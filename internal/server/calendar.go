package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	calendardomain "github.com/smallbiznis/milkrun/internal/calendar/domain"
	"github.com/smallbiznis/milkrun/internal/clock"
)

type pauseRequest struct {
	Date       string `json:"date"`
	ByCustomer bool   `json:"by_customer"`
}

func (s *Server) SetPause(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req pauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	date, err := clock.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date, want YYYY-MM-DD"))
		return
	}

	if err := s.calendarSvc.SetPause(c.Request.Context(), calendardomain.PauseRequest{
		CustomerID: id,
		Date:       date,
		ByCustomer: req.ByCustomer,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"date": date, "paused": true}})
}

func (s *Server) ClearPause(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := paramDate(c, "date")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.calendarSvc.ClearPause(c.Request.Context(), id, date); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"date": date, "paused": false}})
}

type modificationRequest struct {
	Date       string `json:"date"`
	QuantityML int    `json:"quantity_ml"`
	Notes      string `json:"notes"`
}

func (s *Server) SetModification(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req modificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	date, err := clock.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date, want YYYY-MM-DD"))
		return
	}

	if err := s.calendarSvc.SetModification(c.Request.Context(), calendardomain.ModificationRequest{
		CustomerID: id,
		Date:       date,
		QuantityML: req.QuantityML,
		Notes:      strings.TrimSpace(req.Notes),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"date": date, "quantity_ml": req.QuantityML}})
}

func (s *Server) ClearModification(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := paramDate(c, "date")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.calendarSvc.ClearModification(c.Request.Context(), id, date); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"date": date, "modified": false}})
}

type batchCalendarRequest struct {
	Action     string   `json:"action"`
	Dates      []string `json:"dates"`
	QuantityML int      `json:"quantity_ml"`
	Notes      string   `json:"notes"`
	ByCustomer bool     `json:"by_customer"`
}

// BatchCalendarAction applies one action across many dates and always
// answers 200 with a per-date outcome; a date blocked by the cutoff shows
// up as skipped, not as a failed request.
func (s *Server) BatchCalendarAction(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req batchCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dates := make([]clock.Date, 0, len(req.Dates))
	for _, raw := range req.Dates {
		date, err := clock.ParseDate(strings.TrimSpace(raw))
		if err != nil {
			AbortWithError(c, newValidationError("dates", "invalid_date", "invalid date "+raw))
			return
		}
		dates = append(dates, date)
	}

	results, err := s.calendarSvc.BatchApply(c.Request.Context(), calendardomain.BatchRequest{
		CustomerID: id,
		Dates:      dates,
		Action:     calendardomain.BatchAction(strings.ToUpper(strings.TrimSpace(req.Action))),
		QuantityML: req.QuantityML,
		Notes:      strings.TrimSpace(req.Notes),
		ByCustomer: req.ByCustomer,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (s *Server) GetEffectiveDay(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := paramDate(c, "date")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	eff, err := s.calendarSvc.EffectiveFor(c.Request.Context(), id, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": eff})
}

func (s *Server) GetMonthView(c *gin.Context) {
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

	days, err := s.calendarSvc.MonthView(c.Request.Context(), id, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": days})
}
