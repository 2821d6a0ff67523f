package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/milkrun/internal/clock"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
)

type registerCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (s *Server) RegisterCustomer(c *gin.Context) {
	var req registerCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Register(c.Request.Context(), customerdomain.RegisterRequest{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type completeProfileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (s *Server) CompleteProfile(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req completeProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.CompleteProfile(c.Request.Context(), id, customerdomain.CompleteProfileRequest{
		Name:    strings.TrimSpace(req.Name),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PaymentReceived is called by the payment boundary once funds are
// confirmed. It advances the onboarding state; the wallet credit itself
// goes through the top-up endpoint.
func (s *Server) PaymentReceived(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.customerSvc.OnPaymentReceived(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}

type assignRequest struct {
	DeliveryPersonID string `json:"delivery_person_id"`
	StartDate        string `json:"start_date"`
}

func (s *Server) AssignDeliveryPerson(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	personID, perr := snowflakeFromString(req.DeliveryPersonID)
	if perr != nil {
		AbortWithError(c, newValidationError("delivery_person_id", "invalid_delivery_person", "invalid delivery_person_id"))
		return
	}

	startDate := s.zone.Today()
	if strings.TrimSpace(req.StartDate) != "" {
		startDate, err = clock.ParseDate(strings.TrimSpace(req.StartDate))
		if err != nil {
			AbortWithError(c, newValidationError("start_date", "invalid_date", "invalid start_date, want YYYY-MM-DD"))
			return
		}
	}

	resp, err := s.customerSvc.AssignDeliveryPerson(c.Request.Context(), customerdomain.AssignRequest{
		CustomerID:       id,
		DeliveryPersonID: personID,
		StartDate:        startDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UnassignDeliveryPerson(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.UnassignDeliveryPerson(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
