package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	containerdomain "github.com/smallbiznis/milkrun/internal/container/domain"
)

func (s *Server) GetContainerBalances(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balances, err := s.containerSvc.Balances(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": balances})
}

func (s *Server) ListContainerHistory(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.containerSvc.History(c.Request.Context(), id, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

type containerMoveRequest struct {
	CustomerID string `json:"customer_id"`
	SizeClass  string `json:"size_class"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes"`
}

func (s *Server) bindMoveRequest(c *gin.Context) (containerdomain.MoveRequest, bool) {
	var req containerMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return containerdomain.MoveRequest{}, false
	}

	customerID, err := snowflakeFromString(req.CustomerID)
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer", "invalid customer_id"))
		return containerdomain.MoveRequest{}, false
	}

	return containerdomain.MoveRequest{
		CustomerID: customerID,
		SizeClass:  containerdomain.SizeClass(strings.ToUpper(strings.TrimSpace(req.SizeClass))),
		Quantity:   req.Quantity,
		Notes:      strings.TrimSpace(req.Notes),
	}, true
}

func (s *Server) IssueContainers(c *gin.Context) {
	req, ok := s.bindMoveRequest(c)
	if !ok {
		return
	}

	entry, err := s.containerSvc.Issue(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) ReturnContainers(c *gin.Context) {
	req, ok := s.bindMoveRequest(c)
	if !ok {
		return
	}

	entry, err := s.containerSvc.Return(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) ListOverdueContainers(c *gin.Context) {
	threshold, err := queryInt(c, "threshold_days", s.cfg.OverdueThresholdDays)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	overdue, err := s.containerSvc.ListOverdue(c.Request.Context(), threshold)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": overdue})
}

type imposePenaltyRequest struct {
	CustomerID string `json:"customer_id"`
	FineCents  int64  `json:"fine_cents"`
	LargeCount int    `json:"large_count"`
	SmallCount int    `json:"small_count"`
	Notes      string `json:"notes"`
}

func (s *Server) ImposePenalty(c *gin.Context) {
	var req imposePenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customerID, err := snowflakeFromString(req.CustomerID)
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer", "invalid customer_id"))
		return
	}

	if err := s.containerSvc.ImposePenalty(c.Request.Context(), containerdomain.PenaltyRequest{
		CustomerID: customerID,
		FineCents:  req.FineCents,
		LargeCount: req.LargeCount,
		SmallCount: req.SmallCount,
		Notes:      strings.TrimSpace(req.Notes),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}
