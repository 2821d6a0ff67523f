package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
)

type topUpRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	PaymentRef  string `json:"payment_ref"`
}

// TopUpWallet credits confirmed funds and nudges the onboarding state
// machine: the first top-up moves PENDING_PAYMENT forward, later ones can
// reactivate an INACTIVE customer.
func (s *Server) TopUpWallet(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var ref *walletdomain.Reference
	if strings.TrimSpace(req.PaymentRef) != "" {
		refID, rerr := snowflakeFromString(req.PaymentRef)
		if rerr != nil {
			AbortWithError(c, newValidationError("payment_ref", "invalid_payment_ref", "invalid payment_ref"))
			return
		}
		ref = &walletdomain.Reference{Type: "payment", ID: refID}
	}

	balance, err := s.walletSvc.TopUp(c.Request.Context(), walletdomain.TopUpRequest{
		CustomerID:  id,
		AmountCents: req.AmountCents,
		Description: strings.TrimSpace(req.Description),
		Reference:   ref,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.customerSvc.OnPaymentReceived(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"balance_cents": balance}})
}

func (s *Server) GetWalletBalance(c *gin.Context) {
	id, err := paramSnowflakeID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.walletSvc.Balance(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"balance_cents": balance}})
}

func (s *Server) ListWalletTransactions(c *gin.Context) {
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

	txns, err := s.walletSvc.History(c.Request.Context(), id, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txns})
}
