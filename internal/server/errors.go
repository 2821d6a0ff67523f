package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/milkrun/internal/billing/domain"
	calendardomain "github.com/smallbiznis/milkrun/internal/calendar/domain"
	"github.com/smallbiznis/milkrun/internal/clock"
	containerdomain "github.com/smallbiznis/milkrun/internal/container/domain"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	if status, payload, ok := mapPolicyError(err); ok {
		return status, payload
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// mapPolicyError handles the business rejections that carry numbers the
// client needs: the cutoff lock, the deposit shortfall and the container
// balance bound.
func mapPolicyError(err error) (int, errorPayload, bool) {
	var cutoffErr *clock.CutoffError
	if errors.As(err, &cutoffErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "cutoff_exceeded",
			Message: cutoffErr.Error(),
			Details: map[string]any{
				"date":        cutoffErr.Date.String(),
				"cutoff_hour": cutoffErr.CutoffHour,
				"editable_at": cutoffErr.EditableAt.Format(time.RFC3339),
			},
		}, true
	}

	var shortfallErr *customerdomain.InsufficientBalanceError
	if errors.As(err, &shortfallErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_balance",
			Message: shortfallErr.Error(),
			Details: map[string]any{
				"required_cents":  shortfallErr.RequiredCents,
				"balance_cents":   shortfallErr.BalanceCents,
				"shortfall_cents": shortfallErr.ShortfallCents,
			},
		}, true
	}

	var exceedsErr *containerdomain.ExceedsBalanceError
	if errors.As(err, &exceedsErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "exceeds_balance",
			Message: exceedsErr.Error(),
			Details: map[string]any{
				"size_class":  string(exceedsErr.SizeClass),
				"requested":   exceedsErr.Requested,
				"outstanding": exceedsErr.Outstanding,
			},
		}, true
	}

	if errors.Is(err, clock.ErrPastDateNotAllowed) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "past_date_not_allowed",
			Message: "past dates cannot be changed",
		}, true
	}

	return 0, errorPayload{}, false
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, clock.ErrInvalidDate),
		errors.Is(err, customerdomain.ErrInvalidCustomer),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidPhone),
		errors.Is(err, customerdomain.ErrInvalidPerson),
		errors.Is(err, subscriptiondomain.ErrInvalidCustomer),
		errors.Is(err, subscriptiondomain.ErrSamePlan),
		errors.Is(err, pricingdomain.ErrInvalidQuantity),
		errors.Is(err, pricingdomain.ErrInvalidPrice),
		errors.Is(err, pricingdomain.ErrInvalidDeposit),
		errors.Is(err, pricingdomain.ErrUnsupportedQuantity),
		errors.Is(err, walletdomain.ErrInvalidCustomer),
		errors.Is(err, walletdomain.ErrInvalidAmount),
		errors.Is(err, walletdomain.ErrInvalidDelta),
		errors.Is(err, calendardomain.ErrInvalidCustomer),
		errors.Is(err, calendardomain.ErrNoDates),
		errors.Is(err, calendardomain.ErrInvalidAction),
		errors.Is(err, billingdomain.ErrInvalidCustomer),
		errors.Is(err, billingdomain.ErrInvalidMonth),
		errors.Is(err, containerdomain.ErrInvalidCustomer),
		errors.Is(err, containerdomain.ErrInvalidQuantity),
		errors.Is(err, containerdomain.ErrInvalidSizeClass),
		errors.Is(err, containerdomain.ErrInvalidFine):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, walletdomain.ErrConcurrentModification),
		errors.Is(err, containerdomain.ErrConcurrentModification),
		errors.Is(err, walletdomain.ErrWalletExists),
		errors.Is(err, subscriptiondomain.ErrAlreadySubscribed),
		errors.Is(err, billingdomain.ErrAlreadyPaid),
		errors.Is(err, customerdomain.ErrInvalidTransition),
		errors.Is(err, deliverydomain.ErrInvalidTransition):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrMissingSubscription),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, calendardomain.ErrNoSubscription),
		errors.Is(err, walletdomain.ErrWalletNotFound),
		errors.Is(err, deliverydomain.ErrNotFound),
		errors.Is(err, billingdomain.ErrNotFound),
		errors.Is(err, pricingdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "invalid_request" {
		return "request"
	}
	return ""
}
