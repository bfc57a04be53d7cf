package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	activitylogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	authdomain "github.com/rentflow/rentflow/internal/auth/domain"
	"github.com/rentflow/rentflow/internal/authorization"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	maintenancedomain "github.com/rentflow/rentflow/internal/maintenance/domain"
	organizationdomain "github.com/rentflow/rentflow/internal/organization/domain"
	paymentdomain "github.com/rentflow/rentflow/internal/payment/domain"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	subscriptiondomain "github.com/rentflow/rentflow/internal/subscription/domain"
	tenantdomain "github.com/rentflow/rentflow/internal/tenant/domain"
	unitdomain "github.com/rentflow/rentflow/internal/unit/domain"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTokenRequired  = errors.New("token_required")
	ErrForbidden      = errors.New("forbidden")
	ErrOrgInactive    = errors.New("organization_inactive")
	ErrOrgAccess      = errors.New("organization_access_denied")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
	ErrInternal       = errors.New("internal_error")
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandlingMiddleware renders the last gin error as the uniform envelope.
// Handlers push domain errors via AbortWithError and never write status codes
// themselves.
func ErrorHandlingMiddleware(includeDetail bool) gin.HandlerFunc {
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
		if includeDetail && status >= http.StatusInternalServerError {
			payload.Details = lastErr.Err.Error()
		}
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal_error"}
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: errorCode(err, "unauthorized")}
	case isForbiddenError(err):
		return http.StatusForbidden, errorResponse{Error: "forbidden", Code: errorCode(err, "forbidden")}
	case isNotFoundError(err):
		return http.StatusNotFound, errorResponse{Error: "not found", Code: errorCode(err, "not_found")}
	case isConflictError(err):
		return http.StatusConflict, errorResponse{Error: "conflict", Code: errorCode(err, "conflict")}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "too many requests", Code: "rate_limited"}
	case isValidationError(err):
		return http.StatusBadRequest, errorResponse{Error: "invalid request", Code: errorCode(err, "invalid_request")}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal_error"}
	}
}

// errorCode surfaces the domain error string as the machine-readable code.
func errorCode(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	msg := err.Error()
	if msg == "" || len(msg) > 64 {
		return fallback
	}
	return msg
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrTokenRequired),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, authdomain.ErrUserInactive):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrOrgInactive),
		errors.Is(err, ErrOrgAccess),
		errors.Is(err, authorization.ErrForbidden):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrMemberNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, propertydomain.ErrNotFound),
		errors.Is(err, unitdomain.ErrNotFound),
		errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, contractdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, maintenancedomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrPlanNotFound),
		errors.Is(err, subscriptiondomain.ErrNoSubscription),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, propertydomain.ErrHasActiveContract),
		errors.Is(err, organizationdomain.ErrMemberExists),
		errors.Is(err, organizationdomain.ErrLastOwner),
		errors.Is(err, unitdomain.ErrDuplicateUnitNumber),
		errors.Is(err, unitdomain.ErrUnitOccupied),
		errors.Is(err, tenantdomain.ErrDuplicateEmail),
		errors.Is(err, tenantdomain.ErrTenantHasContract),
		errors.Is(err, contractdomain.ErrNotDraft),
		errors.Is(err, contractdomain.ErrNotActive),
		errors.Is(err, contractdomain.ErrUnitOccupied),
		errors.Is(err, paymentdomain.ErrDuplicatePeriod),
		errors.Is(err, paymentdomain.ErrNotSettleable),
		errors.Is(err, paymentdomain.ErrNotRefundable),
		errors.Is(err, paymentdomain.ErrAlreadyTerminal),
		errors.Is(err, maintenancedomain.ErrAlreadyClosed),
		errors.Is(err, subscriptiondomain.ErrOverPlanLimit),
		errors.Is(err, subscriptiondomain.ErrAlreadyCanceled):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrInvalidPassword),
		errors.Is(err, organizationdomain.ErrInvalidName),
		errors.Is(err, organizationdomain.ErrInvalidRole),
		errors.Is(err, organizationdomain.ErrInvalidUser),
		errors.Is(err, organizationdomain.ErrInvalidOrganization),
		errors.Is(err, propertydomain.ErrInvalidName),
		errors.Is(err, propertydomain.ErrInvalidAddress),
		errors.Is(err, propertydomain.ErrInvalidType),
		errors.Is(err, propertydomain.ErrInvalidProperty),
		errors.Is(err, propertydomain.ErrInvalidOrganization),
		errors.Is(err, unitdomain.ErrInvalidOrganization),
		errors.Is(err, unitdomain.ErrInvalidProperty),
		errors.Is(err, unitdomain.ErrInvalidUnit),
		errors.Is(err, unitdomain.ErrInvalidUnitNumber),
		errors.Is(err, unitdomain.ErrInvalidStatus),
		errors.Is(err, unitdomain.ErrInvalidRent),
		errors.Is(err, tenantdomain.ErrInvalidOrganization),
		errors.Is(err, tenantdomain.ErrInvalidTenant),
		errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, tenantdomain.ErrInvalidEmail),
		errors.Is(err, tenantdomain.ErrInvalidDateOfBirth),
		errors.Is(err, contractdomain.ErrInvalidOrganization),
		errors.Is(err, contractdomain.ErrInvalidContract),
		errors.Is(err, contractdomain.ErrInvalidUnit),
		errors.Is(err, contractdomain.ErrInvalidTenant),
		errors.Is(err, contractdomain.ErrInvalidDates),
		errors.Is(err, contractdomain.ErrInvalidRent),
		errors.Is(err, contractdomain.ErrInvalidDueDay),
		errors.Is(err, contractdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidOrganization),
		errors.Is(err, paymentdomain.ErrInvalidPayment),
		errors.Is(err, paymentdomain.ErrInvalidContract),
		errors.Is(err, paymentdomain.ErrInvalidTenant),
		errors.Is(err, paymentdomain.ErrInvalidType),
		errors.Is(err, paymentdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidDates),
		errors.Is(err, maintenancedomain.ErrInvalidOrganization),
		errors.Is(err, maintenancedomain.ErrInvalidRequest),
		errors.Is(err, maintenancedomain.ErrInvalidProperty),
		errors.Is(err, maintenancedomain.ErrInvalidUnit),
		errors.Is(err, maintenancedomain.ErrInvalidTenant),
		errors.Is(err, maintenancedomain.ErrInvalidTitle),
		errors.Is(err, maintenancedomain.ErrInvalidPriority),
		errors.Is(err, maintenancedomain.ErrInvalidStatus),
		errors.Is(err, maintenancedomain.ErrInvalidCost),
		errors.Is(err, subscriptiondomain.ErrInvalidOrganization),
		errors.Is(err, subscriptiondomain.ErrPlanInactive),
		errors.Is(err, activitylogdomain.ErrInvalidOrganization):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger the error family and code
// without rendering anything.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Code
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth", payload.Code
	case status == http.StatusTooManyRequests:
		return "rate_limit", payload.Code
	default:
		return "client", payload.Code
	}
}
