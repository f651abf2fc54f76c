package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appointmentdomain "github.com/smallbiznis/garagedesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	catalogdomain "github.com/smallbiznis/garagedesk/internal/catalog/domain"
	"github.com/smallbiznis/garagedesk/internal/identity"
	invoicedomain "github.com/smallbiznis/garagedesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors lets handlers reject a request with field level detail.
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
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// validationErrs are the domain sentinels that mean "fix your input". Their
// text is the code sent to the client unless validationCodes says otherwise.
var validationErrs = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,

	catalogdomain.ErrInvalidID,
	catalogdomain.ErrInvalidName,
	catalogdomain.ErrInvalidCode,
	catalogdomain.ErrInvalidPrice,

	appointmentdomain.ErrInvalidID,
	appointmentdomain.ErrInvalidCustomerName,
	appointmentdomain.ErrInvalidServices,
	appointmentdomain.ErrInvalidScheduledAt,
	appointmentdomain.ErrInvalidPageToken,

	invoicedomain.ErrInvalidID,
	invoicedomain.ErrInvalidItem,
	invoicedomain.ErrNoItems,
	invoicedomain.ErrInvalidCurrency,
	invoicedomain.ErrInvalidPageToken,

	paymentdomain.ErrInvalidID,
	paymentdomain.ErrInvalidSession,
	paymentdomain.ErrInvalidSignature,
	paymentdomain.ErrInvalidPayload,

	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidPageToken,
}

var validationCodes = map[error]string{
	invoicedomain.ErrNoItems: "invalid_items",
}

var validationMessages = map[string]string{
	"invalid_request":   "invalid request",
	"invalid_items":     "invoice needs at least one item",
	"invalid_signature": "webhook signature verification failed",
}

// statusRules maps everything that is not a validation failure. The first
// matching rule wins.
var statusRules = []struct {
	target  error
	status  int
	kind    string
	message string
}{
	{ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "unauthorized"},
	{identity.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized", "unauthorized"},

	{ErrForbidden, http.StatusForbidden, "forbidden", "forbidden"},
	{authorization.ErrForbidden, http.StatusForbidden, "forbidden", "forbidden"},

	{paymentdomain.ErrInvoiceAlreadyPaid, http.StatusConflict, "conflict", "invoice already paid"},
	{catalogdomain.ErrDuplicate, http.StatusConflict, "conflict", "service already exists"},
	{ErrConflict, http.StatusConflict, "conflict", "conflict"},

	{ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{catalogdomain.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{appointmentdomain.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{appointmentdomain.ErrServiceNotFound, http.StatusNotFound, "not_found", "not found"},
	{invoicedomain.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{invoicedomain.ErrAppointmentMissing, http.StatusNotFound, "not_found", "not found"},
	{paymentdomain.ErrSessionNotFound, http.StatusNotFound, "not_found", "not found"},
	{paymentdomain.ErrAttemptNotFound, http.StatusNotFound, "not_found", "not found"},
	{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found", "not found"},

	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "too many requests"},

	{ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable", "service unavailable"},
	{paymentdomain.ErrProviderUnavailable, http.StatusServiceUnavailable, "service_unavailable", "service unavailable"},
	{paymentdomain.ErrInvalidConfig, http.StatusServiceUnavailable, "service_unavailable", "service unavailable"},
}

// ErrorHandlingMiddleware renders the last handler error as a JSON body
// unless the handler already wrote a response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(last.Err)
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
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func mapError(err error) (int, errorPayload) {
	var fields *ValidationErrors
	if errors.As(err, &fields) && fields != nil {
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: "validation error", Errors: fields.Errors}
	}

	for _, sentinel := range validationErrs {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors:  []ValidationError{describeInvalid(sentinel)},
			}
		}
	}

	for _, rule := range statusRules {
		if errors.Is(err, rule.target) {
			return rule.status, errorPayload{Type: rule.kind, Message: rule.message}
		}
	}
	return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
}

// describeInvalid derives the field from the code, so "invalid_currency"
// points at "currency".
func describeInvalid(sentinel error) ValidationError {
	code, ok := validationCodes[sentinel]
	if !ok {
		code = sentinel.Error()
	}

	field := ""
	switch {
	case code == "invalid_request":
		field = "request"
	case strings.HasPrefix(code, "invalid_"):
		field = strings.TrimPrefix(code, "invalid_")
	}

	message, ok := validationMessages[code]
	if !ok {
		message = "invalid value"
	}
	return ValidationError{Field: field, Code: code, Message: message}
}
