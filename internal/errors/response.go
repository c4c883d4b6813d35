package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/threadline/configurator-backend/internal/response"
)

var exposeStack atomic.Bool

// SetExposeStack toggles stack traces on internal errors. It is enabled
// outside production.
func SetExposeStack(enabled bool) {
	exposeStack.Store(enabled)
}

// ErrorResponse is the envelope written for failed requests.
type ErrorResponse struct {
	response.Envelope
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Stack  []string          `json:"stack,omitempty"`
}

// RespondWithError writes a failed envelope.
// statusCode: HTTP status code
// errorCode: code constant from codes.go
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, newErrorResponse(statusCode, errorCode, message))
}

func newErrorResponse(statusCode int, errorCode, message string) ErrorResponse {
	return ErrorResponse{
		Envelope: response.Envelope{
			Success:    false,
			Message:    message,
			StatusCode: statusCode,
			Data:       nil,
		},
		Error: errorCode,
	}
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

// InternalError writes a 500. The cause is never sent to clients; in
// non-production environments the goroutine stack is attached.
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error, please try again later"
	}
	body := newErrorResponse(http.StatusInternalServerError, InternalServerError, message)
	if exposeStack.Load() {
		body.Stack = stackLines()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func stackLines() []string {
	lines := strings.Split(strings.TrimSpace(string(debug.Stack())), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.TrimSpace(line))
	}
	return out
}

// RespondWithValidationError writes a 400 with per-field messages.
func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	body := newErrorResponse(http.StatusBadRequest, ValidationInvalidInput, "Invalid input")
	body.Fields = fields
	c.JSON(http.StatusBadRequest, body)
}

// RespondWithBindingError translates a ShouldBind error. Validator failures
// become per-field messages; anything else is a malformed body.
func RespondWithBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		RespondWithValidationError(c, ValidationFields(verrs))
		return
	}
	BadRequest(c, ValidationInvalidFormat, "Malformed request body")
}

// ValidationFields maps validator errors to field name -> message.
func ValidationFields(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonFieldName(fe)] = fieldMessage(fe)
	}
	return fields
}

func jsonFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	if ns == "" {
		ns = fe.Field()
	}
	return lowerFirst(ns)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "toolslug":
		return "must be a lowercase slug"
	case "modelkind":
		return "must be a known catalog model"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
