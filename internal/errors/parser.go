package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a client-safe code and message for an unexpected error.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts a store or transport error into a client-safe code and
// message. context names the resource or action ("product", "create tool").
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Internal server error",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// Unique constraint violation (23505)
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errStrLower, "duplicate key") ||
		strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}

	// Foreign key constraint violation (23503)
	if errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "Referenced data does not exist or is still in use",
		}
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A backing service is unavailable, please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "Email is already registered"}
	case strings.Contains(errLower, "idx_product_tool_pair"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Tool is already attached to this product"}
	case strings.Contains(errLower, "idx_product_fork"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "A customized copy already exists for this user"}
	case strings.Contains(errLower, "value"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "A tool with this value already exists"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "Resource already exists"}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "entry"):
		return "Config entry not found"
	case strings.Contains(contextLower, "tool"):
		return "Tool not found"
	case strings.Contains(contextLower, "product"):
		return "Product not found"
	case strings.Contains(contextLower, "user"):
		return "User not found"
	}
	return "Requested resource not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"):
		return "Failed to create resource, please try again later"
	case strings.Contains(contextLower, "update"):
		return "Failed to update resource, please try again later"
	case strings.Contains(contextLower, "delete"):
		return "Failed to delete resource, please try again later"
	}
	return "Internal server error, please try again later"
}

// ParseAndRespond parses err and writes it with the given status code.
// 5xx responses go through InternalError so stack exposure stays consistent.
func ParseAndRespond(c ginContext, statusCode int, err error, context string) {
	info := ParseError(err, context)
	body := newErrorResponse(statusCode, info.Code, info.Message)
	if statusCode >= 500 && exposeStack.Load() {
		body.Stack = stackLines()
	}
	c.JSON(statusCode, body)
}

type ginContext interface {
	JSON(int, interface{})
}
