package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/threadline/configurator-backend/internal/app/service"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
	"github.com/threadline/configurator-backend/internal/middleware"
	"gorm.io/gorm"
)

// parseIDParam reads a positive numeric path parameter. On failure the 400
// has already been written.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid path id", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// requireMerchant returns the authenticated merchant id or writes a 401.
func requireMerchant(c *gin.Context) (uint, bool) {
	merchantID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return merchantID, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func queryUint(c *gin.Context, key string) *uint {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	id := uint(n)
	return &id
}

// respondServiceError maps service sentinels to their status and code.
// Anything unrecognised is logged and parsed into a client-safe 500.
func respondServiceError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrToolNotFound):
		apperrors.NotFound(c, apperrors.ToolNotFound, "Tool not found")
	case errors.Is(err, service.ErrProductToolNotFound):
		apperrors.NotFound(c, apperrors.ToolBindingNotFound, "Tool is not attached to this product")
	case errors.Is(err, service.ErrConfigEntryNotFound):
		apperrors.NotFound(c, apperrors.ConfigEntryNotFound, "Config option not found")
	case errors.Is(err, service.ErrNoChangesMade):
		apperrors.Conflict(c, apperrors.ConfigEntryUnchanged, "No changes made")
	case errors.Is(err, service.ErrConfigNotArray):
		apperrors.Conflict(c, apperrors.ToolConfigNotArray, "Tool config does not hold a list of options")
	case errors.Is(err, service.ErrUnknownTool):
		apperrors.BadRequest(c, apperrors.ToolUnknown, err.Error())
	case errors.Is(err, service.ErrInvalidEntryFields):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Config option fields must be a non-empty object")
	case errors.Is(err, service.ErrInvalidStatus):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid product status")
	case errors.Is(err, service.ErrInvalidModelKind):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown catalog model kind")
	case errors.Is(err, service.ErrRelatedModelNotFound):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Related catalog document not found")
	case errors.Is(err, service.ErrCannotForkCustomized):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "A customized product cannot be customized again")
	case errors.Is(err, service.ErrInvalidCustomization):
		apperrors.BadRequest(c, apperrors.ValidationRequired, "referencedProduct and customizedByUser are required")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		apperrors.ParseAndRespond(c, http.StatusConflict, err, action)
	default:
		log.Error("Request failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
		return
	}

	log.Warn("Request rejected", map[string]interface{}{
		"action": action,
		"error":  err.Error(),
	})
}
