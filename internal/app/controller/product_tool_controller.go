package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/threadline/configurator-backend/internal/app/service"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/response"
)

type ProductToolController struct {
	productToolService   service.ProductToolService
	customizationService service.CustomizationService
}

func NewProductToolController(productToolService service.ProductToolService, customizationService service.CustomizationService) *ProductToolController {
	return &ProductToolController{
		productToolService:   productToolService,
		customizationService: customizationService,
	}
}

type bindingPath struct {
	productID uint
	toolID    uint
	entryID   string
}

func parseBindingPath(c *gin.Context, withEntry bool) (bindingPath, bool) {
	var path bindingPath
	var ok bool
	if path.productID, ok = parseIDParam(c, "id"); !ok {
		return path, false
	}
	if path.toolID, ok = parseIDParam(c, "toolId"); !ok {
		return path, false
	}
	if withEntry {
		path.entryID = c.Param("configOptionId")
		if path.entryID == "" {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid configOptionId")
			return path, false
		}
	}
	return path, true
}

func bindEntryFields(c *gin.Context) (map[string]interface{}, bool) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid config option payload", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Config option must be a JSON object")
		return nil, false
	}
	return fields, true
}

// ListToolsConfig returns every tool binding of the merchant's product
// GET /api/v1/products/:id/tools-config
func (ctrl *ProductToolController) ListToolsConfig(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	bindings, err := ctrl.productToolService.ListBindings(c.Request.Context(), merchantID, productID)
	if err != nil {
		respondServiceError(c, err, "list product tools")
		return
	}
	response.Success(c, http.StatusOK, "Product tools fetched successfully", bindings)
}

// PreviewToolsConfig returns the bindings a storefront renders: the
// user's customized copy when one exists, otherwise the product's own
// GET /api/v1/products/:id/tools-config-fe?customizedByUser=
func (ctrl *ProductToolController) PreviewToolsConfig(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payload, err := ctrl.customizationService.PreviewBindings(c.Request.Context(), productID, c.Query("customizedByUser"))
	if err != nil {
		respondServiceError(c, err, "preview product tools")
		return
	}
	response.Success(c, http.StatusOK, "Product tools fetched successfully", payload)
}

// AddConfigOption appends an entry to a list-shaped tool config
// POST /api/v1/products/:id/add-config-option/:toolId
func (ctrl *ProductToolController) AddConfigOption(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	path, ok := parseBindingPath(c, false)
	if !ok {
		return
	}
	fields, ok := bindEntryFields(c)
	if !ok {
		return
	}

	binding, err := ctrl.productToolService.AddEntry(c.Request.Context(), merchantID, path.productID, path.toolID, fields)
	if err != nil {
		respondServiceError(c, err, "add config option")
		return
	}
	response.Success(c, http.StatusCreated, "Config option added successfully", binding)
}

// UpdateConfigOption merges fields into one entry
// PUT /api/v1/products/:id/tool-update/:toolId/:configOptionId
func (ctrl *ProductToolController) UpdateConfigOption(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	path, ok := parseBindingPath(c, true)
	if !ok {
		return
	}
	fields, ok := bindEntryFields(c)
	if !ok {
		return
	}

	binding, err := ctrl.productToolService.UpdateEntry(c.Request.Context(), merchantID, path.productID, path.toolID, path.entryID, fields)
	if err != nil {
		respondServiceError(c, err, "update config option")
		return
	}
	response.Success(c, http.StatusOK, "Config option updated successfully", binding)
}

// DeleteConfigOption removes one entry. Deleting an entry that is already
// gone succeeds.
// DELETE /api/v1/products/:id/delete-config-option/:toolId/:configOptionId
func (ctrl *ProductToolController) DeleteConfigOption(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	path, ok := parseBindingPath(c, true)
	if !ok {
		return
	}

	binding, err := ctrl.productToolService.DeleteEntry(c.Request.Context(), merchantID, path.productID, path.toolID, path.entryID)
	if err != nil {
		respondServiceError(c, err, "delete config option")
		return
	}
	response.Success(c, http.StatusOK, "Config option deleted successfully", binding)
}

// DeleteTool detaches a tool from the product
// DELETE /api/v1/products/:id/delete-tool/:toolId
func (ctrl *ProductToolController) DeleteTool(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	path, ok := parseBindingPath(c, false)
	if !ok {
		return
	}

	if err := ctrl.productToolService.DeleteBinding(c.Request.Context(), merchantID, path.productID, path.toolID); err != nil {
		respondServiceError(c, err, "delete product tool")
		return
	}
	response.Success(c, http.StatusOK, "Tool removed from product successfully", nil)
}
