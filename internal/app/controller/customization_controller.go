package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/service"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/response"
)

// flexibleID decodes a product id sent either as a number or as a numeric
// string.
type flexibleID uint

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	var n uint
	if err := json.Unmarshal(data, &n); err == nil {
		*id = flexibleID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id must be a number or numeric string")
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("id must be a number or numeric string")
	}
	*id = flexibleID(v)
	return nil
}

type CustomizationController struct {
	customizationService service.CustomizationService
}

func NewCustomizationController(customizationService service.CustomizationService) *CustomizationController {
	return &CustomizationController{
		customizationService: customizationService,
	}
}

// CustomizeProductRequest is the body of POST /products/customized. tools
// elements are tool ids or {"tool": id, "config": [...]} objects.
type CustomizeProductRequest struct {
	ReferencedProduct flexibleID               `json:"referencedProduct" binding:"required"`
	CustomizedByUser  string                   `json:"customizedByUser" binding:"required"`
	Tools             *[]service.ToolSelection `json:"tools"`
	Name              *string                  `json:"name" binding:"omitempty,min=1"`
	Description       *string                  `json:"description"`
	BasePrice         *float64                 `json:"basePrice" binding:"omitempty,gte=0"`
	Images            *[]model.ProductImage    `json:"images"`
	Stock             *model.ProductStock      `json:"stock"`
}

// UpsertCustomizedProduct creates the user's customized copy of a product
// or updates the existing one
// POST /api/v1/products/customized
func (ctrl *CustomizationController) UpsertCustomizedProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CustomizeProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid customization request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	product, isNew, err := ctrl.customizationService.Upsert(c.Request.Context(), service.CustomizeInput{
		ReferencedProductID: uint(req.ReferencedProduct),
		CustomizedByUser:    req.CustomizedByUser,
		Tools:               req.Tools,
		Name:                req.Name,
		Description:         req.Description,
		BasePrice:           req.BasePrice,
		Images:              req.Images,
		Stock:               req.Stock,
	})
	if err != nil {
		respondServiceError(c, err, "customize product")
		return
	}

	log.Info("Customized product saved", map[string]interface{}{
		"product_id":         product.ID,
		"referenced_product": uint(req.ReferencedProduct),
		"is_new":             isNew,
	})

	status, message := http.StatusOK, "Customized product updated successfully"
	if isNew {
		status, message = http.StatusCreated, "Customized product created successfully"
	}
	response.Success(c, status, message, gin.H{
		"product": product,
		"isNew":   isNew,
	})
}

// ListCustomizedProducts returns a page of one user's customized copies of
// the merchant's products
// GET /api/v1/products/customized/:customizedByUser?page=&limit=
func (ctrl *CustomizationController) ListCustomizedProducts(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	user := strings.TrimSpace(c.Param("customizedByUser"))
	if user == "" {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "customizedByUser is required")
		return
	}

	opts := service.ProductListOptions{
		Page:  queryInt(c, "page", 1),
		Limit: queryInt(c, "limit", service.DefaultPageSize),
	}
	opts.Normalize()

	products, total, err := ctrl.customizationService.ListForUser(c.Request.Context(), merchantID, user, opts.Page, opts.Limit)
	if err != nil {
		respondServiceError(c, err, "list customized products")
		return
	}

	response.Success(c, http.StatusOK, "Customized products fetched successfully", gin.H{
		"products":   products,
		"pagination": response.NewPagination(opts.Page, opts.Limit, total),
	})
}
