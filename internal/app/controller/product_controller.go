package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/app/service"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/response"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// CreateProductRequest is the body of POST /products. The owning merchant
// always comes from the token.
type CreateProductRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Sport       uint                 `json:"sport"`
	Category    uint                 `json:"category"`
	BasePrice   float64              `json:"basePrice" binding:"gte=0"`
	Images      []model.ProductImage `json:"images"`
	Stock       model.ProductStock   `json:"stock"`
	Status      model.ProductStatus  `json:"status" binding:"omitempty,oneof=draft active inactive archived"`
	Tools       []uint               `json:"tools"`
}

// UpdateProductRequest is the body of PUT /products/:id. Omitted fields are
// kept; "tools": [] detaches every tool.
type UpdateProductRequest struct {
	Name        *string               `json:"name" binding:"omitempty,min=1"`
	Description *string               `json:"description"`
	Sport       *uint                 `json:"sport"`
	Category    *uint                 `json:"category"`
	BasePrice   *float64              `json:"basePrice" binding:"omitempty,gte=0"`
	Images      *[]model.ProductImage `json:"images"`
	Stock       *model.ProductStock   `json:"stock"`
	Status      *model.ProductStatus  `json:"status" binding:"omitempty,oneof=draft active inactive archived"`
	Tools       *[]uint               `json:"tools"`
}

type UpdateProductStatusRequest struct {
	Status model.ProductStatus `json:"status" binding:"required,oneof=draft active inactive archived"`
}

// CreateProduct creates a product and attaches the requested tools with
// their default configuration
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product creation request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	log.Debug("Creating product", map[string]interface{}{
		"name":  req.Name,
		"tools": req.Tools,
	})

	product, err := ctrl.productService.Create(c.Request.Context(), merchantID, service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		SportID:     req.Sport,
		CategoryID:  req.Category,
		BasePrice:   req.BasePrice,
		Images:      req.Images,
		Stock:       req.Stock,
		Status:      req.Status,
		Tools:       req.Tools,
	})
	if err != nil {
		respondServiceError(c, err, "create product")
		return
	}

	log.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
	})
	response.Success(c, http.StatusCreated, "Product created successfully", product)
}

// ListProducts returns a page of the merchant's products
// GET /api/v1/products?page=&limit=&sortBy=&order=&search=&categoryId=&sportId=&status=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	opts := service.ProductListOptions{
		Page:          queryInt(c, "page", 1),
		Limit:         queryInt(c, "limit", service.DefaultPageSize),
		SortBy:        repository.ProductSort(c.Query("sortBy")),
		SortAscending: strings.EqualFold(c.Query("order"), "asc"),
		Search:        c.Query("search"),
		CategoryID:    queryUint(c, "categoryId"),
		SportID:       queryUint(c, "sportId"),
	}
	if raw := c.Query("status"); raw != "" {
		status := model.ProductStatus(raw)
		if !status.Valid() {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid product status")
			return
		}
		opts.Status = &status
	}
	opts.Normalize()

	products, total, err := ctrl.productService.List(c.Request.Context(), merchantID, opts)
	if err != nil {
		respondServiceError(c, err, "list products")
		return
	}

	response.Success(c, http.StatusOK, "Products fetched successfully", gin.H{
		"products":   products,
		"pagination": response.NewPagination(opts.Page, opts.Limit, total),
	})
}

// GetProduct returns one product with its tool bindings
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.Get(c.Request.Context(), merchantID, productID)
	if err != nil {
		respondServiceError(c, err, "get product")
		return
	}
	response.Success(c, http.StatusOK, "Product fetched successfully", product)
}

// UpdateProduct applies a partial update and, when tools are supplied,
// reconciles the product's bindings
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product update request", map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	product, err := ctrl.productService.Update(c.Request.Context(), merchantID, productID, service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		SportID:     req.Sport,
		CategoryID:  req.Category,
		BasePrice:   req.BasePrice,
		Images:      req.Images,
		Stock:       req.Stock,
		Status:      req.Status,
		Tools:       req.Tools,
	})
	if err != nil {
		respondServiceError(c, err, "update product")
		return
	}

	log.Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
	})
	response.Success(c, http.StatusOK, "Product updated successfully", product)
}

// UpdateProductStatus changes only the lifecycle status
// PATCH /api/v1/products/:id/status
func (ctrl *ProductController) UpdateProductStatus(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProductStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	if err := ctrl.productService.UpdateStatus(c.Request.Context(), merchantID, productID, req.Status); err != nil {
		respondServiceError(c, err, "update product status")
		return
	}
	response.Success(c, http.StatusOK, "Product status updated successfully", gin.H{
		"id":     productID,
		"status": req.Status,
	})
}

// DeleteProduct removes the product together with its bindings
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.Delete(c.Request.Context(), merchantID, productID); err != nil {
		respondServiceError(c, err, "delete product")
		return
	}

	log.Info("Product deleted successfully", map[string]interface{}{
		"product_id": productID,
	})
	response.Success(c, http.StatusOK, "Product deleted successfully", nil)
}
