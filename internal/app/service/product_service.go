package service

import (
	"context"
	"errors"
	"strings"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type CreateProductInput struct {
	Name        string
	Description string
	SportID     uint
	CategoryID  uint
	BasePrice   float64
	Images      []model.ProductImage
	Stock       model.ProductStock
	Status      model.ProductStatus
	Tools       []uint
}

// UpdateProductInput carries a partial update. Nil fields are left alone;
// a non-nil Tools reconciles the product's bindings to that set.
type UpdateProductInput struct {
	Name        *string
	Description *string
	SportID     *uint
	CategoryID  *uint
	BasePrice   *float64
	Images      *[]model.ProductImage
	Stock       *model.ProductStock
	Status      *model.ProductStatus
	Tools       *[]uint
}

type ProductListOptions struct {
	Page          int
	Limit         int
	SortBy        repository.ProductSort
	SortAscending bool
	Search        string
	CategoryID    *uint
	SportID       *uint
	Status        *model.ProductStatus
}

// Normalize clamps paging to sane bounds and defaults the sort column.
func (o *ProductListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	if !repository.ValidProductSort(o.SortBy) {
		o.SortBy = repository.ProductSortCreatedAt
	}
}

type ProductService interface {
	Create(ctx context.Context, merchantID uint, input CreateProductInput) (*model.Product, error)
	List(ctx context.Context, merchantID uint, opts ProductListOptions) ([]model.Product, int64, error)
	Get(ctx context.Context, merchantID, productID uint) (*model.Product, error)
	Update(ctx context.Context, merchantID, productID uint, input UpdateProductInput) (*model.Product, error)
	UpdateStatus(ctx context.Context, merchantID, productID uint, status model.ProductStatus) error
	Delete(ctx context.Context, merchantID, productID uint) error
}

type productService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	reconciler  *Reconciler
	observer    BindingObserver
}

func NewProductService(db *gorm.DB, productRepo repository.ProductRepository, reconciler *Reconciler, observer BindingObserver) ProductService {
	if observer == nil {
		observer = Observers{}
	}
	return &productService{
		db:          db,
		productRepo: productRepo,
		reconciler:  reconciler,
		observer:    observer,
	}
}

func (s *productService) Create(ctx context.Context, merchantID uint, input CreateProductInput) (*model.Product, error) {
	logger.Info("Creating new product", map[string]interface{}{
		"merchant_id": merchantID,
		"name":        input.Name,
		"tools":       input.Tools,
	})

	status := input.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	product := &model.Product{
		MerchantID:  merchantID,
		SportID:     input.SportID,
		CategoryID:  input.CategoryID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		BasePrice:   input.BasePrice,
		Images:      input.Images,
		Stock:       input.Stock,
		Status:      status,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.productRepo.WithTx(tx).Create(ctx, product); err != nil {
			return err
		}
		_, err := s.reconciler.Bootstrap(ctx, tx, product.ID, input.Tools, nil)
		return err
	})
	if err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"merchant_id": merchantID,
			"name":        input.Name,
		})
		return nil, err
	}

	s.observer.OnBindingsChanged(ctx, productEvent(product, ActionBindingsReconciled, uniqueIDs(input.Tools)))

	logger.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	// Bindings are not loaded here; they are read through the tools-config
	// endpoints.
	return product, nil
}

func (s *productService) List(ctx context.Context, merchantID uint, opts ProductListOptions) ([]model.Product, int64, error) {
	opts.Normalize()
	logger.Debug("Listing products", map[string]interface{}{
		"merchant_id": merchantID,
		"page":        opts.Page,
		"limit":       opts.Limit,
		"sort_by":     opts.SortBy,
		"search":      opts.Search,
	})

	filter := repository.ProductFilter{
		MerchantID:    &merchantID,
		CategoryID:    opts.CategoryID,
		SportID:       opts.SportID,
		Status:        opts.Status,
		Search:        opts.Search,
		SortBy:        opts.SortBy,
		SortAscending: opts.SortAscending,
		Limit:         opts.Limit,
		Offset:        (opts.Page - 1) * opts.Limit,
	}

	products, total, err := s.productRepo.FindWithFilter(ctx, filter)
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	logger.Info("Products listed", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (s *productService) Get(ctx context.Context, merchantID, productID uint) (*model.Product, error) {
	logger.Debug("Fetching product by ID", map[string]interface{}{
		"product_id":  productID,
		"merchant_id": merchantID,
	})

	product, err := s.productRepo.FindOwnedWithTools(ctx, productID, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id":  productID,
				"merchant_id": merchantID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, merchantID, productID uint, input UpdateProductInput) (*model.Product, error) {
	logger.Info("Updating product", map[string]interface{}{
		"product_id":  productID,
		"merchant_id": merchantID,
		"tools":       input.Tools,
	})

	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	var (
		product *model.Product
		result  ReconcileResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)

		var err error
		product, err = productRepo.FindOwned(ctx, productID, merchantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		applyProductUpdate(product, input)
		if err := productRepo.Update(ctx, product); err != nil {
			return err
		}

		if input.Tools == nil {
			return nil
		}
		result, err = s.reconciler.Reconcile(ctx, tx, productID, *input.Tools, ReconcileOptions{})
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) && !errors.Is(err, ErrUnknownTool) {
			logger.Error("Failed to update product", err, map[string]interface{}{
				"product_id": productID,
			})
		}
		return nil, err
	}

	if result.Changed() {
		s.observer.OnBindingsChanged(ctx, productEvent(product, ActionBindingsReconciled, append(result.Added, result.Removed...)))
	}

	logger.Info("Product updated successfully", map[string]interface{}{
		"product_id": productID,
		"added":      result.Added,
		"removed":    result.Removed,
	})
	return s.Get(ctx, merchantID, productID)
}

func (s *productService) UpdateStatus(ctx context.Context, merchantID, productID uint, status model.ProductStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	affected, err := s.productRepo.UpdateStatus(ctx, productID, merchantID, status)
	if err != nil {
		return err
	}
	if affected == 0 {
		logger.Warn("Cannot update status: product not found", map[string]interface{}{
			"product_id":  productID,
			"merchant_id": merchantID,
		})
		return ErrProductNotFound
	}

	logger.Info("Product status updated", map[string]interface{}{
		"product_id": productID,
		"status":     status,
	})
	return nil
}

func (s *productService) Delete(ctx context.Context, merchantID, productID uint) error {
	logger.Info("Deleting product", map[string]interface{}{
		"product_id":  productID,
		"merchant_id": merchantID,
	})

	var (
		product *model.Product
		removed int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)

		var err error
		product, err = productRepo.FindOwned(ctx, productID, merchantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		if removed, err = s.reconciler.Cascade(ctx, tx, productID); err != nil {
			return err
		}
		return productRepo.Delete(ctx, productID)
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			logger.Warn("Cannot delete: product not found", map[string]interface{}{
				"product_id": productID,
			})
		} else {
			logger.Error("Failed to delete product", err, map[string]interface{}{
				"product_id": productID,
			})
		}
		return err
	}

	s.observer.OnBindingsChanged(ctx, productEvent(product, ActionBindingsDeleted, nil))

	logger.Info("Product deleted successfully", map[string]interface{}{
		"product_id":       productID,
		"bindings_removed": removed,
	})
	return nil
}

// productEvent addresses a binding change to the product and, for a
// customized product, to the fork it belongs to.
func productEvent(product *model.Product, action string, toolIDs []uint) BindingEvent {
	return BindingEvent{
		ProductID:           product.ID,
		ReferencedProductID: product.ReferencedProductID,
		CustomizedByUser:    product.CustomizedByUser,
		Action:              action,
		ToolIDs:             toolIDs,
	}
}

func applyProductUpdate(product *model.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.SportID != nil {
		product.SportID = *input.SportID
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}
	if input.BasePrice != nil {
		product.BasePrice = *input.BasePrice
	}
	if input.Images != nil {
		product.Images = *input.Images
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
}
