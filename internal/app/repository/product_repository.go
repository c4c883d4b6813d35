package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductSort string

const (
	ProductSortName      ProductSort = "name"
	ProductSortBasePrice ProductSort = "basePrice"
	ProductSortCreatedAt ProductSort = "createdAt"
	ProductSortUpdatedAt ProductSort = "updatedAt"
)

var productSortColumns = map[ProductSort]string{
	ProductSortName:      "products.name",
	ProductSortBasePrice: "products.base_price",
	ProductSortCreatedAt: "products.created_at",
	ProductSortUpdatedAt: "products.updated_at",
}

// ValidProductSort reports whether s names a sortable column.
func ValidProductSort(s ProductSort) bool {
	_, ok := productSortColumns[s]
	return ok
}

type ProductFilter struct {
	MerchantID       *uint
	CategoryID       *uint
	SportID          *uint
	Status           *model.ProductStatus
	CustomizedByUser *string
	OnlyCustomized   bool
	Search           string
	SortBy           ProductSort
	SortAscending    bool
	Limit            int
	Offset           int
}

type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindOwned(ctx context.Context, id, merchantID uint) (*model.Product, error)
	FindOwnedWithTools(ctx context.Context, id, merchantID uint) (*model.Product, error)
	FindFork(ctx context.Context, referencedProductID uint, customizedByUser string) (*model.Product, error)
	FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateStatus(ctx context.Context, id, merchantID uint, status model.ProductStatus) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepository{db: tx}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":        product.Name,
		"merchant_id": product.MerchantID,
		"customized":  product.IsCustomizedByUser,
	})

	// Bindings are written by the reconciler, never through the association.
	if err := r.db.WithContext(ctx).Omit("Tools").Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":        product.Name,
			"merchant_id": product.MerchantID,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id":  product.ID,
		"merchant_id": product.MerchantID,
	})
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindOwned(ctx context.Context, id, merchantID uint) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindOwnedWithTools(ctx context.Context, id, merchantID uint) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Tools", orderBindings).
		Preload("Tools.Tool").
		Preload("Tools.Entries", orderEntries).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindFork(ctx context.Context, referencedProductID uint, customizedByUser string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("referenced_product_id = ? AND customized_by_user = ? AND is_customized_by_user = ?",
			referencedProductID, customizedByUser, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindWithFilter(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"merchant_id": filter.MerchantID,
		"category_id": filter.CategoryID,
		"sport_id":    filter.SportID,
		"status":      filter.Status,
		"search":      filter.Search,
		"sort_by":     filter.SortBy,
		"ascending":   filter.SortAscending,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})

	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.MerchantID != nil {
		query = query.Where("products.merchant_id = ?", *filter.MerchantID)
	}
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.SportID != nil {
		query = query.Where("products.sport_id = ?", *filter.SportID)
	}
	if filter.Status != nil {
		query = query.Where("products.status = ?", *filter.Status)
	}
	if filter.CustomizedByUser != nil {
		query = query.Where("products.customized_by_user = ?", *filter.CustomizedByUser)
	}
	if filter.OnlyCustomized {
		query = query.Where("products.is_customized_by_user = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	column, ok := productSortColumns[filter.SortBy]
	if !ok {
		column = productSortColumns[ProductSortCreatedAt]
	}
	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, direction)).Order("products.id " + direction)

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err)
		return nil, 0, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.WithContext(ctx).Omit("Tools").Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) UpdateStatus(ctx context.Context, id, merchantID uint, status model.ProductStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		Update("status", status)
	if result.Error != nil {
		logger.Error("Failed to update product status", result.Error, map[string]interface{}{
			"product_id": id,
			"status":     status,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	if err := r.db.WithContext(ctx).Delete(&model.Product{}, id).Error; err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}
	return nil
}

func orderBindings(db *gorm.DB) *gorm.DB {
	return db.Order("product_tools.id ASC")
}

func orderEntries(db *gorm.DB) *gorm.DB {
	return db.Order("config_entries.position ASC, config_entries.created_at ASC, config_entries.id ASC")
}
