package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/metrics"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

// ToolSelection is one element of a customization's tool list. It decodes
// from a bare tool id (number or numeric string) or from an object
// {"tool": id, "config": ...}.
type ToolSelection struct {
	ToolID uint               `json:"tool"`
	Config *model.ConfigValue `json:"config,omitempty"`
}

func (t *ToolSelection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var raw struct {
			Tool   json.RawMessage    `json:"tool"`
			ToolID json.RawMessage    `json:"toolId"`
			Config *model.ConfigValue `json:"config"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		ref := raw.Tool
		if len(ref) == 0 {
			ref = raw.ToolID
		}
		id, err := parseToolRef(ref)
		if err != nil {
			return err
		}
		*t = ToolSelection{ToolID: id, Config: raw.Config}
		return nil
	}

	id, err := parseToolRef(data)
	if err != nil {
		return err
	}
	*t = ToolSelection{ToolID: id}
	return nil
}

func parseToolRef(data []byte) (uint, error) {
	var n uint
	if err := json.Unmarshal(data, &n); err == nil && n > 0 {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err == nil && v > 0 {
			return uint(v), nil
		}
	}
	return 0, ErrInvalidToolSelection
}

// CustomizeInput describes an end user's fork of a product. Nil fields
// keep the current (or, for a new fork, the original's) value.
type CustomizeInput struct {
	ReferencedProductID uint
	CustomizedByUser    string
	Tools               *[]ToolSelection
	Name                *string
	Description         *string
	BasePrice           *float64
	Images              *[]model.ProductImage
	Stock               *model.ProductStock
}

type CustomizationService interface {
	Upsert(ctx context.Context, input CustomizeInput) (*model.Product, bool, error)
	PreviewBindings(ctx context.Context, referenceID uint, customizedByUser string) (json.RawMessage, error)
	ListForUser(ctx context.Context, merchantID uint, customizedByUser string, page, limit int) ([]model.Product, int64, error)
}

type customizationService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	bindingRepo repository.ProductToolRepository
	reconciler  *Reconciler
	cache       PreviewCache
	observer    BindingObserver
}

func NewCustomizationService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	bindingRepo repository.ProductToolRepository,
	reconciler *Reconciler,
	cache PreviewCache,
	observer BindingObserver,
) CustomizationService {
	if cache == nil {
		cache = NoopPreviewCache()
	}
	if observer == nil {
		observer = Observers{}
	}
	return &customizationService{
		db:          db,
		productRepo: productRepo,
		bindingRepo: bindingRepo,
		reconciler:  reconciler,
		cache:       cache,
		observer:    observer,
	}
}

// Upsert creates the user's fork of the referenced product, or updates it
// when it already exists. The bool result reports whether a fork was created.
func (s *customizationService) Upsert(ctx context.Context, input CustomizeInput) (*model.Product, bool, error) {
	input.CustomizedByUser = strings.TrimSpace(input.CustomizedByUser)
	if input.ReferencedProductID == 0 || input.CustomizedByUser == "" {
		return nil, false, ErrInvalidCustomization
	}

	logger.Info("Customizing product", map[string]interface{}{
		"referenced_product_id": input.ReferencedProductID,
		"customized_by_user":    input.CustomizedByUser,
	})

	product, isNew, result, err := s.upsertOnce(ctx, input)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		logger.Warn("Concurrent fork creation detected, retrying as update", map[string]interface{}{
			"referenced_product_id": input.ReferencedProductID,
			"customized_by_user":    input.CustomizedByUser,
		})
		product, isNew, result, err = s.upsertOnce(ctx, input)
	}
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) && !errors.Is(err, ErrUnknownTool) && !errors.Is(err, ErrCannotForkCustomized) {
			logger.Error("Failed to customize product", err, map[string]interface{}{
				"referenced_product_id": input.ReferencedProductID,
			})
		}
		return nil, false, err
	}

	if isNew || result.Changed() {
		s.observer.OnBindingsChanged(ctx, BindingEvent{
			ProductID:           product.ID,
			ReferencedProductID: product.ReferencedProductID,
			CustomizedByUser:    product.CustomizedByUser,
			Action:              ActionBindingsReconciled,
			ToolIDs:             append(append(result.Added, result.Removed...), result.Overwritten...),
		})
	}

	loaded, err := s.productRepo.FindOwnedWithTools(ctx, product.ID, product.MerchantID)
	if err != nil {
		return nil, false, err
	}

	logger.Info("Product customized", map[string]interface{}{
		"product_id":  loaded.ID,
		"is_new":      isNew,
		"added":       result.Added,
		"removed":     result.Removed,
		"overwritten": result.Overwritten,
	})
	return loaded, isNew, nil
}

func (s *customizationService) upsertOnce(ctx context.Context, input CustomizeInput) (*model.Product, bool, ReconcileResult, error) {
	var (
		product *model.Product
		isNew   bool
		result  ReconcileResult
	)

	desired, explicit := splitSelections(input.Tools)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)

		fork, err := productRepo.FindFork(ctx, input.ReferencedProductID, input.CustomizedByUser)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if fork != nil {
			applyCustomization(fork, input)
			if err := productRepo.Update(ctx, fork); err != nil {
				return err
			}
			product = fork
			if input.Tools == nil {
				return nil
			}
			result, err = s.reconciler.Reconcile(ctx, tx, fork.ID, desired, ReconcileOptions{Explicit: explicit})
			return err
		}

		original, err := productRepo.FindByID(ctx, input.ReferencedProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if original.IsCustomizedByUser {
			return ErrCannotForkCustomized
		}

		if input.Tools == nil {
			if desired, err = s.bindingRepo.WithTx(tx).ToolIDs(ctx, original.ID); err != nil {
				return err
			}
		}

		product = newFork(original, input)
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		isNew = true
		result, err = s.reconciler.Bootstrap(ctx, tx, product.ID, desired, explicit)
		return err
	})
	if err != nil {
		return nil, false, ReconcileResult{}, err
	}
	return product, isNew, result, nil
}

func (s *customizationService) PreviewBindings(ctx context.Context, referenceID uint, customizedByUser string) (json.RawMessage, error) {
	targetID := referenceID
	isFork := false

	if user := strings.TrimSpace(customizedByUser); user != "" {
		fork, err := s.productRepo.FindFork(ctx, referenceID, user)
		switch {
		case err == nil:
			targetID = fork.ID
			isFork = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	payload, ok, err := s.cache.Get(ctx, targetID)
	if err != nil {
		logger.Warn("Preview cache read failed", map[string]interface{}{
			"product_id": targetID,
			"error":      err.Error(),
		})
	}
	if ok {
		metrics.PreviewCacheRequestsTotal.WithLabelValues("hit").Inc()
		return payload, nil
	}
	metrics.PreviewCacheRequestsTotal.WithLabelValues("miss").Inc()

	if !isFork {
		if _, err := s.productRepo.FindByID(ctx, targetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
	}

	bindings, err := s.bindingRepo.FindByProduct(ctx, targetID)
	if err != nil {
		return nil, err
	}
	payload, err = json.Marshal(bindings)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, targetID, payload); err != nil {
		logger.Warn("Preview cache write failed", map[string]interface{}{
			"product_id": targetID,
			"error":      err.Error(),
		})
	}

	logger.Debug("Preview bindings loaded", map[string]interface{}{
		"reference_id": referenceID,
		"product_id":   targetID,
		"is_fork":      isFork,
		"bindings":     len(bindings),
	})
	return payload, nil
}

func (s *customizationService) ListForUser(ctx context.Context, merchantID uint, customizedByUser string, page, limit int) ([]model.Product, int64, error) {
	opts := ProductListOptions{Page: page, Limit: limit}
	opts.Normalize()

	user := strings.TrimSpace(customizedByUser)
	filter := repository.ProductFilter{
		MerchantID:       &merchantID,
		CustomizedByUser: &user,
		OnlyCustomized:   true,
		SortBy:           repository.ProductSortCreatedAt,
		Limit:            opts.Limit,
		Offset:           (opts.Page - 1) * opts.Limit,
	}

	products, total, err := s.productRepo.FindWithFilter(ctx, filter)
	if err != nil {
		logger.Error("Failed to list customized products", err, map[string]interface{}{
			"customized_by_user": user,
		})
		return nil, 0, err
	}
	return products, total, nil
}

// splitSelections returns the desired tool ids and the explicit configs
// among them. A later selection of the same tool wins.
func splitSelections(selections *[]ToolSelection) ([]uint, map[uint]model.ConfigValue) {
	if selections == nil {
		return nil, nil
	}
	desired := make([]uint, 0, len(*selections))
	explicit := map[uint]model.ConfigValue{}
	for _, sel := range *selections {
		desired = append(desired, sel.ToolID)
		if sel.Config != nil {
			explicit[sel.ToolID] = *sel.Config
		} else {
			delete(explicit, sel.ToolID)
		}
	}
	return desired, explicit
}

func newFork(original *model.Product, input CustomizeInput) *model.Product {
	referencedID := original.ID
	fork := &model.Product{
		MerchantID:          original.MerchantID,
		SportID:             original.SportID,
		CategoryID:          original.CategoryID,
		Name:                original.Name,
		Description:         original.Description,
		BasePrice:           original.BasePrice,
		Images:              original.Images,
		Stock:               original.Stock,
		Status:              model.StatusDraft,
		IsCustomizedByUser:  true,
		CustomizedByUser:    input.CustomizedByUser,
		ReferencedProductID: &referencedID,
	}
	applyCustomization(fork, input)
	return fork
}

func applyCustomization(product *model.Product, input CustomizeInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
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
}
