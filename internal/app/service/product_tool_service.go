package service

import (
	"context"
	"errors"
	"strings"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/metrics"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

// ProductToolService edits the configuration entries of a merchant's
// product bindings. A product the merchant does not own is reported as
// not found.
type ProductToolService interface {
	ListBindings(ctx context.Context, merchantID, productID uint) ([]model.ProductTool, error)
	AddEntry(ctx context.Context, merchantID, productID, toolID uint, fields map[string]interface{}) (*model.ProductTool, error)
	UpdateEntry(ctx context.Context, merchantID, productID, toolID uint, entryID string, fields map[string]interface{}) (*model.ProductTool, error)
	DeleteEntry(ctx context.Context, merchantID, productID, toolID uint, entryID string) (*model.ProductTool, error)
	DeleteBinding(ctx context.Context, merchantID, productID, toolID uint) error
}

type productToolService struct {
	productRepo repository.ProductRepository
	bindingRepo repository.ProductToolRepository
	observer    BindingObserver
}

func NewProductToolService(productRepo repository.ProductRepository, bindingRepo repository.ProductToolRepository, observer BindingObserver) ProductToolService {
	if observer == nil {
		observer = Observers{}
	}
	return &productToolService{
		productRepo: productRepo,
		bindingRepo: bindingRepo,
		observer:    observer,
	}
}

func (s *productToolService) ListBindings(ctx context.Context, merchantID, productID uint) ([]model.ProductTool, error) {
	if _, err := s.ownedProduct(ctx, merchantID, productID); err != nil {
		return nil, err
	}
	return s.bindingRepo.FindByProduct(ctx, productID)
}

func (s *productToolService) AddEntry(ctx context.Context, merchantID, productID, toolID uint, fields map[string]interface{}) (*model.ProductTool, error) {
	product, binding, err := s.ownedBinding(ctx, merchantID, productID, toolID)
	if err != nil {
		recordEntryOperation("add", err)
		return nil, err
	}
	if binding.ConfigKind == model.ConfigKindObject {
		recordEntryOperation("add", ErrConfigNotArray)
		return nil, ErrConfigNotArray
	}

	entry, err := s.bindingRepo.AppendEntry(ctx, binding, fields)
	if err != nil {
		recordEntryOperation("add", err)
		return nil, err
	}
	recordEntryOperation("add", nil)

	logger.Info("Config entry added", map[string]interface{}{
		"product_id": productID,
		"tool_id":    toolID,
		"entry_id":   entry.ID,
		"position":   entry.Position,
	})
	s.notify(ctx, product, ActionEntryAdded, toolID, entry.ID)
	return s.bindingRepo.FindByProductAndTool(ctx, productID, toolID)
}

func (s *productToolService) UpdateEntry(ctx context.Context, merchantID, productID, toolID uint, entryID string, fields map[string]interface{}) (*model.ProductTool, error) {
	fields = model.StripReserved(fields)
	if err := validateEntryFields(fields); err != nil {
		recordEntryOperation("update", err)
		return nil, err
	}

	product, binding, err := s.ownedBinding(ctx, merchantID, productID, toolID)
	if err != nil {
		recordEntryOperation("update", err)
		return nil, err
	}

	affected, err := s.bindingRepo.MergeEntryFields(ctx, binding.ID, entryID, fields)
	if err != nil {
		recordEntryOperation("update", err)
		return nil, err
	}
	if affected == 0 {
		exists, err := s.bindingRepo.EntryExists(ctx, binding.ID, entryID)
		if err != nil {
			recordEntryOperation("update", err)
			return nil, err
		}
		if !exists {
			recordEntryOperation("update", ErrConfigEntryNotFound)
			return nil, ErrConfigEntryNotFound
		}
		recordEntryOperation("update", ErrNoChangesMade)
		return nil, ErrNoChangesMade
	}
	recordEntryOperation("update", nil)

	logger.Info("Config entry updated", map[string]interface{}{
		"product_id": productID,
		"tool_id":    toolID,
		"entry_id":   entryID,
		"keys":       len(fields),
	})
	s.notify(ctx, product, ActionEntryUpdated, toolID, entryID)
	return s.bindingRepo.FindByProductAndTool(ctx, productID, toolID)
}

func (s *productToolService) DeleteEntry(ctx context.Context, merchantID, productID, toolID uint, entryID string) (*model.ProductTool, error) {
	product, binding, err := s.ownedBinding(ctx, merchantID, productID, toolID)
	if err != nil {
		recordEntryOperation("delete", err)
		return nil, err
	}

	affected, err := s.bindingRepo.DeleteEntry(ctx, binding.ID, entryID)
	if err != nil {
		recordEntryOperation("delete", err)
		return nil, err
	}
	recordEntryOperation("delete", nil)

	if affected > 0 {
		logger.Info("Config entry deleted", map[string]interface{}{
			"product_id": productID,
			"tool_id":    toolID,
			"entry_id":   entryID,
		})
		s.notify(ctx, product, ActionEntryDeleted, toolID, entryID)
	} else {
		logger.Debug("Config entry already absent", map[string]interface{}{
			"product_id": productID,
			"tool_id":    toolID,
			"entry_id":   entryID,
		})
	}
	return s.bindingRepo.FindByProductAndTool(ctx, productID, toolID)
}

func (s *productToolService) DeleteBinding(ctx context.Context, merchantID, productID, toolID uint) error {
	product, err := s.ownedProduct(ctx, merchantID, productID)
	if err != nil {
		return err
	}

	affected, err := s.bindingRepo.DeleteByProductAndTools(ctx, productID, []uint{toolID})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductToolNotFound
	}
	metrics.BindingChangesTotal.WithLabelValues("removed").Inc()

	logger.Info("Tool removed from product", map[string]interface{}{
		"product_id": productID,
		"tool_id":    toolID,
	})
	s.notify(ctx, product, ActionBindingDeleted, toolID, "")
	return nil
}

func (s *productToolService) ownedProduct(ctx context.Context, merchantID, productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindOwned(ctx, productID, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found for merchant", map[string]interface{}{
				"product_id":  productID,
				"merchant_id": merchantID,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productToolService) ownedBinding(ctx context.Context, merchantID, productID, toolID uint) (*model.Product, *model.ProductTool, error) {
	product, err := s.ownedProduct(ctx, merchantID, productID)
	if err != nil {
		return nil, nil, err
	}
	binding, err := s.bindingRepo.FindByProductAndTool(ctx, productID, toolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProductToolNotFound
		}
		return nil, nil, err
	}
	return product, binding, nil
}

func (s *productToolService) notify(ctx context.Context, product *model.Product, action string, toolID uint, entryID string) {
	event := productEvent(product, action, []uint{toolID})
	event.EntryID = entryID
	s.observer.OnBindingsChanged(ctx, event)
}

// validateEntryFields rejects empty patches and keys that cannot be
// addressed as a single JSON path segment.
func validateEntryFields(fields map[string]interface{}) error {
	if len(fields) == 0 {
		return ErrInvalidEntryFields
	}
	for key := range fields {
		if key == "" || strings.ContainsAny(key, `"\`) {
			return ErrInvalidEntryFields
		}
	}
	return nil
}

func recordEntryOperation(operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNoChangesMade):
		result = "unchanged"
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrProductToolNotFound), errors.Is(err, ErrConfigEntryNotFound):
		result = "not_found"
	case errors.Is(err, ErrInvalidEntryFields), errors.Is(err, ErrConfigNotArray):
		result = "rejected"
	default:
		result = "error"
	}
	metrics.EntryOperationsTotal.WithLabelValues(operation, result).Inc()
}
