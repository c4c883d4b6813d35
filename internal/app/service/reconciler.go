package service

import (
	"context"
	"fmt"
	"time"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/metrics"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

// ReconcileOptions tunes a reconciliation run.
type ReconcileOptions struct {
	// Explicit configs replace the stored config of bindings that already
	// exist and seed new ones instead of the catalog default.
	Explicit map[uint]model.ConfigValue
}

// ReconcileResult reports how the desired tool set was applied.
type ReconcileResult struct {
	Added       []uint
	Removed     []uint
	Overwritten []uint
	Kept        []uint
}

// Changed reports whether any binding was written.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0 || len(r.Overwritten) > 0
}

// Reconciler keeps a product's bindings equal to a desired set of tool ids.
// Every method takes the transaction it must run in.
type Reconciler struct {
	toolRepo    repository.ToolRepository
	bindingRepo repository.ProductToolRepository
	resolver    *ConfigResolver
}

func NewReconciler(toolRepo repository.ToolRepository, bindingRepo repository.ProductToolRepository, resolver *ConfigResolver) *Reconciler {
	return &Reconciler{
		toolRepo:    toolRepo,
		bindingRepo: bindingRepo,
		resolver:    resolver,
	}
}

// Reconcile creates bindings for desired tools the product lacks, deletes
// bindings for tools no longer desired, and leaves the rest untouched unless
// opts carries an explicit config for them. Duplicate ids are ignored.
func (r *Reconciler) Reconcile(ctx context.Context, tx *gorm.DB, productID uint, desired []uint, opts ReconcileOptions) (ReconcileResult, error) {
	var result ReconcileResult

	toolRepo := r.toolRepo.WithTx(tx)
	bindingRepo := r.bindingRepo.WithTx(tx)
	resolver := r.resolver.WithTx(tx)

	desired = uniqueIDs(desired)
	if err := ensureToolsExist(ctx, toolRepo, desired); err != nil {
		metrics.ReconciliationsTotal.WithLabelValues("rejected").Inc()
		return result, err
	}

	existing, err := bindingRepo.ToolIDs(ctx, productID)
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return result, err
	}

	existingSet := toSet(existing)
	desiredSet := toSet(desired)

	var needDefaults []uint
	for _, id := range desired {
		if existingSet[id] {
			if _, ok := opts.Explicit[id]; ok {
				result.Overwritten = append(result.Overwritten, id)
			} else {
				result.Kept = append(result.Kept, id)
			}
			continue
		}
		result.Added = append(result.Added, id)
		if _, ok := opts.Explicit[id]; !ok {
			needDefaults = append(needDefaults, id)
		}
	}
	for _, id := range existing {
		if !desiredSet[id] {
			result.Removed = append(result.Removed, id)
		}
	}

	defaults := map[uint]model.ConfigValue{}
	if len(needDefaults) > 0 {
		defaults, err = resolver.ResolveDefaults(ctx, needDefaults)
		if err != nil {
			metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
			return result, err
		}
	}

	now := time.Now()
	for _, toolID := range result.Added {
		config, ok := opts.Explicit[toolID]
		if !ok {
			config = defaults[toolID]
		}
		binding := &model.ProductTool{ProductID: productID, ToolID: toolID}
		binding.SetConfig(config, now)
		if err := bindingRepo.Create(ctx, binding); err != nil {
			metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
			return result, fmt.Errorf("create binding for tool %d: %w", toolID, err)
		}
	}

	if len(result.Removed) > 0 {
		if _, err := bindingRepo.DeleteByProductAndTools(ctx, productID, result.Removed); err != nil {
			metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
			return result, fmt.Errorf("delete removed bindings: %w", err)
		}
	}

	for _, toolID := range result.Overwritten {
		binding, err := bindingRepo.FindByProductAndTool(ctx, productID, toolID)
		if err != nil {
			metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
			return result, fmt.Errorf("load binding for tool %d: %w", toolID, err)
		}
		binding.SetConfig(opts.Explicit[toolID], now)
		if err := bindingRepo.ReplaceConfig(ctx, binding); err != nil {
			metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
			return result, fmt.Errorf("overwrite binding for tool %d: %w", toolID, err)
		}
	}

	metrics.ReconciliationsTotal.WithLabelValues("ok").Inc()
	metrics.BindingChangesTotal.WithLabelValues("added").Add(float64(len(result.Added)))
	metrics.BindingChangesTotal.WithLabelValues("removed").Add(float64(len(result.Removed)))
	metrics.BindingChangesTotal.WithLabelValues("overwritten").Add(float64(len(result.Overwritten)))

	logger.Debug("Product tools reconciled", map[string]interface{}{
		"product_id":  productID,
		"added":       result.Added,
		"removed":     result.Removed,
		"overwritten": result.Overwritten,
		"kept":        len(result.Kept),
	})
	return result, nil
}

// Bootstrap binds the desired tools to a product that has no bindings yet.
func (r *Reconciler) Bootstrap(ctx context.Context, tx *gorm.DB, productID uint, desired []uint, explicit map[uint]model.ConfigValue) (ReconcileResult, error) {
	return r.Reconcile(ctx, tx, productID, desired, ReconcileOptions{Explicit: explicit})
}

// Cascade deletes every binding of the product.
func (r *Reconciler) Cascade(ctx context.Context, tx *gorm.DB, productID uint) (int64, error) {
	removed, err := r.bindingRepo.WithTx(tx).DeleteByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	metrics.BindingChangesTotal.WithLabelValues("removed").Add(float64(removed))
	return removed, nil
}

func ensureToolsExist(ctx context.Context, toolRepo repository.ToolRepository, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := toolRepo.ExistingIDs(ctx, ids)
	if err != nil {
		return err
	}
	foundSet := toSet(found)
	var missing []uint
	for _, id := range ids {
		if !foundSet[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrUnknownTool, missing)
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
