package service

import (
	"context"
	"errors"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

// EntryKeyModelKind tags a default entry with the collection it came from.
const EntryKeyModelKind = "modelKind"

// ConfigResolver derives a tool's default configuration from the catalog
// documents its related models point at.
type ConfigResolver struct {
	toolRepo    repository.ToolRepository
	catalogRepo repository.CatalogRepository
}

func NewConfigResolver(toolRepo repository.ToolRepository, catalogRepo repository.CatalogRepository) *ConfigResolver {
	return &ConfigResolver{toolRepo: toolRepo, catalogRepo: catalogRepo}
}

func (r *ConfigResolver) WithTx(tx *gorm.DB) *ConfigResolver {
	return &ConfigResolver{
		toolRepo:    r.toolRepo.WithTx(tx),
		catalogRepo: r.catalogRepo.WithTx(tx),
	}
}

// ResolveDefaults returns the default configuration of each existing tool in
// toolIDs. Related models whose document is gone are skipped.
func (r *ConfigResolver) ResolveDefaults(ctx context.Context, toolIDs []uint) (map[uint]model.ConfigValue, error) {
	tools, err := r.toolRepo.FindByIDs(ctx, toolIDs)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, tools)
}

// ResolveTool returns the default configuration of an already loaded tool.
func (r *ConfigResolver) ResolveTool(ctx context.Context, tool *model.Tool) (model.ConfigValue, error) {
	defaults, err := r.resolve(ctx, []model.Tool{*tool})
	if err != nil {
		return model.ConfigValue{}, err
	}
	return defaults[tool.ID], nil
}

func (r *ConfigResolver) resolve(ctx context.Context, tools []model.Tool) (map[uint]model.ConfigValue, error) {
	refsByKind := map[model.ModelKind][]uint{}
	for _, tool := range tools {
		for _, rm := range tool.RelatedModels {
			refsByKind[rm.Kind] = append(refsByKind[rm.Kind], rm.RefID)
		}
	}

	snapshots := make(map[model.ModelKind]repository.Snapshots, len(refsByKind))
	for kind, ids := range refsByKind {
		snaps, err := r.catalogRepo.FindSnapshots(ctx, kind, ids)
		if errors.Is(err, repository.ErrUnknownModelKind) {
			logger.Warn("Skipping related models of unknown kind", map[string]interface{}{
				"kind": kind,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		snapshots[kind] = snaps
	}

	defaults := make(map[uint]model.ConfigValue, len(tools))
	for _, tool := range tools {
		entries := make([]map[string]interface{}, 0, len(tool.RelatedModels))
		for _, rm := range tool.RelatedModels {
			snap, ok := snapshots[rm.Kind][rm.RefID]
			if !ok {
				logger.Debug("Related model document missing, skipping", map[string]interface{}{
					"tool_id": tool.ID,
					"kind":    rm.Kind,
					"ref":     rm.RefID,
				})
				continue
			}
			entry := make(map[string]interface{}, len(snap)+1)
			for k, v := range snap {
				entry[k] = v
			}
			entry[EntryKeyModelKind] = string(rm.Kind)
			entries = append(entries, entry)
		}
		defaults[tool.ID] = model.ArrayConfig(entries)
	}
	return defaults, nil
}
