package repository

import (
	"context"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

type ToolRepository interface {
	WithTx(tx *gorm.DB) ToolRepository
	Create(ctx context.Context, tool *model.Tool) error
	FindAll(ctx context.Context) ([]model.Tool, error)
	FindByID(ctx context.Context, id uint) (*model.Tool, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Tool, error)
	ExistingIDs(ctx context.Context, ids []uint) ([]uint, error)
}

type toolRepository struct {
	db *gorm.DB
}

func NewToolRepository(db *gorm.DB) ToolRepository {
	return &toolRepository{db: db}
}

func (r *toolRepository) WithTx(tx *gorm.DB) ToolRepository {
	return &toolRepository{db: tx}
}

func orderRelatedModels(db *gorm.DB) *gorm.DB {
	return db.Order("tool_related_models.position ASC, tool_related_models.id ASC")
}

func (r *toolRepository) Create(ctx context.Context, tool *model.Tool) error {
	logger.Debug("Creating tool in database", map[string]interface{}{
		"value":          tool.Value,
		"related_models": len(tool.RelatedModels),
	})

	if err := r.db.WithContext(ctx).Create(tool).Error; err != nil {
		logger.Error("Failed to create tool in database", err, map[string]interface{}{
			"value": tool.Value,
		})
		return err
	}
	return nil
}

func (r *toolRepository) FindAll(ctx context.Context) ([]model.Tool, error) {
	var tools []model.Tool
	err := r.db.WithContext(ctx).
		Preload("RelatedModels", orderRelatedModels).
		Order("id ASC").
		Find(&tools).Error
	if err != nil {
		logger.Error("Failed to list tools", err)
		return nil, err
	}
	return tools, nil
}

func (r *toolRepository) FindByID(ctx context.Context, id uint) (*model.Tool, error) {
	var tool model.Tool
	err := r.db.WithContext(ctx).
		Preload("RelatedModels", orderRelatedModels).
		First(&tool, id).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

func (r *toolRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Tool, error) {
	if len(ids) == 0 {
		return []model.Tool{}, nil
	}

	var tools []model.Tool
	err := r.db.WithContext(ctx).
		Preload("RelatedModels", orderRelatedModels).
		Where("id IN ?", ids).
		Find(&tools).Error
	if err != nil {
		logger.Error("Failed to find tools by ids", err, map[string]interface{}{
			"tool_ids": ids,
		})
		return nil, err
	}
	return tools, nil
}

func (r *toolRepository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	existing := []uint{}
	if len(ids) == 0 {
		return existing, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.Tool{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}
