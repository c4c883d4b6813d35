package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ToolDetail is a tool together with the configuration a product receives
// when the tool is attached.
type ToolDetail struct {
	model.Tool
	Options model.ConfigValue `json:"options"`
}

type RelatedModelInput struct {
	Kind  model.ModelKind
	RefID uint
}

type CreateToolInput struct {
	Value         string
	Label         string
	Description   string
	Icon          string
	DefaultConfig json.RawMessage
	Outlines      []model.ToolOutline
	RelatedModels []RelatedModelInput
}

type ToolService interface {
	List(ctx context.Context) ([]ToolDetail, error)
	Get(ctx context.Context, id uint) (*ToolDetail, error)
	Create(ctx context.Context, input CreateToolInput) (*ToolDetail, error)
}

type toolService struct {
	toolRepo    repository.ToolRepository
	catalogRepo repository.CatalogRepository
	resolver    *ConfigResolver
}

func NewToolService(toolRepo repository.ToolRepository, catalogRepo repository.CatalogRepository, resolver *ConfigResolver) ToolService {
	return &toolService{
		toolRepo:    toolRepo,
		catalogRepo: catalogRepo,
		resolver:    resolver,
	}
}

func (s *toolService) List(ctx context.Context) ([]ToolDetail, error) {
	tools, err := s.toolRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(tools))
	for _, tool := range tools {
		ids = append(ids, tool.ID)
	}
	defaults, err := s.resolver.ResolveDefaults(ctx, ids)
	if err != nil {
		logger.Error("Failed to resolve tool options", err)
		return nil, err
	}

	details := make([]ToolDetail, 0, len(tools))
	for _, tool := range tools {
		details = append(details, ToolDetail{Tool: tool, Options: defaults[tool.ID]})
	}

	logger.Debug("Tools listed", map[string]interface{}{
		"count": len(details),
	})
	return details, nil
}

func (s *toolService) Get(ctx context.Context, id uint) (*ToolDetail, error) {
	tool, err := s.toolRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrToolNotFound
		}
		return nil, err
	}
	options, err := s.resolver.ResolveTool(ctx, tool)
	if err != nil {
		return nil, err
	}
	return &ToolDetail{Tool: *tool, Options: options}, nil
}

// Create adds a tool to the catalog. Every related model must name a known
// kind and an existing document.
func (s *toolService) Create(ctx context.Context, input CreateToolInput) (*ToolDetail, error) {
	logger.Info("Creating tool", map[string]interface{}{
		"value":          input.Value,
		"related_models": len(input.RelatedModels),
	})

	refsByKind := map[model.ModelKind][]uint{}
	related := make([]model.RelatedModel, 0, len(input.RelatedModels))
	for i, rm := range input.RelatedModels {
		if !rm.Kind.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidModelKind, rm.Kind)
		}
		refsByKind[rm.Kind] = append(refsByKind[rm.Kind], rm.RefID)
		related = append(related, model.RelatedModel{Kind: rm.Kind, RefID: rm.RefID, Position: i})
	}

	for kind, ids := range refsByKind {
		found, err := s.catalogRepo.FindSnapshots(ctx, kind, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, fmt.Errorf("%w: %s %d", ErrRelatedModelNotFound, kind, id)
			}
		}
	}

	tool := &model.Tool{
		Value:         strings.TrimSpace(input.Value),
		Label:         strings.TrimSpace(input.Label),
		Description:   input.Description,
		Icon:          input.Icon,
		Outlines:      input.Outlines,
		RelatedModels: related,
	}
	if len(input.DefaultConfig) > 0 {
		tool.DefaultConfig = datatypes.JSON(input.DefaultConfig)
	}

	if err := s.toolRepo.Create(ctx, tool); err != nil {
		return nil, err
	}

	logger.Info("Tool created successfully", map[string]interface{}{
		"tool_id": tool.ID,
		"value":   tool.Value,
	})
	return s.Get(ctx, tool.ID)
}
