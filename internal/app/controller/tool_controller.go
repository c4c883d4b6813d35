package controller

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/service"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/response"
)

type ToolController struct {
	toolService service.ToolService
}

func NewToolController(toolService service.ToolService) *ToolController {
	return &ToolController{
		toolService: toolService,
	}
}

type RelatedModelRequest struct {
	Model string `json:"model" binding:"required,modelkind"`
	Ref   uint   `json:"ref" binding:"required"`
}

type CreateToolRequest struct {
	Value         string                `json:"value" binding:"required,toolslug"`
	Label         string                `json:"label" binding:"required"`
	Description   string                `json:"description"`
	Icon          string                `json:"icon"`
	DefaultConfig json.RawMessage       `json:"defaultConfig"`
	Outlines      []model.ToolOutline   `json:"outlines"`
	RelatedModels []RelatedModelRequest `json:"relatedModels" binding:"dive"`
}

// GetTools returns the tool catalog with each tool's default options
// GET /api/v1/tools
func (ctrl *ToolController) GetTools(c *gin.Context) {
	tools, err := ctrl.toolService.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list tools")
		return
	}
	response.Success(c, http.StatusOK, "Tools fetched successfully", tools)
}

// GetTool returns a single tool
// GET /api/v1/tools/:id
func (ctrl *ToolController) GetTool(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tool, err := ctrl.toolService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get tool")
		return
	}
	response.Success(c, http.StatusOK, "Tool fetched successfully", tool)
}

// CreateTool adds a tool to the catalog (admin only)
// POST /api/v1/tools
func (ctrl *ToolController) CreateTool(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid tool creation request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	input := service.CreateToolInput{
		Value:         req.Value,
		Label:         req.Label,
		Description:   req.Description,
		Icon:          req.Icon,
		DefaultConfig: req.DefaultConfig,
		Outlines:      req.Outlines,
	}
	for _, rm := range req.RelatedModels {
		input.RelatedModels = append(input.RelatedModels, service.RelatedModelInput{
			Kind:  model.ModelKind(rm.Model),
			RefID: rm.Ref,
		})
	}

	tool, err := ctrl.toolService.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "create tool")
		return
	}

	log.Info("Tool created successfully", map[string]interface{}{
		"tool_id": tool.ID,
		"value":   tool.Value,
	})
	response.Success(c, http.StatusCreated, "Tool created successfully", tool)
}
