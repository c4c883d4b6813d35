package model

import (
	"time"

	"gorm.io/datatypes"
)

// Tool is a catalog entry describing one customization capability
// (color, pattern, numbers, ...). Its related models define the default
// configuration a product receives when the tool is attached.
type Tool struct {
	ID            uint                             `gorm:"primarykey" json:"id"`
	Value         string                           `gorm:"uniqueIndex;type:varchar(100);not null" json:"value"`
	Label         string                           `gorm:"not null" json:"label"`
	Description   string                           `gorm:"type:text" json:"description"`
	Icon          string                           `json:"icon"`
	DefaultConfig datatypes.JSON                   `json:"defaultConfig,omitempty"`
	Outlines      datatypes.JSONSlice[ToolOutline] `json:"outlines"`
	CreatedAt     time.Time                        `json:"createdAt"`
	UpdatedAt     time.Time                        `json:"updatedAt"`

	RelatedModels []RelatedModel `gorm:"foreignKey:ToolID;constraint:OnDelete:CASCADE" json:"relatedModels"`
}

func (Tool) TableName() string {
	return "tools"
}

// ToolOutline is a named stroke layer drawn around the tool's area.
type ToolOutline struct {
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Thickness float64 `json:"thickness"`
}

// RelatedModel points at one document in a catalog collection. Kind names
// the collection, RefID the row inside it.
type RelatedModel struct {
	ID       uint      `gorm:"primarykey" json:"-"`
	ToolID   uint      `gorm:"index;not null" json:"-"`
	Kind     ModelKind `gorm:"type:varchar(50);not null" json:"model"`
	RefID    uint      `gorm:"not null" json:"ref"`
	Position int       `gorm:"not null;default:0" json:"-"`
}

func (RelatedModel) TableName() string {
	return "tool_related_models"
}
