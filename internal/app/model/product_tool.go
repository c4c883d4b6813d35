package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Reserved entry keys are set by the server and stripped from client input.
const (
	EntryKeyID        = "entryId"
	EntryKeyCreatedAt = "createdAt"
	EntryKeyUpdatedAt = "updatedAt"
)

// ProductTool binds one tool to one product and holds the product-specific
// configuration. A product has at most one binding per tool.
type ProductTool struct {
	ID           uint              `gorm:"primarykey" json:"id"`
	ProductID    uint              `gorm:"not null;uniqueIndex:idx_product_tool_pair,priority:1" json:"productId"`
	ToolID       uint              `gorm:"not null;uniqueIndex:idx_product_tool_pair,priority:2" json:"toolId"`
	ConfigKind   ConfigKind        `gorm:"type:varchar(10);not null;default:'array'" json:"-"`
	ConfigObject datatypes.JSONMap `json:"-"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`

	Tool    *Tool         `gorm:"foreignKey:ToolID" json:"tool,omitempty"`
	Entries []ConfigEntry `gorm:"foreignKey:ProductToolID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ProductTool) TableName() string {
	return "product_tools"
}

// Config assembles the binding's configuration from its stored parts.
// Entries must be loaded in position order.
func (pt ProductTool) Config() ConfigValue {
	if pt.ConfigKind == ConfigKindObject {
		return ObjectConfig(map[string]interface{}(pt.ConfigObject))
	}
	entries := make([]map[string]interface{}, 0, len(pt.Entries))
	for _, e := range pt.Entries {
		entries = append(entries, e.Flatten())
	}
	return ArrayConfig(entries)
}

// SetConfig replaces the binding's configuration. Array entries get fresh
// ids and timestamps.
func (pt *ProductTool) SetConfig(v ConfigValue, now time.Time) {
	if v.Kind == ConfigKindObject {
		pt.ConfigKind = ConfigKindObject
		pt.ConfigObject = datatypes.JSONMap(StripReserved(v.Object))
		pt.Entries = nil
		return
	}
	pt.ConfigKind = ConfigKindArray
	pt.ConfigObject = nil
	pt.Entries = make([]ConfigEntry, 0, len(v.Entries))
	for i, fields := range v.Entries {
		pt.Entries = append(pt.Entries, NewConfigEntry(pt.ID, i, fields, now))
	}
}

func (pt ProductTool) MarshalJSON() ([]byte, error) {
	type alias ProductTool
	return json.Marshal(struct {
		alias
		Config ConfigValue `json:"config"`
	}{
		alias:  alias(pt),
		Config: pt.Config(),
	})
}

// ConfigEntry is one element of an array-shaped binding configuration.
type ConfigEntry struct {
	ID            string            `gorm:"primaryKey;type:varchar(36)"`
	ProductToolID uint              `gorm:"index;not null"`
	Position      int               `gorm:"not null;default:0"`
	Fields        datatypes.JSONMap `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ConfigEntry) TableName() string {
	return "config_entries"
}

// NewConfigEntry creates an entry with a new id from a client payload.
func NewConfigEntry(productToolID uint, position int, fields map[string]interface{}, now time.Time) ConfigEntry {
	return ConfigEntry{
		ID:            uuid.NewString(),
		ProductToolID: productToolID,
		Position:      position,
		Fields:        datatypes.JSONMap(StripReserved(fields)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Flatten renders the entry as its payload plus id and timestamps.
func (e ConfigEntry) Flatten() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Fields)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	out[EntryKeyID] = e.ID
	out[EntryKeyCreatedAt] = e.CreatedAt
	out[EntryKeyUpdatedAt] = e.UpdatedAt
	return out
}

func (e ConfigEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Flatten())
}

// StripReserved copies fields without server-managed keys.
func StripReserved(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch k {
		case EntryKeyID, EntryKeyCreatedAt, EntryKeyUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}
