package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type ProductStatus string

const (
	StatusDraft    ProductStatus = "draft"
	StatusActive   ProductStatus = "active"
	StatusInactive ProductStatus = "inactive"
	StatusArchived ProductStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusInactive, StatusArchived:
		return true
	}
	return false
}

type ProductImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type ProductStock struct {
	Quantity    int  `gorm:"default:0" json:"quantity"`
	IsUnlimited bool `gorm:"default:false" json:"isUnlimited"`
}

// Product is a merchant-owned customizable item. A product with
// IsCustomizedByUser set is a fork of ReferencedProductID owned by the
// end user named in CustomizedByUser; at most one fork exists per
// (referenced product, user).
type Product struct {
	ID                  uint                              `gorm:"primarykey" json:"id"`
	MerchantID          uint                              `gorm:"index;not null" json:"merchant"`
	SportID             uint                              `gorm:"index" json:"sport"`
	CategoryID          uint                              `gorm:"index" json:"category"`
	Name                string                            `gorm:"not null" json:"name"`
	Description         string                            `gorm:"type:text" json:"description"`
	BasePrice           float64                           `gorm:"not null;default:0" json:"basePrice"`
	Images              datatypes.JSONSlice[ProductImage] `json:"images"`
	Stock               ProductStock                      `gorm:"embedded;embeddedPrefix:stock_" json:"stock"`
	Status              ProductStatus                     `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	IsCustomizedByUser  bool                              `gorm:"default:false;index" json:"isCustomizedByUser"`
	CustomizedByUser    string                            `gorm:"type:varchar(191);uniqueIndex:idx_product_fork,priority:2" json:"customizedByUser,omitempty"`
	ReferencedProductID *uint                             `gorm:"uniqueIndex:idx_product_fork,priority:1" json:"referencedProduct,omitempty"`
	CreatedAt           time.Time                         `json:"createdAt"`
	UpdatedAt           time.Time                         `json:"updatedAt"`

	// Relationships
	Tools []ProductTool `gorm:"foreignKey:ProductID" json:"tools"`
}

func (Product) TableName() string {
	return "products"
}

// ToolIDs returns the tool ids of the loaded bindings.
func (p Product) ToolIDs() []uint {
	ids := make([]uint, 0, len(p.Tools))
	for _, pt := range p.Tools {
		ids = append(ids, pt.ToolID)
	}
	return ids
}

// MarshalJSON renders unloaded associations and images as empty arrays.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	out := alias(p)
	if out.Tools == nil {
		out.Tools = []ProductTool{}
	}
	if out.Images == nil {
		out.Images = datatypes.JSONSlice[ProductImage]{}
	}
	return json.Marshal(out)
}
