package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ModelKind names a catalog collection a tool can reference.
type ModelKind string

const (
	KindJerseyType         ModelKind = "JerseyType"
	KindDesignTemplate     ModelKind = "DesignTemplate"
	KindPattern            ModelKind = "Pattern"
	KindColorSwatch        ModelKind = "ColorSwatch"
	KindFeatureMenu        ModelKind = "FeatureMenu"
	KindCustomColorSection ModelKind = "CustomColorSection"
	KindFont               ModelKind = "Font"
	KindPlacementZone      ModelKind = "PlacementZone"
)

// ModelKinds lists every kind the resolver knows how to load.
var ModelKinds = []ModelKind{
	KindJerseyType,
	KindDesignTemplate,
	KindPattern,
	KindColorSwatch,
	KindFeatureMenu,
	KindCustomColorSection,
	KindFont,
	KindPlacementZone,
}

// Valid reports whether k is a known catalog kind.
func (k ModelKind) Valid() bool {
	for _, known := range ModelKinds {
		if k == known {
			return true
		}
	}
	return false
}

// CatalogItem is implemented by every catalog model.
type CatalogItem interface {
	CatalogID() uint
	Kind() ModelKind
}

// Snapshot renders a catalog item as a flat field map. The item's own
// timestamps are dropped so they never shadow the entry's.
func Snapshot(item CatalogItem) (map[string]interface{}, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "createdAt")
	delete(fields, "updatedAt")
	return fields, nil
}

type JerseyType struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Style       string    `json:"style"`
	Performance string    `json:"performance"`
	GSM         string    `json:"gsm"`
	Price       float64   `json:"price"`
	PriceNote   string    `json:"priceNote"`
	Premium     bool      `json:"premium"`
	Tag         string    `json:"tag"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (JerseyType) TableName() string { return "jersey_types" }
func (j JerseyType) CatalogID() uint { return j.ID }
func (JerseyType) Kind() ModelKind { return KindJerseyType }

type DesignTemplate struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Value     string    `gorm:"not null" json:"value"`
	Src       string    `gorm:"not null" json:"src"`
	Category  string    `gorm:"type:varchar(20);default:'all'" json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (DesignTemplate) TableName() string { return "design_templates" }
func (d DesignTemplate) CatalogID() uint { return d.ID }
func (DesignTemplate) Kind() ModelKind { return KindDesignTemplate }

type Pattern struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Key       string    `gorm:"uniqueIndex;type:varchar(100);not null" json:"key"`
	Name      string    `gorm:"not null" json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Pattern) TableName() string { return "patterns" }
func (p Pattern) CatalogID() uint { return p.ID }
func (Pattern) Kind() ModelKind { return KindPattern }

type ColorSwatch struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Value     string    `gorm:"type:varchar(9);not null" json:"value"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ColorSwatch) TableName() string { return "color_swatches" }
func (c ColorSwatch) CatalogID() uint { return c.ID }
func (ColorSwatch) Kind() ModelKind { return KindColorSwatch }

type FeatureMenu struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Key       string         `gorm:"uniqueIndex;type:varchar(100);not null" json:"key"`
	Title     string         `gorm:"not null" json:"title"`
	Options   datatypes.JSON `json:"options"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (FeatureMenu) TableName() string { return "feature_menus" }
func (f FeatureMenu) CatalogID() uint { return f.ID }
func (FeatureMenu) Kind() ModelKind { return KindFeatureMenu }

type ColorSectionChild struct {
	Key             string  `json:"key"`
	Name            string  `json:"name"`
	Value           string  `json:"value"`
	Gradient        bool    `json:"gradient"`
	GradientAngle   float64 `json:"gradientAngle"`
	GradientBalance float64 `json:"gradientBalance"`
	GradientFeather float64 `json:"gradientFeather"`
}

type CustomColorSection struct {
	ID        uint                                   `gorm:"primarykey" json:"id"`
	Key       string                                 `gorm:"uniqueIndex;type:varchar(100);not null" json:"key"`
	Name      string                                 `gorm:"not null" json:"name"`
	Children  datatypes.JSONSlice[ColorSectionChild] `json:"children"`
	CreatedAt time.Time                              `json:"createdAt"`
	UpdatedAt time.Time                              `json:"updatedAt"`
}

func (CustomColorSection) TableName() string { return "custom_color_sections" }
func (c CustomColorSection) CatalogID() uint { return c.ID }
func (CustomColorSection) Kind() ModelKind { return KindCustomColorSection }

type Font struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	Label      string    `json:"label"`
	FontFamily string    `json:"fontFamily"`
	Category   string    `json:"category"`
	IsActive   bool      `gorm:"default:true" json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Font) TableName() string { return "fonts" }
func (f Font) CatalogID() uint { return f.ID }
func (Font) Kind() ModelKind { return KindFont }

// PlacementZone is a region of the garment where names, numbers, logos or
// text can be placed.
type PlacementZone struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Key       string    `gorm:"uniqueIndex;type:varchar(100);not null" json:"key"`
	Name      string    `gorm:"not null" json:"name"`
	Label     string    `json:"label"`
	ToolType  string    `gorm:"type:varchar(20)" json:"toolType"`
	Image     string    `json:"image"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	Order     int       `gorm:"column:sort_order;default:0" json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (PlacementZone) TableName() string { return "placement_zones" }
func (p PlacementZone) CatalogID() uint { return p.ID }
func (PlacementZone) Kind() ModelKind { return KindPlacementZone }

// CatalogModels returns one zero value per catalog table, for migrations.
func CatalogModels() []interface{} {
	return []interface{}{
		&JerseyType{},
		&DesignTemplate{},
		&Pattern{},
		&ColorSwatch{},
		&FeatureMenu{},
		&CustomColorSection{},
		&Font{},
		&PlacementZone{},
	}
}
