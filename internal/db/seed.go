package db

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedResult reports what SeedCatalog inserted.
type SeedResult struct {
	ToolsCreated  int
	ToolsSkipped  int
	SwatchesAdded int
}

// SeedCatalog inserts the built-in tools with their catalog documents.
// Tools are keyed by value; an existing tool is left untouched, so the
// function is safe to run on every start.
func SeedCatalog(database *gorm.DB, verbose bool) (SeedResult, error) {
	var result SeedResult

	err := database.Transaction(func(tx *gorm.DB) error {
		var swatchCount int64
		if err := tx.Model(&model.ColorSwatch{}).Count(&swatchCount).Error; err != nil {
			return err
		}
		if swatchCount == 0 {
			swatches := builtinSwatches()
			if err := tx.CreateInBatches(&swatches, 100).Error; err != nil {
				return fmt.Errorf("seed color swatches: %w", err)
			}
			result.SwatchesAdded = len(swatches)
		}

		for _, seed := range builtinTools() {
			var existing model.Tool
			err := tx.Where("value = ?", seed.tool.Value).First(&existing).Error
			if err == nil {
				result.ToolsSkipped++
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			refs, err := seed.insertCatalog(tx)
			if err != nil {
				return fmt.Errorf("seed catalog for tool %s: %w", seed.tool.Value, err)
			}
			tool := seed.tool
			for i, ref := range refs {
				ref.Position = i
				tool.RelatedModels = append(tool.RelatedModels, ref)
			}
			if err := tx.Create(&tool).Error; err != nil {
				return fmt.Errorf("seed tool %s: %w", seed.tool.Value, err)
			}
			result.ToolsCreated++

			if verbose {
				logger.Info("Seeded tool", map[string]interface{}{
					"tool":           tool.Value,
					"related_models": len(tool.RelatedModels),
				})
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if result.ToolsCreated > 0 || result.SwatchesAdded > 0 {
		logger.Info("Tool catalog seeded", map[string]interface{}{
			"tools_created":  result.ToolsCreated,
			"tools_skipped":  result.ToolsSkipped,
			"swatches_added": result.SwatchesAdded,
		})
	}
	return result, nil
}

type toolSeed struct {
	tool          model.Tool
	insertCatalog func(tx *gorm.DB) ([]model.RelatedModel, error)
}

func insertAll[T model.CatalogItem](tx *gorm.DB, items []T) ([]model.RelatedModel, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if err := tx.Create(&items).Error; err != nil {
		return nil, err
	}
	refs := make([]model.RelatedModel, 0, len(items))
	for _, item := range items {
		refs = append(refs, model.RelatedModel{Kind: item.Kind(), RefID: item.CatalogID()})
	}
	return refs, nil
}

func noCatalog(*gorm.DB) ([]model.RelatedModel, error) {
	return nil, nil
}

func mustJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(raw)
}

func builtinTools() []toolSeed {
	return []toolSeed{
		{
			tool: model.Tool{Value: "jersey-type", Label: "Type", Description: "Select jersey type and style", Icon: "shirt"},
			insertCatalog: func(tx *gorm.DB) ([]model.RelatedModel, error) {
				return insertAll(tx, []model.JerseyType{
					{Name: "Pro", Style: "Embroidered", Performance: "High", GSM: "220GSM", Price: 99, PriceNote: "Best value", Premium: true, Tag: "Recommended", Image: "/jerseys/pro.png"},
					{Name: "Premium", Style: "Sublimated", Performance: "Elite", GSM: "240GSM", Price: 129, PriceNote: "Premium pick", Premium: true, Tag: "Best quality", Image: "/jerseys/premium.png"},
					{Name: "Goalie", Style: "Padded", Performance: "Specialized", GSM: "260GSM", Price: 149, PriceNote: "For goalkeepers", Tag: "Special", Image: "/jerseys/goalie.png"},
				})
			},
		},
		{
			tool: model.Tool{Value: "design", Label: "Designs", Description: "Choose from existing designs", Icon: "layout"},
			insertCatalog: func(tx *gorm.DB) ([]model.RelatedModel, error) {
				return insertAll(tx, []model.DesignTemplate{
					{Value: "d1", Src: "/designs/design1.png", Category: "nhl"},
					{Value: "d2", Src: "/designs/design2.png", Category: "all"},
					{Value: "d3", Src: "/designs/design3.png", Category: "all"},
					{Value: "d4", Src: "/designs/design4.png", Category: "nhl"},
				})
			},
		},
		{
			tool: model.Tool{Value: "features", Label: "Features", Description: "Customize jersey fitment", Icon: "sliders"},
			insertCatalog: func(tx *gorm.DB) ([]model.RelatedModel, error) {
				return insertAll(tx, []model.FeatureMenu{
					{Key: "collar", Title: "Collar Style", Options: mustJSON([]map[string]interface{}{
						{"heading": "Round", "groupId": "collar", "items": []map[string]string{{"label": "Round Small", "value": "round-sm"}, {"label": "Round Large", "value": "round-lg"}}},
						{"heading": "V-Neck", "groupId": "collar", "items": []map[string]string{{"label": "V Small", "value": "v-sm"}, {"label": "V Large", "value": "v-lg"}}},
					})},
					{Key: "sleeves", Title: "Sleeve Style", Options: mustJSON([]map[string]interface{}{
						{"heading": "Full Sleeve", "groupId": "sleeves", "items": []map[string]string{{"label": "Standard", "value": "sleeve-std"}, {"label": "Tapered", "value": "sleeve-tpr"}}},
						{"heading": "Half Sleeve", "groupId": "sleeves", "items": []map[string]string{{"label": "Standard", "value": "sleeve-half"}, {"label": "Loose", "value": "sleeve-loose"}}},
					})},
				})
			},
		},
		{
			tool: model.Tool{
				Value: "color", Label: "Colors", Description: "Customize jersey colors", Icon: "palette",
				Outlines: datatypes.JSONSlice[model.ToolOutline]{{Name: "primary", Color: "#000000", Thickness: 1}},
			},
			insertCatalog: func(tx *gorm.DB) ([]model.RelatedModel, error) {
				return insertAll(tx, []model.CustomColorSection{
					{Key: "body", Name: "Body", Children: datatypes.JSONSlice[model.ColorSectionChild]{
						{Key: "front", Name: "Front", Value: "#FF0000"},
						{Key: "back", Name: "Back", Value: "#0000FF"},
					}},
					{Key: "sleeves", Name: "Sleeves", Children: datatypes.JSONSlice[model.ColorSectionChild]{
						{Key: "left", Name: "Left Sleeve", Value: "#FFFFFF"},
						{Key: "right", Name: "Right Sleeve", Value: "#000000"},
					}},
					{Key: "collar", Name: "Collar", Children: datatypes.JSONSlice[model.ColorSectionChild]{
						{Key: "collar-front", Name: "Front Collar", Value: "#FF00FF"},
						{Key: "collar-back", Name: "Back Collar", Value: "#00FFFF"},
					}},
				})
			},
		},
		{
			tool: model.Tool{Value: "pattern", Label: "Patterns", Description: "Apply a background pattern", Icon: "grid"},
			insertCatalog: func(tx *gorm.DB) ([]model.RelatedModel, error) {
				patterns := make([]model.Pattern, 0, 8)
				for i, file := range []string{
					"spizd_patterns_57_2", "spized_patterns_30_2", "spized_patterns_35_2", "spized_patterns_37_2",
					"spized_patterns_72_2", "spized_patterns_77_2", "stripes_2", "topography_2",
				} {
					patterns = append(patterns, model.Pattern{
						Key:   fmt.Sprintf("pattern-%d", i+1),
						Name:  fmt.Sprintf("Pattern %d", i+1),
						Image: fmt.Sprintf("/patterns/%s_preview.svg", file),
					})
				}
				return insertAll(tx, patterns)
			},
		},
		{
			tool: model.Tool{
				Value: "numbers", Label: "Numbers", Description: "Customize player numbers", Icon: "hash",
				DefaultConfig: mustJSON(map[string]interface{}{
					"font": "Arial Black", "placement": []string{"front", "back", "sleeve"},
					"size": map[string]int{"min": 12, "max": 32}, "color": "#FFFFFF",
				}),
			},
			insertCatalog: noCatalog,
		},
		{
			tool: model.Tool{
				Value: "names", Label: "Names", Description: "Add player names", Icon: "type",
				DefaultConfig: mustJSON(map[string]interface{}{
					"font": "Helvetica", "placement": []string{"back"},
					"size": map[string]int{"min": 12, "max": 24}, "color": "#FFFF00",
				}),
			},
			insertCatalog: noCatalog,
		},
		{
			tool: model.Tool{
				Value: "text", Label: "Text", Description: "Add custom text", Icon: "text",
				DefaultConfig: mustJSON(map[string]interface{}{
					"font": "Times New Roman", "placement": []string{"front"},
					"size": map[string]int{"min": 10, "max": 20}, "color": "#00FF00",
				}),
			},
			insertCatalog: noCatalog,
		},
		{
			tool: model.Tool{
				Value: "logos", Label: "Logos", Description: "Upload team or sponsor logos", Icon: "image",
				DefaultConfig: mustJSON(map[string]interface{}{
					"placement": []string{"chest", "sleeve", "back"}, "upload": true,
				}),
			},
			insertCatalog: noCatalog,
		},
	}
}

func builtinSwatches() []model.ColorSwatch {
	values := [][2]string{
		{"Light Yellow", "#f1eb9c"}, {"Gold", "#fedd00"}, {"Orange", "#ffb81c"}, {"Coral", "#fe5000"},
		{"Red", "#f26363"}, {"Crimson", "#f9423a"}, {"Burgundy", "#a6192e"}, {"Hot Pink", "#ff59a1"},
		{"Purple", "#93328e"}, {"Sky Blue", "#91cdd9"}, {"Royal Blue", "#4a7bda"}, {"Navy Blue", "#004c97"},
		{"Midnight Blue", "#0f1144"}, {"Mint Green", "#b2dbbc"}, {"Forest Green", "#338059"}, {"Lime", "#e3e935"},
		{"Olive", "#9a9e6c"}, {"Tan", "#a68a46"}, {"Brown", "#9f694d"}, {"Silver", "#c1c6c8"},
		{"Charcoal", "#46494c"}, {"White", "#ffffff"}, {"Black", "#000000"},
	}
	swatches := make([]model.ColorSwatch, 0, len(values))
	for _, v := range values {
		swatches = append(swatches, model.ColorSwatch{Name: v[0], Value: v[1], IsActive: true})
	}
	return swatches
}
