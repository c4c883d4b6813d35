package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	importTool      string
	importBatchSize int
)

var importCmd = &cobra.Command{
	Use:   "import <xlsx_file_path>",
	Short: "Import catalog documents from a spreadsheet",
	Long: `Import catalog documents from an XLSX workbook. Each sheet is named
after a catalog model (Pattern, ColorSwatch, JerseyType, DesignTemplate,
FeatureMenu, CustomColorSection, Font, PlacementZone); its first row holds
the JSON field names and every following row is one document. JSON-valued
columns such as options or children hold JSON text. Sheets with other
names are skipped.

With --tool the imported documents are appended to that tool's related
models, so products that attach the tool afterwards receive them as
default configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := excelize.OpenFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to open XLSX file: %w", err)
		}
		defer f.Close()

		sheets, err := readCatalogWorkbook(f)
		if err != nil {
			return err
		}

		return withDatabase(cmd.Context(), func(database *gorm.DB) error {
			result, err := importCatalog(database, sheets, importTool, importBatchSize)
			if err != nil {
				return err
			}
			for _, sheet := range sheets {
				cmd.Printf("%s: %d imported\n", sheet.Kind, result.Imported[sheet.Kind])
			}
			if importTool != "" {
				cmd.Printf("Attached %d documents to tool %s\n", result.Attached, importTool)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importTool, "tool", "", "Attach imported documents to the tool with this value")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 500, "Rows per insert batch")
}

// catalogSheet is one sheet decoded into catalog documents of Kind. Docs
// holds a pointer to a slice of the kind's model.
type catalogSheet struct {
	Kind  model.ModelKind
	Docs  interface{}
	Count int
}

type importResult struct {
	Imported map[model.ModelKind]int
	Attached int
}

func catalogTypes() map[model.ModelKind]reflect.Type {
	types := make(map[model.ModelKind]reflect.Type)
	for _, m := range model.CatalogModels() {
		item := m.(model.CatalogItem)
		types[item.Kind()] = reflect.TypeOf(m).Elem()
	}
	return types
}

// readCatalogWorkbook decodes every sheet whose name is a catalog model.
func readCatalogWorkbook(f *excelize.File) ([]catalogSheet, error) {
	types := catalogTypes()

	var sheets []catalogSheet
	for _, name := range f.GetSheetList() {
		kind := model.ModelKind(strings.TrimSpace(name))
		typ, ok := types[kind]
		if !ok {
			continue
		}

		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		if len(rows) < 2 {
			continue
		}

		docs := reflect.New(reflect.SliceOf(typ))
		header := rows[0]
		for i, row := range rows[1:] {
			if isBlankRow(row) {
				continue
			}
			doc := reflect.New(typ).Elem()
			if err := decodeRow(doc, header, row); err != nil {
				return nil, fmt.Errorf("sheet %s row %d: %w", name, i+2, err)
			}
			docs.Elem().Set(reflect.Append(docs.Elem(), doc))
		}

		if count := docs.Elem().Len(); count > 0 {
			sheets = append(sheets, catalogSheet{Kind: kind, Docs: docs.Interface(), Count: count})
		}
	}

	if len(sheets) == 0 {
		return nil, errors.New("no catalog sheets found in XLSX file")
	}
	return sheets, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// decodeRow sets the fields of doc whose json name matches a header cell.
// Unknown columns, id and timestamps are ignored.
func decodeRow(doc reflect.Value, header, row []string) error {
	fields := jsonFields(doc.Type())
	for col, name := range header {
		name = strings.TrimSpace(name)
		if col >= len(row) || name == "" || name == "id" || name == "createdAt" || name == "updatedAt" {
			continue
		}
		index, ok := fields[name]
		if !ok {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		if err := setCell(doc.Field(index), cell); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
	}
	return nil
}

func jsonFields(typ reflect.Type) map[string]int {
	fields := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		tag := strings.Split(typ.Field(i).Tag.Get("json"), ",")[0]
		if tag != "" && tag != "-" {
			fields[tag] = i
		}
	}
	return fields
}

func setCell(field reflect.Value, cell string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(cell)
	case reflect.Bool:
		v, err := strconv.ParseBool(strings.ToLower(cell))
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Int, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return err
		}
		field.SetFloat(v)
	default:
		// JSON columns (datatypes.JSON, JSONSlice) take JSON text.
		if err := json.Unmarshal([]byte(cell), field.Addr().Interface()); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return nil
}

// importCatalog inserts every sheet in one transaction and optionally
// appends the new documents to a tool's related models.
func importCatalog(database *gorm.DB, sheets []catalogSheet, toolValue string, batchSize int) (importResult, error) {
	result := importResult{Imported: make(map[model.ModelKind]int)}
	if batchSize < 1 {
		batchSize = 500
	}

	err := database.Transaction(func(tx *gorm.DB) error {
		var tool *model.Tool
		position := 0
		if toolValue != "" {
			tool = &model.Tool{}
			if err := tx.Where("value = ?", toolValue).First(tool).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("tool %q not found", toolValue)
				}
				return err
			}
			var count int64
			if err := tx.Model(&model.RelatedModel{}).Where("tool_id = ?", tool.ID).Count(&count).Error; err != nil {
				return err
			}
			position = int(count)
		}

		for _, sheet := range sheets {
			if err := tx.CreateInBatches(sheet.Docs, batchSize).Error; err != nil {
				return fmt.Errorf("failed to import %s: %w", sheet.Kind, err)
			}
			result.Imported[sheet.Kind] = sheet.Count

			if tool == nil {
				continue
			}
			docs := reflect.ValueOf(sheet.Docs).Elem()
			refs := make([]model.RelatedModel, 0, docs.Len())
			for i := 0; i < docs.Len(); i++ {
				item := docs.Index(i).Interface().(model.CatalogItem)
				refs = append(refs, model.RelatedModel{
					ToolID:   tool.ID,
					Kind:     sheet.Kind,
					RefID:    item.CatalogID(),
					Position: position,
				})
				position++
			}
			if err := tx.Create(&refs).Error; err != nil {
				return fmt.Errorf("failed to attach %s to tool %s: %w", sheet.Kind, toolValue, err)
			}
			result.Attached += len(refs)
		}
		return nil
	})
	return result, err
}
