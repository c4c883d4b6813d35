package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductToolRepository interface {
	WithTx(tx *gorm.DB) ProductToolRepository
	FindByProduct(ctx context.Context, productID uint) ([]model.ProductTool, error)
	FindByProductAndTool(ctx context.Context, productID, toolID uint) (*model.ProductTool, error)
	ToolIDs(ctx context.Context, productID uint) ([]uint, error)
	Create(ctx context.Context, binding *model.ProductTool) error
	ReplaceConfig(ctx context.Context, binding *model.ProductTool) error
	DeleteByProductAndTools(ctx context.Context, productID uint, toolIDs []uint) (int64, error)
	DeleteByProduct(ctx context.Context, productID uint) (int64, error)
	DeleteOrphans(ctx context.Context) (int64, error)

	AppendEntry(ctx context.Context, binding *model.ProductTool, fields map[string]interface{}) (*model.ConfigEntry, error)
	MergeEntryFields(ctx context.Context, productToolID uint, entryID string, fields map[string]interface{}) (int64, error)
	EntryExists(ctx context.Context, productToolID uint, entryID string) (bool, error)
	DeleteEntry(ctx context.Context, productToolID uint, entryID string) (int64, error)
}

type productToolRepository struct {
	db *gorm.DB
}

func NewProductToolRepository(db *gorm.DB) ProductToolRepository {
	return &productToolRepository{db: db}
}

func (r *productToolRepository) WithTx(tx *gorm.DB) ProductToolRepository {
	return &productToolRepository{db: tx}
}

func (r *productToolRepository) FindByProduct(ctx context.Context, productID uint) ([]model.ProductTool, error) {
	bindings := []model.ProductTool{}
	err := r.db.WithContext(ctx).
		Preload("Tool").
		Preload("Entries", orderEntries).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&bindings).Error
	if err != nil {
		logger.Error("Failed to find product tools", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return bindings, nil
}

func (r *productToolRepository) FindByProductAndTool(ctx context.Context, productID, toolID uint) (*model.ProductTool, error) {
	var binding model.ProductTool
	err := r.db.WithContext(ctx).
		Preload("Tool").
		Preload("Entries", orderEntries).
		Where("product_id = ? AND tool_id = ?", productID, toolID).
		First(&binding).Error
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

func (r *productToolRepository) ToolIDs(ctx context.Context, productID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).
		Model(&model.ProductTool{}).
		Where("product_id = ?", productID).
		Order("id ASC").
		Pluck("tool_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Create inserts a binding together with its entries.
func (r *productToolRepository) Create(ctx context.Context, binding *model.ProductTool) error {
	logger.Debug("Creating product tool binding", map[string]interface{}{
		"product_id":  binding.ProductID,
		"tool_id":     binding.ToolID,
		"config_kind": binding.ConfigKind,
		"entries":     len(binding.Entries),
	})

	if err := r.db.WithContext(ctx).Omit("Tool").Create(binding).Error; err != nil {
		logger.Error("Failed to create product tool binding", err, map[string]interface{}{
			"product_id": binding.ProductID,
			"tool_id":    binding.ToolID,
		})
		return err
	}
	return nil
}

// ReplaceConfig overwrites a stored binding's configuration with the one
// currently set on binding. Must run inside a transaction.
func (r *productToolRepository) ReplaceConfig(ctx context.Context, binding *model.ProductTool) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("product_tool_id = ?", binding.ID).Delete(&model.ConfigEntry{}).Error; err != nil {
		return err
	}

	err := db.Model(&model.ProductTool{}).
		Where("id = ?", binding.ID).
		Updates(map[string]interface{}{
			"config_kind":   binding.ConfigKind,
			"config_object": binding.ConfigObject,
			"updated_at":    time.Now(),
		}).Error
	if err != nil {
		return err
	}

	if len(binding.Entries) == 0 {
		return nil
	}
	for i := range binding.Entries {
		binding.Entries[i].ProductToolID = binding.ID
	}
	return db.Create(&binding.Entries).Error
}

func (r *productToolRepository) DeleteByProductAndTools(ctx context.Context, productID uint, toolIDs []uint) (int64, error) {
	if len(toolIDs) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)

	bindingIDs := db.Model(&model.ProductTool{}).
		Select("id").
		Where("product_id = ? AND tool_id IN ?", productID, toolIDs)
	if err := db.Where("product_tool_id IN (?)", bindingIDs).Delete(&model.ConfigEntry{}).Error; err != nil {
		return 0, err
	}

	result := db.Where("product_id = ? AND tool_id IN ?", productID, toolIDs).Delete(&model.ProductTool{})
	if result.Error != nil {
		logger.Error("Failed to delete product tool bindings", result.Error, map[string]interface{}{
			"product_id": productID,
			"tool_ids":   toolIDs,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *productToolRepository) DeleteByProduct(ctx context.Context, productID uint) (int64, error) {
	db := r.db.WithContext(ctx)

	bindingIDs := db.Model(&model.ProductTool{}).Select("id").Where("product_id = ?", productID)
	if err := db.Where("product_tool_id IN (?)", bindingIDs).Delete(&model.ConfigEntry{}).Error; err != nil {
		return 0, err
	}

	result := db.Where("product_id = ?", productID).Delete(&model.ProductTool{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteOrphans removes bindings whose product no longer exists and entries
// whose binding no longer exists.
func (r *productToolRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	db := r.db.WithContext(ctx)

	productIDs := db.Model(&model.Product{}).Select("id")
	orphanBindings := db.Model(&model.ProductTool{}).Select("id").Where("product_id NOT IN (?)", productIDs)
	dangling := db.Where("product_tool_id IN (?)", orphanBindings).Delete(&model.ConfigEntry{})
	if dangling.Error != nil {
		return 0, dangling.Error
	}

	result := db.Where("product_id NOT IN (?)", productIDs).Delete(&model.ProductTool{})
	if result.Error != nil {
		return 0, result.Error
	}

	bindingIDs := db.Model(&model.ProductTool{}).Select("id")
	entries := db.Where("product_tool_id NOT IN (?)", bindingIDs).Delete(&model.ConfigEntry{})
	if entries.Error != nil {
		return 0, entries.Error
	}
	return dangling.RowsAffected + result.RowsAffected + entries.RowsAffected, nil
}

// AppendEntry adds an entry after the last one of binding.
func (r *productToolRepository) AppendEntry(ctx context.Context, binding *model.ProductTool, fields map[string]interface{}) (*model.ConfigEntry, error) {
	var entry model.ConfigEntry

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition sql.NullInt64
		row := tx.Model(&model.ConfigEntry{}).
			Select("MAX(position)").
			Where("product_tool_id = ?", binding.ID).
			Row()
		if err := row.Scan(&maxPosition); err != nil {
			return err
		}

		position := 0
		if maxPosition.Valid {
			position = int(maxPosition.Int64) + 1
		}

		now := time.Now()
		entry = model.NewConfigEntry(binding.ID, position, fields, now)
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return touchBinding(tx, binding.ID, now)
	})
	if err != nil {
		logger.Error("Failed to append config entry", err, map[string]interface{}{
			"product_tool_id": binding.ID,
		})
		return nil, err
	}
	return &entry, nil
}

// MergeEntryFields sets the given keys on one entry in a single UPDATE so
// concurrent writers to different keys of the same entry never lose each
// other's changes. It returns 0 when the entry does not exist or when the
// merge would not change it.
func (r *productToolRepository) MergeEntryFields(ctx context.Context, productToolID uint, entryID string, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	now := time.Now()

	var (
		stmt string
		args []interface{}
		err  error
	)
	switch db.Dialector.Name() {
	case "postgres":
		stmt, args, err = postgresMergeSQL(productToolID, entryID, fields, now)
	case "sqlite":
		stmt, args, err = sqliteMergeSQL(productToolID, entryID, fields, now)
	default:
		return 0, fmt.Errorf("config entry merge not supported on %s", db.Dialector.Name())
	}
	if err != nil {
		return 0, err
	}

	var affected int64
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(stmt, args...)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		if affected == 0 {
			return nil
		}
		return touchBinding(tx, productToolID, now)
	})
	if err != nil {
		logger.Error("Failed to merge config entry fields", err, map[string]interface{}{
			"product_tool_id": productToolID,
			"entry_id":        entryID,
		})
		return 0, err
	}
	return affected, nil
}

func postgresMergeSQL(productToolID uint, entryID string, fields map[string]interface{}, now time.Time) (string, []interface{}, error) {
	patch, err := json.Marshal(fields)
	if err != nil {
		return "", nil, err
	}
	stmt := `UPDATE config_entries
SET fields = fields || ?::jsonb, updated_at = ?
WHERE id = ? AND product_tool_id = ? AND (fields || ?::jsonb) IS DISTINCT FROM fields`
	return stmt, []interface{}{string(patch), now, entryID, productToolID, string(patch)}, nil
}

func sqliteMergeSQL(productToolID uint, entryID string, fields map[string]interface{}, now time.Time) (string, []interface{}, error) {
	placeholders := make([]string, 0, len(fields))
	setArgs := make([]interface{}, 0, len(fields)*2)
	for key, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return "", nil, err
		}
		placeholders = append(placeholders, "?, json(?)")
		setArgs = append(setArgs, fmt.Sprintf(`$."%s"`, key), string(raw))
	}
	merged := fmt.Sprintf("json_set(fields, %s)", strings.Join(placeholders, ", "))

	stmt := fmt.Sprintf(`UPDATE config_entries
SET fields = %s, updated_at = ?
WHERE id = ? AND product_tool_id = ? AND %s <> json(fields)`, merged, merged)

	args := make([]interface{}, 0, len(setArgs)*2+3)
	args = append(args, setArgs...)
	args = append(args, now, entryID, productToolID)
	args = append(args, setArgs...)
	return stmt, args, nil
}

func (r *productToolRepository) EntryExists(ctx context.Context, productToolID uint, entryID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ConfigEntry{}).
		Where("id = ? AND product_tool_id = ?", entryID, productToolID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productToolRepository) DeleteEntry(ctx context.Context, productToolID uint, entryID string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND product_tool_id = ?", entryID, productToolID).Delete(&model.ConfigEntry{})
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		if affected == 0 {
			return nil
		}
		return touchBinding(tx, productToolID, time.Now())
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func touchBinding(tx *gorm.DB, productToolID uint, now time.Time) error {
	return tx.Model(&model.ProductTool{}).
		Where("id = ?", productToolID).
		UpdateColumn("updated_at", now).Error
}
