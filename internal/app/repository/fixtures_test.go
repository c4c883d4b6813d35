package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/db"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createTool(t *testing.T, testDB *gorm.DB, value string) *model.Tool {
	t.Helper()
	tool := &model.Tool{Value: value, Label: value}
	require.NoError(t, testDB.Create(tool).Error)
	return tool
}

func createProduct(t *testing.T, testDB *gorm.DB, merchantID uint, name string) *model.Product {
	t.Helper()
	product := &model.Product{
		MerchantID: merchantID,
		Name:       name,
		BasePrice:  50,
		Status:     model.StatusDraft,
	}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

func createBinding(t *testing.T, testDB *gorm.DB, productID, toolID uint, entries ...map[string]interface{}) *model.ProductTool {
	t.Helper()
	binding := &model.ProductTool{ProductID: productID, ToolID: toolID}
	binding.SetConfig(model.ArrayConfig(entries), time.Now())
	require.NoError(t, NewProductToolRepository(testDB).Create(context.Background(), binding))
	return binding
}
