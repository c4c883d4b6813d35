package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/db"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func catalogWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.SetSheetName("Sheet1", "Pattern"))
	require.NoError(t, f.SetSheetRow("Pattern", "A1", &[]interface{}{"key", "name", "image", "unknown"}))
	require.NoError(t, f.SetSheetRow("Pattern", "A2", &[]interface{}{"stripes", "Stripes", "/patterns/stripes.png", "ignored"}))
	require.NoError(t, f.SetSheetRow("Pattern", "A3", &[]interface{}{"", "", ""}))
	require.NoError(t, f.SetSheetRow("Pattern", "A4", &[]interface{}{"hoops", "Hoops"}))

	_, err := f.NewSheet("FeatureMenu")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("FeatureMenu", "A1", &[]interface{}{"key", "title", "options"}))
	require.NoError(t, f.SetSheetRow("FeatureMenu", "A2", &[]interface{}{"cuffs", "Cuffs", `[{"value":"ribbed"}]`}))

	_, err = f.NewSheet("PlacementZone")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("PlacementZone", "A1", &[]interface{}{"key", "name", "x", "y", "isActive", "order"}))
	require.NoError(t, f.SetSheetRow("PlacementZone", "A2", &[]interface{}{"chest", "Chest", "0.5", "0.25", "TRUE", "2"}))

	_, err = f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Notes", "A1", &[]interface{}{"anything"}))
	return f
}

func TestReadCatalogWorkbook(t *testing.T) {
	sheets, err := readCatalogWorkbook(catalogWorkbook(t))
	require.NoError(t, err)
	require.Len(t, sheets, 3)

	byKind := map[model.ModelKind]catalogSheet{}
	for _, sheet := range sheets {
		byKind[sheet.Kind] = sheet
	}

	patterns := *byKind[model.KindPattern].Docs.(*[]model.Pattern)
	require.Len(t, patterns, 2)
	assert.Equal(t, "stripes", patterns[0].Key)
	assert.Equal(t, "/patterns/stripes.png", patterns[0].Image)
	assert.Equal(t, "Hoops", patterns[1].Name)

	menus := *byKind[model.KindFeatureMenu].Docs.(*[]model.FeatureMenu)
	require.Len(t, menus, 1)
	assert.JSONEq(t, `[{"value":"ribbed"}]`, string(menus[0].Options))

	zones := *byKind[model.KindPlacementZone].Docs.(*[]model.PlacementZone)
	require.Len(t, zones, 1)
	assert.Equal(t, 0.5, zones[0].X)
	assert.True(t, zones[0].IsActive)
	assert.Equal(t, 2, zones[0].Order)
}

func TestReadCatalogWorkbook_Errors(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := readCatalogWorkbook(f)
	assert.Error(t, err, "a workbook without catalog sheets is rejected")

	require.NoError(t, f.SetSheetName("Sheet1", "JerseyType"))
	require.NoError(t, f.SetSheetRow("JerseyType", "A1", &[]interface{}{"name", "price"}))
	require.NoError(t, f.SetSheetRow("JerseyType", "A2", &[]interface{}{"Pro", "expensive"}))
	_, err = readCatalogWorkbook(f)
	assert.ErrorContains(t, err, "column price")
}

func TestImportCatalog_AttachesToTool(t *testing.T) {
	testDB := setupSeedDB(t)
	tool := &model.Tool{Value: "pattern", Label: "Pattern"}
	require.NoError(t, testDB.Create(tool).Error)

	sheets, err := readCatalogWorkbook(catalogWorkbook(t))
	require.NoError(t, err)

	result, err := importCatalog(testDB, sheets, "pattern", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported[model.KindPattern])
	assert.Equal(t, 4, result.Attached)

	var refs []model.RelatedModel
	require.NoError(t, testDB.Where("tool_id = ?", tool.ID).Order("position").Find(&refs).Error)
	require.Len(t, refs, 4)
	for i, ref := range refs {
		assert.Equal(t, i, ref.Position)
		assert.NotZero(t, ref.RefID)
	}

	_, err = importCatalog(testDB, sheets, "missing-tool", 10)
	assert.ErrorContains(t, err, "not found")
}

func TestCreateAdmin(t *testing.T) {
	testDB := setupSeedDB(t)
	users := repository.NewUserRepository(testDB)
	ctx := context.Background()

	user, err := createAdmin(ctx, users, " Ops@Example.com ", "secret123", "Ops")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", user.Email)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	_, err = createAdmin(ctx, users, "ops@example.com", "secret123", "Ops")
	assert.ErrorContains(t, err, "already exists")

	_, err = createAdmin(ctx, users, "short@example.com", "123", "")
	assert.Error(t, err)
}
