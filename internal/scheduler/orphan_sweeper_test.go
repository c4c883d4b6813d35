package scheduler

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/db"
	"github.com/threadline/configurator-backend/internal/metrics"
)

func TestOrphanSweeper_Sweep(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	ctx := context.Background()

	tool := &model.Tool{Value: "color", Label: "Color"}
	require.NoError(t, testDB.Create(tool).Error)
	kept := &model.Product{MerchantID: 1, Name: "Kept", Status: model.StatusDraft}
	gone := &model.Product{MerchantID: 1, Name: "Gone", Status: model.StatusDraft}
	require.NoError(t, testDB.Create(kept).Error)
	require.NoError(t, testDB.Create(gone).Error)

	for _, productID := range []uint{kept.ID, gone.ID} {
		require.NoError(t, testDB.Create(&model.ProductTool{
			ProductID:  productID,
			ToolID:     tool.ID,
			ConfigKind: model.ConfigKindArray,
		}).Error)
	}

	require.NoError(t, testDB.Exec("PRAGMA foreign_keys = OFF").Error)
	require.NoError(t, testDB.Exec("DELETE FROM products WHERE id = ?", gone.ID).Error)
	require.NoError(t, testDB.Exec("PRAGMA foreign_keys = ON").Error)

	before := testutil.ToFloat64(metrics.OrphansSweptTotal)
	sweeper := NewOrphanSweeper("@every 1h", repository.NewProductToolRepository(testDB))

	removed, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrphansSweptTotal))

	var bindings int64
	require.NoError(t, testDB.Model(&model.ProductTool{}).Count(&bindings).Error)
	assert.Equal(t, int64(1), bindings)

	removed, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestOrphanSweeper_StartRejectsBadSchedule(t *testing.T) {
	sweeper := NewOrphanSweeper("not a schedule", nil)
	assert.Error(t, sweeper.Start())

	started := NewOrphanSweeper("@every 1h", nil)
	require.NoError(t, started.Start())
	started.Stop()
}
