package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/internal/app/model"
	"gorm.io/gorm"
)

func TestToolRepository_RelatedModelsKeepOrder(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewToolRepository(testDB)
	ctx := context.Background()

	tool := &model.Tool{
		Value: "design",
		Label: "Designs",
		RelatedModels: []model.RelatedModel{
			{Kind: model.KindDesignTemplate, RefID: 3, Position: 0},
			{Kind: model.KindDesignTemplate, RefID: 1, Position: 1},
			{Kind: model.KindDesignTemplate, RefID: 2, Position: 2},
		},
	}
	require.NoError(t, repo.Create(ctx, tool))

	found, err := repo.FindByID(ctx, tool.ID)
	require.NoError(t, err)
	require.Len(t, found.RelatedModels, 3)
	assert.Equal(t, uint(3), found.RelatedModels[0].RefID)
	assert.Equal(t, uint(1), found.RelatedModels[1].RefID)
	assert.Equal(t, uint(2), found.RelatedModels[2].RefID)

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestToolRepository_ExistingIDs(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewToolRepository(testDB)
	ctx := context.Background()

	a := createTool(t, testDB, "color")
	b := createTool(t, testDB, "pattern")

	ids, err := repo.ExistingIDs(ctx, []uint{a.ID, b.ID, 9999})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, ids)

	ids, err = repo.ExistingIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	tools, err := repo.FindByIDs(ctx, []uint{b.ID})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "pattern", tools[0].Value)
}
