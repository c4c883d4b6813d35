package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/internal/app/model"
)

func selections(t *testing.T, raw string) *[]ToolSelection {
	t.Helper()
	var out []ToolSelection
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return &out
}

func TestToolSelection_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantID     uint
		wantConfig bool
		wantErr    bool
	}{
		{name: "number", input: `5`, wantID: 5},
		{name: "numeric string", input: `"12"`, wantID: 12},
		{name: "object with tool", input: `{"tool": 3, "config": [{"a": 1}]}`, wantID: 3, wantConfig: true},
		{name: "object with toolId string", input: `{"toolId": "4"}`, wantID: 4},
		{name: "object with object config", input: `{"tool": 6, "config": {"content": "x"}}`, wantID: 6, wantConfig: true},
		{name: "zero", input: `0`, wantErr: true},
		{name: "word", input: `"color"`, wantErr: true},
		{name: "object without tool", input: `{"config": []}`, wantErr: true},
		{name: "invalid config", input: `{"tool": 1, "config": 7}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sel ToolSelection
			err := json.Unmarshal([]byte(tt.input), &sel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, sel.ToolID)
			assert.Equal(t, tt.wantConfig, sel.Config != nil)
		})
	}
}

func TestCustomizationService_CreateFork(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")
	color := env.toolID(t, "color")

	original := env.createProduct(t, 1, features, color)

	fork, isNew, err := env.customization.Upsert(ctx, CustomizeInput{
		ReferencedProductID: original.ID,
		CustomizedByUser:    "visitor-1",
	})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, original.ID, fork.ID)
	assert.True(t, fork.IsCustomizedByUser)
	assert.Equal(t, "visitor-1", fork.CustomizedByUser)
	require.NotNil(t, fork.ReferencedProductID)
	assert.Equal(t, original.ID, *fork.ReferencedProductID)
	assert.Equal(t, original.MerchantID, fork.MerchantID)
	assert.Equal(t, original.Name, fork.Name)
	assert.Equal(t, model.StatusDraft, fork.Status)
	assert.ElementsMatch(t, []uint{features, color}, fork.ToolIDs())
}

func TestCustomizationService_ForkUniqueness(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")

	original := env.createProduct(t, 1, features)
	input := CustomizeInput{ReferencedProductID: original.ID, CustomizedByUser: "visitor-1"}

	var wg sync.WaitGroup
	results := make(chan bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, isNew, err := env.customization.Upsert(ctx, input)
			assert.NoError(t, err)
			results <- isNew
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for isNew := range results {
		if isNew {
			created++
		}
	}
	assert.Equal(t, 1, created)

	var forks int64
	require.NoError(t, env.db.Model(&model.Product{}).
		Where("referenced_product_id = ? AND customized_by_user = ?", original.ID, "visitor-1").
		Count(&forks).Error)
	assert.Equal(t, int64(1), forks)
}

func TestCustomizationService_UpdateForkMergesTools(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")
	color := env.toolID(t, "color")
	text := env.toolID(t, "text")

	original := env.createProduct(t, 1, features, color)
	fork, _, err := env.customization.Upsert(ctx, CustomizeInput{ReferencedProductID: original.ID, CustomizedByUser: "visitor-1"})
	require.NoError(t, err)

	colorEntries := env.binding(t, fork.ID, color).Entries

	name := "My Jersey"
	raw := `[{"tool": ` + jsonNumber(features) + `, "config": [{"key": "collar", "picked": "v-lg"}]}, ` +
		jsonNumber(color) + `, "` + jsonNumber(text) + `"]`
	updated, isNew, err := env.customization.Upsert(ctx, CustomizeInput{
		ReferencedProductID: original.ID,
		CustomizedByUser:    "visitor-1",
		Name:                &name,
		Tools:               selections(t, raw),
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, fork.ID, updated.ID)
	assert.Equal(t, "My Jersey", updated.Name)
	assert.ElementsMatch(t, []uint{features, color, text}, updated.ToolIDs())

	overwritten := env.binding(t, fork.ID, features)
	require.Len(t, overwritten.Entries, 1)
	assert.Equal(t, "v-lg", overwritten.Entries[0].Fields["picked"])

	preserved := env.binding(t, fork.ID, color)
	assert.Equal(t, entryIDs(&model.ProductTool{Entries: colorEntries}), entryIDs(preserved))

	originalFeatures := env.binding(t, original.ID, features)
	assert.Len(t, originalFeatures.Entries, 2, "the original product is never modified")
}

func TestCustomizationService_CreateWithExplicitTools(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")
	color := env.toolID(t, "color")

	original := env.createProduct(t, 1, features, color)
	fork, isNew, err := env.customization.Upsert(ctx, CustomizeInput{
		ReferencedProductID: original.ID,
		CustomizedByUser:    "visitor-2",
		Tools:               selections(t, `[`+jsonNumber(color)+`]`),
	})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, []uint{color}, fork.ToolIDs())
}

func TestCustomizationService_Errors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")

	_, _, err := env.customization.Upsert(ctx, CustomizeInput{ReferencedProductID: 1})
	assert.ErrorIs(t, err, ErrInvalidCustomization)

	_, _, err = env.customization.Upsert(ctx, CustomizeInput{ReferencedProductID: 9999, CustomizedByUser: "v"})
	assert.ErrorIs(t, err, ErrProductNotFound)

	original := env.createProduct(t, 1, features)
	fork, _, err := env.customization.Upsert(ctx, CustomizeInput{ReferencedProductID: original.ID, CustomizedByUser: "v"})
	require.NoError(t, err)

	_, _, err = env.customization.Upsert(ctx, CustomizeInput{ReferencedProductID: fork.ID, CustomizedByUser: "v"})
	assert.ErrorIs(t, err, ErrCannotForkCustomized)

	_, _, err = env.customization.Upsert(ctx, CustomizeInput{
		ReferencedProductID: original.ID,
		CustomizedByUser:    "w",
		Tools:               selections(t, `[424242]`),
	})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestCustomizationService_PreviewFallsBackToOriginal(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")
	color := env.toolID(t, "color")

	original := env.createProduct(t, 1, features, color)

	decode := func(payload json.RawMessage) []map[string]interface{} {
		var bindings []map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &bindings))
		return bindings
	}

	payload, err := env.customization.PreviewBindings(ctx, original.ID, "visitor-1")
	require.NoError(t, err)
	bindings := decode(payload)
	require.Len(t, bindings, 2)
	assert.EqualValues(t, original.ID, bindings[0]["productId"])

	tools := []ToolSelection{{ToolID: features}}
	fork, _, err := env.customization.Upsert(ctx, CustomizeInput{
		ReferencedProductID: original.ID,
		CustomizedByUser:    "visitor-1",
		Tools:               &tools,
	})
	require.NoError(t, err)

	payload, err = env.customization.PreviewBindings(ctx, original.ID, "visitor-1")
	require.NoError(t, err)
	bindings = decode(payload)
	require.Len(t, bindings, 1)
	assert.EqualValues(t, fork.ID, bindings[0]["productId"])

	payload, err = env.customization.PreviewBindings(ctx, original.ID, "")
	require.NoError(t, err)
	assert.Len(t, decode(payload), 2)

	_, err = env.customization.PreviewBindings(ctx, 9999, "visitor-1")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCustomizationService_PreviewCacheInvalidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")
	color := env.toolID(t, "color")

	original := env.createProduct(t, 1, features, color)

	_, err := env.customization.PreviewBindings(ctx, original.ID, "")
	require.NoError(t, err)
	_, err = env.customization.PreviewBindings(ctx, original.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.hits)

	require.NoError(t, env.productTools.DeleteBinding(ctx, 1, original.ID, color))

	payload, err := env.customization.PreviewBindings(ctx, original.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.hits)

	var bindings []map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &bindings))
	assert.Len(t, bindings, 1)
}

func TestCustomizationService_ListForUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")

	first := env.createProduct(t, 1, features)
	second := env.createProduct(t, 1, features)
	foreign := env.createProduct(t, 2, features)

	for _, p := range []uint{first.ID, second.ID, foreign.ID} {
		_, _, err := env.customization.Upsert(ctx, CustomizeInput{ReferencedProductID: p, CustomizedByUser: "visitor-1"})
		require.NoError(t, err)
	}
	_, _, err := env.customization.Upsert(ctx, CustomizeInput{ReferencedProductID: first.ID, CustomizedByUser: "visitor-2"})
	require.NoError(t, err)

	products, total, err := env.customization.ListForUser(ctx, 1, "visitor-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, p := range products {
		assert.Equal(t, "visitor-1", p.CustomizedByUser)
		assert.Equal(t, uint(1), p.MerchantID)
	}

	products, total, err = env.customization.ListForUser(ctx, 1, "visitor-1", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, products, 1)
}

func TestCustomizationService_ForkSurvivesOriginalDelete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	features := env.toolID(t, "features")

	original := env.createProduct(t, 1, features)
	fork, _, err := env.customization.Upsert(ctx, CustomizeInput{ReferencedProductID: original.ID, CustomizedByUser: "v"})
	require.NoError(t, err)

	require.NoError(t, env.products.Delete(ctx, 1, original.ID))

	kept, err := env.products.Get(ctx, 1, fork.ID)
	require.NoError(t, err)
	assert.Len(t, kept.Tools, 1)

	payload, err := env.customization.PreviewBindings(ctx, original.ID, "v")
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"productId":`)
}

func jsonNumber(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
