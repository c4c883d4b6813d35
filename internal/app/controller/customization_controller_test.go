package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
)

func TestFlexibleID(t *testing.T) {
	var id flexibleID
	require.NoError(t, json.Unmarshal([]byte(`12`), &id))
	assert.Equal(t, flexibleID(12), id)
	require.NoError(t, json.Unmarshal([]byte(`" 34 "`), &id))
	assert.Equal(t, flexibleID(34), id)
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &id))
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}

func TestCustomizationController_Upsert(t *testing.T) {
	env := setupControllerTest(t)
	features := env.toolID(t, "features")
	numbers := env.toolID(t, "numbers")
	original := env.createProduct(t, 1, features)

	w, body := env.do(t, http.MethodPost, "/products/customized", 0, map[string]interface{}{
		"referencedProduct": strconv.FormatUint(uint64(original.ID), 10),
		"customizedByUser":  "fan-1",
		"name":              "My Jersey",
		"tools": []interface{}{
			strconv.FormatUint(uint64(features), 10),
			map[string]interface{}{
				"tool":   numbers,
				"config": []map[string]interface{}{{"id": "back", "content": "23"}},
			},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["isNew"])
	fork := data["product"].(map[string]interface{})
	assert.Equal(t, "My Jersey", fork["name"])
	assert.Equal(t, true, fork["isCustomizedByUser"])
	assert.Equal(t, "fan-1", fork["customizedByUser"])
	assert.Equal(t, float64(original.ID), fork["referencedProduct"])
	assert.Equal(t, "draft", fork["status"])
	require.Len(t, fork["tools"], 2)

	w, body = env.do(t, http.MethodPost, "/products/customized", 0, map[string]interface{}{
		"referencedProduct": original.ID,
		"customizedByUser":  "fan-1",
		"basePrice":         88,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data = body["data"].(map[string]interface{})
	assert.Equal(t, false, data["isNew"])
	again := data["product"].(map[string]interface{})
	assert.Equal(t, fork["id"], again["id"])
	assert.Equal(t, float64(88), again["basePrice"])
	assert.Len(t, again["tools"], 2, "omitted tools keep the fork's bindings")
}

func TestCustomizationController_UpsertErrors(t *testing.T) {
	env := setupControllerTest(t)
	original := env.createProduct(t, 1, env.toolID(t, "color"))

	w, body := env.do(t, http.MethodPost, "/products/customized", 0, map[string]interface{}{
		"referencedProduct": original.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["fields"], "customizedByUser")

	w, body = env.do(t, http.MethodPost, "/products/customized", 0, map[string]interface{}{
		"referencedProduct": 4242,
		"customizedByUser":  "fan-1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ProductNotFound, body["error"])

	w, body = env.do(t, http.MethodPost, "/products/customized", 0, map[string]interface{}{
		"referencedProduct": original.ID,
		"customizedByUser":  "fan-1",
		"tools":             []interface{}{true},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidFormat, body["error"])

	w, body = env.do(t, http.MethodPost, "/products/customized", 0, map[string]interface{}{
		"referencedProduct": original.ID,
		"customizedByUser":  "fan-1",
		"tools":             []interface{}{99999},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ToolUnknown, body["error"])
}

func TestCustomizationController_ListForUser(t *testing.T) {
	env := setupControllerTest(t)
	color := env.toolID(t, "color")

	for i := 0; i < 3; i++ {
		original := env.createProduct(t, 1, color)
		w, _ := env.do(t, http.MethodPost, "/products/customized", 0, map[string]interface{}{
			"referencedProduct": original.ID,
			"customizedByUser":  "collector",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	other := env.createProduct(t, 2, color)
	w, _ := env.do(t, http.MethodPost, "/products/customized", 0, map[string]interface{}{
		"referencedProduct": other.ID,
		"customizedByUser":  "collector",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := env.do(t, http.MethodGet, "/products/customized/collector?page=1&limit=2", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Len(t, data["products"], 2)
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["totalItems"], "only the caller's products are listed")
	assert.Equal(t, float64(2), pagination["totalPages"])

	w, body = env.do(t, http.MethodGet, "/products/customized/nobody", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, body["data"].(map[string]interface{})["products"])

	w, _ = env.do(t, http.MethodGet, fmt.Sprintf("/products/customized/%s", "collector"), 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
