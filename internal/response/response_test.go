package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, http.StatusCreated, "Product created", map[string]string{"name": "Home Jersey"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Product created", body["message"])
	assert.Equal(t, float64(http.StatusCreated), body["statusCode"])
	assert.Equal(t, "Home Jersey", body["data"].(map[string]interface{})["name"])
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		total    int64
		expected int
	}{
		{"empty", 1, 10, 0, 0},
		{"exact", 1, 10, 20, 2},
		{"remainder", 2, 10, 21, 3},
		{"zero page size", 1, 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.size, tt.total)
			assert.Equal(t, tt.expected, p.TotalPages)
			assert.Equal(t, tt.total, p.TotalItems)
			assert.Equal(t, tt.page, p.CurrentPage)
		})
	}
}
