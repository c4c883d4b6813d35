package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondWithError_Envelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	NotFound(c, ProductNotFound, "Product not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Product not found", body["message"])
	assert.Equal(t, float64(http.StatusNotFound), body["statusCode"])
	assert.Nil(t, body["data"])
	assert.Equal(t, ProductNotFound, body["error"])
}

func TestInternalError_StackExposure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	defer SetExposeStack(false)

	t.Run("hidden in production", func(t *testing.T) {
		SetExposeStack(false)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		InternalError(c, "")
		body := decode(t, w)
		_, ok := body["stack"]
		assert.False(t, ok)
	})

	t.Run("shown in development", func(t *testing.T) {
		SetExposeStack(true)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		InternalError(c, "")
		body := decode(t, w)
		assert.NotEmpty(t, body["stack"])
	})
}

func TestRespondWithBindingError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type request struct {
		Name string `json:"name" validate:"required,min=2"`
	}
	v := validator.New()
	err := v.Struct(request{Name: "a"})
	require.Error(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithBindingError(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	fields := body["fields"].(map[string]interface{})
	assert.Equal(t, "must be at least 2", fields["name"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	RespondWithBindingError(c, fmt.Errorf("unexpected EOF"))
	assert.Equal(t, ValidationInvalidFormat, decode(t, w)["error"])
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		context string
		code    string
	}{
		{"nil", nil, "product", InternalServerError},
		{"record not found", gorm.ErrRecordNotFound, "product", ResourceNotFound},
		{"translated duplicate", gorm.ErrDuplicatedKey, "create product", ResourceAlreadyExists},
		{"postgres duplicate email", fmt.Errorf(`duplicate key value violates unique constraint "idx_users_email"`), "signup", AuthEmailAlreadyExists},
		{"foreign key", gorm.ErrForeignKeyViolated, "create product", ResourceConflict},
		{"connection", fmt.Errorf("dial tcp: connection refused"), "list", InternalExternalAPI},
		{"other", fmt.Errorf("boom"), "update product", InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.code, info.Code)
			assert.NotEmpty(t, info.Message)
		})
	}

	assert.Equal(t, "Product not found", ParseError(gorm.ErrRecordNotFound, "product").Message)
}
