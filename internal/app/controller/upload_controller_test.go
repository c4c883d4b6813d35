package controller

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/storage"
)

type fakePresigner struct {
	err        error
	merchantID uint
}

func (p *fakePresigner) PresignProductImage(_ context.Context, merchantID uint, filename, contentType string) (*storage.PresignedUpload, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := storage.ValidateContentType(contentType, storage.AllowedImageTypes); err != nil {
		return nil, err
	}
	p.merchantID = merchantID
	key := storage.ProductImageKey(merchantID, filename)
	return &storage.PresignedUpload{
		UploadURL: "https://uploads.test/" + key + "?signature=abc",
		FileURL:   "https://cdn.test/" + key,
		Key:       key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func setupUploadTest(presigner ImagePresigner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware(), fakeAuth())
	router.POST("/upload/presigned-url", NewUploadController(presigner).GeneratePresignedURL)
	return router
}

func uploadRequest(t *testing.T, router *gin.Engine, merchantID uint, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	env := &controllerEnv{router: router}
	w, decoded := env.do(t, http.MethodPost, "/upload/presigned-url", merchantID, body)
	return w.Code, decoded
}

func TestUploadController_GeneratePresignedURL(t *testing.T) {
	presigner := &fakePresigner{}
	router := setupUploadTest(presigner)

	code, body := uploadRequest(t, router, 9, map[string]string{
		"filename":    "Crest.PNG",
		"contentType": "image/png",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, uint(9), presigner.merchantID)

	data := body["data"].(map[string]interface{})
	assert.Regexp(t, `^products/9/[0-9a-f-]{36}\.png$`, data["key"])
	assert.Contains(t, data["uploadUrl"], "signature=abc")
	assert.Contains(t, data["fileUrl"], data["key"])
}

func TestUploadController_Errors(t *testing.T) {
	router := setupUploadTest(&fakePresigner{})

	code, body := uploadRequest(t, router, 9, map[string]string{
		"filename":    "notes.pdf",
		"contentType": "application/pdf",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.UploadInvalidFileType, body["error"])

	code, body = uploadRequest(t, router, 9, map[string]string{"filename": "crest.png"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "is required", body["fields"].(map[string]interface{})["contentType"])

	code, _ = uploadRequest(t, router, 0, map[string]string{
		"filename":    "crest.png",
		"contentType": "image/png",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	failing := setupUploadTest(&fakePresigner{err: errors.New("s3 unavailable")})
	code, body = uploadRequest(t, failing, 9, map[string]string{
		"filename":    "crest.png",
		"contentType": "image/png",
	})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, apperrors.UploadFailed, body["error"])
}
