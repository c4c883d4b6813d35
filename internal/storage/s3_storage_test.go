package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/config"
)

func TestProductImageKey(t *testing.T) {
	key := ProductImageKey(42, "Front View.PNG")

	assert.True(t, strings.HasPrefix(key, "products/42/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, ProductImageKey(42, "Front View.PNG"))
}

func TestValidateContentType(t *testing.T) {
	assert.NoError(t, ValidateContentType("image/png", AllowedImageTypes))
	assert.NoError(t, ValidateContentType(" IMAGE/WEBP ", AllowedImageTypes))

	err := ValidateContentType("application/pdf", AllowedImageTypes)
	assert.True(t, errors.Is(err, ErrContentTypeNotAllowed))
}

func TestPresignProductImage(t *testing.T) {
	s3, err := NewS3Storage(context.Background(), &config.S3Config{
		Region:          "us-east-1",
		Bucket:          "configurator-test",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		BaseURL:         "https://cdn.example.com/",
	})
	require.NoError(t, err)

	upload, err := s3.PresignProductImage(context.Background(), 7, "logo.svg", "image/svg+xml")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, "products/7/"))
	assert.Equal(t, "https://cdn.example.com/"+upload.Key, upload.FileURL)

	parsed, err := url.Parse(upload.UploadURL)
	require.NoError(t, err)
	assert.Contains(t, parsed.Host, "configurator-test")
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))

	_, err = s3.PresignProductImage(context.Background(), 7, "notes.txt", "text/plain")
	assert.True(t, errors.Is(err, ErrContentTypeNotAllowed))
}
