package service

import (
	"context"
	"encoding/json"

	"github.com/threadline/configurator-backend/pkg/logger"
)

// PreviewCache stores the rendered preview bindings of a product.
type PreviewCache interface {
	Get(ctx context.Context, productID uint) (json.RawMessage, bool, error)
	Set(ctx context.Context, productID uint, payload json.RawMessage) error
	Invalidate(ctx context.Context, productID uint) error
}

type noopPreviewCache struct{}

// NoopPreviewCache always misses. It is used when redis is disabled.
func NoopPreviewCache() PreviewCache {
	return noopPreviewCache{}
}

func (noopPreviewCache) Get(context.Context, uint) (json.RawMessage, bool, error) {
	return nil, false, nil
}

func (noopPreviewCache) Set(context.Context, uint, json.RawMessage) error {
	return nil
}

func (noopPreviewCache) Invalidate(context.Context, uint) error {
	return nil
}

type previewInvalidator struct {
	cache PreviewCache
}

// NewPreviewInvalidator drops the cached preview of every product whose
// bindings change.
func NewPreviewInvalidator(cache PreviewCache) BindingObserver {
	return &previewInvalidator{cache: cache}
}

func (p *previewInvalidator) OnBindingsChanged(ctx context.Context, event BindingEvent) {
	if err := p.cache.Invalidate(ctx, event.ProductID); err != nil {
		logger.Warn("Failed to invalidate preview cache", map[string]interface{}{
			"product_id": event.ProductID,
			"error":      err.Error(),
		})
	}
}
