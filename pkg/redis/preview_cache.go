package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const previewKeyPrefix = "preview:tools:"

// PreviewCache keeps the rendered tool bindings of a product for the
// public preview endpoint.
type PreviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPreviewCache(client *redis.Client, ttl time.Duration) *PreviewCache {
	return &PreviewCache{client: client, ttl: ttl}
}

func previewKey(productID uint) string {
	return fmt.Sprintf("%s%d", previewKeyPrefix, productID)
}

func (c *PreviewCache) Get(ctx context.Context, productID uint) (json.RawMessage, bool, error) {
	val, err := c.client.Get(ctx, previewKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(val), true, nil
}

func (c *PreviewCache) Set(ctx context.Context, productID uint, payload json.RawMessage) error {
	return c.client.Set(ctx, previewKey(productID), []byte(payload), c.ttl).Err()
}

func (c *PreviewCache) Invalidate(ctx context.Context, productID uint) error {
	return c.client.Del(ctx, previewKey(productID)).Err()
}
