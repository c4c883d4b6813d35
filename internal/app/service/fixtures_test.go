package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/db"
	"gorm.io/gorm"
)

type testEnv struct {
	db            *gorm.DB
	productRepo   repository.ProductRepository
	bindingRepo   repository.ProductToolRepository
	toolRepo      repository.ToolRepository
	catalogRepo   repository.CatalogRepository
	resolver      *ConfigResolver
	reconciler    *Reconciler
	observer      *recordingObserver
	cache         *memoryPreviewCache
	products      ProductService
	productTools  ProductToolService
	customization CustomizationService
	tools         ToolService
}

// setupTestEnv wires every service against a seeded in-memory database.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	_, err = db.SeedCatalog(testDB, false)
	require.NoError(t, err)

	env := &testEnv{
		db:          testDB,
		productRepo: repository.NewProductRepository(testDB),
		bindingRepo: repository.NewProductToolRepository(testDB),
		toolRepo:    repository.NewToolRepository(testDB),
		catalogRepo: repository.NewCatalogRepository(testDB),
		observer:    &recordingObserver{},
		cache:       newMemoryPreviewCache(),
	}
	env.resolver = NewConfigResolver(env.toolRepo, env.catalogRepo)
	env.reconciler = NewReconciler(env.toolRepo, env.bindingRepo, env.resolver)

	observers := Observers{NewPreviewInvalidator(env.cache), env.observer}
	env.products = NewProductService(testDB, env.productRepo, env.reconciler, observers)
	env.productTools = NewProductToolService(env.productRepo, env.bindingRepo, observers)
	env.customization = NewCustomizationService(testDB, env.productRepo, env.bindingRepo, env.reconciler, env.cache, observers)
	env.tools = NewToolService(env.toolRepo, env.catalogRepo, env.resolver)
	return env
}

// toolID returns the id of a seeded tool by its value.
func (e *testEnv) toolID(t *testing.T, value string) uint {
	t.Helper()
	var tool model.Tool
	require.NoError(t, e.db.Where("value = ?", value).First(&tool).Error)
	return tool.ID
}

func (e *testEnv) createProduct(t *testing.T, merchantID uint, tools ...uint) *model.Product {
	t.Helper()
	product, err := e.products.Create(context.Background(), merchantID, CreateProductInput{
		Name:      "Home Jersey",
		BasePrice: 59.9,
		Tools:     tools,
	})
	require.NoError(t, err)
	return product
}

func (e *testEnv) binding(t *testing.T, productID, toolID uint) *model.ProductTool {
	t.Helper()
	binding, err := e.bindingRepo.FindByProductAndTool(context.Background(), productID, toolID)
	require.NoError(t, err)
	return binding
}

type recordingObserver struct {
	mu     sync.Mutex
	events []BindingEvent
}

func (o *recordingObserver) OnBindingsChanged(_ context.Context, event BindingEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) Events() []BindingEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]BindingEvent(nil), o.events...)
}

type memoryPreviewCache struct {
	mu      sync.Mutex
	entries map[uint]json.RawMessage
	hits    int
}

func newMemoryPreviewCache() *memoryPreviewCache {
	return &memoryPreviewCache{entries: map[uint]json.RawMessage{}}
}

func (c *memoryPreviewCache) Get(_ context.Context, productID uint) (json.RawMessage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[productID]
	if ok {
		c.hits++
	}
	return payload, ok, nil
}

func (c *memoryPreviewCache) Set(_ context.Context, productID uint, payload json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[productID] = payload
	return nil
}

func (c *memoryPreviewCache) Invalidate(_ context.Context, productID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, productID)
	return nil
}

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (b *memoryBlacklist) Revoke(_ context.Context, tokenID string, expiry time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.revoked == nil {
		b.revoked = map[string]time.Duration{}
	}
	b.revoked[tokenID] = expiry
	return nil
}

func (b *memoryBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[tokenID]
	return ok, nil
}
