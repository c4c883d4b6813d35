package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/app/service"
	"github.com/threadline/configurator-backend/internal/db"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/validation"
	"gorm.io/gorm"
)

const (
	testMerchantHeader = "X-Test-Merchant"
	testRoleHeader     = "X-Test-Role"
)

type controllerEnv struct {
	db            *gorm.DB
	router        *gin.Engine
	products      service.ProductService
	productTools  service.ProductToolService
	customization service.CustomizationService
	tools         service.ToolService
}

// fakeAuth trusts identity headers so tests can act as any merchant.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader(testMerchantHeader); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err == nil {
				c.Set(middleware.UserIDKey, uint(id))
				role := model.RoleMerchant
				if r := c.GetHeader(testRoleHeader); r != "" {
					role = model.UserRole(r)
				}
				c.Set(middleware.UserRoleKey, role)
			}
		}
		c.Next()
	}
}

func setupControllerTest(t *testing.T) *controllerEnv {
	t.Helper()
	require.NoError(t, validation.RegisterWithGin())

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	_, err = db.SeedCatalog(testDB, false)
	require.NoError(t, err)

	productRepo := repository.NewProductRepository(testDB)
	bindingRepo := repository.NewProductToolRepository(testDB)
	toolRepo := repository.NewToolRepository(testDB)
	catalogRepo := repository.NewCatalogRepository(testDB)
	resolver := service.NewConfigResolver(toolRepo, catalogRepo)
	reconciler := service.NewReconciler(toolRepo, bindingRepo, resolver)

	env := &controllerEnv{db: testDB}
	env.products = service.NewProductService(testDB, productRepo, reconciler, nil)
	env.productTools = service.NewProductToolService(productRepo, bindingRepo, nil)
	env.customization = service.NewCustomizationService(testDB, productRepo, bindingRepo, reconciler, nil, nil)
	env.tools = service.NewToolService(toolRepo, catalogRepo, resolver)

	productCtrl := NewProductController(env.products)
	productToolCtrl := NewProductToolController(env.productTools, env.customization)
	customizationCtrl := NewCustomizationController(env.customization)
	toolCtrl := NewToolController(env.tools)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware(), fakeAuth())

	router.GET("/tools", toolCtrl.GetTools)
	router.GET("/tools/:id", toolCtrl.GetTool)
	router.POST("/tools", toolCtrl.CreateTool)

	router.POST("/products/customized", customizationCtrl.UpsertCustomizedProduct)
	router.GET("/products/customized/:customizedByUser", customizationCtrl.ListCustomizedProducts)

	router.POST("/products", productCtrl.CreateProduct)
	router.GET("/products", productCtrl.ListProducts)
	router.GET("/products/:id", productCtrl.GetProduct)
	router.PUT("/products/:id", productCtrl.UpdateProduct)
	router.PATCH("/products/:id/status", productCtrl.UpdateProductStatus)
	router.DELETE("/products/:id", productCtrl.DeleteProduct)

	router.GET("/products/:id/tools-config", productToolCtrl.ListToolsConfig)
	router.GET("/products/:id/tools-config-fe", productToolCtrl.PreviewToolsConfig)
	router.POST("/products/:id/add-config-option/:toolId", productToolCtrl.AddConfigOption)
	router.PUT("/products/:id/tool-update/:toolId/:configOptionId", productToolCtrl.UpdateConfigOption)
	router.DELETE("/products/:id/delete-config-option/:toolId/:configOptionId", productToolCtrl.DeleteConfigOption)
	router.DELETE("/products/:id/delete-tool/:toolId", productToolCtrl.DeleteTool)

	env.router = router
	return env
}

// do sends a request as merchantID (0 means anonymous) and decodes the
// envelope.
func (e *controllerEnv) do(t *testing.T, method, path string, merchantID uint, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if merchantID != 0 {
		req.Header.Set(testMerchantHeader, strconv.FormatUint(uint64(merchantID), 10))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var envelope map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	}
	return w, envelope
}

func (e *controllerEnv) toolID(t *testing.T, value string) uint {
	t.Helper()
	var tool model.Tool
	require.NoError(t, e.db.Where("value = ?", value).First(&tool).Error)
	return tool.ID
}

func (e *controllerEnv) createProduct(t *testing.T, merchantID uint, tools ...uint) *model.Product {
	t.Helper()
	product, err := e.products.Create(context.Background(), merchantID, service.CreateProductInput{
		Name:      "Away Jersey",
		BasePrice: 64.5,
		Tools:     tools,
	})
	require.NoError(t, err)
	return product
}

func (e *controllerEnv) entryIDs(t *testing.T, merchantID, productID, toolID uint) []string {
	t.Helper()
	bindings, err := e.productTools.ListBindings(context.Background(), merchantID, productID)
	require.NoError(t, err)
	for _, b := range bindings {
		if b.ToolID == toolID {
			ids := make([]string, 0, len(b.Entries))
			for _, entry := range b.Entries {
				ids = append(ids, entry.ID)
			}
			return ids
		}
	}
	t.Fatalf("tool %d not bound to product %d", toolID, productID)
	return nil
}
