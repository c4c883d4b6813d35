package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/threadline/configurator-backend/config"
	"github.com/threadline/configurator-backend/internal/app/controller"
	"github.com/threadline/configurator-backend/internal/app/model"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/validation"
)

type Router struct {
	authController          *controller.AuthController
	toolController          *controller.ToolController
	productController       *controller.ProductController
	productToolController   *controller.ProductToolController
	customizationController *controller.CustomizationController
	previewController       *controller.PreviewController
	uploadController        *controller.UploadController
	authMiddleware          *middleware.AuthMiddleware
	config                  *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	toolController *controller.ToolController,
	productController *controller.ProductController,
	productToolController *controller.ProductToolController,
	customizationController *controller.CustomizationController,
	previewController *controller.PreviewController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:          authController,
		toolController:          toolController,
		productController:       productController,
		productToolController:   productToolController,
		customizationController: customizationController,
		previewController:       previewController,
		uploadController:        uploadController,
		authMiddleware:          authMiddleware,
		config:                  cfg,
	}
}

func (r *Router) Setup() (*gin.Engine, error) {
	gin.SetMode(r.config.Server.GinMode)
	apperrors.SetExposeStack(!r.config.Server.IsProduction())
	if err := validation.RegisterWithGin(); err != nil {
		return nil, err
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Configurator API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authenticate := r.authMiddleware.Authenticate()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", r.authController.Signup)
			auth.POST("/signin", r.authController.Signin)
			auth.POST("/logout", authenticate, r.authController.Logout)
			auth.GET("/me", authenticate, r.authController.GetMe)
		}

		tools := v1.Group("/tools")
		{
			tools.GET("", r.toolController.GetTools)
			tools.GET("/:id", r.toolController.GetTool)
			tools.POST("",
				authenticate,
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.toolController.CreateTool,
			)
		}

		products := v1.Group("/products")
		{
			// Storefront routes used by the configurator itself.
			products.GET("/:id/tools-config-fe", r.productToolController.PreviewToolsConfig)
			products.GET("/:id/preview/ws", r.previewController.Subscribe)
			products.POST("/customized", r.customizationController.UpsertCustomizedProduct)

			merchant := products.Group("")
			merchant.Use(authenticate)
			{
				merchant.GET("/customized/:customizedByUser", r.customizationController.ListCustomizedProducts)

				merchant.POST("", r.productController.CreateProduct)
				merchant.GET("", r.productController.ListProducts)
				merchant.GET("/:id", r.productController.GetProduct)
				merchant.PUT("/:id", r.productController.UpdateProduct)
				merchant.PATCH("/:id/status", r.productController.UpdateProductStatus)
				merchant.DELETE("/:id", r.productController.DeleteProduct)

				merchant.GET("/:id/tools-config", r.productToolController.ListToolsConfig)
				merchant.POST("/:id/add-config-option/:toolId", r.productToolController.AddConfigOption)
				merchant.PUT("/:id/tool-update/:toolId/:configOptionId", r.productToolController.UpdateConfigOption)
				merchant.DELETE("/:id/delete-config-option/:toolId/:configOptionId", r.productToolController.DeleteConfigOption)
				merchant.DELETE("/:id/delete-tool/:toolId", r.productToolController.DeleteTool)
			}
		}

		upload := v1.Group("/upload")
		upload.Use(authenticate)
		{
			upload.POST("/presigned-url", r.uploadController.GeneratePresignedURL)
		}
	}

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
