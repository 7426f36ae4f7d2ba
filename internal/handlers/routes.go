package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"profiles-api/internal/config"
	"profiles-api/internal/middleware"
	"profiles-api/pkg/lambda"
)

// maxBodySize bounds request bodies; picture uploads are the largest
const maxBodySize = 10 * 1024 * 1024

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	Handlers  *Handlers
	RateLimit config.RateLimitConfig
	// FilesPath serves locally stored pictures under /files when set
	FilesPath string
}

// Gin adapts a function handler to a gin route so that the local server
// runs the same code path as the deployed functions.
func Gin(fn lambda.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
			return
		}

		headers := make(map[string]string, len(c.Request.Header))
		for name, values := range c.Request.Header {
			if len(values) > 0 {
				headers[name] = values[0]
			}
		}
		query := make(map[string]string)
		for name, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				query[name] = values[0]
			}
		}
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}

		resp, err := fn(c.Request.Context(), &lambda.Request{
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			Headers:     headers,
			QueryParams: query,
			Body:        body,
			PathParams:  params,
			RequestID:   c.GetString(middleware.RequestIDKey),
		})
		if err != nil || resp == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
			return
		}

		contentType := "application/json"
		for name, value := range resp.Headers {
			if name == "Content-Type" {
				contentType = value
				continue
			}
			c.Header(name, value)
		}
		c.Data(resp.StatusCode, contentType, resp.Body)
	}
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *RouterConfig) {
	h := cfg.Handlers

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if cfg.FilesPath != "" {
		router.Static("/files", cfg.FilesPath)
	}

	router.GET("/health", Gin(h.Health))

	// Credential routes are rate limited per client
	credentials := router.Group("")
	credentials.Use(middleware.RateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		credentials.POST("/signin", Gin(h.SignIn))
		credentials.POST("/signup", Gin(h.SignUp))
		credentials.POST("/password/reset-link", Gin(h.SendResetLink))
		credentials.POST("/password/reset", Gin(h.ResetPassword))
	}

	router.POST("/password/change", Gin(h.ChangePassword))
	router.DELETE("/account", Gin(h.DeleteAccount))

	notifications := router.Group("/notifications")
	{
		notifications.GET("", Gin(h.Notifications))
		notifications.GET("/count", Gin(h.NotificationCount))
	}

	mystery := router.Group("/mystery")
	{
		mystery.GET("", Gin(h.Mystery))
		mystery.GET("/button", Gin(h.MysteryButton))
	}

	facebook := router.Group("/facebook")
	{
		facebook.POST("/connect", Gin(h.FacebookConnect))
		facebook.POST("/disconnect", Gin(h.FacebookDisconnect))
	}

	router.POST("/picture", Gin(h.UploadPicture))
	router.POST("/payment/checkout", Gin(h.Checkout))
	router.POST("/payment/confirm", Gin(h.MakePayment))
	router.GET("/purchases", Gin(h.Purchases))
	router.POST("/payment/cancel", Gin(h.CancelPayment))
	router.POST("/webhooks/billing", Gin(h.BillingWebhook))
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine, logger *logrus.Logger) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(maxBodySize))
	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.PerformanceMonitor(logger, time.Second))
}
