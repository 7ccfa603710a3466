package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Import  *handler.ImportHandler
	Test    *handler.TestHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// recordMaxAge is how long clients may cache immutable test and attempt records.
const recordMaxAge = 24 * 60 * 60

// SetupRouter configures all Gin route groups with appropriate middlewares.
// The returned limiter must be stopped on shutdown.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) (*gin.Engine, *middleware.RateLimiter) {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", handlers.System.Metrics())

	// Document imports are the expensive path (30 requests per minute per client).
	importLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(importLimiter.Middleware())
	{
		auth.POST("/device", handlers.Auth.RegisterDevice)
	}

	// ─── 2. Device Group (JWT) ─────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireDeviceJWT(authService))
	{
		imports := api.Group("/imports")
		imports.Use(importLimiter.Middleware())
		{
			imports.POST("/parse", handlers.Import.ParseText)
			imports.POST("/upload", handlers.Import.UploadDocument)
		}

		api.GET("/tests", handlers.Test.ListTests)
		api.GET("/tests/:id", middleware.CacheControl(recordMaxAge), handlers.Test.GetTest)
		api.GET("/attempts/:id", middleware.CacheControl(recordMaxAge), handlers.Test.GetAttempt)
		api.GET("/attempts/:id/export", handlers.Test.ExportAttempt)

		sess := api.Group("/session")
		{
			sess.POST("", handlers.Session.CreateSession)
			sess.GET("", handlers.Session.GetSession)
			sess.POST("/goto", handlers.Session.Goto)
			sess.POST("/next", handlers.Session.Next)
			sess.POST("/prev", handlers.Session.Prev)
			sess.POST("/select", handlers.Session.SelectOption)
			sess.POST("/lifecycle", handlers.Session.SetLifecycle)
			sess.POST("/submit", handlers.Session.Submit)
		}
	}

	// ─── 3. WebSocket Group (Device WS Auth) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireDeviceWSAuth(authService))
	{
		ws.GET("/session/stream", handlers.WS.SessionStream)
	}

	return router, importLimiter
}
