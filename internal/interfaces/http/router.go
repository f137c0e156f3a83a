// Package http wires the gin engine: REST routes, the websocket endpoint
// and the middleware chain.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/infrastructure/realtime"
	"parceldesk/internal/infrastructure/services"
	"parceldesk/internal/interfaces/http/handlers"
	"parceldesk/internal/interfaces/http/middleware"
	"parceldesk/internal/shared/config"
	"parceldesk/internal/shared/logger"
)

// RouterDeps carries everything the route tree needs.
type RouterDeps struct {
	Store     *datastore.CachedStore
	Hub       *realtime.Hub
	Tokens    *auth.JWTService
	Hasher    *auth.BcryptHasher
	Numbers   *services.TicketNumberGenerator
	ServerCfg config.ServerConfig
	Log       logger.Interface
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(ginMode(deps.ServerCfg.Mode))

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(deps.Log.Named("http")))

	engine.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		healthy := deps.Store.HealthCheck(c.Request.Context()) == nil
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":  map[bool]string{true: "ok", false: "degraded"}[healthy],
			"backend": string(deps.Store.Kind()),
		})
	})

	engine.GET("/ws", func(c *gin.Context) {
		deps.Hub.HandleWS(c.Writer, c.Request)
	})

	authHandler := handlers.NewAuthHandler(deps.Store, deps.Hasher, deps.Tokens, deps.Log)
	ticketHandler := handlers.NewTicketHandler(deps.Store, deps.Numbers, deps.Hub, deps.Log)
	broadcastHandler := handlers.NewBroadcastHandler(deps.Store, deps.Hub, deps.Log)
	dashboardHandler := handlers.NewDashboardHandler(deps.Store, deps.Log)
	accountHandler := handlers.NewAccountHandler(deps.Store, deps.Hasher, deps.Log)
	adminHandler := handlers.NewAdminHandler(deps.Store, deps.Log)

	v1 := engine.Group("/api/v1")
	v1.POST("/auth/login", authHandler.Login)

	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(deps.Tokens))
	{
		authed.GET("/tickets", ticketHandler.List)
		authed.POST("/tickets", ticketHandler.Create)
		authed.GET("/tickets/:id", ticketHandler.Get)
		authed.PATCH("/tickets/:id", ticketHandler.Patch)
		authed.POST("/tickets/:id/close", ticketHandler.Close)
		authed.GET("/tickets/:id/comments", ticketHandler.ListComments)
		authed.POST("/tickets/:id/comments", ticketHandler.AddComment)

		authed.GET("/broadcasts", broadcastHandler.List)
		authed.GET("/broadcasts/:id", broadcastHandler.Get)

		authed.GET("/dashboard/stats", dashboardHandler.Stats)
		authed.GET("/accounts", accountHandler.List)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireAdmin())
	{
		admin.DELETE("/tickets/:id", ticketHandler.Delete)
		admin.PATCH("/broadcasts/:id", broadcastHandler.Patch)

		admin.POST("/accounts", accountHandler.Create)
		admin.PATCH("/accounts/:id", accountHandler.Patch)
		admin.DELETE("/accounts/:id", accountHandler.Delete)

		admin.GET("/admin/backend", adminHandler.Backend)
		admin.GET("/admin/cache", adminHandler.CacheStats)
		admin.DELETE("/admin/cache", adminHandler.ClearCache)
		admin.POST("/admin/query", adminHandler.RawQuery)
	}

	return engine
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}
