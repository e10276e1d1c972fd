// Package api exposes the planner over HTTP with gin, plus a websocket feed
// of live session updates, and a small client for talking to a running server.
package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/foxholetools/artyplanner/internal/planner"
	"github.com/gin-gonic/gin"
)

// Dependencies holds everything the HTTP layer needs.
type Dependencies struct {
	Service        *planner.Service
	Sessions       *planner.Registry
	Logger         *slog.Logger
	AllowedOrigins []string
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Logger))
	router.Use(cors(deps.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": deps.Sessions.Len()})
	})

	api := router.Group("/api")
	{
		catalogHandler := NewCatalogHandler(deps.Service.Catalog())
		api.GET("/maps", catalogHandler.Maps)
		api.GET("/weapons", catalogHandler.Weapons)

		planHandler := NewPlanHandler(deps.Service, deps.Logger)
		api.POST("/calculate", planHandler.Calculate)
		api.POST("/plans", planHandler.Create)
		api.GET("/plans/:id", planHandler.Get)
		api.GET("/plans/:id/geojson", planHandler.GeoJSON)
		api.GET("/stats", planHandler.Stats)
		api.POST("/placements", planHandler.TrackPlacement)

		sessionHandler := NewSessionHandler(deps.Sessions, deps.Logger, deps.AllowedOrigins)
		sessions := api.Group("/sessions")
		sessions.POST("", sessionHandler.Create)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.DELETE("/:id", sessionHandler.Delete)
		sessions.PUT("/:id/name", sessionHandler.Rename)
		sessions.POST("/:id/markers", sessionHandler.Place)
		sessions.POST("/:id/markers/remove", sessionHandler.Remove)
		sessions.PUT("/:id/markers/:kind/:index", sessionHandler.Move)
		sessions.PUT("/:id/guns/:index/weapon", sessionHandler.AssignWeapon)
		sessions.PUT("/:id/guns/:index/target", sessionHandler.SetPairing)
		sessions.PUT("/:id/wind", sessionHandler.SetWind)
		sessions.POST("/:id/undo", sessionHandler.Undo)
		sessions.POST("/:id/redo", sessionHandler.Redo)
		sessions.POST("/:id/save", sessionHandler.Save)
		sessions.GET("/:id/ws", sessionHandler.Stream)
	}

	return router
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.DebugContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// cors allows the listed origins. "*" allows any.
func cors(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originAllowed(allowed, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(allowed []string, origin string) bool {
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}
