package app

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"ride-trip/internal/handler"
	"ride-trip/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler      *handler.TripHandler
	HealthHandler    *handler.HealthHandler
	EventStream      http.Handler
	IdempotencyStore middleware.ResponseStore
	NewRelicApp      *newrelic.Application
	Logger           *slog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", deps.HealthHandler.Health)
	if deps.EventStream != nil {
		router.GET("/ws", gin.WrapH(deps.EventStream))
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	if deps.IdempotencyStore != nil {
		v1.Use(middleware.IdempotencyMiddleware(deps.IdempotencyStore, deps.Logger))
	}
	handler.RegisterTripRoutes(v1, deps.TripHandler)

	return router
}
