package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler *handler.BookingHandler
	WebhookHandler *handler.WebhookHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Booking lifecycle routes. Driver apps retry over flaky
		// connections, so mutations honor Idempotency-Key.
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.Idempotency(deps.RedisClient))
		{
			bookings.GET("/:id", deps.BookingHandler.GetBooking)
			bookings.GET("/:id/events", deps.BookingHandler.ListEvents)
			bookings.POST("/:id/status", deps.BookingHandler.UpdateStatus)
			bookings.POST("/:id/cancel", deps.BookingHandler.Cancel)
		}

		// Payment provider webhooks carry Stripe's own retry semantics;
		// no idempotency layer here, the reconciliation engine is
		// idempotent by construction.
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/stripe", deps.WebhookHandler.HandleStripe)
		}
	}

	return router
}
