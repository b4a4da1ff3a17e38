package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wordmint-backend/internal/shared/middleware"
	"wordmint-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(c.JWTManager)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))
		v1.GET("/diagnostics", auth, c.CoinHandler.Diagnostics)
		v1.GET("/stats/daily", c.CoinHandler.DailyStats)

		setupAuthRoutes(v1, c, auth)
		setupUserRoutes(v1, c, auth)
		setupCoinRoutes(v1, c, auth)
	}

	return router
}

// ========================================
// AUTH ROUTES
// ========================================
func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container, auth gin.HandlerFunc) {
	v1.GET("/auth/me", auth, c.UserHandler.Me)
}

// ========================================
// USER ROUTES
// ========================================
func setupUserRoutes(v1 *gin.RouterGroup, c *container.Container, auth gin.HandlerFunc) {
	users := v1.Group("/users")
	{
		users.POST("", auth, c.UserHandler.Upsert)
		users.GET("/:fid", c.UserHandler.GetByFID)
		users.GET("/:fid/writings", c.CoinHandler.ListWritings)
		users.GET("/:fid/wrote-today", c.CoinHandler.WroteToday)
	}
}

// ========================================
// COIN ROUTES
// ========================================
func setupCoinRoutes(v1 *gin.RouterGroup, c *container.Container, auth gin.HandlerFunc) {
	coins := v1.Group("/coins")
	{
		coins.POST("", auth, c.CoinHandler.CreateCoin)
		coins.GET("/:address", c.CoinHandler.GetCoin)
		coins.POST("/:address/trades", auth, c.CoinHandler.Trade)
	}
}

// ========================================
// HEALTH
// ========================================
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		defer cancel()

		deps := c.HealthCheck(checkCtx)

		status := http.StatusOK
		if deps["database"] != "UP" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"status":       http.StatusText(status),
			"service":      c.Config.App.Name,
			"version":      c.Config.App.Version,
			"dependencies": deps,
			"timestamp":    time.Now().UTC(),
		}
		if stats, err := c.DB.Stats(); err == nil {
			body["db_pool"] = stats
		}

		ctx.JSON(status, body)
	}
}
