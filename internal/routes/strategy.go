package routes

import (
	"github.com/gin-gonic/gin"

	"triggertrade/internal/handlers"
)

// SetupStrategyRoutes sets up all routes related to strategy management
func SetupStrategyRoutes(r *gin.Engine) {
	strategy := r.Group("/strategies")
	{
		strategy.POST("", handlers.CreateStrategy)
		strategy.GET("", handlers.ListStrategies)
		strategy.GET("/:id", handlers.GetStrategy)
		strategy.PUT("/:id/status", handlers.UpdateStrategyStatus)
		strategy.POST("/:id/reactivate", handlers.ReactivateStrategy)
		strategy.GET("/:id/attempts", handlers.ListStrategyAttempts)
	}
}
