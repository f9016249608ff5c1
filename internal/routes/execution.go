package routes

import (
	"github.com/gin-gonic/gin"

	"triggertrade/internal/handlers"
)

// SetupExecutionRoutes sets up the execution lifecycle routes
func SetupExecutionRoutes(r *gin.Engine) {
	strategy := r.Group("/strategies")
	{
		strategy.POST("/:id/prepare", handlers.PrepareExecution)
		strategy.POST("/:id/confirm", handlers.ConfirmExecution)
		strategy.POST("/:id/fail", handlers.FailExecution)
	}

	triggers := r.Group("/triggers")
	{
		triggers.POST("/evaluate", handlers.EvaluateTriggers)
	}
}
