package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// EvaluateTriggers runs one trigger sweep on demand. The worker runs the
// same sweep on its cron schedule; this endpoint exists for operations and
// tests.
func EvaluateTriggers(c *gin.Context) {
	results, err := evaluator.EvaluateTriggers()
	if err != nil {
		engineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluated": len(results), "results": results})
}

// PrepareExecution builds an unsigned swap transaction for a triggered
// strategy. The strategy stays triggered; signing and submission happen
// client-side.
func PrepareExecution(c *gin.Context) {
	var request PrepareExecutionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
		return
	}

	prepared, err := preparer.PrepareExecution(c.Param("id"), request.UserPublicKey)
	if err != nil {
		engineError(c, err)
		return
	}
	c.JSON(http.StatusOK, prepared)
}

// ConfirmExecution records the wallet-signed transaction signature and
// finalizes the strategy as executed. Safe to call more than once with the
// same signature.
func ConfirmExecution(c *gin.Context) {
	var request ConfirmExecutionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
		return
	}

	if err := finalizer.MarkExecuted(c.Param("id"), request.Signature, request.Blockhash, request.LastValidBlockHeight); err != nil {
		engineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "executed"})
}

// FailExecution records a client-reported build or submission failure and
// finalizes the strategy as failed.
func FailExecution(c *gin.Context) {
	var request FailExecutionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
		return
	}

	if err := finalizer.MarkFailed(c.Param("id"), request.Reason); err != nil {
		engineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "failed"})
}
