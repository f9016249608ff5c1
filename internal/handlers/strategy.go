package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"triggertrade/internal/models"
)

func amountIsBaseUnits(amount string) bool {
	if amount == "" || amount == "0" {
		return false
	}
	for _, r := range amount {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CreateStrategy registers a new conditional order. It starts active and
// counts against the per-user active limit.
func CreateStrategy(c *gin.Context) {
	var request CreateStrategyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
		return
	}

	if _, err := solana.PublicKeyFromBase58(request.TokenMint); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token_mint is not a valid public key", "code": "validation_error"})
		return
	}
	if !amountIsBaseUnits(request.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive base-unit integer string", "code": "validation_error"})
		return
	}

	activeCount, err := strategies.CountActiveByUser(request.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	if activeCount >= models.MaxActiveStrategiesPerUser {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "active strategy limit reached",
			"code":  "limit_exceeded",
			"limit": models.MaxActiveStrategiesPerUser,
		})
		return
	}

	strategy := models.Strategy{
		ID:           uuid.New().String(),
		UserID:       request.UserID,
		TokenMint:    request.TokenMint,
		TokenSymbol:  request.TokenSymbol,
		Kind:         request.Kind,
		TriggerPrice: request.TriggerPrice,
		Amount:       request.Amount,
		SlippageBps:  request.SlippageBps,
		Status:       models.StatusActive,
	}

	if err := strategies.Create(&strategy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	c.JSON(http.StatusCreated, strategy)
}

// ListStrategies returns strategies, filtered by user_id when provided
func ListStrategies(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required", "code": "validation_error"})
		return
	}

	result, err := strategies.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStrategy returns a specific strategy by ID
func GetStrategy(c *gin.Context) {
	strategy, err := strategies.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	if strategy == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found", "code": "not_found"})
		return
	}
	c.JSON(http.StatusOK, strategy)
}

// UpdateStrategyStatus pauses or resumes a strategy. Only active<->paused is
// reachable from here; every other transition belongs to the engine.
func UpdateStrategyStatus(c *gin.Context) {
	var request UpdateStrategyStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
		return
	}

	from := models.StatusPaused
	if request.Status == models.StatusPaused {
		from = models.StatusActive
	}

	changed, err := strategies.UpdateStatus(c.Param("id"), from, request.Status, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	if !changed {
		strategy, err := strategies.GetByID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
			return
		}
		if strategy == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found", "code": "not_found"})
			return
		}
		if strategy.Status == request.Status {
			// Repeat of an applied transition
			c.JSON(http.StatusOK, strategy)
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error": "strategy is " + strategy.Status + ", cannot set " + request.Status,
			"code":  "invalid_state",
		})
		return
	}

	strategy, _ := strategies.GetByID(c.Param("id"))
	c.JSON(http.StatusOK, strategy)
}

// ReactivateStrategy moves a failed strategy back to active so it can be
// evaluated again. Counts against the active limit like a fresh creation.
func ReactivateStrategy(c *gin.Context) {
	strategy, err := strategies.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	if strategy == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found", "code": "not_found"})
		return
	}
	if strategy.Status != models.StatusFailed {
		c.JSON(http.StatusConflict, gin.H{"error": "only failed strategies can be reactivated", "code": "invalid_state"})
		return
	}

	activeCount, err := strategies.CountActiveByUser(strategy.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	if activeCount >= models.MaxActiveStrategiesPerUser {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "active strategy limit reached",
			"code":  "limit_exceeded",
			"limit": models.MaxActiveStrategiesPerUser,
		})
		return
	}

	changed, err := strategies.UpdateStatus(strategy.ID, models.StatusFailed, models.StatusActive, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	if !changed {
		c.JSON(http.StatusConflict, gin.H{"error": "strategy changed state during reactivation", "code": "invalid_state"})
		return
	}

	strategy, _ = strategies.GetByID(strategy.ID)
	c.JSON(http.StatusOK, strategy)
}

// ListStrategyAttempts returns the execution attempt log of a strategy,
// newest first.
func ListStrategyAttempts(c *gin.Context) {
	strategy, err := strategies.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	if strategy == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found", "code": "not_found"})
		return
	}

	attempts, err := strategies.ListAttempts(strategy.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "persistence_error"})
		return
	}
	c.JSON(http.StatusOK, attempts)
}
