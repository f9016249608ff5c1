package handlers

import (
	"github.com/gin-gonic/gin"

	"triggertrade/internal/engine"
	"triggertrade/internal/store"
)

var (
	strategies *store.StrategyStore
	evaluator  *engine.Evaluator
	preparer   *engine.Preparer
	finalizer  *engine.Finalizer
)

// Setup wires the handler package to its collaborators. Called once from the
// API entrypoint after the database (and optionally RabbitMQ) is up.
func Setup(s *store.StrategyStore, prices engine.PriceProvider, notifier engine.Notifier) {
	strategies = s
	evaluator = engine.NewEvaluator(s, prices, notifier)
	preparer = engine.NewPreparer(s, prices)
	finalizer = engine.NewFinalizer(s, notifier)
}

// CreateStrategyRequest is the request body for registering a strategy
type CreateStrategyRequest struct {
	UserID       string  `json:"user_id" binding:"required"`
	TokenMint    string  `json:"token_mint" binding:"required"`
	TokenSymbol  string  `json:"token_symbol" binding:"required"`
	Kind         string  `json:"kind" binding:"required,oneof=buy_dip take_profit"`
	TriggerPrice float64 `json:"trigger_price" binding:"required,gt=0"`
	Amount       string  `json:"amount" binding:"required"`
	SlippageBps  int     `json:"slippage_bps" binding:"required,gte=1,lte=5000"`
}

// UpdateStrategyStatusRequest pauses or resumes a strategy
type UpdateStrategyStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active paused"`
}

// PrepareExecutionRequest carries the signing wallet for preparation
type PrepareExecutionRequest struct {
	UserPublicKey string `json:"user_public_key" binding:"required"`
}

// ConfirmExecutionRequest carries the wallet-signed transaction signature.
// Blockhash and last_valid_block_height are optional; they scope the
// asynchronous confirmation poll.
type ConfirmExecutionRequest struct {
	Signature            string `json:"signature" binding:"required"`
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height"`
}

// FailExecutionRequest reports a client-side build/submit failure
type FailExecutionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// engineError writes an engine error with its machine-readable code.
func engineError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error(), "code": string(engine.CodeOf(err))}
	if cause := engine.CauseOf(err); cause != "" {
		body["cause"] = string(cause)
	}
	c.JSON(engine.HTTPStatus(err), body)
}
