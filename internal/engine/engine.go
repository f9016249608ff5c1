package engine

import (
	"triggertrade/internal/models"
	"triggertrade/pkg/pricing"
)

// Store is the persistence surface the engine drives. UpdateStatus must be a
// conditional write keyed on the prior status so that only one writer wins a
// transition.
type Store interface {
	GetByID(id string) (*models.Strategy, error)
	ListByStatus(status string) ([]models.Strategy, error)
	UpdateStatus(id, fromStatus, toStatus string, extra map[string]interface{}) (bool, error)
	AppendAttempt(attempt *models.StrategyExecutionAttempt) error
	UpdateLatestAttempt(strategyID string, fields map[string]interface{}) error
}

// PriceProvider is the external quoting collaborator. GetPrices reports
// unresolvable mints as 0 instead of failing the batch.
type PriceProvider interface {
	GetPrices(mints []string) (map[string]float64, error)
	GetQuote(inputMint, outputMint, amount string, slippageBps int) (*pricing.QuoteResponse, error)
	BuildSwapTransaction(quote *pricing.QuoteResponse, userPublicKey string) (*pricing.SwapTransaction, error)
}

// Notifier receives best-effort event publications. Failures are logged by
// the caller and never fail the operation that produced the event.
type Notifier interface {
	Publish(queueName string, message interface{}) error
}

// Queue names for published events.
const (
	QueueStrategyTriggered = "strategy_triggered"
	QueueExecutionConfirm  = "execution_confirm"
)
