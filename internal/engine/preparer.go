package engine

import (
	"github.com/gagliardetto/solana-go"

	"triggertrade/internal/models"
	"triggertrade/pkg/pricing"
)

// Preparer turns a triggered strategy into a ready-to-sign swap payload. It
// never mutates strategy status: the strategy stays triggered until the user
// confirms (or fails) the execution through the Finalizer.
type Preparer struct {
	store  Store
	prices PriceProvider
}

func NewPreparer(store Store, prices PriceProvider) *Preparer {
	return &Preparer{store: store, prices: prices}
}

// PreparedExecution is everything the client needs to sign and submit.
type PreparedExecution struct {
	Strategy            *models.Strategy         `json:"strategy"`
	Quote               *pricing.QuoteResponse   `json:"quote"`
	UnsignedTransaction *pricing.SwapTransaction `json:"unsigned_transaction"`
}

// swapDirection resolves which way the swap goes: buy_dip spends the quote
// asset to acquire the target token, take_profit sells the target token back.
func swapDirection(strategy *models.Strategy) (inputMint, outputMint string) {
	if strategy.Kind == models.KindBuyDip {
		return pricing.WSOLMint, strategy.TokenMint
	}
	return strategy.TokenMint, pricing.WSOLMint
}

// PrepareExecution obtains a quote and an unsigned swap transaction for a
// triggered strategy. The quoted price impact is checked against the
// strategy's slippage tolerance here, before anything is returned, rather
// than deferred to chain execution.
func (p *Preparer) PrepareExecution(strategyID, userPublicKey string) (*PreparedExecution, error) {
	if _, err := solana.PublicKeyFromBase58(userPublicKey); err != nil {
		return nil, validationf("invalid user public key %q", userPublicKey)
	}

	strategy, err := p.store.GetByID(strategyID)
	if err != nil {
		return nil, persistence(err, "failed to load strategy %s", strategyID)
	}
	if strategy == nil {
		return nil, notFoundf("strategy %s not found", strategyID)
	}
	if strategy.Status != models.StatusTriggered {
		return nil, invalidStatef("strategy %s is %s, execution requires triggered", strategyID, strategy.Status)
	}

	inputMint, outputMint := swapDirection(strategy)

	quote, err := p.prices.GetQuote(inputMint, outputMint, strategy.Amount, strategy.SlippageBps)
	if err != nil {
		return nil, upstream(CauseQuoteFailed, err, "failed to quote swap for strategy %s", strategyID)
	}

	if impact := quote.PriceImpactBps(); impact > strategy.SlippageBps {
		return nil, upstream(CauseSlippageExceeded, nil,
			"quoted price impact %d bps exceeds tolerance %d bps", impact, strategy.SlippageBps)
	}

	tx, err := p.prices.BuildSwapTransaction(quote, userPublicKey)
	if err != nil {
		return nil, upstream(CauseBuildFailed, err, "failed to build swap transaction for strategy %s", strategyID)
	}

	return &PreparedExecution{
		Strategy:            strategy,
		Quote:               quote,
		UnsignedTransaction: tx,
	}, nil
}
