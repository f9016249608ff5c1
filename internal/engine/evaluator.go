package engine

import (
	log "github.com/sirupsen/logrus"

	"triggertrade/internal/models"
)

// Evaluator runs the periodic trigger sweep. It holds no state between
// invocations; every run re-reads active strategies from the store, so a
// crashed sweep is simply re-evaluated on the next tick.
type Evaluator struct {
	store    Store
	prices   PriceProvider
	notifier Notifier
}

func NewEvaluator(store Store, prices PriceProvider, notifier Notifier) *Evaluator {
	return &Evaluator{store: store, prices: prices, notifier: notifier}
}

// EvaluationResult reports one strategy's outcome for this tick, for logging
// and metrics only.
type EvaluationResult struct {
	StrategyID    string  `json:"strategy_id"`
	DidTrigger    bool    `json:"did_trigger"`
	ObservedPrice float64 `json:"observed_price"`
}

// TriggeredEvent is published for every strategy that crossed its trigger.
type TriggeredEvent struct {
	StrategyID    string  `json:"strategy_id"`
	UserID        string  `json:"user_id"`
	TokenMint     string  `json:"token_mint"`
	Kind          string  `json:"kind"`
	TriggerPrice  float64 `json:"trigger_price"`
	ObservedPrice float64 `json:"observed_price"`
}

// conditionMet applies the strategy's trigger comparison. buy_dip fires when
// the price has fallen to or below the trigger, take_profit when it has risen
// to or above it.
func conditionMet(strategy *models.Strategy, price float64) bool {
	switch strategy.Kind {
	case models.KindBuyDip:
		return price <= strategy.TriggerPrice
	case models.KindTakeProfit:
		return price >= strategy.TriggerPrice
	default:
		return false
	}
}

// EvaluateTriggers loads every active strategy, fetches prices for the
// distinct mints in one batched call, and transitions each strategy whose
// condition holds to triggered, appending an execution attempt row.
//
// A whole-batch price failure degrades to an empty result for this tick. A
// persistence error on one strategy is logged and does not abort the rest.
func (e *Evaluator) EvaluateTriggers() ([]EvaluationResult, error) {
	strategies, err := e.store.ListByStatus(models.StatusActive)
	if err != nil {
		return nil, persistence(err, "failed to load active strategies")
	}
	if len(strategies) == 0 {
		return []EvaluationResult{}, nil
	}

	mintSet := make(map[string]struct{}, len(strategies))
	mints := make([]string, 0, len(strategies))
	for i := range strategies {
		if _, seen := mintSet[strategies[i].TokenMint]; !seen {
			mintSet[strategies[i].TokenMint] = struct{}{}
			mints = append(mints, strategies[i].TokenMint)
		}
	}

	prices, err := e.prices.GetPrices(mints)
	if err != nil {
		log.Warnf("Price batch fetch failed, skipping sweep: %v", err)
		return []EvaluationResult{}, nil
	}

	results := make([]EvaluationResult, 0, len(strategies))
	for i := range strategies {
		strategy := &strategies[i]
		price := prices[strategy.TokenMint]
		if price <= 0 {
			// Unresolvable price this round; the strategy stays active.
			results = append(results, EvaluationResult{StrategyID: strategy.ID, ObservedPrice: 0})
			continue
		}

		if !conditionMet(strategy, price) {
			results = append(results, EvaluationResult{StrategyID: strategy.ID, ObservedPrice: price})
			continue
		}

		triggered := e.trigger(strategy, price)
		results = append(results, EvaluationResult{
			StrategyID:    strategy.ID,
			DidTrigger:    triggered,
			ObservedPrice: price,
		})
	}
	return results, nil
}

// trigger applies the active->triggered transition for one strategy. The
// conditional status update makes the transition single-winner: if another
// sweep already moved the row, no attempt is appended here.
func (e *Evaluator) trigger(strategy *models.Strategy, price float64) bool {
	changed, err := e.store.UpdateStatus(strategy.ID, models.StatusActive, models.StatusTriggered, nil)
	if err != nil {
		log.Errorf("Failed to transition strategy %s to triggered: %v", strategy.ID, err)
		return false
	}
	if !changed {
		log.Warnf("Strategy %s no longer active, skipping trigger", strategy.ID)
		return false
	}

	attempt := &models.StrategyExecutionAttempt{
		StrategyID:   strategy.ID,
		TriggerPrice: strategy.TriggerPrice,
		ActualPrice:  price,
		Status:       models.StatusTriggered,
	}
	if err := e.store.AppendAttempt(attempt); err != nil {
		// The strategy is already triggered; the finalizer tolerates a
		// missing attempt row.
		log.Errorf("Failed to log execution attempt for strategy %s: %v", strategy.ID, err)
	}

	if e.notifier != nil {
		event := TriggeredEvent{
			StrategyID:    strategy.ID,
			UserID:        strategy.UserID,
			TokenMint:     strategy.TokenMint,
			Kind:          strategy.Kind,
			TriggerPrice:  strategy.TriggerPrice,
			ObservedPrice: price,
		}
		if err := e.notifier.Publish(QueueStrategyTriggered, event); err != nil {
			log.Warnf("Failed to publish trigger event for strategy %s: %v", strategy.ID, err)
		}
	}

	log.WithFields(log.Fields{
		"strategy_id":    strategy.ID,
		"kind":           strategy.Kind,
		"trigger_price":  strategy.TriggerPrice,
		"observed_price": price,
	}).Info("Strategy triggered")
	return true
}
