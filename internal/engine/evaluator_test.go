package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triggertrade/internal/models"
)

func TestEvaluateTriggersNoActiveStrategies(t *testing.T) {
	store := newFakeStore()
	prices := &fakePrices{}
	evaluator := NewEvaluator(store, prices, nil)

	results, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, prices.priceCalls, "no price fetch when nothing is active")
}

func TestEvaluateTriggersBuyDipCondition(t *testing.T) {
	tests := []struct {
		name        string
		price       float64
		wantTrigger bool
	}{
		{"price below trigger", 0.90, true},
		{"price at trigger", 1.00, true},
		{"price above trigger", 1.10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := activeStrategy("s1", models.KindBuyDip, 1.00)
			store := newFakeStore(strategy)
			prices := &fakePrices{prices: map[string]float64{testMint: tt.price}}
			evaluator := NewEvaluator(store, prices, nil)

			results, err := evaluator.EvaluateTriggers()
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantTrigger, results[0].DidTrigger)
			assert.Equal(t, tt.price, results[0].ObservedPrice)

			current, _ := store.GetByID("s1")
			if tt.wantTrigger {
				assert.Equal(t, models.StatusTriggered, current.Status)
			} else {
				assert.Equal(t, models.StatusActive, current.Status)
			}
		})
	}
}

func TestEvaluateTriggersTakeProfitScenario(t *testing.T) {
	strategy := activeStrategy("s1", models.KindTakeProfit, 150.0)
	strategy.Amount = "1000000000"
	store := newFakeStore(strategy)
	prices := &fakePrices{prices: map[string]float64{testMint: 160.0}}
	evaluator := NewEvaluator(store, prices, nil)

	results, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].DidTrigger)
	assert.Equal(t, 160.0, results[0].ObservedPrice)

	current, _ := store.GetByID("s1")
	assert.Equal(t, models.StatusTriggered, current.Status)

	attempts := store.attemptsFor("s1")
	require.Len(t, attempts, 1)
	assert.Equal(t, 150.0, attempts[0].TriggerPrice)
	assert.Equal(t, 160.0, attempts[0].ActualPrice)
	assert.Equal(t, models.StatusTriggered, attempts[0].Status)
}

func TestEvaluateTriggersTakeProfitBelowTrigger(t *testing.T) {
	strategy := activeStrategy("s1", models.KindTakeProfit, 150.0)
	store := newFakeStore(strategy)
	prices := &fakePrices{prices: map[string]float64{testMint: 140.0}}
	evaluator := NewEvaluator(store, prices, nil)

	results, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].DidTrigger)

	current, _ := store.GetByID("s1")
	assert.Equal(t, models.StatusActive, current.Status)
}

func TestEvaluateTriggersSkipsUnresolvedPrice(t *testing.T) {
	strategy := activeStrategy("s1", models.KindBuyDip, 1.00)
	store := newFakeStore(strategy)
	prices := &fakePrices{prices: map[string]float64{}} // mint resolves to 0
	evaluator := NewEvaluator(store, prices, nil)

	results, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].DidTrigger)
	assert.Zero(t, results[0].ObservedPrice)

	current, _ := store.GetByID("s1")
	assert.Equal(t, models.StatusActive, current.Status)
	assert.Empty(t, store.attemptsFor("s1"))
}

func TestEvaluateTriggersIgnoresNonActive(t *testing.T) {
	paused := activeStrategy("paused", models.KindBuyDip, 100.0)
	paused.Status = models.StatusPaused
	triggered := activeStrategy("triggered", models.KindBuyDip, 100.0)
	triggered.Status = models.StatusTriggered
	executed := activeStrategy("executed", models.KindBuyDip, 100.0)
	executed.Status = models.StatusExecuted

	store := newFakeStore(paused, triggered, executed)
	prices := &fakePrices{prices: map[string]float64{testMint: 1.0}}
	evaluator := NewEvaluator(store, prices, nil)

	results, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	assert.Empty(t, results)

	for _, id := range []string{"paused", "triggered", "executed"} {
		before := map[string]string{"paused": models.StatusPaused, "triggered": models.StatusTriggered, "executed": models.StatusExecuted}[id]
		current, _ := store.GetByID(id)
		assert.Equal(t, before, current.Status)
	}
}

func TestEvaluateTriggersBatchPriceFailure(t *testing.T) {
	strategy := activeStrategy("s1", models.KindBuyDip, 1.00)
	store := newFakeStore(strategy)
	prices := &fakePrices{priceErr: errInjected}
	evaluator := NewEvaluator(store, prices, nil)

	results, err := evaluator.EvaluateTriggers()
	require.NoError(t, err, "a batch failure degrades to an empty tick")
	assert.Empty(t, results)

	current, _ := store.GetByID("s1")
	assert.Equal(t, models.StatusActive, current.Status)
}

func TestEvaluateTriggersIsolatesPersistenceErrors(t *testing.T) {
	bad := activeStrategy("bad", models.KindBuyDip, 1.00)
	good := activeStrategy("good", models.KindBuyDip, 1.00)
	store := newFakeStore(bad, good)
	store.updateErr["bad"] = errInjected
	prices := &fakePrices{prices: map[string]float64{testMint: 0.50}}
	evaluator := NewEvaluator(store, prices, nil)

	results, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]EvaluationResult{}
	for _, r := range results {
		byID[r.StrategyID] = r
	}
	assert.False(t, byID["bad"].DidTrigger)
	assert.True(t, byID["good"].DidTrigger)

	current, _ := store.GetByID("good")
	assert.Equal(t, models.StatusTriggered, current.Status)
}

func TestEvaluateTriggersExactlyOncePerStrategy(t *testing.T) {
	strategy := activeStrategy("s1", models.KindBuyDip, 1.00)
	store := newFakeStore(strategy)
	prices := &fakePrices{prices: map[string]float64{testMint: 0.50}}
	evaluator := NewEvaluator(store, prices, nil)

	first, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].DidTrigger)

	// The strategy is no longer active, so the next tick never sees it.
	second, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, store.attemptsFor("s1"), 1)
}

func TestEvaluateTriggersPublishesEvent(t *testing.T) {
	strategy := activeStrategy("s1", models.KindTakeProfit, 150.0)
	store := newFakeStore(strategy)
	prices := &fakePrices{prices: map[string]float64{testMint: 160.0}}
	notifier := newFakeNotifier()
	evaluator := NewEvaluator(store, prices, notifier)

	_, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)

	published := notifier.messages[QueueStrategyTriggered]
	require.Len(t, published, 1)
	event := published[0].(TriggeredEvent)
	assert.Equal(t, "s1", event.StrategyID)
	assert.Equal(t, 150.0, event.TriggerPrice)
	assert.Equal(t, 160.0, event.ObservedPrice)
}

func TestEvaluateTriggersPublishFailureDoesNotAbort(t *testing.T) {
	strategy := activeStrategy("s1", models.KindBuyDip, 1.00)
	store := newFakeStore(strategy)
	prices := &fakePrices{prices: map[string]float64{testMint: 0.50}}
	notifier := newFakeNotifier()
	notifier.err = errInjected
	evaluator := NewEvaluator(store, prices, notifier)

	results, err := evaluator.EvaluateTriggers()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].DidTrigger)

	current, _ := store.GetByID("s1")
	assert.Equal(t, models.StatusTriggered, current.Status)
}
