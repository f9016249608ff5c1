package engine

import (
	"errors"
	"strings"
	"sync"
	"time"

	"triggertrade/internal/models"
	"triggertrade/pkg/pricing"
)

const (
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testPubkey = "11111111111111111111111111111111"
)

// testSignature is a syntactically valid 64-byte base58 signature.
var testSignature = strings.Repeat("1", 64)

// fakeStore is an in-memory Store with per-strategy injectable failures.
type fakeStore struct {
	mu         sync.Mutex
	strategies map[string]*models.Strategy
	attempts   []*models.StrategyExecutionAttempt
	updateErr  map[string]error
}

func newFakeStore(strategies ...*models.Strategy) *fakeStore {
	s := &fakeStore{
		strategies: make(map[string]*models.Strategy),
		updateErr:  make(map[string]error),
	}
	for _, strategy := range strategies {
		s.strategies[strategy.ID] = strategy
	}
	return s
}

func (s *fakeStore) GetByID(id string) (*models.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	strategy, ok := s.strategies[id]
	if !ok {
		return nil, nil
	}
	copied := *strategy
	return &copied, nil
}

func (s *fakeStore) ListByStatus(status string) ([]models.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Strategy
	for _, strategy := range s.strategies {
		if strategy.Status == status {
			out = append(out, *strategy)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateStatus(id, fromStatus, toStatus string, extra map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[id]; err != nil {
		return false, err
	}
	strategy, ok := s.strategies[id]
	if !ok || strategy.Status != fromStatus {
		return false, nil
	}
	strategy.Status = toStatus
	strategy.UpdatedAt = time.Now()
	for k, v := range extra {
		switch k {
		case "executed_at":
			strategy.ExecutedAt = v.(*time.Time)
		case "tx_signature":
			strategy.TxSignature = v.(string)
		}
	}
	return true, nil
}

func (s *fakeStore) AppendAttempt(attempt *models.StrategyExecutionAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt.CreatedAt = time.Now()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *fakeStore) UpdateLatestAttempt(strategyID string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.attempts) - 1; i >= 0; i-- {
		if s.attempts[i].StrategyID != strategyID {
			continue
		}
		attempt := s.attempts[i]
		for k, v := range fields {
			switch k {
			case "status":
				attempt.Status = v.(string)
			case "signature":
				attempt.Signature = v.(string)
			case "error_message":
				attempt.ErrorMessage = v.(string)
			case "confirmation":
				attempt.Confirmation = v.(string)
			}
		}
		return nil
	}
	return nil
}

func (s *fakeStore) attemptsFor(strategyID string) []*models.StrategyExecutionAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StrategyExecutionAttempt
	for _, attempt := range s.attempts {
		if attempt.StrategyID == strategyID {
			out = append(out, attempt)
		}
	}
	return out
}

// fakePrices is a scriptable PriceProvider that records its calls.
type fakePrices struct {
	prices   map[string]float64
	priceErr error

	quote    *pricing.QuoteResponse
	quoteErr error

	swap     *pricing.SwapTransaction
	buildErr error

	priceCalls int
	quoteCalls []quoteCall
	buildCalls int
}

type quoteCall struct {
	inputMint   string
	outputMint  string
	amount      string
	slippageBps int
}

func (p *fakePrices) GetPrices(mints []string) (map[string]float64, error) {
	p.priceCalls++
	if p.priceErr != nil {
		return nil, p.priceErr
	}
	out := make(map[string]float64, len(mints))
	for _, mint := range mints {
		out[mint] = p.prices[mint]
	}
	return out, nil
}

func (p *fakePrices) GetQuote(inputMint, outputMint, amount string, slippageBps int) (*pricing.QuoteResponse, error) {
	p.quoteCalls = append(p.quoteCalls, quoteCall{inputMint, outputMint, amount, slippageBps})
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	return p.quote, nil
}

func (p *fakePrices) BuildSwapTransaction(quote *pricing.QuoteResponse, userPublicKey string) (*pricing.SwapTransaction, error) {
	p.buildCalls++
	if p.buildErr != nil {
		return nil, p.buildErr
	}
	return p.swap, nil
}

// fakeNotifier records every published message.
type fakeNotifier struct {
	mu       sync.Mutex
	messages map[string][]interface{}
	err      error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{messages: make(map[string][]interface{})}
}

func (n *fakeNotifier) Publish(queueName string, message interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages[queueName] = append(n.messages[queueName], message)
	return nil
}

var errInjected = errors.New("injected failure")

func activeStrategy(id, kind string, triggerPrice float64) *models.Strategy {
	return &models.Strategy{
		ID:           id,
		UserID:       "user-1",
		TokenMint:    testMint,
		TokenSymbol:  "USDC",
		Kind:         kind,
		TriggerPrice: triggerPrice,
		Amount:       "1000000000",
		SlippageBps:  500,
		Status:       models.StatusActive,
	}
}
