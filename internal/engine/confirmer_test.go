package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triggertrade/internal/models"
)

// fakeChain scripts the RPC layer for confirmation polling.
type fakeChain struct {
	heightErr error
	confirmed bool

	confirmCalls int
	lastJob      ConfirmJob
}

func (c *fakeChain) GetBlockHeight(ctx context.Context) (uint64, error) {
	if c.heightErr != nil {
		return 0, c.heightErr
	}
	return 100, nil
}

func (c *fakeChain) ConfirmTransaction(ctx context.Context, signature, blockhash string, lastValidBlockHeight uint64) bool {
	c.confirmCalls++
	c.lastJob = ConfirmJob{Signature: signature, Blockhash: blockhash, LastValidBlockHeight: lastValidBlockHeight}
	return c.confirmed
}

func confirmJobBytes(t *testing.T, job ConfirmJob) []byte {
	t.Helper()
	msg, err := json.Marshal(job)
	require.NoError(t, err)
	return msg
}

func executedWithAttempt(id string) *fakeStore {
	strategy := activeStrategy(id, models.KindTakeProfit, 150.0)
	strategy.Status = models.StatusExecuted
	strategy.TxSignature = testSignature
	store := newFakeStore(strategy)
	store.AppendAttempt(&models.StrategyExecutionAttempt{
		StrategyID: id,
		Status:     models.StatusExecuted,
		Signature:  testSignature,
	})
	return store
}

func TestHandleConfirmJobConfirmed(t *testing.T) {
	store := executedWithAttempt("s1")
	chain := &fakeChain{confirmed: true}
	poller := NewConfirmPoller(store, chain)

	job := ConfirmJob{StrategyID: "s1", Signature: testSignature, Blockhash: "hash", LastValidBlockHeight: 250}
	require.NoError(t, poller.HandleConfirmJob(context.Background(), confirmJobBytes(t, job)))

	assert.Equal(t, 1, chain.confirmCalls)
	assert.Equal(t, testSignature, chain.lastJob.Signature)
	assert.Equal(t, "hash", chain.lastJob.Blockhash)
	assert.Equal(t, uint64(250), chain.lastJob.LastValidBlockHeight)

	attempts := store.attemptsFor("s1")
	require.Len(t, attempts, 1)
	assert.Equal(t, "confirmed", attempts[0].Confirmation)
}

func TestHandleConfirmJobUnconfirmed(t *testing.T) {
	store := executedWithAttempt("s1")
	poller := NewConfirmPoller(store, &fakeChain{confirmed: false})

	job := ConfirmJob{StrategyID: "s1", Signature: testSignature}
	require.NoError(t, poller.HandleConfirmJob(context.Background(), confirmJobBytes(t, job)))

	attempts := store.attemptsFor("s1")
	require.Len(t, attempts, 1)
	assert.Equal(t, "unconfirmed", attempts[0].Confirmation)
}

func TestHandleConfirmJobRPCUnreachable(t *testing.T) {
	store := executedWithAttempt("s1")
	chain := &fakeChain{heightErr: errInjected}
	poller := NewConfirmPoller(store, chain)

	job := ConfirmJob{StrategyID: "s1", Signature: testSignature}
	err := poller.HandleConfirmJob(context.Background(), confirmJobBytes(t, job))
	require.Error(t, err)
	assert.Equal(t, CodeUpstream, CodeOf(err))
	assert.Equal(t, CauseRPCUnreachable, CauseOf(err))

	// No outcome is recorded while the RPC layer is down; the queue
	// redelivers the job.
	assert.Equal(t, 0, chain.confirmCalls)
	attempts := store.attemptsFor("s1")
	require.Len(t, attempts, 1)
	assert.Empty(t, attempts[0].Confirmation)
}

func TestHandleConfirmJobMalformedDropped(t *testing.T) {
	store := executedWithAttempt("s1")
	chain := &fakeChain{confirmed: true}
	poller := NewConfirmPoller(store, chain)

	require.NoError(t, poller.HandleConfirmJob(context.Background(), []byte("{not json")))
	assert.Equal(t, 0, chain.confirmCalls)
}
