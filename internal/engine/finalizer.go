package engine

import (
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"triggertrade/internal/models"
)

// Finalizer closes the execution loop: the user either confirms a submitted
// transaction (triggered->executed) or reports a failure (triggered->failed).
// Both entry points are idempotent because delivery of the client's
// confirmation request is not exactly-once.
type Finalizer struct {
	store    Store
	notifier Notifier
}

func NewFinalizer(store Store, notifier Notifier) *Finalizer {
	return &Finalizer{store: store, notifier: notifier}
}

// ConfirmJob is published for asynchronous on-chain confirmation polling.
// Blockhash and LastValidBlockHeight may be empty/0 if the client did not
// report them; the poller then relies on its overall timeout alone.
type ConfirmJob struct {
	StrategyID           string `json:"strategy_id"`
	Signature            string `json:"signature"`
	Blockhash            string `json:"blockhash,omitempty"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height,omitempty"`
}

// MarkExecuted records the user-supplied transaction signature and moves the
// strategy to executed. The signature is trusted as supplied; on-chain
// confirmation happens asynchronously via the published ConfirmJob.
func (f *Finalizer) MarkExecuted(strategyID, signature, blockhash string, lastValidBlockHeight uint64) error {
	if signature == "" {
		return validationf("transaction signature is required")
	}
	if _, err := solana.SignatureFromBase58(signature); err != nil {
		return validationf("invalid transaction signature %q", signature)
	}

	strategy, err := f.store.GetByID(strategyID)
	if err != nil {
		return persistence(err, "failed to load strategy %s", strategyID)
	}
	if strategy == nil {
		return notFoundf("strategy %s not found", strategyID)
	}

	if strategy.Status == models.StatusExecuted {
		if strategy.TxSignature == signature {
			// Repeat delivery of the same confirmation. Re-apply the attempt
			// stamp so a retry repairs an earlier partial write.
			return f.completeExecuted(strategyID, signature, blockhash, lastValidBlockHeight)
		}
		return invalidStatef("strategy %s already executed with a different signature", strategyID)
	}
	if strategy.Status != models.StatusTriggered {
		return invalidStatef("strategy %s is %s, confirmation requires triggered", strategyID, strategy.Status)
	}

	now := time.Now()
	changed, err := f.store.UpdateStatus(strategyID, models.StatusTriggered, models.StatusExecuted, map[string]interface{}{
		"executed_at":  &now,
		"tx_signature": signature,
	})
	if err != nil {
		return persistence(err, "failed to mark strategy %s executed", strategyID)
	}
	if !changed {
		// Lost a race with another confirmation; accept if it wrote the
		// same terminal state.
		current, err := f.store.GetByID(strategyID)
		if err != nil {
			return persistence(err, "failed to re-load strategy %s", strategyID)
		}
		if current != nil && current.Status == models.StatusExecuted && current.TxSignature == signature {
			return f.completeExecuted(strategyID, signature, blockhash, lastValidBlockHeight)
		}
		return invalidStatef("strategy %s changed state during confirmation", strategyID)
	}

	return f.completeExecuted(strategyID, signature, blockhash, lastValidBlockHeight)
}

// completeExecuted stamps the terminal fields on the latest attempt and
// queues the confirmation poll. The strategy row and attempt row must not
// diverge: this runs on the first transition and again on repeat
// confirmations, so a retry re-writes an attempt stamp that failed the first
// time. The re-write is idempotent.
func (f *Finalizer) completeExecuted(strategyID, signature, blockhash string, lastValidBlockHeight uint64) error {
	if err := f.store.UpdateLatestAttempt(strategyID, map[string]interface{}{
		"status":    models.StatusExecuted,
		"signature": signature,
	}); err != nil {
		return persistence(err, "failed to update attempt for strategy %s", strategyID)
	}

	if f.notifier != nil {
		job := ConfirmJob{
			StrategyID:           strategyID,
			Signature:            signature,
			Blockhash:            blockhash,
			LastValidBlockHeight: lastValidBlockHeight,
		}
		if err := f.notifier.Publish(QueueExecutionConfirm, job); err != nil {
			log.Warnf("Failed to publish confirm job for strategy %s: %v", strategyID, err)
		}
	}

	log.WithFields(log.Fields{
		"strategy_id": strategyID,
		"signature":   signature,
	}).Info("Strategy execution confirmed")
	return nil
}

// MarkFailed records a preparation or submission failure and moves the
// strategy to failed. Repeat calls for an already-failed strategy succeed.
func (f *Finalizer) MarkFailed(strategyID, errorMessage string) error {
	strategy, err := f.store.GetByID(strategyID)
	if err != nil {
		return persistence(err, "failed to load strategy %s", strategyID)
	}
	if strategy == nil {
		return notFoundf("strategy %s not found", strategyID)
	}

	if strategy.Status == models.StatusFailed {
		// Repeat failure report. Re-apply the attempt stamp so a retry
		// repairs an earlier partial write.
		return f.completeFailed(strategyID, errorMessage)
	}
	if strategy.Status != models.StatusTriggered {
		return invalidStatef("strategy %s is %s, failure requires triggered", strategyID, strategy.Status)
	}

	changed, err := f.store.UpdateStatus(strategyID, models.StatusTriggered, models.StatusFailed, nil)
	if err != nil {
		return persistence(err, "failed to mark strategy %s failed", strategyID)
	}
	if !changed {
		current, err := f.store.GetByID(strategyID)
		if err != nil {
			return persistence(err, "failed to re-load strategy %s", strategyID)
		}
		if current != nil && current.Status == models.StatusFailed {
			return f.completeFailed(strategyID, errorMessage)
		}
		return invalidStatef("strategy %s changed state during failure report", strategyID)
	}

	return f.completeFailed(strategyID, errorMessage)
}

// completeFailed stamps the failure on the latest attempt. Like
// completeExecuted it also runs on repeat reports so a retry re-writes a
// stamp that failed the first time.
func (f *Finalizer) completeFailed(strategyID, errorMessage string) error {
	if err := f.store.UpdateLatestAttempt(strategyID, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": errorMessage,
	}); err != nil {
		return persistence(err, "failed to update attempt for strategy %s", strategyID)
	}

	log.WithFields(log.Fields{
		"strategy_id": strategyID,
		"error":       errorMessage,
	}).Info("Strategy execution failed")
	return nil
}
