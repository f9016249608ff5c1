package engine

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// Chain is the confirmation poller's view of the RPC layer.
type Chain interface {
	GetBlockHeight(ctx context.Context) (uint64, error)
	ConfirmTransaction(ctx context.Context, signature, blockhash string, lastValidBlockHeight uint64) bool
}

// ConfirmPoller consumes queued ConfirmJobs and stamps the on-chain outcome
// on the latest attempt row.
type ConfirmPoller struct {
	store Store
	chain Chain
}

func NewConfirmPoller(store Store, chain Chain) *ConfirmPoller {
	return &ConfirmPoller{store: store, chain: chain}
}

// HandleConfirmJob processes one queued confirmation job. Malformed payloads
// are dropped. An unreachable RPC layer errors with rpc_unreachable so the
// queue redelivers the job instead of recording a bogus outcome; once polling
// starts, a confirmation that never lands within the timeout is recorded as
// unconfirmed, not retried forever.
func (p *ConfirmPoller) HandleConfirmJob(ctx context.Context, msg []byte) error {
	var job ConfirmJob
	if err := json.Unmarshal(msg, &job); err != nil {
		log.Errorf("Failed to unmarshal confirm job: %v", err)
		return nil
	}

	if _, err := p.chain.GetBlockHeight(ctx); err != nil {
		return upstream(CauseRPCUnreachable, err, "rpc unreachable before confirming strategy %s", job.StrategyID)
	}

	confirmed := p.chain.ConfirmTransaction(ctx, job.Signature, job.Blockhash, job.LastValidBlockHeight)

	outcome := "unconfirmed"
	if confirmed {
		outcome = "confirmed"
	}
	if err := p.store.UpdateLatestAttempt(job.StrategyID, map[string]interface{}{
		"confirmation": outcome,
	}); err != nil {
		return persistence(err, "failed to record confirmation for strategy %s", job.StrategyID)
	}

	log.WithFields(log.Fields{
		"strategy_id": job.StrategyID,
		"signature":   job.Signature,
		"confirmed":   confirmed,
	}).Info("Confirmation poll finished")
	return nil
}
