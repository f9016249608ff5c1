package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Failover and confirmation timings. Overridable per client for tests.
const (
	defaultRetryInterval   = 30 * time.Second
	defaultPollInterval    = 1 * time.Second
	defaultErrPollInterval = 2 * time.Second
	defaultConfirmTimeout  = 60 * time.Second
)

// rpcRequest represents a JSON-RPC request.
type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC response.
type rpcResponse struct {
	Jsonrpc string           `json:"jsonrpc"`
	Result  json.RawMessage  `json:"result"`
	Error   *json.RawMessage `json:"error"`
	ID      int              `json:"id"`
}

// SignatureStatus is the per-signature entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// Client issues JSON-RPC calls against a primary node with an optional
// backup. Failover state lives on the client instance: after a primary
// failure, calls go straight to the backup until the retry interval elapses.
// A successful primary call clears the failed flag.
type Client struct {
	primary string
	backup  string

	httpClient *http.Client

	mu            sync.Mutex
	primaryFailed bool
	lastFailure   time.Time

	retryInterval   time.Duration
	pollInterval    time.Duration
	errPollInterval time.Duration
	confirmTimeout  time.Duration
}

func New(primary, backup string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		primary: primary,
		backup:  backup,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		retryInterval:   defaultRetryInterval,
		pollInterval:    defaultPollInterval,
		errPollInterval: defaultErrPollInterval,
		confirmTimeout:  defaultConfirmTimeout,
	}
}

// endpoint picks the URL for the next attempt.
func (c *Client) endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.primaryFailed && c.backup != "" && time.Since(c.lastFailure) < c.retryInterval {
		return c.backup
	}
	return c.primary
}

func (c *Client) markPrimaryFailed() {
	c.mu.Lock()
	c.primaryFailed = true
	c.lastFailure = time.Now()
	c.mu.Unlock()
}

func (c *Client) markSuccess(url string) {
	if url != c.primary {
		return
	}
	c.mu.Lock()
	c.primaryFailed = false
	c.mu.Unlock()
}

// call performs one logical JSON-RPC call with at most one failover: a
// failed attempt against the primary is retried once on the backup; a backup
// failure propagates. The bounded loop keeps the failure path flat.
func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	url := c.endpoint()
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		err := c.callEndpoint(ctx, url, method, params, result)
		if err == nil {
			c.markSuccess(url)
			return nil
		}
		lastErr = err

		if url == c.primary && c.backup != "" {
			log.Warnf("RPC %s failed on primary, failing over to backup: %v", method, err)
			c.markPrimaryFailed()
			url = c.backup
			continue
		}
		break
	}
	return fmt.Errorf("rpc %s failed: %w", method, lastErr)
}

func (c *Client) callEndpoint(ctx context.Context, url, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("rpc error: %s", string(*parsed.Error))
	}
	if result != nil {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return nil
}

type latestBlockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// GetLatestBlockhash returns the current blockhash and the last block height
// at which a transaction built on it remains valid.
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, uint64, error) {
	var result latestBlockhashResult
	params := []interface{}{map[string]string{"commitment": "confirmed"}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", 0, err
	}
	return result.Value.Blockhash, result.Value.LastValidBlockHeight, nil
}

func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := c.call(ctx, "getBlockHeight", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

type signatureStatusesResult struct {
	Value []*SignatureStatus `json:"value"`
}

// GetSignatureStatuses returns status entries aligned with the input
// signatures; unknown signatures come back nil.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	var result signatureStatusesResult
	params := []interface{}{signatures, map[string]bool{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// ConfirmTransaction polls the signature's status until it reaches confirmed
// or finalized. It returns false as soon as the status reports a transaction
// error, or the chain's block height passes lastValidBlockHeight (meaning
// blockhash, the transaction's recent blockhash, has expired), or the overall
// timeout elapses. Transient RPC errors are retried internally at a slower
// cadence and never surfaced. A lastValidBlockHeight of 0 disables the
// expiry check; blockhash only annotates the expiry log line.
func (c *Client) ConfirmTransaction(ctx context.Context, signature, blockhash string, lastValidBlockHeight uint64) bool {
	deadline := time.Now().Add(c.confirmTimeout)

	for time.Now().Before(deadline) {
		statuses, err := c.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			log.Debugf("Signature status poll failed for %s: %v", signature, err)
			if !sleepCtx(ctx, c.errPollInterval) {
				return false
			}
			continue
		}

		if len(statuses) > 0 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				log.Warnf("Transaction %s failed on chain: %v", signature, status.Err)
				return false
			}
			switch status.ConfirmationStatus {
			case "confirmed", "finalized":
				return true
			}
		}

		if lastValidBlockHeight > 0 {
			height, err := c.GetBlockHeight(ctx)
			if err == nil && height > lastValidBlockHeight {
				log.Warnf("Blockhash %s expired for transaction %s (height %d > %d)",
					blockhash, signature, height, lastValidBlockHeight)
				return false
			}
		}

		if !sleepCtx(ctx, c.pollInterval) {
			return false
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
