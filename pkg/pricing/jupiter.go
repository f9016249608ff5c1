package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// WSOLMint is the wrapped-SOL mint, used as the quote asset for every strategy.
const WSOLMint = "So11111111111111111111111111111111111111112"

const defaultBaseURL = "https://lite-api.jup.ag"

// Client talks to the Jupiter lite API for prices, quotes and swap building.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// QuoteResponse carries the fields this service consumes from a Jupiter
// quote. RoutePlan is forwarded opaquely to the swap builder, never parsed.
type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            json.RawMessage `json:"routePlan"`
	ContextSlot          int64           `json:"contextSlot"`
}

// PriceImpactBps converts the quote's price impact (a decimal fraction such
// as "0.0042") to basis points. An unparsable value reads as zero impact.
func (q *QuoteResponse) PriceImpactBps() int {
	pct, err := strconv.ParseFloat(q.PriceImpactPct, 64)
	if err != nil {
		return 0
	}
	return int(pct * 10000)
}

// SwapTransaction is the unsigned payload built for client-side signing.
type SwapTransaction struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type priceEntry struct {
	ID    string `json:"id"`
	Price string `json:"price"`
}

type priceResponse struct {
	Data map[string]*priceEntry `json:"data"`
}

// GetPrices returns the current price per mint, in one batched call. Mints
// the API cannot resolve come back as 0 rather than failing the batch.
func (c *Client) GetPrices(mints []string) (map[string]float64, error) {
	if len(mints) == 0 {
		return map[string]float64{}, nil
	}

	params := url.Values{}
	params.Add("ids", strings.Join(mints, ","))

	resp, err := c.httpClient.Get(fmt.Sprintf("%s/price/v2?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price request failed with status: %d", resp.StatusCode)
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	prices := make(map[string]float64, len(mints))
	for _, mint := range mints {
		entry := parsed.Data[mint]
		if entry == nil {
			prices[mint] = 0
			continue
		}
		price, err := strconv.ParseFloat(entry.Price, 64)
		if err != nil {
			prices[mint] = 0
			continue
		}
		prices[mint] = price
	}
	return prices, nil
}

// GetQuote retrieves a swap quote for an exact input amount in base units.
func (c *Client) GetQuote(inputMint, outputMint, amount string, slippageBps int) (*QuoteResponse, error) {
	params := url.Values{}
	params.Add("inputMint", inputMint)
	params.Add("outputMint", outputMint)
	params.Add("amount", amount)
	params.Add("slippageBps", strconv.Itoa(slippageBps))
	params.Add("restrictIntermediateTokens", "true")

	resp, err := c.httpClient.Get(fmt.Sprintf("%s/swap/v1/quote?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request failed with status: %d", resp.StatusCode)
	}

	var quote QuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return &quote, nil
}

type swapRequest struct {
	QuoteResponse *QuoteResponse `json:"quoteResponse"`
	UserPublicKey string         `json:"userPublicKey"`
	WrapUnwrapSOL bool           `json:"wrapAndUnwrapSol"`
}

// BuildSwapTransaction asks Jupiter to assemble an unsigned transaction for
// the given quote. The result is signed client-side; this service never holds
// user keys.
func (c *Client) BuildSwapTransaction(quote *QuoteResponse, userPublicKey string) (*SwapTransaction, error) {
	body, err := json.Marshal(swapRequest{
		QuoteResponse: quote,
		UserPublicKey: userPublicKey,
		WrapUnwrapSOL: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+"/swap/v1/swap", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build swap transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap build failed with status: %d", resp.StatusCode)
	}

	var swap SwapTransaction
	if err := json.NewDecoder(resp.Body).Decode(&swap); err != nil {
		return nil, fmt.Errorf("failed to decode swap response: %w", err)
	}
	return &swap, nil
}
