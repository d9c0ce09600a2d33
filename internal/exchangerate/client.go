// Package exchangerate fetches live exchange-rate tables from the
// public rate endpoint.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
)

// DefaultEndpoint is the public endpoint serving latest rates.
const DefaultEndpoint = "https://api.exchangerate-api.com"

var _ service.RateSource = (*Client)(nil)

// Client implements service.RateSource against an exchangerate-api
// compatible endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// latestResponse is the wire shape of GET /v4/latest/{base}.
type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// NewClient creates a rate client. An empty endpoint selects the
// public default.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchRates retrieves the latest table for base. Transient server
// failures are retried once before giving up.
func (c *Client) FetchRates(ctx context.Context, base string) (model.RateTable, error) {
	var table model.RateTable

	err := common.WithRetry(ctx, func() error {
		fetched, err := c.fetchOnce(ctx, base)
		if err != nil {
			return err
		}
		table = fetched
		return nil
	}, common.RetryOptions{MaxAttempts: 2, InitialDelay: 200 * time.Millisecond})

	if err != nil {
		return model.RateTable{}, err
	}
	return table, nil
}

func (c *Client) fetchOnce(ctx context.Context, base string) (model.RateTable, error) {
	url := fmt.Sprintf("%s/v4/latest/%s", c.endpoint, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.RateTable{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RateTable{}, &common.RetryableError{
			Err:       fmt.Errorf("rate fetch failed: %w", err),
			Retryable: true,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		fetchErr := fmt.Errorf("rate fetch returned %d: %s", resp.StatusCode, string(body))
		// Server-side failures are worth one more attempt; anything
		// else (bad base, bad request) is not.
		return model.RateTable{}, &common.RetryableError{
			Err:       fetchErr,
			Retryable: resp.StatusCode >= http.StatusInternalServerError,
		}
	}

	var parsed latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.RateTable{}, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if len(parsed.Rates) == 0 {
		return model.RateTable{}, fmt.Errorf("rate response for %s has no rates", base)
	}

	rates := make(map[string]float64, len(parsed.Rates))
	for code, factor := range parsed.Rates {
		// Non-positive factors would poison every conversion.
		if factor > 0 {
			rates[code] = factor
		}
	}
	if len(rates) == 0 {
		return model.RateTable{}, fmt.Errorf("rate response for %s has no usable rates", base)
	}

	resolvedBase := parsed.Base
	if resolvedBase == "" {
		resolvedBase = base
	}

	return model.RateTable{Base: resolvedBase, Rates: rates}, nil
}
