// Package fx converts USD amounts to CLP using the public
// mindicador.cl indicator feed, with a cached rate and a static
// fallback so a feed outage never blocks a commit.
package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmkteam/embedlog"
)

const (
	apiURL     = "https://mindicador.cl/api/dolar"
	sourceName = "mindicador.cl"

	// SourceFallback marks rates produced without a live quote.
	SourceFallback = "fallback"
)

// DefaultRate is used when the feed is unreachable and no cached
// quote is fresh enough.
var DefaultRate = decimal.NewFromInt(950)

// Rate is one USD to CLP quote.
type Rate struct {
	Value     decimal.Decimal
	Source    string
	Timestamp time.Time
}

type mindicadorResponse struct {
	Serie []struct {
		Fecha time.Time `json:"fecha"`
		Valor float64   `json:"valor"`
	} `json:"serie"`
}

// Client fetches and caches the USD/CLP rate.
type Client struct {
	embedlog.Logger
	url string
	ttl time.Duration

	mu        sync.Mutex
	cached    Rate
	fetchedAt time.Time
}

func NewClient(logger embedlog.Logger, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{
		Logger: logger,
		url:    apiURL,
		ttl:    ttl,
	}
}

// USDToCLP returns the current rate. A quote fetched less than ttl ago
// is reused; a failed fetch falls back to the last stale quote and
// finally to DefaultRate. The returned rate is rounded to 4 decimal
// places and never errors.
func (c *Client) USDToCLP(ctx context.Context) Rate {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if !c.fetchedAt.IsZero() && now.Sub(c.fetchedAt) < c.ttl {
		return c.cached
	}

	rate, err := c.fetch(ctx)
	if err != nil {
		c.Error(ctx, "fx fetch failed", "err", err)
		if !c.fetchedAt.IsZero() {
			return c.cached
		}
		return Rate{Value: DefaultRate, Source: SourceFallback, Timestamp: now}
	}

	c.cached = rate
	c.fetchedAt = now
	return rate
}

func (c *Client) fetch(ctx context.Context) (Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Rate{}, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Rate{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Rate{}, fmt.Errorf("api error: %s", string(body))
	}

	var result mindicadorResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Rate{}, fmt.Errorf("failed to parse mindicador response: %w", err)
	}
	if len(result.Serie) == 0 {
		return Rate{}, errors.New("empty serie in mindicador response")
	}

	latest := result.Serie[0]
	if latest.Valor <= 0 {
		return Rate{}, fmt.Errorf("non-positive rate %v", latest.Valor)
	}

	return Rate{
		Value:     decimal.NewFromFloat(latest.Valor).Round(4),
		Source:    sourceName,
		Timestamp: latest.Fecha,
	}, nil
}
