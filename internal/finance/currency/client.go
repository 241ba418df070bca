// Package currency converts amounts into the base reporting currency using a
// public exchange-rate API.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finvault/FinVault/internal/logging"
)

const (
	defaultBaseURL = "https://api.frankfurter.dev/v1"
	baseCurrency   = "USD"
	rateTTL        = time.Hour
)

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Client fetches exchange rates and caches them for an hour. Rates move
// slowly enough that per-transaction freshness is not worth the latency.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger

	mu    sync.Mutex
	rates map[string]cachedRate
}

func NewClient(baseURL string, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.WithComponent("currency"),
		rates:      make(map[string]cachedRate),
	}
}

// ToUSD converts an amount from the given currency into USD, rounded to two
// decimal places. USD and empty currencies pass through unchanged.
func (c *Client) ToUSD(ctx context.Context, amount float64, fromCurrency string) (float64, error) {
	code := strings.ToUpper(strings.TrimSpace(fromCurrency))
	if code == "" || code == baseCurrency {
		return amount, nil
	}

	rate, err := c.rate(ctx, code)
	if err != nil {
		return 0, err
	}
	converted, _ := decimal.NewFromFloat(amount).Mul(rate).Round(2).Float64()
	return converted, nil
}

func (c *Client) rate(ctx context.Context, code string) (decimal.Decimal, error) {
	c.mu.Lock()
	cached, ok := c.rates[code]
	c.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < rateTTL {
		return cached.rate, nil
	}

	rate, err := c.fetchRate(ctx, code)
	if err != nil {
		// A stale rate beats a failed conversion.
		if ok {
			c.logger.Error("rate refresh failed, using stale rate", "currency", code, "error", err)
			return cached.rate, nil
		}
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.rates[code] = cachedRate{rate: rate, fetchedAt: time.Now()}
	c.mu.Unlock()
	return rate, nil
}

func (c *Client) fetchRate(ctx context.Context, code string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/latest?base=%s&symbols=%s", c.baseURL, url.QueryEscape(code), baseCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("querying exchange rate API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("exchange rate API returned %s for %s", resp.Status, code)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, err
	}
	rate, ok := payload.Rates[baseCurrency]
	if !ok || rate <= 0 {
		return decimal.Zero, fmt.Errorf("no %s rate for currency %s", baseCurrency, code)
	}
	return decimal.NewFromFloat(rate), nil
}
