package coingecko

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
	pkghttp "CoinSink/pkg/http"
	"CoinSink/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	marketsPath    = "/coins/markets"
	apiKeyHeader   = "x-cg-demo-api-key"
)

// Config holds fetch parameters for one tracked universe of coins.
type Config struct {
	BaseURL  string
	APIKey   string
	Currency string
	Coins    []string
	Timeout  time.Duration
}

// Client fetches market quotes from the CoinGecko /coins/markets endpoint.
// One call returns one page covering every tracked coin, which is what makes
// a fetch a coherent snapshot.
type Client struct {
	http *pkghttp.Client
	cfg  Config
	log  *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http: pkghttp.NewClient(pkghttp.WithTimeout(cfg.Timeout)),
		cfg:  cfg,
		log:  log,
	}
}

// FetchSnapshot pulls current market data for all configured coins. Records
// come back untyped: every value survives as delivered and coercion happens
// later in the pipeline. FetchedAt is stamped here, once per snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) (*models.RawSnapshot, error) {
	if len(c.cfg.Coins) == 0 {
		return nil, fmt.Errorf("no coins configured")
	}

	opts := &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.cfg.BaseURL + marketsPath,
		QueryParams: map[string][]string{
			"vs_currency": {c.cfg.Currency},
			"ids":         {strings.Join(c.cfg.Coins, ",")},
			"order":       {"market_cap_desc"},
			"per_page":    {"250"},
			"page":        {"1"},
			"sparkline":   {"false"},
		},
	}
	if c.cfg.APIKey != "" {
		opts.Headers = map[string]string{apiKeyHeader: c.cfg.APIKey}
	}

	var records []models.RawRecord
	if err := c.http.SendAndParse(ctx, opts, &records); err != nil {
		return nil, fmt.Errorf("coingecko markets: %w", err)
	}

	snap := &models.RawSnapshot{
		FetchedAt: time.Now().UTC(),
		Records:   records,
	}
	c.log.Debug("fetched market snapshot",
		logger.Int("records", len(records)),
		logger.String("currency", c.cfg.Currency))
	return snap, nil
}

var _ drepo.MarketFetcher = (*Client)(nil)
