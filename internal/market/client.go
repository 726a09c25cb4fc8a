package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

var ErrNoData = errors.New("no price data for ticker")

// Bar is one minute bar from the upstream data feed.
type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
	VWAP      float64   `json:"vw"`
}

type barsResponse struct {
	Bars map[string][]Bar `json:"bars"`
}

type Config struct {
	BaseURL      string
	APIKey       string
	APISecret    string
	ChunkMinutes int
}

// Client fetches minute bars from an Alpaca-style market data API.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.ChunkMinutes <= 0 {
		cfg.ChunkMinutes = DefaultChunkMinutes
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

// Price returns the latest bar at or before ts, with ts clamped onto the
// trading calendar first. Looks back 24h so a request just after a weekend
// still finds Friday's close.
func (c *Client) Price(ctx context.Context, ticker string, ts time.Time) (Bar, error) {
	at := ClampToSession(ts, c.cfg.ChunkMinutes)

	q := url.Values{}
	q.Set("symbols", ticker)
	q.Set("start", at.Add(-24*time.Hour).Format(time.RFC3339))
	q.Set("end", at.Format(time.RFC3339))
	q.Set("timeframe", "1Min")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/stocks/bars?"+q.Encode(), nil)
	if err != nil {
		return Bar{}, err
	}
	req.Header.Set("APCA-API-KEY-ID", c.cfg.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.APISecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return Bar{}, fmt.Errorf("fetch bars for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Bar{}, fmt.Errorf("bar feed returned %d for %s", resp.StatusCode, ticker)
	}

	var body barsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Bar{}, fmt.Errorf("decode bars for %s: %w", ticker, err)
	}

	bars := body.Bars[ticker]
	if len(bars) == 0 {
		return Bar{}, ErrNoData
	}
	return bars[len(bars)-1], nil
}
