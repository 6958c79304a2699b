package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quietmaple/microfolio/internal/models"
)

// HTTPQuoteProvider fetches market prices from the Yahoo Finance chart
// API, which needs no key and understands the same exchange-suffixed
// tickers the engine uses (SHOP.TO, ^GSPTSE). Unknown tickers resolve
// to (nil, nil) rather than an error so reports fall back to stored
// prices.
type HTTPQuoteProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPQuoteProvider() *HTTPQuoteProvider {
	return &HTTPQuoteProvider{
		baseURL:    "https://query1.finance.yahoo.com/v8/finance/chart",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPQuoteProvider) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	// Index tickers carry a ^ prefix that must survive URL encoding.
	endpoint := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// The chart API rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string           `json:"symbol"`
					Currency           string           `json:"currency"`
					RegularMarketPrice *decimal.Decimal `json:"regularMarketPrice"`
					RegularMarketTime  int64            `json:"regularMarketTime"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, nil
	}

	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return nil, nil
	}

	quote := &models.Quote{
		Ticker: ticker,
		Price:  *meta.RegularMarketPrice,
		AsOf:   time.Now().UTC(),
	}
	if meta.RegularMarketTime > 0 {
		quote.AsOf = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	// Feeds report venue currencies the engine does not track (GBp,
	// EUR). Those stay empty and classification by ticker takes over.
	if cur := strings.ToUpper(meta.Currency); models.IsSupportedCurrency(cur) {
		quote.Currency = cur
	}

	return quote, nil
}

var _ QuoteProvider = (*HTTPQuoteProvider)(nil)
