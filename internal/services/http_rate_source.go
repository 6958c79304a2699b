package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quietmaple/microfolio/internal/models"
)

// HTTPRateSource fetches exchange rates from exchangerate-api.com. The
// keyless v4 endpoint serves the free tier; with an API key the v6
// endpoint is used instead. The feed publishes current rates only, so
// the requested date is recorded on the returned observation but not
// sent upstream.
type HTTPRateSource struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRateSource creates a live rate source. Pass an empty key to use
// the keyless endpoint.
func NewHTTPRateSource(apiKey string) *HTTPRateSource {
	baseURL := "https://api.exchangerate-api.com/v4/latest"
	if apiKey != "" {
		baseURL = "https://v6.exchangerate-api.com/v6/" + apiKey + "/latest"
	}

	return &HTTPRateSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *HTTPRateSource) FetchRate(ctx context.Context, from, to string, date time.Time) (*models.FXRate, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	url := fmt.Sprintf("%s/%s", s.baseURL, from)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	// Decode generically to support both v6 (conversion_rates) and v4 (rates)
	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Optional result field check; treat missing as success
	if r, ok := raw["result"].(string); ok && r != "success" {
		return nil, fmt.Errorf("rate API error: %s", r)
	}

	var ratesMap map[string]interface{}
	if cr, ok := raw["conversion_rates"].(map[string]interface{}); ok {
		ratesMap = cr
	} else if rr, ok := raw["rates"].(map[string]interface{}); ok {
		ratesMap = rr
	} else {
		return nil, fmt.Errorf("rate API response missing rates")
	}

	v, exists := ratesMap[to]
	if !exists {
		return nil, nil
	}

	var rate decimal.Decimal
	switch t := v.(type) {
	case float64:
		rate = decimal.NewFromFloat(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("rate API returned non-numeric rate for %s", to)
		}
		rate = decimal.NewFromFloat(f)
	default:
		return nil, fmt.Errorf("rate API returned non-numeric rate for %s", to)
	}

	return &models.FXRate{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
		Date:         models.DateOnly(date),
		Source:       models.FXSourceLive,
	}, nil
}

var _ RateSource = (*HTTPRateSource)(nil)
