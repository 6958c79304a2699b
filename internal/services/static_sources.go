package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quietmaple/microfolio/internal/models"
)

// StaticRateSource serves rates from a fixed in-memory map, keyed by
// currency pair. It is used in tests and in manual-pricing setups where
// no live feed exists. Unknown pairs return (nil, nil), the "no data"
// answer.
type StaticRateSource struct {
	rates map[string]decimal.Decimal
}

// NewStaticRateSource creates a rate source over a pair -> rate map, e.g.
// {"USD:CAD": 1.35}. Reciprocal pairs are not derived automatically.
func NewStaticRateSource(rates map[string]decimal.Decimal) *StaticRateSource {
	if rates == nil {
		rates = make(map[string]decimal.Decimal)
	}
	return &StaticRateSource{rates: rates}
}

func (s *StaticRateSource) FetchRate(ctx context.Context, from, to string, date time.Time) (*models.FXRate, error) {
	rate, ok := s.rates[pairKey(from, to)]
	if !ok {
		return nil, nil
	}
	return &models.FXRate{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
		Date:         models.DateOnly(date),
		Source:       models.FXSourceStatic,
	}, nil
}

// StaticQuoteProvider serves prices from a fixed ticker -> quote map.
// Missing tickers return (nil, nil) so absence stays distinct from a
// zero price.
type StaticQuoteProvider struct {
	quotes map[string]models.Quote
}

func NewStaticQuoteProvider(quotes map[string]models.Quote) *StaticQuoteProvider {
	if quotes == nil {
		quotes = make(map[string]models.Quote)
	}
	return &StaticQuoteProvider{quotes: quotes}
}

// SetQuote adds or replaces the quote for a ticker.
func (p *StaticQuoteProvider) SetQuote(q models.Quote) {
	p.quotes[q.Ticker] = q
}

func (p *StaticQuoteProvider) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	q, ok := p.quotes[ticker]
	if !ok {
		return nil, nil
	}
	out := q
	return &out, nil
}

var (
	_ RateSource    = (*StaticRateSource)(nil)
	_ QuoteProvider = (*StaticQuoteProvider)(nil)
)
