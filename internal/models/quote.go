package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a market price observation for a ticker. Everywhere a quote
// may be absent the engine passes *Quote with nil meaning "no data";
// absence is never encoded as a zero price.
type Quote struct {
	Ticker   string          `json:"ticker"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	AsOf     time.Time       `json:"as_of"`
}

func (q *Quote) Validate() error {
	if q.Ticker == "" {
		return errors.New("ticker is required")
	}
	if q.Price.IsNegative() {
		return errors.New("price must be non-negative")
	}
	if q.Currency != "" && !IsSupportedCurrency(q.Currency) {
		return errors.New("currency must be USD or CAD")
	}
	return nil
}

// CurrencyOrClassified returns the quote currency, classifying from the
// ticker when the feed did not set one.
func (q *Quote) CurrencyOrClassified() string {
	if q.Currency != "" {
		return q.Currency
	}
	return CurrencyForTicker(q.Ticker)
}
