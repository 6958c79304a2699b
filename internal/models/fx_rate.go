package models

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/quietmaple/microfolio/internal/errors"
)

// FXRate represents a foreign exchange rate observed on a date. Rates are
// stored unquantized; only derived monetary amounts are rounded.
type FXRate struct {
	ID           string          `json:"id" gorm:"primaryKey;column:id;type:varchar(255)"`
	FromCurrency string          `json:"from_currency" gorm:"column:from_currency;type:varchar(10);not null;index:idx_fx_rates_pair_date,unique"`
	ToCurrency   string          `json:"to_currency" gorm:"column:to_currency;type:varchar(10);not null;index:idx_fx_rates_pair_date,unique"`
	Rate         decimal.Decimal `json:"rate" gorm:"column:rate;type:decimal(30,18);not null"`
	Date         time.Time       `json:"date" gorm:"column:date;not null;index:idx_fx_rates_pair_date,unique"`
	Source       string          `json:"source" gorm:"column:source;type:varchar(50);not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (FXRate) TableName() string {
	return "fx_rates"
}

// Common FX sources
const (
	FXSourceSeed   = "seed"
	FXSourceManual = "manual"
	FXSourceStatic = "static"
	FXSourceLive   = "exchangerate-api.com"
)

// Validate validates the FX rate data
func (fx *FXRate) Validate() error {
	if fx.FromCurrency == "" {
		return errors.New("from_currency is required")
	}
	if fx.ToCurrency == "" {
		return errors.New("to_currency is required")
	}
	if fx.FromCurrency == fx.ToCurrency {
		return errors.New("from_currency and to_currency must be different")
	}
	if fx.Rate.IsZero() || fx.Rate.IsNegative() {
		return errors.New("rate must be positive")
	}
	if fx.Date.IsZero() {
		return errors.New("date is required")
	}
	if fx.Source == "" {
		return errors.New("source is required")
	}
	return nil
}

// Pair returns the concatenated pair code, e.g. "USDCAD".
func (fx *FXRate) Pair() string {
	return fx.FromCurrency + fx.ToCurrency
}

// Inverse returns the reciprocal rate (1/rate), zero when the rate is zero.
func (fx *FXRate) Inverse() decimal.Decimal {
	if fx.Rate.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(fx.Rate)
}

// RateTable holds the dated rate history of one currency pair and answers
// as-of lookups. A lookup resolves to the most recent rate on or before
// the requested date, which gives forward-fill semantics without
// materializing a row per day.
type RateTable struct {
	from  string
	to    string
	dates []time.Time
	rates []decimal.Decimal
}

// NewRateTable builds a table from dated rates. Dates are normalized to
// UTC midnight, duplicates per day resolve to the last entry given, and
// rates for other pairs are ignored.
func NewRateTable(from, to string, history []FXRate) *RateTable {
	byDay := make(map[time.Time]decimal.Decimal)
	for _, r := range history {
		if r.FromCurrency != from || r.ToCurrency != to {
			continue
		}
		byDay[DateOnly(r.Date)] = r.Rate
	}

	t := &RateTable{from: from, to: to}
	for d := range byDay {
		t.dates = append(t.dates, d)
	}
	sort.Slice(t.dates, func(i, j int) bool { return t.dates[i].Before(t.dates[j]) })
	t.rates = make([]decimal.Decimal, len(t.dates))
	for i, d := range t.dates {
		t.rates[i] = byDay[d]
	}
	return t
}

// Pair returns the table's pair code, e.g. "USDCAD".
func (t *RateTable) Pair() string {
	return t.from + t.to
}

// Len returns the number of distinct dates in the table.
func (t *RateTable) Len() int {
	return len(t.dates)
}

// Earliest returns the first date covered by the table.
func (t *RateTable) Earliest() (time.Time, bool) {
	if len(t.dates) == 0 {
		return time.Time{}, false
	}
	return t.dates[0], true
}

// Latest returns the most recent rate in the table.
func (t *RateTable) Latest() (decimal.Decimal, time.Time, bool) {
	if len(t.dates) == 0 {
		return decimal.Zero, time.Time{}, false
	}
	n := len(t.dates) - 1
	return t.rates[n], t.dates[n], true
}

// RateOn resolves the rate in effect on date: the most recent rate on or
// before it. A date before the earliest known rate is an
// ErrInsufficientHistory; callers must treat that as a hard failure and
// never fall back to a live or default rate.
func (t *RateTable) RateOn(date time.Time) (decimal.Decimal, error) {
	d := DateOnly(date)
	if len(t.dates) == 0 {
		return decimal.Zero, &apperrors.ErrInsufficientHistory{Pair: t.Pair(), Requested: d}
	}
	if d.Before(t.dates[0]) {
		return decimal.Zero, &apperrors.ErrInsufficientHistory{Pair: t.Pair(), Requested: d, Earliest: t.dates[0]}
	}

	// Index of the first date after d; the answer sits just before it.
	idx := sort.Search(len(t.dates), func(i int) bool { return t.dates[i].After(d) })
	return t.rates[idx-1], nil
}
