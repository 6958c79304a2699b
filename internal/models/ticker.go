package models

import "strings"

// Supported currencies
const (
	CurrencyUSD = "USD"
	CurrencyCAD = "CAD"
)

// Market identifies the exchange group a ticker trades on, which drives
// trading-calendar lookups.
type Market string

const (
	MarketUS     Market = "US"
	MarketCanada Market = "Canada"
)

// Canadian exchange suffixes: Toronto Stock Exchange, TSX Venture,
// Canadian Securities Exchange, NEO Exchange.
var canadianSuffixes = []string{".TO", ".V", ".CN", ".NE"}

// CurrencyForTicker classifies a ticker symbol into its trading currency.
// Canadian exchange suffixes map to CAD; everything else, including index
// symbols like "^GSPC" and unsuffixed US listings, maps to USD.
func CurrencyForTicker(ticker string) string {
	if hasCanadianSuffix(ticker) {
		return CurrencyCAD
	}
	return CurrencyUSD
}

// MarketForTicker maps a ticker symbol to the market whose trading
// calendar governs it.
func MarketForTicker(ticker string) Market {
	if hasCanadianSuffix(ticker) {
		return MarketCanada
	}
	return MarketUS
}

func hasCanadianSuffix(ticker string) bool {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" || strings.HasPrefix(t, "^") {
		return false
	}
	for _, suffix := range canadianSuffixes {
		if strings.HasSuffix(t, suffix) {
			return true
		}
	}
	return false
}

// IsSupportedCurrency reports whether the engine can hold balances and
// positions in the given currency.
func IsSupportedCurrency(currency string) bool {
	return currency == CurrencyUSD || currency == CurrencyCAD
}
