package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrencyForTicker(t *testing.T) {
	tests := []struct {
		name     string
		ticker   string
		expected string
	}{
		{name: "unsuffixed US listing", ticker: "ABEO", expected: CurrencyUSD},
		{name: "TSX listing", ticker: "SHOP.TO", expected: CurrencyCAD},
		{name: "TSX venture listing", ticker: "XYZ.V", expected: CurrencyCAD},
		{name: "CSE listing", ticker: "ABC.CN", expected: CurrencyCAD},
		{name: "NEO listing", ticker: "DEF.NE", expected: CurrencyCAD},
		{name: "lowercase suffix", ticker: "shop.to", expected: CurrencyCAD},
		{name: "surrounding whitespace", ticker: "  SHOP.TO ", expected: CurrencyCAD},
		{name: "index symbol", ticker: "^GSPC", expected: CurrencyUSD},
		{name: "index with dot segment", ticker: "^GSPTSE", expected: CurrencyUSD},
		{name: "empty ticker", ticker: "", expected: CurrencyUSD},
		{name: "suffix-like interior", ticker: "TOTO", expected: CurrencyUSD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CurrencyForTicker(tt.ticker))
		})
	}
}

func TestMarketForTicker(t *testing.T) {
	assert.Equal(t, MarketUS, MarketForTicker("AAPL"))
	assert.Equal(t, MarketCanada, MarketForTicker("SHOP.TO"))
	assert.Equal(t, MarketCanada, MarketForTicker("xyz.v"))
	assert.Equal(t, MarketUS, MarketForTicker("^GSPTSE"))
	assert.Equal(t, MarketUS, MarketForTicker(""))
}

func TestIsSupportedCurrency(t *testing.T) {
	assert.True(t, IsSupportedCurrency(CurrencyUSD))
	assert.True(t, IsSupportedCurrency(CurrencyCAD))
	assert.False(t, IsSupportedCurrency("EUR"))
	assert.False(t, IsSupportedCurrency(""))
	assert.False(t, IsSupportedCurrency("usd"))
}
