package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestHTTPQuoteProvider_GetQuote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"SHOP.TO","currency":"CAD","regularMarketPrice":95.12,"regularMarketTime":1748966400}}],"error":null}}`)
	}))
	defer ts.Close()

	provider := &HTTPQuoteProvider{
		baseURL:    ts.URL,
		httpClient: &http.Client{},
	}

	quote, err := provider.GetQuote(context.Background(), "SHOP.TO")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote == nil {
		t.Fatal("expected a quote, got nil")
	}

	if quote.Ticker != "SHOP.TO" {
		t.Errorf("expected ticker SHOP.TO, got %s", quote.Ticker)
	}
	if !quote.Price.Equal(decimal.NewFromFloat(95.12)) {
		t.Errorf("expected price 95.12, got %s", quote.Price.String())
	}
	if quote.Currency != "CAD" {
		t.Errorf("expected currency CAD, got %s", quote.Currency)
	}

	asOf := time.Unix(1748966400, 0).UTC()
	if !quote.AsOf.Equal(asOf) {
		t.Errorf("expected as-of %s, got %s", asOf, quote.AsOf)
	}
}

func TestHTTPQuoteProvider_IndexTickerSurvivesEscaping(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"^GSPTSE","currency":"CAD","regularMarketPrice":22150.5}}],"error":null}}`)
	}))
	defer ts.Close()

	provider := &HTTPQuoteProvider{
		baseURL:    ts.URL,
		httpClient: &http.Client{},
	}

	quote, err := provider.GetQuote(context.Background(), "^GSPTSE")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote == nil {
		t.Fatal("expected a quote, got nil")
	}

	if gotPath != "/^GSPTSE" {
		t.Errorf("expected request path /^GSPTSE, got %s", gotPath)
	}
	if !quote.Price.Equal(decimal.NewFromFloat(22150.5)) {
		t.Errorf("expected price 22150.5, got %s", quote.Price.String())
	}
}

func TestHTTPQuoteProvider_UnknownTickerIsNoData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	provider := &HTTPQuoteProvider{
		baseURL:    ts.URL,
		httpClient: &http.Client{},
	}

	quote, err := provider.GetQuote(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote != nil {
		t.Errorf("expected nil for an unknown ticker, got %+v", quote)
	}
}

func TestHTTPQuoteProvider_MissingPriceIsNoData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"HALT","currency":"USD"}}],"error":null}}`)
	}))
	defer ts.Close()

	provider := &HTTPQuoteProvider{
		baseURL:    ts.URL,
		httpClient: &http.Client{},
	}

	quote, err := provider.GetQuote(context.Background(), "HALT")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote != nil {
		t.Errorf("expected nil when the feed has no price, got %+v", quote)
	}
}

func TestHTTPQuoteProvider_UnsupportedCurrencyLeftToClassification(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"BARC.L","currency":"GBp","regularMarketPrice":215.4}}],"error":null}}`)
	}))
	defer ts.Close()

	provider := &HTTPQuoteProvider{
		baseURL:    ts.URL,
		httpClient: &http.Client{},
	}

	quote, err := provider.GetQuote(context.Background(), "BARC.L")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote == nil {
		t.Fatal("expected a quote, got nil")
	}

	if quote.Currency != "" {
		t.Errorf("expected venue currency to be dropped, got %s", quote.Currency)
	}
	if got := quote.CurrencyOrClassified(); got != "USD" {
		t.Errorf("expected classification fallback USD, got %s", got)
	}
}

func TestHTTPQuoteProvider_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	provider := &HTTPQuoteProvider{
		baseURL:    ts.URL,
		httpClient: &http.Client{},
	}

	if _, err := provider.GetQuote(context.Background(), "SHOP.TO"); err == nil {
		t.Error("expected an error on a 500 response")
	}
}
