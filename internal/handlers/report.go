package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/quietmaple/microfolio/internal/errors"
	"github.com/quietmaple/microfolio/internal/models"
	"github.com/quietmaple/microfolio/internal/repositories"
	"github.com/quietmaple/microfolio/internal/services"
)

// ReportHandler serves the read-only report API the dashboard consumes.
// Every endpoint returns JSON with the quantized string amounts the
// engine produces.
type ReportHandler struct {
	snapshots     repositories.SnapshotRepository
	cash          repositories.CashRepository
	contributions repositories.ContributionRepository
	currency      services.CurrencyService
	pnl           services.PnLService
	portfolio     services.PortfolioService
	quotes        services.QuoteProvider
	logger        *zap.Logger
}

// NewReportHandler creates a report handler. quotes may be nil, in which
// case reports price positions from stored snapshot data.
func NewReportHandler(
	snapshots repositories.SnapshotRepository,
	cash repositories.CashRepository,
	contributions repositories.ContributionRepository,
	currency services.CurrencyService,
	pnl services.PnLService,
	portfolio services.PortfolioService,
	quotes services.QuoteProvider,
	logger *zap.Logger,
) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		snapshots:     snapshots,
		cash:          cash,
		contributions: contributions,
		currency:      currency,
		pnl:           pnl,
		portfolio:     portfolio,
		quotes:        quotes,
		logger:        logger,
	}
}

// HandlePortfolio handles GET /api/v1/funds/{fundID}/portfolio
func (h *ReportHandler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fundID := mux.Vars(r)["fundID"]
	if fundID == "" {
		http.Error(w, "Fund ID is required", http.StatusBadRequest)
		return
	}

	snapshot, ok := h.loadSnapshot(w, r, fundID)
	if !ok {
		return
	}

	metrics, err := h.portfolioMetrics(r.Context(), snapshot)
	if err != nil {
		http.Error(w, "Failed to build portfolio report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(metrics)
}

// HandlePerformance handles GET /api/v1/funds/{fundID}/performance
func (h *ReportHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fundID := mux.Vars(r)["fundID"]
	if fundID == "" {
		http.Error(w, "Fund ID is required", http.StatusBadRequest)
		return
	}

	snapshot, ok := h.loadSnapshot(w, r, fundID)
	if !ok {
		return
	}

	cash, err := h.cash.Get(r.Context(), fundID)
	if err != nil {
		http.Error(w, "Failed to get cash balances: "+err.Error(), http.StatusInternalServerError)
		return
	}

	contributions, err := h.contributions.ListByFund(r.Context(), fundID)
	if err != nil {
		http.Error(w, "Failed to list contributions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	performance, err := h.pnl.Performance(r.Context(), snapshot.Date, snapshot.Positions, cash, contributions)
	if err != nil {
		http.Error(w, "Failed to compute performance: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(performance)
}

// HandleDailyPnL handles GET /api/v1/funds/{fundID}/pnl/daily
//
// Without a ticker parameter it reconciles every position in the
// selected snapshot; results that cannot be computed carry the reason
// instead of failing the request.
func (h *ReportHandler) HandleDailyPnL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fundID := mux.Vars(r)["fundID"]
	if fundID == "" {
		http.Error(w, "Fund ID is required", http.StatusBadRequest)
		return
	}

	history, err := h.snapshots.ListByFund(r.Context(), fundID)
	if err != nil {
		http.Error(w, "Failed to list snapshots: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(history) == 0 {
		http.Error(w, "No snapshots recorded for fund "+fundID, http.StatusNotFound)
		return
	}

	target := &history[len(history)-1]
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		requested, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			http.Error(w, "Invalid date parameter, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day := models.DateOnly(requested)
		target = nil
		for i := range history {
			if history[i].Date.Equal(day) {
				target = &history[i]
				break
			}
		}
		if target == nil {
			http.Error(w, "Snapshot not found for "+dateStr, http.StatusNotFound)
			return
		}
	}

	var results []models.DailyPnLResult
	if ticker := r.URL.Query().Get("ticker"); ticker != "" {
		results = append(results, h.pnl.DailyPnLFromSnapshots(r.Context(), ticker, target.Date, history))
	} else {
		results = make([]models.DailyPnLResult, 0, len(target.Positions))
		for i := range target.Positions {
			results = append(results, h.pnl.DailyPnLFromSnapshots(r.Context(), target.Positions[i].Ticker, target.Date, history))
		}
	}

	json.NewEncoder(w).Encode(results)
}

// HandleStakes handles GET /api/v1/funds/{fundID}/stakes
func (h *ReportHandler) HandleStakes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fundID := mux.Vars(r)["fundID"]
	if fundID == "" {
		http.Error(w, "Fund ID is required", http.StatusBadRequest)
		return
	}

	snapshot, ok := h.loadSnapshot(w, r, fundID)
	if !ok {
		return
	}

	metrics, err := h.portfolioMetrics(r.Context(), snapshot)
	if err != nil {
		http.Error(w, "Failed to build portfolio report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	fundValue := metrics.TotalValue.Add(metrics.CashValue)

	contributions, err := h.contributions.ListByFund(r.Context(), fundID)
	if err != nil {
		http.Error(w, "Failed to list contributions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stakes, err := h.portfolio.OwnershipStakes(contributions, fundValue)
	if err != nil {
		if apperrors.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to compute stakes: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(stakes)
}

// HandleConvert handles GET /api/v1/convert
func (h *ReportHandler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		http.Error(w, "Invalid amount parameter", http.StatusBadRequest)
		return
	}

	from := strings.ToUpper(q.Get("from"))
	to := strings.ToUpper(q.Get("to"))
	if from == "" || to == "" {
		http.Error(w, "Parameters from and to are required", http.StatusBadRequest)
		return
	}

	fee := decimal.Zero
	if v := q.Get("fee"); v != "" {
		fee, err = decimal.NewFromString(v)
		if err != nil {
			http.Error(w, "Invalid fee parameter", http.StatusBadRequest)
			return
		}
	}

	date := time.Now()
	if v := q.Get("date"); v != "" {
		date, err = time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "Invalid date parameter, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	result, err := h.currency.Convert(r.Context(), amount, from, to, fee, date)
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case apperrors.IsNoRate(err):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to convert: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(result)
}

// HandlePositionSize handles GET /api/v1/position-size
func (h *ReportHandler) HandlePositionSize(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	capital, err := decimal.NewFromString(q.Get("capital"))
	if err != nil {
		http.Error(w, "Invalid capital parameter", http.StatusBadRequest)
		return
	}
	risk, err := decimal.NewFromString(q.Get("risk"))
	if err != nil {
		http.Error(w, "Invalid risk parameter", http.StatusBadRequest)
		return
	}
	entry, err := decimal.NewFromString(q.Get("entry"))
	if err != nil {
		http.Error(w, "Invalid entry parameter", http.StatusBadRequest)
		return
	}

	var stop *decimal.Decimal
	if v := q.Get("stop"); v != "" {
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			http.Error(w, "Invalid stop parameter", http.StatusBadRequest)
			return
		}
		stop = &parsed
	}

	recommendation, err := h.portfolio.PositionSize(capital, risk, entry, stop)
	if err != nil {
		if apperrors.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to size position: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(recommendation)
}

// loadSnapshot resolves the snapshot the date parameter selects, or the
// newest one without it. Failure responses are written here.
func (h *ReportHandler) loadSnapshot(w http.ResponseWriter, r *http.Request, fundID string) (*models.PortfolioSnapshot, bool) {
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		requested, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			http.Error(w, "Invalid date parameter, expected YYYY-MM-DD", http.StatusBadRequest)
			return nil, false
		}
		snapshot, err := h.snapshots.GetByDate(r.Context(), fundID, requested)
		if err != nil {
			http.Error(w, "Snapshot not found: "+err.Error(), http.StatusNotFound)
			return nil, false
		}
		return snapshot, true
	}

	snapshots, err := h.snapshots.ListByFund(r.Context(), fundID)
	if err != nil {
		http.Error(w, "Failed to list snapshots: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if len(snapshots) == 0 {
		http.Error(w, "No snapshots recorded for fund "+fundID, http.StatusNotFound)
		return nil, false
	}
	return &snapshots[len(snapshots)-1], true
}

// portfolioMetrics builds the portfolio report, pulling live quotes
// when a provider is configured. Tickers the feed cannot price fall
// back to stored snapshot prices.
func (h *ReportHandler) portfolioMetrics(ctx context.Context, snapshot *models.PortfolioSnapshot) (*models.PortfolioMetrics, error) {
	var quotes map[string]*models.Quote
	if h.quotes != nil {
		quotes = make(map[string]*models.Quote, len(snapshot.Positions))
		for i := range snapshot.Positions {
			ticker := snapshot.Positions[i].Ticker
			quote, err := h.quotes.GetQuote(ctx, ticker)
			if err != nil {
				h.logger.Warn("quote fetch failed", zap.String("ticker", ticker), zap.Error(err))
				continue
			}
			if quote == nil {
				continue
			}
			quotes[ticker] = quote
		}
	}
	return h.portfolio.PortfolioMetrics(ctx, snapshot, quotes)
}
