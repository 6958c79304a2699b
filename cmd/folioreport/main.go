package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quietmaple/microfolio/internal/db"
	"github.com/quietmaple/microfolio/internal/logger"
	"github.com/quietmaple/microfolio/internal/models"
	"github.com/quietmaple/microfolio/internal/repositories"
	"github.com/quietmaple/microfolio/internal/services"
)

// report is the JSON document written to stdout. Logs go to stderr so
// the output stays pipeable.
type report struct {
	Portfolio   *models.PortfolioMetrics   `json:"portfolio"`
	Performance *models.PerformanceMetrics `json:"performance"`
	DailyPnL    []models.DailyPnLResult    `json:"daily_pnl"`
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("report failed", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Health(); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if err := database.AutoMigrate(); err != nil {
		return err
	}

	snapshotRepo := repositories.NewSnapshotRepository(database)
	cashRepo := repositories.NewCashRepository(database)
	rateRepo := repositories.NewRateRepository(database)
	contributionRepo := repositories.NewContributionRepository(database)

	// FX_LIVE switches rate resolution to the exchangerate-api.com feed;
	// stored history and defaults still apply when the feed has no data.
	var rateSource services.RateSource
	if os.Getenv("FX_LIVE") == "true" {
		rateSource = services.NewHTTPRateSource(os.Getenv("FX_API_KEY"))
	}

	currency := services.NewCurrencyService(rateSource, rateRepo, log)
	calendar := services.NewCalendarService()
	base := getEnv("BASE_CURRENCY", models.CurrencyCAD)
	pnl := services.NewPnLService(calendar, currency, base, log)
	portfolio := services.NewPortfolioService(currency, base, log)

	ctx := context.Background()
	fundID := getEnv("FUND_ID", "default")

	// The latest stored USD/CAD rate beats the built-in fallback.
	if latest, err := rateRepo.LatestRate(ctx, models.CurrencyUSD, models.CurrencyCAD); err == nil && latest != nil {
		if err := currency.SetDefaultRate(models.CurrencyUSD, models.CurrencyCAD, latest.Rate); err != nil {
			return err
		}
	}

	snapshots, err := snapshotRepo.ListByFund(ctx, fundID)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no snapshots recorded for fund %s", fundID)
	}

	// REPORT_DATE selects a recorded day; without it the newest snapshot
	// is reported.
	snapshot := &snapshots[len(snapshots)-1]
	if v := os.Getenv("REPORT_DATE"); v != "" {
		requested, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("invalid REPORT_DATE %q: %w", v, err)
		}
		snapshot, err = snapshotRepo.GetByDate(ctx, fundID, requested)
		if err != nil {
			return err
		}
	}
	date := snapshot.Date

	log.Info("building report",
		zap.String("fund", fundID),
		zap.Time("date", date),
		zap.Int("positions", len(snapshot.Positions)))

	var quotes map[string]*models.Quote
	if os.Getenv("QUOTES_LIVE") == "true" {
		quotes = fetchQuotes(ctx, services.NewHTTPQuoteProvider(), snapshot.Positions, log)
	}

	metrics, err := portfolio.PortfolioMetrics(ctx, snapshot, quotes)
	if err != nil {
		return err
	}

	cash, err := cashRepo.Get(ctx, fundID)
	if err != nil {
		return err
	}
	contributions, err := contributionRepo.ListByFund(ctx, fundID)
	if err != nil {
		return err
	}

	performance, err := pnl.Performance(ctx, date, snapshot.Positions, cash, contributions)
	if err != nil {
		return err
	}

	daily := make([]models.DailyPnLResult, 0, len(snapshot.Positions))
	for i := range snapshot.Positions {
		daily = append(daily, pnl.DailyPnLFromSnapshots(ctx, snapshot.Positions[i].Ticker, date, snapshots))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report{
		Portfolio:   metrics,
		Performance: performance,
		DailyPnL:    daily,
	})
}

// fetchQuotes pulls live prices for every ticker in the snapshot.
// Tickers the feed cannot price are left out and the report falls back
// to the stored snapshot price.
func fetchQuotes(ctx context.Context, provider services.QuoteProvider, positions []models.Position, log *zap.Logger) map[string]*models.Quote {
	quotes := make(map[string]*models.Quote, len(positions))
	for i := range positions {
		ticker := positions[i].Ticker
		quote, err := provider.GetQuote(ctx, ticker)
		if err != nil {
			log.Warn("quote fetch failed", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		if quote == nil {
			log.Warn("no live quote", zap.String("ticker", ticker))
			continue
		}
		quotes[ticker] = quote
	}
	return quotes
}

func openDatabase() (*db.DB, error) {
	switch getEnv("DB_DRIVER", "postgres") {
	case "sqlite":
		return db.ConnectSQLite(getEnv("DB_PATH", "folio.db"))
	default:
		return db.Connect(db.NewConfig())
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
