package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quietmaple/microfolio/internal/db"
	"github.com/quietmaple/microfolio/internal/handlers"
	"github.com/quietmaple/microfolio/internal/logger"
	"github.com/quietmaple/microfolio/internal/models"
	"github.com/quietmaple/microfolio/internal/repositories"
	"github.com/quietmaple/microfolio/internal/services"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("server failed", zap.Error(err))
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

	var rateSource services.RateSource
	if os.Getenv("FX_LIVE") == "true" {
		rateSource = services.NewHTTPRateSource(os.Getenv("FX_API_KEY"))
	}
	var quoteProvider services.QuoteProvider
	if os.Getenv("QUOTES_LIVE") == "true" {
		quoteProvider = services.NewHTTPQuoteProvider()
	}

	currency := services.NewCurrencyService(rateSource, rateRepo, log)
	calendar := services.NewCalendarService()
	base := getEnv("BASE_CURRENCY", models.CurrencyCAD)
	pnl := services.NewPnLService(calendar, currency, base, log)
	portfolio := services.NewPortfolioService(currency, base, log)

	// The latest stored USD/CAD rate beats the built-in fallback.
	ctx := context.Background()
	if latest, err := rateRepo.LatestRate(ctx, models.CurrencyUSD, models.CurrencyCAD); err == nil && latest != nil {
		if err := currency.SetDefaultRate(models.CurrencyUSD, models.CurrencyCAD, latest.Rate); err != nil {
			return err
		}
	}

	reportHandler := handlers.NewReportHandler(
		snapshotRepo, cashRepo, contributionRepo,
		currency, pnl, portfolio, quoteProvider, log)

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "healthy", http.StatusOK
		if err := database.Health(); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  status,
			"service": "folio-server",
		})
	}).Methods("GET")

	router.HandleFunc("/api/v1/funds/{fundID}/portfolio", reportHandler.HandlePortfolio).Methods("GET")
	router.HandleFunc("/api/v1/funds/{fundID}/performance", reportHandler.HandlePerformance).Methods("GET")
	router.HandleFunc("/api/v1/funds/{fundID}/pnl/daily", reportHandler.HandleDailyPnL).Methods("GET")
	router.HandleFunc("/api/v1/funds/{fundID}/stakes", reportHandler.HandleStakes).Methods("GET")
	router.HandleFunc("/api/v1/convert", reportHandler.HandleConvert).Methods("GET")
	router.HandleFunc("/api/v1/position-size", reportHandler.HandlePositionSize).Methods("GET")

	port := getEnv("SERVER_PORT", "8080")
	log.Info("server starting", zap.String("port", port))
	return http.ListenAndServe(":"+port, corsMiddleware(router))
}

// corsMiddleware lets the dashboard call the API from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
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
