package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lendwell/ledger-engine/internal/config"
	"github.com/lendwell/ledger-engine/internal/handler"
	"github.com/lendwell/ledger-engine/internal/logger"
	"github.com/lendwell/ledger-engine/internal/repository"
	"github.com/lendwell/ledger-engine/internal/service"
	"github.com/lendwell/ledger-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := initDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)
	cashRepo := repository.NewCashbookRepository(db)

	cashbookService := service.NewCashbookService(cashRepo, loanRepo, redisClient, cfg)
	ledgerService := service.NewLedgerService(loanRepo, cashbookService, cfg)

	loanHandler := handler.NewLoanHandler(ledgerService)
	cashbookHandler := handler.NewCashbookHandler(cashbookService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(loanHandler, cashbookHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loans *handler.LoanHandler, cashbook *handler.CashbookHandler, health *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", health.Health).Methods("GET")
	router.HandleFunc("/health/ready", health.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loans.CreateLoan).Methods("POST")
	api.HandleFunc("/loans", loans.ListLoans).Methods("GET")
	api.HandleFunc("/loans/{loanId}", loans.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}", loans.DeleteLoan).Methods("DELETE")
	api.HandleFunc("/loans/{loanId}/approve", loans.ApproveLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/disburse", loans.DisburseLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/ledger", loans.GetLedger).Methods("GET")
	api.HandleFunc("/loans/{loanId}/repayments", loans.AppendRepayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/cumulative-interest", loans.AppendCumulativeInterest).Methods("POST")
	api.HandleFunc("/entries/{entryId}", loans.EditEntry).Methods("PATCH")
	api.HandleFunc("/entries/{entryId}", loans.DeleteEntry).Methods("DELETE")

	api.HandleFunc("/cashbook", cashbook.GetCashbook).Methods("GET")
	api.HandleFunc("/cashbook/rebuild", cashbook.Rebuild).Methods("POST")
	api.HandleFunc("/cashbook/entries", cashbook.AddManualEntry).Methods("POST")
	api.HandleFunc("/cashbook/transfers", cashbook.RecordTransfer).Methods("POST")
	api.HandleFunc("/cashbook/expenses", cashbook.RecordExpense).Methods("POST")
	api.HandleFunc("/cashbook/other-income", cashbook.RecordOtherIncome).Methods("POST")
	api.HandleFunc("/cashbook/savings-transactions", cashbook.RecordSavingsTransaction).Methods("POST")

	return router
}
