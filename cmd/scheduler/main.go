package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/lendwell/ledger-engine/internal/config"
	"github.com/lendwell/ledger-engine/internal/logger"
	"github.com/lendwell/ledger-engine/internal/repository"
	"github.com/lendwell/ledger-engine/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	loanRepo := repository.NewLoanRepository(db)
	cashRepo := repository.NewCashbookRepository(db)
	cashbookService := service.NewCashbookService(cashRepo, loanRepo, nil, cfg)
	ledgerService := service.NewLedgerService(loanRepo, cashbookService, cfg)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Scheduler.Timezone).Msg("invalid scheduler timezone")
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		runOverdueInterest(loanRepo, ledgerService)
	})
	if err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Scheduler.OverdueSpec).Msg("failed to schedule overdue-interest job")
	}

	c.Start()
	log.Info().Str("spec", cfg.Scheduler.OverdueSpec).Msg("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down scheduler")
	<-c.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// runOverdueInterest charges cumulative interest across every scope that
// holds open loans.
func runOverdueInterest(loanRepo repository.LoanRepository, ledger *service.LedgerService) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	scopes, err := loanRepo.ActiveScopes(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active scopes")
		return
	}

	total := 0
	for _, scope := range scopes {
		charged, err := ledger.ApplyOverdueInterest(ctx, scope)
		if err != nil {
			log.Error().Err(err).
				Str("company_id", scope.CompanyID.String()).
				Str("branch_id", scope.BranchID.String()).
				Msg("overdue-interest job failed for scope")
			continue
		}
		total += charged
	}

	log.Info().Int("scopes", len(scopes)).Int("loans_charged", total).
		Msg("overdue-interest job finished")
}
