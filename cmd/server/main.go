// Package main is the entry point for the clicker game backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/5kozarskabrigada/si-backend/internal/api"
	"github.com/5kozarskabrigada/si-backend/internal/config"
	"github.com/5kozarskabrigada/si-backend/internal/lottery"
	"github.com/5kozarskabrigada/si-backend/internal/pkg/db"
	"github.com/5kozarskabrigada/si-backend/internal/pkg/lock"
	"github.com/5kozarskabrigada/si-backend/internal/repository"
	"github.com/5kozarskabrigada/si-backend/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	stateRepo := repository.NewGameStateRepository(dbPool.Pool)
	logRepo := repository.NewActionLogRepository(dbPool.Pool)

	// Initialize keyed locks shared by every service
	locks := lock.New()

	// Initialize services
	accountService := service.NewAccountService(
		playerRepo,
		logRepo,
		locks,
		cfg.Game.OfflineSettleThreshold,
	)
	upgradeService := service.NewUpgradeService(playerRepo, logRepo, accountService, locks)
	transferService := service.NewTransferService(playerRepo, txRepo, logRepo, locks)

	engine := lottery.New(lottery.Config{
		SoloRoundDuration: cfg.Game.SoloRoundDuration,
		TeamRoundDuration: cfg.Game.TeamRoundDuration,
		JoinCutoff:        cfg.Game.JoinCutoff,
	})
	lotteryService := service.NewLotteryService(
		stateRepo,
		playerRepo,
		logRepo,
		accountService,
		locks,
		engine,
	)
	adminService := service.NewAdminService(playerRepo, logRepo, locks)

	server := api.New(
		cfg.Server,
		cfg.Admin.Token,
		accountService,
		upgradeService,
		transferService,
		lotteryService,
		adminService,
		dbPool,
	)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr()).Msg("HTTP server starting")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create players table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			first_name VARCHAR(255),
			last_name VARCHAR(255),
			language_code VARCHAR(16),
			profile_photo_url TEXT,
			balance NUMERIC(30,9) NOT NULL DEFAULT 0,
			click_value NUMERIC(30,9) NOT NULL DEFAULT 0.000000001,
			auto_click_rate NUMERIC(30,9) NOT NULL DEFAULT 0,
			offline_rate_per_hour NUMERIC(30,9) NOT NULL DEFAULT 0,
			upgrade_levels JSONB NOT NULL DEFAULT '{}'::jsonb,
			is_banned BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_players_username ON players(username);
		CREATE INDEX IF NOT EXISTS idx_players_balance ON players(balance DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: players table created")

	// Migration 2: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL,
			receiver_id BIGINT NOT NULL,
			amount NUMERIC(30,9) NOT NULL,
			receiver_username VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_sender_time ON transactions(sender_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_receiver_time ON transactions(receiver_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	// Migration 3: Create game state document table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_state (
			id VARCHAR(32) PRIMARY KEY,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: game_state table created")

	// Migration 4: Create action log table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS action_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			action VARCHAR(50) NOT NULL,
			detail TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_action_logs_time ON action_logs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_action_logs_user_time ON action_logs(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: action_logs table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
