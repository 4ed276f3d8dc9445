// Package main is the entry point for the lotto ledger service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lotto-ledger/internal/config"
	"lotto-ledger/internal/handler"
	"lotto-ledger/internal/pkg/db"
	"lotto-ledger/internal/repository"
	"lotto-ledger/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Optional local .env for development; real deployments use the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("Loaded .env file")
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	playerRepo := repository.NewPlayerRepository(pool.Pool)
	pricingRepo := repository.NewPricingRepository(pool.Pool)
	drawRepo := repository.NewDrawRepository(pool.Pool)
	boardRepo := repository.NewBoardRepository(pool.Pool)
	repeatRepo := repository.NewRepeatRepository(pool.Pool)
	ledgerRepo := repository.NewLedgerRepository(pool.Pool)

	// Services
	purchaseService := service.NewPurchaseService(pool, playerRepo, pricingRepo, boardRepo, ledgerRepo, drawRepo, time.Now)
	repeatService := service.NewRepeatService(pool, repeatRepo, playerRepo, pricingRepo, boardRepo, ledgerRepo, drawRepo, time.Now)
	drawService := service.NewDrawService(pool, drawRepo, boardRepo, repeatService)
	ledgerService := service.NewLedgerService(pool, playerRepo, ledgerRepo, boardRepo, cfg.Ledger.MaxDepositAmount)

	// HTTP server
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := handler.New(purchaseService, drawService, repeatService, ledgerService, cfg.Ledger.HistoryLimit)
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.ListenAddr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}
