package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myretail/internal/catalog"
	"myretail/internal/config"
	"myretail/internal/database"
	"myretail/internal/handler"
	"myretail/internal/middleware"
	"myretail/internal/repository"
	"myretail/internal/router"
	"myretail/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting myretail product API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Apply schema before serving traffic
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Initialize repositories
	priceRepo := repository.NewPriceRepository(pool, logger)

	// Initialize catalog client
	catalogClient := catalog.NewHTTPClient(cfg.Catalog.BaseURL, cfg.Catalog.RequestTimeout(), logger)
	logger.Info().
		Str("catalog_url", cfg.Catalog.BaseURL).
		Dur("catalog_timeout", cfg.Catalog.RequestTimeout()).
		Msg("catalog client configured")

	// Initialize services
	productService := service.NewProductService(catalogClient, priceRepo, logger)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService, logger)

	// Initialize per-client rate limiting
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger, cfg.Auth.APIKey, cfg.Auth.AdminAPIKey)
	if limiter == nil {
		logger.Info().Msg("rate limiting disabled")
	}

	// Initialize router
	mux := router.New(productHandler, pool, limiter, cfg.Auth.APIKey, cfg.Auth.AdminAPIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
