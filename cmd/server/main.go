// Package main provides the API server entry point for the price tracker service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/price-tracker/internal/api"
	"github.com/price-tracker/internal/api/ratelimit"
	"github.com/price-tracker/internal/auth"
	"github.com/price-tracker/internal/config"
	"github.com/price-tracker/internal/logging"
	"github.com/price-tracker/internal/scraper"
	"github.com/price-tracker/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	if err := storage.RunMigrations(cfg.Database.Postgres.URL(), cfg.Database.Postgres.MigrationsPath); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	// The ClickHouse archive is optional; without it the trend endpoint is off.
	var archive *storage.ObservationArchive
	if cfg.Database.ClickHouse.Enabled {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()

		archive = storage.NewObservationArchive(clickhouse)
		if err := archive.EnsureSchema(context.Background()); err != nil {
			logger.WithError(err).Fatal("Failed to prepare observation archive")
		}
	}

	logger.Info("Database connections established")

	// Repositories
	listingRepo := storage.NewListingRepository(postgres)
	recommendationRepo := storage.NewRecommendationRepository(postgres)
	productRepo := storage.NewProductRepository(postgres, listingRepo, recommendationRepo)
	alertRepo := storage.NewAlertRepository(postgres)
	userRepo := storage.NewUserRepository(postgres)
	categoryRepo := storage.NewCategoryRepository(postgres, redis)
	retailerRepo := storage.NewRetailerRepository(postgres)

	// Rate limit store
	var limitStore ratelimit.Store
	if cfg.RateLimit.Store == "redis" {
		limitStore = ratelimit.NewRedisStore(redis.Client())
	} else {
		limitStore = ratelimit.NewMemoryStore()
	}
	defer limitStore.Close()

	limiter := ratelimit.NewLimiter(limitStore, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	// The admin trigger runs batches through the same runner as cmd/scraper.
	// The Chrome allocator is lazy, so no browser starts until a batch does.
	browser, err := scraper.NewChromeBrowser(cfg.Scraper.Headless)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize browser")
	}
	defer browser.Close()

	runner := scraper.NewRunner(listingRepo, recommendationRepo, archive, cfg.Scraper.ScrapeDelay, logger)
	runner.Register("amazon.", scraper.NewAmazonScraper(browser, cfg.Scraper.NavTimeout, logger))

	var scrapeRunning atomic.Bool
	triggerScrape := func() {
		if !scrapeRunning.CompareAndSwap(false, true) {
			logger.Warn("Scraping batch already running, trigger ignored")
			return
		}
		defer scrapeRunning.Store(false)

		stats, err := runner.Run(context.Background())
		if err != nil {
			logger.WithError(err).Error("Scraping batch aborted")
			return
		}
		logger.WithFields(map[string]interface{}{
			"attempted": stats.Attempted,
			"succeeded": stats.Succeeded,
			"failed":    stats.Failed,
			"skipped":   stats.Skipped,
		}).Info("Scraping batch completed")
	}

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	stores := &api.Stores{
		Products:        productRepo,
		Alerts:          alertRepo,
		Users:           userRepo,
		Categories:      categoryRepo,
		History:         listingRepo,
		Recommendations: recommendationRepo,
		Retailers:       retailerRepo,
	}
	if archive != nil {
		stores.Trends = archive
	}

	server := api.NewServer(serverConfig, logger, tokens, hasher, limiter, stores, triggerScrape)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
