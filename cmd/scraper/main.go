// Package main provides the scraping batch entry point. One invocation
// scrapes every eligible listing once and exits; scheduling is left to cron
// or the orchestrator.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

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

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

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

	listingRepo := storage.NewListingRepository(postgres)
	recommendationRepo := storage.NewRecommendationRepository(postgres)

	browser, err := scraper.NewChromeBrowser(cfg.Scraper.Headless)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start browser")
	}
	defer browser.Close()

	amazon := scraper.NewAmazonScraper(browser, cfg.Scraper.NavTimeout, logger)

	runner := scraper.NewRunner(listingRepo, recommendationRepo, archive, cfg.Scraper.ScrapeDelay, logger)
	runner.Register("amazon.", amazon)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting scraping batch")

	stats, err := runner.Run(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Scraping batch aborted")
	}

	logger.WithFields(map[string]interface{}{
		"attempted": stats.Attempted,
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
	}).Info("Scraping batch completed")
}
