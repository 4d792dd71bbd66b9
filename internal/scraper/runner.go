package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/price-tracker/internal/logging"
	"github.com/price-tracker/internal/models"
	"github.com/price-tracker/internal/storage"
	"golang.org/x/time/rate"
)

// Scraper is one retailer-specific page scraper.
type Scraper interface {
	Scrape(ctx context.Context, url string, listingID int64) Result
}

// Runner walks the scrape targets strictly sequentially, paced to stay under
// anti-bot radars. There is no worker pool, no retry and no deduplication:
// every attempt stands alone, and a failed listing never aborts the batch.
type Runner struct {
	listings        *storage.ListingRepository
	recommendations *storage.RecommendationRepository
	archive         *storage.ObservationArchive
	scrapers        map[string]Scraper
	pacer           *rate.Limiter
	logger          *logging.Logger
}

// NewRunner creates a batch runner. archive may be nil.
func NewRunner(
	listings *storage.ListingRepository,
	recommendations *storage.RecommendationRepository,
	archive *storage.ObservationArchive,
	delay time.Duration,
	logger *logging.Logger,
) *Runner {
	return &Runner{
		listings:        listings,
		recommendations: recommendations,
		archive:         archive,
		scrapers:        make(map[string]Scraper),
		pacer:           rate.NewLimiter(rate.Every(delay), 1),
		logger:          logger,
	}
}

// Register attaches a scraper for retailer domains containing the fragment,
// e.g. "amazon." matching amazon.com and amazon.de listings.
func (r *Runner) Register(domainFragment string, s Scraper) {
	r.scrapers[domainFragment] = s
}

// BatchStats summarizes one batch run.
type BatchStats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Run scrapes every eligible listing once. Returns early only when the
// context is cancelled.
func (r *Runner) Run(ctx context.Context) (*BatchStats, error) {
	targets, err := r.listings.ScrapeTargets(ctx)
	if err != nil {
		return nil, err
	}

	stats := &BatchStats{}
	for _, target := range targets {
		if err := r.pacer.Wait(ctx); err != nil {
			return stats, err
		}

		scraper := r.scraperFor(target.RetailerDomain)
		if scraper == nil {
			stats.Skipped++
			continue
		}

		stats.Attempted++
		result := scraper.Scrape(ctx, target.URL, target.ListingID)
		if result.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
			r.logger.WithFields(map[string]interface{}{
				"listing_id": target.ListingID,
				"error":      result.Error,
			}).Warn("scrape attempt failed")
		}

		r.record(ctx, target, result)
	}

	return stats, nil
}

func (r *Runner) scraperFor(domain string) Scraper {
	for fragment, s := range r.scrapers {
		if strings.Contains(domain, fragment) {
			return s
		}
	}
	return nil
}

// record persists the outcome of one attempt. Unavailable results carry the
// listing's last known price so stock gaps stay visible in the history; a
// listing never observed before produces nothing until a price appears.
func (r *Runner) record(ctx context.Context, target *storage.ScrapeTarget, result Result) {
	now := time.Now()

	if err := r.listings.TouchScraped(ctx, target.ListingID, now); err != nil {
		r.logger.WithError(err).Warn("failed to record scrape time")
	}

	if !result.Success {
		return
	}

	obs := &models.PriceObservation{
		ProductListingID: target.ListingID,
		IsAvailable:      result.IsAvailable,
		ScrapedAt:        now,
	}

	switch {
	case result.Price != nil:
		obs.Price = *result.Price
		obs.OriginalPrice = result.OriginalPrice
	default:
		last, err := r.listings.LatestPrice(ctx, target.ListingID)
		if err != nil || last == nil {
			return
		}
		obs.Price = *last
	}

	if err := r.listings.InsertObservation(ctx, obs); err != nil {
		r.logger.WithError(err).WithField("listing_id", target.ListingID).Error("failed to store observation")
		return
	}

	if r.archive != nil {
		if err := r.archive.Append(ctx, target.ProductID, target.RetailerID, obs); err != nil {
			r.logger.WithError(err).Warn("failed to archive observation")
		}
	}

	if _, err := r.recommendations.Recompute(ctx, target.ProductID); err != nil {
		r.logger.WithError(err).WithField("product_id", target.ProductID).Warn("failed to recompute recommendation")
	}
}
