package scraper

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/price-tracker/internal/logging"
	"github.com/shopspring/decimal"
)

// Result is the structured outcome of one scrape attempt. Failures are
// reported here, never as errors, so a batch can partially succeed.
type Result struct {
	AttemptID        string           `json:"attempt_id"`
	ProductListingID int64            `json:"product_listing_id"`
	Success          bool             `json:"success"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	OriginalPrice    *decimal.Decimal `json:"original_price,omitempty"`
	IsAvailable      bool             `json:"is_available"`
	Error            string           `json:"error,omitempty"`
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

const captchaSelector = "#captchacharacters"

var unavailableSelectors = []string{
	`[data-feature-name="availability"] .a-color-price`,
	`#availability .a-color-price`,
	`#availability span`,
}

var priceSelectors = []string{
	".a-price .a-offscreen",
	"#priceblock_pospromoprice",
	"#priceblock_dealprice",
	"#corePrice_feature_div .a-price .a-offscreen",
	".a-price.a-text-price.a-size-medium.apexPriceToPay .a-offscreen",
}

var originalPriceSelectors = []string{
	".a-price.a-text-price .a-offscreen",
	"#priceblock_listprice",
	`.a-price.a-text-price[data-a-color="secondary"] .a-offscreen`,
}

// AmazonScraper scrapes Amazon product pages. Each attempt is independent
// and stateless beyond the page it opens and closes; retries are the
// caller's decision.
type AmazonScraper struct {
	browser    Browser
	navTimeout time.Duration
	logger     *logging.Logger
}

// NewAmazonScraper creates an Amazon scraper on the given browser.
func NewAmazonScraper(browser Browser, navTimeout time.Duration, logger *logging.Logger) *AmazonScraper {
	return &AmazonScraper{
		browser:    browser,
		navTimeout: navTimeout,
		logger:     logger,
	}
}

// Scrape runs one attempt against a product page URL.
func (s *AmazonScraper) Scrape(ctx context.Context, url string, listingID int64) Result {
	result := Result{
		AttemptID:        uuid.New().String(),
		ProductListingID: listingID,
	}

	page, err := s.browser.NewPage(ctx, PageOptions{UserAgent: randomUserAgent()})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	if err := page.Navigate(navCtx, url); err != nil {
		result.Error = err.Error()
		return result
	}

	// Bot challenge terminates the attempt; the page has no product data.
	_, captcha, err := page.Text(ctx, captchaSelector)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if captcha {
		s.logger.WithField("listing_id", listingID).Warn("Amazon CAPTCHA detected")
		result.Error = "CAPTCHA detected"
		return result
	}

	unavailable, err := s.detectUnavailable(ctx, page)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if unavailable {
		result.Success = true
		result.IsAvailable = false
		return result
	}

	price, found, err := firstPrice(ctx, page, priceSelectors)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if !found || !price.IsPositive() {
		result.IsAvailable = true
		result.Error = "could not extract price"
		return result
	}

	result.Success = true
	result.IsAvailable = true
	result.Price = &price

	if original, found, err := firstPrice(ctx, page, originalPriceSelectors); err == nil && found && original.IsPositive() {
		result.OriginalPrice = &original
	}

	s.logger.WithFields(map[string]interface{}{
		"listing_id": listingID,
		"price":      price.String(),
	}).Info("Amazon price scraped")

	return result
}

// detectUnavailable checks the out-of-stock marker chain. A marker counts
// only when its text actually says so; availability sections also carry
// delivery estimates.
func (s *AmazonScraper) detectUnavailable(ctx context.Context, page Page) (bool, error) {
	for _, selector := range unavailableSelectors {
		text, found, err := page.Text(ctx, selector)
		if err != nil {
			return false, err
		}
		if !found {
			continue
		}

		lower := strings.ToLower(text)
		if strings.Contains(lower, "unavailable") || strings.Contains(lower, "out of stock") {
			return true, nil
		}
	}

	return false, nil
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}
