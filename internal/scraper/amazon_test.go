package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/price-tracker/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage serves canned selector text in place of a browser tab.
type fakePage struct {
	content  map[string]string
	navErr   error
	textErr  error
	navCount int
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navCount++
	return p.navErr
}

func (p *fakePage) Text(ctx context.Context, selector string) (string, bool, error) {
	if p.textErr != nil {
		return "", false, p.textErr
	}
	text, ok := p.content[selector]
	return text, ok, nil
}

func (p *fakePage) Close() error { return nil }

type fakeBrowser struct {
	page    *fakePage
	pageErr error
}

func (b *fakeBrowser) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error { return nil }

func newTestScraper(page *fakePage) *AmazonScraper {
	browser := &fakeBrowser{page: page}
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	return NewAmazonScraper(browser, 5*time.Second, logger)
}

func TestAmazonScraper_ExtractsPrice(t *testing.T) {
	page := &fakePage{content: map[string]string{
		".a-price .a-offscreen": "$1,299.99",
	}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 42)

	assert.True(t, result.Success)
	assert.True(t, result.IsAvailable)
	require.NotNil(t, result.Price)
	assert.Equal(t, "1299.99", result.Price.String())
	assert.Nil(t, result.OriginalPrice)
	assert.Equal(t, int64(42), result.ProductListingID)
	assert.NotEmpty(t, result.AttemptID)
	assert.Empty(t, result.Error)
}

func TestAmazonScraper_ExtractsOriginalPrice(t *testing.T) {
	page := &fakePage{content: map[string]string{
		".a-price .a-offscreen":              "$899.00",
		".a-price.a-text-price .a-offscreen": "$1,099.00",
	}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	require.True(t, result.Success)
	require.NotNil(t, result.Price)
	require.NotNil(t, result.OriginalPrice)
	assert.Equal(t, "899", result.Price.String())
	assert.Equal(t, "1099", result.OriginalPrice.String())
}

// The selector chain must fall through selectors that match nothing and stop
// at the first one yielding a numeric price.
func TestAmazonScraper_SelectorFallback(t *testing.T) {
	page := &fakePage{content: map[string]string{
		"#priceblock_dealprice": "$549.99",
	}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	require.True(t, result.Success)
	require.NotNil(t, result.Price)
	assert.Equal(t, "549.99", result.Price.String())
}

// A matched element whose text holds no numeric price must not satisfy the
// chain; later selectors still get their turn.
func TestAmazonScraper_NonNumericTextFallsThrough(t *testing.T) {
	page := &fakePage{content: map[string]string{
		".a-price .a-offscreen": "See price in cart",
		"#priceblock_dealprice": "$79.99",
	}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	require.True(t, result.Success)
	require.NotNil(t, result.Price)
	assert.Equal(t, "79.99", result.Price.String())
}

func TestAmazonScraper_CaptchaDetected(t *testing.T) {
	page := &fakePage{content: map[string]string{
		"#captchacharacters":    "Type the characters you see",
		".a-price .a-offscreen": "$10.00",
	}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	assert.False(t, result.Success)
	assert.Equal(t, "CAPTCHA detected", result.Error)
	assert.Nil(t, result.Price)
}

func TestAmazonScraper_OutOfStock(t *testing.T) {
	page := &fakePage{content: map[string]string{
		"#availability span": "Currently unavailable.",
	}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	assert.True(t, result.Success)
	assert.False(t, result.IsAvailable)
	assert.Nil(t, result.Price)
	assert.Empty(t, result.Error)
}

// Availability sections also carry delivery estimates; only text that
// actually says unavailable counts.
func TestAmazonScraper_AvailabilityTextWithoutMarker(t *testing.T) {
	page := &fakePage{content: map[string]string{
		"#availability span":    "In Stock. Ships within 2 days.",
		".a-price .a-offscreen": "$25.00",
	}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	assert.True(t, result.Success)
	assert.True(t, result.IsAvailable)
	require.NotNil(t, result.Price)
	assert.Equal(t, "25", result.Price.String())
}

func TestAmazonScraper_NoPriceFound(t *testing.T) {
	page := &fakePage{content: map[string]string{}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	assert.False(t, result.Success)
	assert.True(t, result.IsAvailable)
	assert.Equal(t, "could not extract price", result.Error)
	assert.Nil(t, result.Price)
}

func TestAmazonScraper_ZeroPriceRejected(t *testing.T) {
	page := &fakePage{content: map[string]string{
		".a-price .a-offscreen": "$0.00",
	}}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	assert.False(t, result.Success)
	assert.Equal(t, "could not extract price", result.Error)
}

func TestAmazonScraper_NavigationFailure(t *testing.T) {
	page := &fakePage{navErr: errors.New("net::ERR_TIMED_OUT")}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "ERR_TIMED_OUT")
}

// A transport error while reading the page must fail the attempt, not skip
// the bot-challenge check and continue.
func TestAmazonScraper_PageReadFailure(t *testing.T) {
	page := &fakePage{textErr: errors.New("target closed")}

	result := newTestScraper(page).Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "target closed")
	assert.Nil(t, result.Price)
}

func TestAmazonScraper_BrowserFailure(t *testing.T) {
	browser := &fakeBrowser{pageErr: errors.New("browser crashed")}
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	s := NewAmazonScraper(browser, time.Second, logger)

	result := s.Scrape(context.Background(), "https://amazon.com/dp/X", 1)

	assert.False(t, result.Success)
	assert.Equal(t, "browser crashed", result.Error)
}
