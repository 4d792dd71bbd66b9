// Package scraper implements retailer page scraping. Extraction logic runs
// against small browser capability interfaces so it is testable without a
// real browser; the chromedp backend provides the production implementation.
package scraper

import "context"

// PageOptions configure a new page before navigation.
type PageOptions struct {
	UserAgent string
}

// Browser opens pages.
type Browser interface {
	NewPage(ctx context.Context, opts PageOptions) (Page, error)
	Close() error
}

// Page is the minimal surface the extraction logic needs: navigate, query a
// selector, read its text.
type Page interface {
	// Navigate loads the URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// Text returns the text content of the first element matching the CSS
	// selector. found is false when no element matches.
	Text(ctx context.Context, selector string) (text string, found bool, err error)

	// Close releases the page.
	Close() error
}
