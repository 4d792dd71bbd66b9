package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/storage"
	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// parsePathID parses a numeric path variable. Non-numeric IDs are a client
// error, not a missing route.
func parsePathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(name, "must be a positive integer")
	}

	return id, nil
}

// parseQueryInt parses an optional integer query parameter. A present but
// non-numeric value is rejected rather than silently replaced.
func parseQueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name, "must be an integer")
	}

	return value, nil
}

// parseQueryDecimal parses an optional decimal query parameter.
func parseQueryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(name, "must be a decimal number")
	}
	if value.IsNegative() {
		return nil, apperrors.NewValidationError(name, "must not be negative")
	}

	return &value, nil
}

// parseSearchParams validates the product search query string. Out-of-range
// page and limit values are clamped; malformed values are rejected.
func parseSearchParams(r *http.Request) (*storage.SearchParams, error) {
	q := r.URL.Query()

	page, err := parseQueryInt(r, "page", 1)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	limit, err := parseQueryInt(r, "limit", defaultPageLimit)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	minPrice, err := parseQueryDecimal(r, "min_price")
	if err != nil {
		return nil, err
	}
	maxPrice, err := parseQueryDecimal(r, "max_price")
	if err != nil {
		return nil, err
	}
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		return nil, apperrors.NewValidationError("min_price", "must not exceed max_price")
	}

	// Both spellings of the search text are accepted; q wins when both are set.
	query := q.Get("q")
	if query == "" {
		query = q.Get("query")
	}

	sort := types.SortKey(q.Get("sort"))
	switch sort {
	case "":
		sort = types.SortName
	case types.SortName, types.SortPriceLow, types.SortPriceHigh, types.SortNewest:
	default:
		return nil, apperrors.NewValidationError("sort",
			"must be one of name, price_low, price_high, newest")
	}

	return &storage.SearchParams{
		Query:    query,
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Page:     page,
		Limit:    limit,
		Sort:     sort,
	}, nil
}
