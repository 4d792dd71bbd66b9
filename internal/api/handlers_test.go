package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/price-tracker/internal/api/ratelimit"
	"github.com/price-tracker/internal/auth"
	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/logging"
	"github.com/price-tracker/internal/models"
	"github.com/price-tracker/internal/storage"
	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Stub stores

type stubProducts struct {
	lastSearch *storage.SearchParams
	result     *storage.SearchResult
	detail     *models.ProductDetail
	exists     bool
	err        error
}

func (s *stubProducts) Search(_ context.Context, params *storage.SearchParams) (*storage.SearchResult, error) {
	s.lastSearch = params
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &storage.SearchResult{
		Products: []*models.ProductSummary{},
		Page:     params.Page,
		Limit:    params.Limit,
	}, nil
}

func (s *stubProducts) GetDetail(context.Context, int64) (*models.ProductDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func (s *stubProducts) Exists(context.Context, int64) (bool, error) {
	return s.exists, nil
}

type stubAlerts struct {
	inserted bool
	err      error
	alerts   []*models.PriceAlert
}

func (s *stubAlerts) Upsert(_ context.Context, alert *models.PriceAlert) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	alert.ID = 1
	alert.IsActive = true
	return s.inserted, nil
}

func (s *stubAlerts) ListByUser(context.Context, int64) ([]*models.PriceAlert, error) {
	return s.alerts, nil
}

func (s *stubAlerts) Update(_ context.Context, alertID, userID int64, targetPrice *decimal.Decimal, alertType types.AlertType) (*models.PriceAlert, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.PriceAlert{ID: alertID, UserID: userID, TargetPrice: targetPrice, AlertType: alertType, IsActive: true}, nil
}

func (s *stubAlerts) Deactivate(context.Context, int64, int64) error {
	return s.err
}

func (s *stubAlerts) CountByUser(context.Context, int64) (int64, int64, error) {
	return int64(len(s.alerts)), int64(len(s.alerts)), nil
}

type stubUsers struct {
	users map[string]*models.User
	err   error
}

func (s *stubUsers) Create(_ context.Context, user *models.User) error {
	if s.err != nil {
		return s.err
	}
	user.ID = 1
	return nil
}

func (s *stubUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.NewNotFoundError("user")
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, apperrors.NewNotFoundError("user")
}

func (s *stubUsers) UpdateProfile(_ context.Context, userID int64, firstName, lastName string) (*models.User, error) {
	return &models.User{ID: userID, FirstName: firstName, LastName: lastName}, nil
}

func (s *stubUsers) Count(context.Context) (int64, error) { return int64(len(s.users)), nil }

type stubCategories struct{ categories []*models.Category }

func (s *stubCategories) List(context.Context) ([]*models.Category, error) {
	return s.categories, nil
}

type stubHistory struct{ points []*models.PricePoint }

func (s *stubHistory) PriceHistory(context.Context, int64, time.Time, string) ([]*models.PricePoint, error) {
	return s.points, nil
}

type stubRecommendations struct{ rec *models.PriceRecommendation }

func (s *stubRecommendations) Latest(context.Context, int64) (*models.PriceRecommendation, error) {
	return s.rec, nil
}

type stubRetailers struct{ retailers []*models.Retailer }

func (s *stubRetailers) List(context.Context) ([]*models.Retailer, error) { return s.retailers, nil }
func (s *stubRetailers) Create(_ context.Context, r *models.Retailer) error {
	r.ID = 1
	return nil
}
func (s *stubRetailers) Update(context.Context, *models.Retailer) error { return nil }
func (s *stubRetailers) GetByID(context.Context, int64) (*models.Retailer, error) {
	return nil, apperrors.NewNotFoundError("retailer")
}
func (s *stubRetailers) Status(context.Context) ([]*storage.ScrapingStatus, error) {
	return []*storage.ScrapingStatus{}, nil
}

// Test harness

type testEnv struct {
	server   *Server
	tokens   *auth.TokenManager
	products *stubProducts
	alerts   *stubAlerts
	users    *stubUsers
}

func createTestServer(t *testing.T) *testEnv {
	t.Helper()
	return createTestServerWithTrigger(t, nil)
}

func createTestServerWithTrigger(t *testing.T, triggerScrape func()) *testEnv {
	t.Helper()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	hasher := auth.NewHasher(bcrypt.MinCost)

	products := &stubProducts{exists: true}
	alerts := &stubAlerts{inserted: true}

	passwordHash, err := hasher.Hash("password123")
	require.NoError(t, err)
	users := &stubUsers{users: map[string]*models.User{
		"user@example.com": {ID: 1, Email: "user@example.com", PasswordHash: passwordHash},
		"admin@example.com": {
			ID: 2, Email: "admin@example.com", PasswordHash: passwordHash, IsPremium: true,
		},
	}}

	server := NewServer(
		&ServerConfig{Host: "127.0.0.1", Port: "0"},
		logging.NewLogger(logging.LevelError, logging.FormatText),
		tokens,
		hasher,
		ratelimit.NewLimiter(store, 1000, time.Minute),
		&Stores{
			Products:        products,
			Alerts:          alerts,
			Users:           users,
			Categories:      &stubCategories{categories: []*models.Category{}},
			History:         &stubHistory{points: []*models.PricePoint{}},
			Recommendations: &stubRecommendations{},
			Retailers:       &stubRetailers{},
		},
		triggerScrape,
	)

	return &testEnv{server: server, tokens: tokens, products: products, alerts: alerts, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) tokenFor(t *testing.T, email string) string {
	t.Helper()
	token, err := e.tokens.Issue(e.users.users[email])
	require.NoError(t, err)
	return token
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// Tests

func TestHealth(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	assert.True(t, envelope.Success)
}

func TestSearch_Defaults(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/products/search", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	params := env.products.lastSearch
	require.NotNil(t, params)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, types.SortName, params.Sort)
}

func TestSearch_ParamsForwarded(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/products/search?q=laptop&category=computers&brand=dell&min_price=100&max_price=900&page=3&limit=10&sort=price_low", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	params := env.products.lastSearch
	require.NotNil(t, params)
	assert.Equal(t, "laptop", params.Query)
	assert.Equal(t, "computers", params.Category)
	assert.Equal(t, "dell", params.Brand)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 10, params.Limit)
	assert.Equal(t, types.SortPriceLow, params.Sort)
	require.NotNil(t, params.MinPrice)
	assert.Equal(t, "100", params.MinPrice.String())
}

// The search text comes in as either q or query; both must reach the filter.
func TestSearch_QueryAlias(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/products/search?query=Samsung", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.products.lastSearch)
	assert.Equal(t, "Samsung", env.products.lastSearch.Query)

	// q wins when both spellings are present.
	w = env.do(t, "GET", "/api/products/search?q=tv&query=Samsung", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tv", env.products.lastSearch.Query)
}

func TestSearch_InvalidParams(t *testing.T) {
	env := createTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"non-numeric page", "?page=abc"},
		{"non-numeric limit", "?limit=abc"},
		{"non-numeric min_price", "?min_price=cheap"},
		{"negative min_price", "?min_price=-5"},
		{"min above max", "?min_price=100&max_price=50"},
		{"unknown sort", "?sort=alphabetical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "GET", "/api/products/search"+tt.query, "", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			envelope := decodeEnvelope(t, w)
			assert.False(t, envelope.Success)
			require.NotNil(t, envelope.Error)
		})
	}
}

func TestSearch_OutOfRangeParamsClamped(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/products/search?page=-2&limit=9999", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	params := env.products.lastSearch
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 100, params.Limit)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := createTestServer(t)
	env.products.err = apperrors.NewNotFoundError("product")

	w := env.do(t, "GET", "/api/products/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	envelope := decodeEnvelope(t, w)
	assert.False(t, envelope.Success)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestGetProduct_NonNumericID(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrackProduct_RequiresAuth(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "POST", "/api/products/track", "", map[string]interface{}{"product_id": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrackProduct_CreatesAlert(t *testing.T) {
	env := createTestServer(t)
	token := env.tokenFor(t, "user@example.com")

	w := env.do(t, "POST", "/api/products/track", token, map[string]interface{}{
		"product_id":   5,
		"target_price": "199.99",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	envelope := decodeEnvelope(t, w)
	assert.True(t, envelope.Success)
	assert.Equal(t, "product tracking started", envelope.Message)
}

func TestTrackProduct_RepeatUpdatesInPlace(t *testing.T) {
	env := createTestServer(t)
	env.alerts.inserted = false
	token := env.tokenFor(t, "user@example.com")

	w := env.do(t, "POST", "/api/products/track", token, map[string]interface{}{"product_id": 5})
	assert.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	assert.Equal(t, "price alert updated", envelope.Message)
}

func TestTrackProduct_UnknownProduct(t *testing.T) {
	env := createTestServer(t)
	env.products.exists = false
	token := env.tokenFor(t, "user@example.com")

	w := env.do(t, "POST", "/api/products/track", token, map[string]interface{}{"product_id": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrackProduct_InvalidBody(t *testing.T) {
	env := createTestServer(t)
	token := env.tokenFor(t, "user@example.com")

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing product_id", map[string]interface{}{}},
		{"zero product_id", map[string]interface{}{"product_id": 0}},
		{"negative target_price", map[string]interface{}{"product_id": 1, "target_price": "-10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/products/track", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "POST", "/api/auth/register", "", map[string]interface{}{
		"email":    "new@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	envelope := decodeEnvelope(t, w)
	require.True(t, envelope.Success)
	data := envelope.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])

	// The password hash must never serialize.
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestRegister_InvalidInput(t *testing.T) {
	env := createTestServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"bad email", map[string]interface{}{"email": "not-an-email", "password": "password123"}},
		{"short password", map[string]interface{}{"email": "a@b.com", "password": "short"}},
		{"missing fields", map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := createTestServer(t)
	env.users.err = apperrors.NewConflictError("user with this email already exists")

	w := env.do(t, "POST", "/api/auth/register", "", map[string]interface{}{
		"email":    "user@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "POST", "/api/auth/login", "", map[string]interface{}{
		"email":    "user@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

// Unknown email and wrong password must be indistinguishable.
func TestLogin_BadCredentials(t *testing.T) {
	env := createTestServer(t)

	for _, body := range []map[string]interface{}{
		{"email": "user@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "password123"},
	} {
		w := env.do(t, "POST", "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		envelope := decodeEnvelope(t, w)
		assert.Equal(t, "invalid email or password", envelope.Error.Message)
	}
}

func TestUserProfile_RequiresAuth(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "GET", "/api/user/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserProfile(t *testing.T) {
	env := createTestServer(t)
	token := env.tokenFor(t, "user@example.com")

	w := env.do(t, "GET", "/api/user/profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_RequiresPremium(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/admin/retailers", env.tokenFor(t, "user@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "GET", "/api/admin/retailers", env.tokenFor(t, "admin@example.com"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_TriggerWithoutScraper(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "POST", "/api/admin/scraping/trigger", env.tokenFor(t, "admin@example.com"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_TriggerStartsBatch(t *testing.T) {
	called := make(chan struct{})
	env := createTestServerWithTrigger(t, func() { close(called) })

	w := env.do(t, "POST", "/api/admin/scraping/trigger", env.tokenFor(t, "admin@example.com"), nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("scrape trigger was not invoked")
	}
}

func TestRateLimit(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	server := NewServer(
		&ServerConfig{Host: "127.0.0.1", Port: "0"},
		logging.NewLogger(logging.LevelError, logging.FormatText),
		auth.NewTokenManager("test-secret", time.Hour),
		auth.NewHasher(bcrypt.MinCost),
		ratelimit.NewLimiter(store, 2, time.Minute),
		&Stores{
			Products:        &stubProducts{},
			Alerts:          &stubAlerts{},
			Users:           &stubUsers{},
			Categories:      &stubCategories{},
			History:         &stubHistory{},
			Recommendations: &stubRecommendations{},
			Retailers:       &stubRetailers{},
		},
		nil,
	)
	env := &testEnv{server: server}

	for i := 0; i < 2; i++ {
		w := env.do(t, "GET", "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRouteNotFound(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	envelope := decodeEnvelope(t, w)
	assert.False(t, envelope.Success)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)

	// Unmatched routes still go through the full middleware stack.
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRecommendations_NoneYet(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/products/1/recommendations", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	assert.True(t, envelope.Success)
	assert.Equal(t, "no recommendation available yet", envelope.Message)
}

func TestPriceHistory_InvalidDays(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/products/1/price-history?days=soon", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrend_DisabledWithoutArchive(t *testing.T) {
	env := createTestServer(t)

	w := env.do(t, "GET", "/api/products/1/trend", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
