// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/price-tracker/internal/api/ratelimit"
	"github.com/price-tracker/internal/auth"
	"github.com/price-tracker/internal/logging"
	"github.com/price-tracker/internal/models"
	"github.com/price-tracker/internal/storage"
	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

// Store interfaces for dependency injection and testing

// ProductStoreInterface defines the product search and detail operations.
type ProductStoreInterface interface {
	Search(ctx context.Context, params *storage.SearchParams) (*storage.SearchResult, error)
	GetDetail(ctx context.Context, id int64) (*models.ProductDetail, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// AlertStoreInterface defines the price alert operations.
type AlertStoreInterface interface {
	Upsert(ctx context.Context, alert *models.PriceAlert) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.PriceAlert, error)
	Update(ctx context.Context, alertID, userID int64, targetPrice *decimal.Decimal, alertType types.AlertType) (*models.PriceAlert, error)
	Deactivate(ctx context.Context, alertID, userID int64) error
	CountByUser(ctx context.Context, userID int64) (total, active int64, err error)
}

// UserStoreInterface defines the user account operations.
type UserStoreInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, firstName, lastName string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// CategoryStoreInterface defines the category listing operation.
type CategoryStoreInterface interface {
	List(ctx context.Context) ([]*models.Category, error)
}

// HistoryStoreInterface defines the price history operation.
type HistoryStoreInterface interface {
	PriceHistory(ctx context.Context, productID int64, since time.Time, retailerDomain string) ([]*models.PricePoint, error)
}

// RecommendationStoreInterface defines the recommendation lookup operation.
type RecommendationStoreInterface interface {
	Latest(ctx context.Context, productID int64) (*models.PriceRecommendation, error)
}

// RetailerStoreInterface defines the admin retailer operations.
type RetailerStoreInterface interface {
	List(ctx context.Context) ([]*models.Retailer, error)
	Create(ctx context.Context, retailer *models.Retailer) error
	Update(ctx context.Context, retailer *models.Retailer) error
	GetByID(ctx context.Context, id int64) (*models.Retailer, error)
	Status(ctx context.Context) ([]*storage.ScrapingStatus, error)
}

// TrendStoreInterface defines the optional archived trend lookup. May be
// left unset when the archive is disabled.
type TrendStoreInterface interface {
	DailyTrend(ctx context.Context, productID int64, days int) ([]*storage.TrendPoint, error)
}

// Server represents the HTTP API server.
type Server struct {
	router          *mux.Router
	httpServer      *http.Server
	config          *ServerConfig
	logger          *logging.Logger
	tokens          *auth.TokenManager
	hasher          *auth.Hasher
	validate        *validator.Validate
	limiter         *ratelimit.Limiter
	products        ProductStoreInterface
	alerts          AlertStoreInterface
	users           UserStoreInterface
	categories      CategoryStoreInterface
	history         HistoryStoreInterface
	recommendations RecommendationStoreInterface
	retailers       RetailerStoreInterface
	trends          TrendStoreInterface
	triggerScrape   func()
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Stores bundles the persistence dependencies of the server.
type Stores struct {
	Products        ProductStoreInterface
	Alerts          AlertStoreInterface
	Users           UserStoreInterface
	Categories      CategoryStoreInterface
	History         HistoryStoreInterface
	Recommendations RecommendationStoreInterface
	Retailers       RetailerStoreInterface
	Trends          TrendStoreInterface
}

// NewServer creates a new API server instance. triggerScrape may be nil when
// no scraper is attached to this process.
func NewServer(
	config *ServerConfig,
	logger *logging.Logger,
	tokens *auth.TokenManager,
	hasher *auth.Hasher,
	limiter *ratelimit.Limiter,
	stores *Stores,
	triggerScrape func(),
) *Server {
	s := &Server{
		router:          mux.NewRouter(),
		config:          config,
		logger:          logger,
		tokens:          tokens,
		hasher:          hasher,
		validate:        validator.New(),
		limiter:         limiter,
		products:        stores.Products,
		alerts:          stores.Alerts,
		users:           stores.Users,
		categories:      stores.Categories,
		history:         stores.History,
		recommendations: stores.Recommendations,
		retailers:       stores.Retailers,
		trends:          stores.Trends,
		triggerScrape:   triggerScrape,
	}

	s.setupRouter()

	return s
}

// Handler exposes the configured router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Order matters: request IDs first so every later log line carries one.
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(s.limiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Auth endpoints
	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")

	// Product endpoints. Static paths register before the {id} patterns.
	api.HandleFunc("/products/search", s.handleSearchProducts).Methods("GET")
	api.HandleFunc("/products/categories", s.handleGetCategories).Methods("GET")
	api.Handle("/products/track", s.requireAuth(http.HandlerFunc(s.handleTrackProduct))).Methods("POST")
	api.HandleFunc("/products/{id}", s.handleGetProduct).Methods("GET")
	api.HandleFunc("/products/{id}/price-history", s.handleGetPriceHistory).Methods("GET")
	api.HandleFunc("/products/{id}/recommendations", s.handleGetRecommendations).Methods("GET")
	api.HandleFunc("/products/{id}/trend", s.handleGetTrend).Methods("GET")

	// User endpoints (authenticated)
	user := api.PathPrefix("/user").Subrouter()
	user.Use(s.requireAuth)
	user.HandleFunc("/profile", s.handleGetProfile).Methods("GET")
	user.HandleFunc("/profile", s.handleUpdateProfile).Methods("PUT")
	user.HandleFunc("/alerts", s.handleListAlerts).Methods("GET")
	user.HandleFunc("/alerts/{id}", s.handleUpdateAlert).Methods("PUT")
	user.HandleFunc("/alerts/{id}", s.handleDeleteAlert).Methods("DELETE")
	user.HandleFunc("/dashboard", s.handleUserDashboard).Methods("GET")

	// Admin endpoints (authenticated, premium)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAuth, s.requirePremium)
	admin.HandleFunc("/retailers", s.handleListRetailers).Methods("GET")
	admin.HandleFunc("/retailers", s.handleCreateRetailer).Methods("POST")
	admin.HandleFunc("/retailers/{id}", s.handleUpdateRetailer).Methods("PUT")
	admin.HandleFunc("/scraping/status", s.handleScrapingStatus).Methods("GET")
	admin.HandleFunc("/scraping/trigger", s.handleTriggerScrape).Methods("POST")
	admin.HandleFunc("/dashboard", s.handleAdminDashboard).Methods("GET")

	s.router.NotFoundHandler = s.withMiddleware(http.HandlerFunc(s.handleNotFound))
}

// withMiddleware applies the full middleware stack to handlers outside the
// router's matched chain (mux does not run Use middleware for the
// NotFoundHandler), so unmatched routes still get request IDs, logging and
// rate-limit accounting.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return RequestIDMiddleware(
		LoggingMiddleware(s.logger)(
			RecoveryMiddleware(s.logger)(
				CORSMiddleware(
					RateLimitMiddleware(s.limiter)(
						CompressionMiddleware(next))))))
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "price-tracker",
	})
}

// handleNotFound returns the uniform envelope for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, `{"success":false,"error":{"code":"NOT_FOUND","message":"route not found"}}`)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
