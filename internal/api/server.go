package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/auth"
	"github.com/tenant-hub/tenant-hub-server/internal/billing"
	"github.com/tenant-hub/tenant-hub-server/internal/config"
	"github.com/tenant-hub/tenant-hub-server/internal/deviceplatform"
	"github.com/tenant-hub/tenant-hub-server/internal/provision"
	"github.com/tenant-hub/tenant-hub-server/internal/storage"
	"github.com/tenant-hub/tenant-hub-server/internal/tasks"
	"github.com/tenant-hub/tenant-hub-server/internal/validation"
)

// DeviceAPI is the slice of the device platform client the REST
// server needs for pass-through and maintenance endpoints
type DeviceAPI interface {
	Login(ctx context.Context, username, password string) (*deviceplatform.TokenPair, error)
	ListTenants(ctx context.Context, token string) ([]deviceplatform.Tenant, error)
	ListTenantProfiles(ctx context.Context, token string) ([]deviceplatform.TenantProfile, error)
	ListTenantUsers(ctx context.Context, token, tenantID string) ([]deviceplatform.User, error)
	SetUserCredentialsEnabled(ctx context.Context, token, userID string, enabled bool) error
}

// BillingSync runs one billing sync pass
type BillingSync interface {
	Sync(ctx context.Context) (*billing.SyncResult, error)
}

// RESTServer represents the REST API server
type RESTServer struct {
	config      *config.Config
	store       storage.Store
	auth        *auth.JWTManager
	validator   *validation.Validator
	devices     DeviceAPI
	provisioner *provision.Engine
	tasks       *tasks.Service
	billing     BillingSync
	router      chi.Router
	server      *http.Server
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, store storage.Store, devices DeviceAPI, provisioner *provision.Engine, taskSvc *tasks.Service, billingSync BillingSync) *RESTServer {
	s := &RESTServer{
		config:      cfg,
		store:       store,
		auth:        auth.NewJWTManager(&cfg.JWT),
		validator:   validation.NewValidator(),
		devices:     devices,
		provisioner: provisioner,
		tasks:       taskSvc,
		billing:     billingSync,
		router:      chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Prometheus metrics
	s.router.Handle("/metrics", promhttp.Handler())

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr

	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware is the authentication middleware
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		// Parse Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		// Validate token
		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		// Add claims to context
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const claimsContextKey contextKey = "claims"

// claimsFromContext returns the authenticated claims, or nil on a
// public route
func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}
