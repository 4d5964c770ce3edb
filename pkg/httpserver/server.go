package httpserver

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/relay"
	"github.com/predictpool/settlement/internal/storage"
	"github.com/predictpool/settlement/pkg/cache"
	"github.com/predictpool/settlement/pkg/healthprobe"
	"github.com/predictpool/settlement/pkg/websocket"
)

// Server exposes the settlement API, the relay endpoints, metrics and
// health checks.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Engine        *engine.Engine
	Coordinator   *relay.Coordinator
	Journal       storage.Journal // optional
	Cache         cache.Cache     // optional
	CacheTTL      time.Duration
	RelayFeed     *websocket.Hub // optional
	Faucet        Crediter       // optional, dev mode
	// OwnerToken, when set, is required as a bearer token on owner
	// operations in addition to the engine's identity check.
	OwnerToken string
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	roundHandler := NewRoundHandler(cfg.Engine, cfg.Cache, cfg.CacheTTL, cfg.Logger)
	predictionHandler := NewPredictionHandler(cfg.Engine, cfg.Logger)
	relayHandler := NewRelayHandler(cfg.Coordinator, cfg.Journal, cfg.Logger)
	adminHandler := NewAdminHandler(cfg.Engine, cfg.Faucet, cfg.Logger)

	// Public read and predictor endpoints.
	r.Get("/api/rounds", roundHandler.HandleList)
	r.Get("/api/rounds/{id}", roundHandler.HandleGet)
	r.Post("/api/predictions", predictionHandler.HandlePlace)
	r.Get("/api/predictions", predictionHandler.HandleList)
	r.Post("/api/predictions/{index}/claim", predictionHandler.HandleClaim)

	// Relay service endpoints.
	r.Get("/api/relay/pending", relayHandler.HandlePending)
	r.Get("/api/relay/{index}", relayHandler.HandleGet)
	r.Post("/api/relay/{index}/status", relayHandler.HandleUpdateStatus)

	// Owner operations: the engine checks identity; the bearer token adds
	// a transport-level gate when configured.
	r.Group(func(owner chi.Router) {
		owner.Use(bearerAuth(cfg.OwnerToken, cfg.Logger))
		owner.Post("/api/rounds", roundHandler.HandleCreate)
		owner.Post("/api/rounds/{id}/close", roundHandler.HandleClose)
		owner.Post("/api/rounds/{id}/settle", roundHandler.HandleSettle)
		owner.Post("/api/admin/pause", adminHandler.HandlePause)
		owner.Post("/api/admin/unpause", adminHandler.HandleUnpause)
		owner.Post("/api/admin/fee", adminHandler.HandleSetFee)
		owner.Post("/api/admin/withdraw-fees", adminHandler.HandleWithdrawFees)
		owner.Post("/api/admin/credit", adminHandler.HandleCredit)
	})

	// Relay feed websocket.
	if cfg.RelayFeed != nil {
		r.Get("/ws/relay", cfg.RelayFeed.HandleWS)
	}

	// Operational endpoints.
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server: server,
		logger: cfg.Logger,
	}
}

// Handler returns the server's root handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

// bearerAuth rejects requests without the expected bearer token. A
// constant-time comparison avoids leaking the token length position.
// With an empty expected token the middleware is a pass-through (dev mode).
func bearerAuth(token string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.Warn("owner-token-rejected", zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid owner token"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
