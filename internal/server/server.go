// Package server assembles the HTTP + WebSocket API: routing, CORS, request
// logging, optional API-key auth, and redis-backed rate limiting on the
// mutating endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cricketattax/auctioneer/internal/domain"
	"github.com/cricketattax/auctioneer/internal/server/handler"
	"github.com/cricketattax/auctioneer/internal/server/middleware"
	"github.com/cricketattax/auctioneer/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// WriteRateLimit is the per-client request budget per second on the
	// mutating REST endpoints. Zero disables the limit.
	WriteRateLimit int
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health *handler.HealthHandler
	Teams  *handler.TeamHandler
	Pools  *handler.PoolHandler
	State  *handler.StateHandler
	Photos *handler.PhotoHandler // nil when blob storage is not configured
}

// Server is the HTTP + WebSocket front of the auction backend.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. The limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Rate limit only the mutating endpoints; snapshot pulls stay cheap.
	throttled := func(h http.HandlerFunc) http.Handler {
		if limiter == nil || cfg.WriteRateLimit <= 0 {
			return h
		}
		return middleware.RateLimit(limiter, cfg.WriteRateLimit, time.Second)(h)
	}

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Teams.
	mux.HandleFunc("GET /api/teams", handlers.Teams.ListTeams)
	mux.Handle("POST /api/teams", throttled(handlers.Teams.CreateTeam))
	mux.Handle("POST /api/remove-team", throttled(handlers.Teams.RemoveTeam))

	// Pools and items.
	mux.HandleFunc("GET /api/pools", handlers.Pools.ListPools)
	mux.HandleFunc("GET /api/items", handlers.Pools.ListItems)
	mux.Handle("POST /api/upload-pool", throttled(handlers.Pools.UploadPool))
	mux.HandleFunc("GET /api/current-pool", handlers.Pools.GetCurrentPool)
	mux.Handle("POST /api/set-current-pool", throttled(handlers.Pools.SetCurrentPool))
	mux.Handle("POST /api/clear-pools", throttled(handlers.Pools.ClearPools))
	mux.Handle("POST /api/clear-all-data", throttled(handlers.Pools.ClearAllData))

	// Auction state snapshots.
	mux.HandleFunc("GET /api/current-bid", handlers.State.GetCurrentBid)
	mux.HandleFunc("GET /api/auction-status", handlers.State.GetAuctionStatus)
	mux.HandleFunc("GET /api/sold-records", handlers.State.ListSoldRecords)

	// Item photos.
	if handlers.Photos != nil {
		mux.HandleFunc("GET /api/photos/{key...}", handlers.Photos.GetPhoto)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
