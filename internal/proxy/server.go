// Package proxy is the HTTP front of the system: an OpenAI-compatible
// reverse proxy that cloaks entities in outbound prompts and uncloaks
// placeholders in responses, including streamed ones.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/llm-cloak/internal/cache"
	"github.com/raaihank/llm-cloak/internal/cloak"
	"github.com/raaihank/llm-cloak/internal/config"
	"github.com/raaihank/llm-cloak/internal/detect"
	"github.com/raaihank/llm-cloak/internal/entity"
	"github.com/raaihank/llm-cloak/internal/logger"
	"github.com/raaihank/llm-cloak/internal/lookup"
	"github.com/raaihank/llm-cloak/internal/store"
	"github.com/raaihank/llm-cloak/internal/web"
	"github.com/raaihank/llm-cloak/internal/websocket"
	"go.uber.org/zap"
)

// Server represents the main proxy server
type Server struct {
	config *config.Config
	logger *logger.Logger
	shield *cloak.Shield
	router *mux.Router
	server *http.Server
	wsHub  *websocket.Hub
	cache  *cache.DetectionCache
	store  *store.Store
	client *http.Client

	limiters *clientLimiters
}

// New creates a new proxy server instance
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	// Build the detection pipeline: embedded lookup corpora, the waterfall
	// engine, and an optional Redis cache in front of it.
	provider := lookup.NewProvider(log.WithComponent("lookup").Logger)
	if err := provider.Ensure(); err != nil {
		return nil, fmt.Errorf("failed to load lookup corpora: %w", err)
	}

	var detector cloak.Detector = detect.NewEngine(provider, log.WithComponent("detect").Logger)

	var detectionCache *cache.DetectionCache
	if cfg.Cache.Enabled {
		var err error
		detectionCache, err = cache.New(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create detection cache: %w", err)
		}
		detector = &cachingDetector{
			inner:  detector,
			cache:  detectionCache,
			logger: log.WithComponent("cache").Logger,
		}
	}

	shield, err := cloak.New(cloak.Config{
		StartDelimiter: cfg.Cloak.StartDelimiter,
		EndDelimiter:   cfg.Cloak.EndDelimiter,
	}, detector, log.WithComponent("cloak").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create shield: %w", err)
	}

	var auditStore *store.Store
	if cfg.Audit.Enabled {
		auditStore, err = store.New(&store.Config{
			DatabaseURL:     cfg.Audit.DatabaseURL,
			MaxOpenConns:    cfg.Audit.MaxOpenConns,
			MaxIdleConns:    cfg.Audit.MaxIdleConns,
			ConnMaxLifetime: cfg.Audit.ConnMaxLifetime,
		}, log.WithComponent("store").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit store: %w", err)
		}
	}

	// Create WebSocket hub
	wsHub := websocket.NewHub(log.WithComponent("websocket").Logger)

	// Create router
	router := mux.NewRouter()

	server := &Server{
		config: cfg,
		logger: log.WithComponent("proxy"),
		shield: shield,
		router: router,
		wsHub:  wsHub,
		cache:  detectionCache,
		store:  auditStore,
		client: &http.Client{
			Timeout: cfg.Upstream.Timeout,
		},
		limiters: newClientLimiters(cfg.RateLimit),
	}

	// Setup routes
	server.setupRoutes()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Dashboard
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	// WebSocket endpoint for dashboard
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	// OpenAI-compatible API surface
	apiRouter := s.router.PathPrefix("/v1").Subrouter()
	apiRouter.Use(s.loggingMiddleware)
	apiRouter.Use(s.rateLimitMiddleware)
	apiRouter.HandleFunc("/chat/completions", s.handleChatCompletions).Methods("POST")
	apiRouter.PathPrefix("/").HandlerFunc(s.handlePassthrough)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting llm-cloak proxy server",
		zap.Int("port", s.config.Server.Port),
		zap.String("upstream_openai", s.config.Upstream.OpenAI),
		zap.Bool("cloak_enabled", s.config.Cloak.Enabled),
		zap.Bool("cache_enabled", s.config.Cache.Enabled),
		zap.Bool("audit_enabled", s.config.Audit.Enabled),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping llm-cloak proxy server")
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("Failed to close detection cache", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("Failed to close audit store", zap.Error(err))
		}
	}
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"name":"llm-cloak",
		"version":"0.1.0",
		"cloak_enabled":%t,
		"cache_enabled":%t,
		"connected_clients":%d
	}`, s.config.Cloak.Enabled, s.config.Cache.Enabled, s.wsHub.ClientCount())
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

// cachingDetector consults the Redis cache before running the detection
// waterfall. Cache failures degrade to a plain detection run.
type cachingDetector struct {
	inner  cloak.Detector
	cache  *cache.DetectionCache
	logger *zap.Logger
}

func (d *cachingDetector) Detect(text string) entity.Collection {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if cached, ok := d.cache.Get(ctx, text); ok {
		return cached
	}
	entities := d.inner.Detect(text)
	if err := d.cache.Store(ctx, text, entities); err != nil {
		d.logger.Debug("Detection result not cached", zap.Error(err))
	}
	return entities
}
