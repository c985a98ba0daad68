// file: internal/server/server.go
// version: 2.1.0
// guid: 4c5d6e7f-8a9b-0c1d-2e3f-4a5b6c7d8e9f

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/book-search/internal/cache"
	"github.com/jdfalk/book-search/internal/catalog"
	"github.com/jdfalk/book-search/internal/config"
	"github.com/jdfalk/book-search/internal/database"
	"github.com/jdfalk/book-search/internal/metrics"
	"github.com/jdfalk/book-search/internal/realtime"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/jdfalk/book-search/internal/server/middleware"
	"github.com/jdfalk/book-search/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

// Options wires the server to its dependencies.
type Options struct {
	Registry *search.Registry
	Store    database.Store
	// Catalog is optional; catalog routes answer 503 without it.
	Catalog *catalog.Catalog
	Hub     *realtime.EventHub
	Network search.NetworkChecker
	Cache   *cache.Cache[search.BookData]

	SessionTTL         time.Duration
	FetchCovers        bool
	StrictISBN         bool
	RateLimitPerMinute int
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine

	opts     Options
	registry *search.Registry
	store    database.Store
	sites    *database.SiteSettings
	catalog  *catalog.Catalog
	hub      *realtime.EventHub
	sessions *session.Manager
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new server instance
func NewServer(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = search.NewRegistry()
	}
	if opts.Store == nil {
		opts.Store = database.NewMemoryStore()
	}
	if opts.Hub == nil {
		opts.Hub = realtime.NewEventHub()
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDs())
	router.Use(corsMiddleware())

	// Register metrics (idempotent)
	metrics.Register()

	s := &Server{
		router:   router,
		opts:     opts,
		registry: opts.Registry,
		store:    opts.Store,
		sites:    database.NewSiteSettings(opts.Store, opts.Registry),
		catalog:  opts.Catalog,
		hub:      opts.Hub,
	}
	s.sessions = session.NewManager(s.newCoordinator, opts.Hub, opts.SessionTTL)

	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// newCoordinator builds the coordinator of a new session from the stored
// data site list and the search settings.
func (s *Server) newCoordinator(sessionID, owner string) *search.Coordinator {
	sites, err := s.sites.Sites(search.SiteTypeData)
	if err != nil {
		log.Printf("[WARN] session %s: using default sites: %v", sessionID, err)
		sites = nil
	}
	callerID := owner
	if callerID == "" {
		callerID = "api"
	}
	var covers search.Covers
	if s.opts.FetchCovers {
		covers[0] = true
	}
	coord := search.NewCoordinator(search.Options{
		Registry:    s.registry,
		Sites:       sites,
		Network:     s.opts.Network,
		Prompter:    &sessionPrompter{sessionID: sessionID, hub: s.hub, filter: s.store},
		CallerID:    callerID,
		Cache:       s.opts.Cache,
		FetchCovers: covers,
	})
	coord.SetStrictISBN(s.opts.StrictISBN)
	return coord
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM.
func (s *Server) Start(cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           cfg.Addr,
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	s.sessions.Start(time.Minute)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Heartbeat: push periodic system.status events via SSE while running
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	stopHeartbeat := make(chan struct{})
	go s.heartbeat(5*time.Second, stopHeartbeat)

	select {
	case <-quit:
	case err := <-errCh:
		close(stopHeartbeat)
		s.sessions.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}
	close(stopHeartbeat)

	log.Println("[INFO] Shutting down server...")

	s.hub.Broadcast(&realtime.Event{
		Type:      "system.shutdown",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message": "Server is shutting down",
		},
	})
	// Give clients a moment to receive the event
	time.Sleep(500 * time.Millisecond)

	s.sessions.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("[INFO] Server exited")
	return nil
}

func (s *Server) heartbeat(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.hub.SendSystemStatus(s.systemStatus(context.Background()))
		case <-stop:
			return
		}
	}
}

// systemStatus gathers lightweight metrics and updates the gauges.
func (s *Server) systemStatus(ctx context.Context) map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := map[string]interface{}{
		"sessions":     s.sessions.Count(),
		"sse_clients":  s.hub.GetClientCount(),
		"memory_alloc": mem.Alloc,
		"goroutines":   runtime.NumGoroutine(),
		"timestamp":    time.Now().Unix(),
	}
	if s.catalog != nil {
		if n, err := s.catalog.Count(ctx); err == nil {
			metrics.SetCatalogBooks(n)
			status["catalog_books"] = n
		} else {
			log.Printf("[DEBUG] Heartbeat: failed to count catalog books: %v", err)
		}
	}
	return status
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	limiter := middleware.NewIPRateLimiter(s.opts.RateLimitPerMinute, 20).
		Exempt("/health", "/api/v1/health", "/api/v1/events", "/metrics")

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")
	api.Use(middleware.BasicAuth())
	if s.opts.RateLimitPerMinute > 0 {
		api.Use(limiter.Middleware())
	}
	api.Use(middleware.MaxRequestBodySize(64<<10, 4<<20))
	{
		api.GET("/health", s.healthCheck)
		api.GET("/events", s.handleEvents)

		// Search sessions
		api.POST("/sessions", s.createSession)
		api.GET("/sessions", s.listSessions)
		api.GET("/sessions/:id", s.getSession)
		api.DELETE("/sessions/:id", s.deleteSession)
		api.PUT("/sessions/:id/criteria", s.setCriteria)
		api.POST("/sessions/:id/search", s.startSearch)
		api.POST("/sessions/:id/search/external", s.startExternalSearch)
		api.POST("/sessions/:id/search/native", s.startNativeSearch)
		api.POST("/sessions/:id/cancel", s.cancelSearch)
		api.GET("/sessions/:id/result", s.getResult)
		api.GET("/sessions/:id/sites", s.getSessionSites)
		api.PUT("/sessions/:id/sites", s.setSessionSites)

		// Site lists and engines
		api.GET("/sites", s.listSites)
		api.PUT("/sites/:type", s.setSites)
		api.DELETE("/sites/:type", s.resetSites)
		api.POST("/sites/register", s.registerSites)
		api.GET("/engines", s.listEngines)
		api.GET("/engines/:engine/url/:id", s.engineURL)
		api.DELETE("/prompts", s.showPrompts)

		// Local catalog
		api.POST("/catalog", s.addToCatalog)
		api.GET("/catalog/search", s.searchCatalog)
		api.GET("/catalog/:id", s.getCatalogBook)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status: "ok",
		Data: gin.H{
			"version":  version,
			"engines":  len(s.registry.IDs()),
			"sessions": s.sessions.Count(),
			"catalog":  s.catalog != nil,
			"auth":     config.AppConfig.BasicAuthEnabled,
		},
	})
}

func (s *Server) handleEvents(c *gin.Context) {
	s.hub.HandleSSE(c)
}
