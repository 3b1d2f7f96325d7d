// Package server provides the HTTP and websocket surface of the concierge.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/zavatech/agent-concierge/internal/agents"
	appconfig "github.com/zavatech/agent-concierge/internal/config"
	"github.com/zavatech/agent-concierge/internal/metrics"
	"github.com/zavatech/agent-concierge/internal/platform"
	"github.com/zavatech/agent-concierge/internal/router"
	"github.com/zavatech/agent-concierge/internal/tools"
	"github.com/zavatech/agent-concierge/internal/tools/discount"
	"github.com/zavatech/agent-concierge/internal/tools/imagegen"
	"github.com/zavatech/agent-concierge/internal/tools/inventory"
	"github.com/zavatech/agent-concierge/internal/tools/productsearch"
	"github.com/zavatech/agent-concierge/pkg/health"
	"github.com/zavatech/agent-concierge/pkg/httpmiddleware"
	"github.com/zavatech/agent-concierge/pkg/logger"
)

// Server encapsulates all concierge components and lifecycle management
type Server struct {
	cfg     *appconfig.AppConfig
	log     logger.Logger
	metrics *metrics.Metrics
	checker *health.Checker

	platformClient *platform.Client
	handoff        *router.Router
	directory      *agents.Directory
	cache          *agents.Cache

	httpServer *http.Server
}

// New creates a new Server instance with all components initialized
func New(cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
	}

	// Shared API client for the agent platform, the router classifier and
	// image generation. Failed calls fall back locally, so no retries.
	modelClient := openai.NewClient(
		azure.WithEndpoint(cfg.Platform.Endpoint, cfg.Platform.APIVersion),
		azure.WithAPIKey(cfg.Platform.APIKey),
		option.WithMaxRetries(0),
	)

	var err error
	s.platformClient, err = platform.NewClient(platform.Config{
		Client:  &modelClient,
		Timeout: cfg.Platform.Timeout,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create platform client: %w", err)
	}

	registry, err := s.createToolRegistry(&modelClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool registry: %w", err)
	}

	s.directory, err = agents.NewDirectory(cfg.Agents)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent directory: %w", err)
	}

	s.cache, err = agents.NewCache(agents.CacheConfig{
		Client:   s.platformClient,
		Registry: registry,
		Metrics:  s.metrics,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create processor cache: %w", err)
	}

	s.handoff, err = router.New(router.Config{
		Client:     &modelClient,
		Deployment: cfg.Router.Deployment,
		MaxHistory: cfg.Router.MaxHistory,
		Timeout:    cfg.Router.Timeout,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create handoff router: %w", err)
	}

	s.checker = health.New(health.WithLogger(log))
	s.checker.AddLivenessCheck(health.NewCheckFunc("process", func(context.Context) error {
		return nil
	}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.createRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	log.Info("Server initialized", logger.IntField("port", cfg.Port))
	return s, nil
}

// createToolRegistry builds the static agent-type to toolset mapping and
// validates it at startup.
func (s *Server) createToolRegistry(modelClient *openai.Client) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	registry.Register(router.AgentCustomerLoyalty, discount.New(s.log))
	registry.Register(router.AgentInventory, inventory.New(s.log))

	imageTool, err := imagegen.New(imagegen.Config{
		Client:     modelClient,
		Deployment: s.cfg.Images.Deployment,
		Size:       s.cfg.Images.Size,
		Logger:     s.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image tool: %w", err)
	}
	registry.Register(router.AgentInteriorDesigner, imageTool)

	if s.cfg.Search.Enabled() {
		searchTool, err := productsearch.New(productsearch.Config{
			Endpoint:   s.cfg.Search.Endpoint,
			Index:      s.cfg.Search.Index,
			APIKey:     s.cfg.Search.APIKey,
			APIVersion: s.cfg.Search.APIVersion,
			Timeout:    s.cfg.Search.Timeout,
			Logger:     s.log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create product search tool: %w", err)
		}
		registry.Register(router.AgentInteriorDesigner, searchTool)
		registry.Register(router.AgentInventory, searchTool)
		s.log.Info("Product search tool enabled", logger.StringField("index", s.cfg.Search.Index))
	} else {
		s.log.Info("Product search tool disabled (missing SEARCH_ENDPOINT or SEARCH_API_KEY)")
	}

	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("tool registry validation failed: %w", err)
	}
	return registry, nil
}

// createRouter sets up all routes and middleware
func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.Security(nil))
	r.Use(httpmiddleware.CORS(s.corsConfig()))
	r.Use(s.log.HTTPMiddleware)

	r.Get("/healthz", s.checker.LivenessHandler())
	r.Get("/readyz", s.checker.ReadinessHandler())
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/ws/chat", s.handleChat)

	return r
}

func (s *Server) corsConfig() httpmiddleware.CORSConfig {
	cfg := httpmiddleware.DefaultCORSConfig()
	if len(s.cfg.Security.CORSAllowedOrigins) > 0 {
		cfg.AllowedOrigins = s.cfg.Security.CORSAllowedOrigins
	}
	return cfg
}

// Listen starts the HTTP server and returns an error channel plus forced and
// graceful close functions.
func (s *Server) Listen() (chan error, func(), func()) {
	errChan := make(chan error, 1)

	go func() {
		s.log.Info("Starting HTTP server", logger.StringField("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	closer := func() {
		s.log.Info("Forcefully closing HTTP server")
		if err := s.httpServer.Close(); err != nil {
			s.log.Error("Error during forced shutdown", logger.ErrorField(err))
		}
		s.cache.Close()
	}

	gracefulCloser := func() {
		s.log.Info("Gracefully closing HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error("Error during graceful shutdown", logger.ErrorField(err))
		}
		s.cache.Close()
	}

	return errChan, closer, gracefulCloser
}
