package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/packhouse/packhouse/pkg/cache"
	"github.com/packhouse/packhouse/pkg/command"
	"github.com/packhouse/packhouse/pkg/executor"
	"github.com/packhouse/packhouse/pkg/installed"
	"github.com/packhouse/packhouse/pkg/manifest"
	"github.com/packhouse/packhouse/pkg/session"
)

// Server wires the HTTP routes to the engine and its collaborators.
type Server struct {
	cfg      Config
	logger   *log.Logger
	provider manifest.Provider
	store    *session.Store
	engine   *command.Engine

	closers []func() error
}

// New assembles a server from its configuration: cache backend (Redis
// or in-memory), installed-pack registry (MongoDB or in-memory), the
// queue executor recording into the registry, and the catalog provider.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	var backend cache.Cache
	if cfg.RedisURL != "" {
		redis, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		backend = redis
	} else {
		backend = cache.NewMemoryCache()
	}
	s.closers = append(s.closers, backend.Close)

	keyer := cache.NewDefaultKeyer()
	s.store = session.NewStore(backend, keyer, cfg.SessionTTL())

	var lookup installed.Lookup
	var recorder installed.Recorder
	if cfg.MongoURL != "" {
		registry, err := installed.NewMongoRegistry(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return registry.Close(context.Background()) })
		lookup, recorder = registry, registry
	} else {
		registry := installed.NewMemoryRegistry()
		lookup, recorder = registry, registry
	}

	exec := executor.NewQueueExecutor(installed.NewRegistryApplier(recorder), logger, cfg.ExecutorBuffer)
	s.closers = append(s.closers, exec.Close)

	s.engine = command.NewEngine(lookup, exec, logger)
	s.provider = manifest.NewCachedProvider(routingProvider{
		local:  manifest.NewFileProvider(cfg.CatalogPath),
		remote: manifest.NewHTTPProvider(nil),
	}, backend, keyer, 0)

	return s, nil
}

// routingProvider serves the configured catalog file for requests that
// name no repository and fetches remote catalogs over HTTP otherwise.
type routingProvider struct {
	local  manifest.Provider
	remote manifest.Provider
}

func (p routingProvider) Manifest(ctx context.Context, repoURL, ref string) (*manifest.Manifest, error) {
	if repoURL == "" {
		return p.local.Manifest(ctx, repoURL, ref)
	}
	return p.remote.Manifest(ctx, repoURL, ref)
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/hierarchy", s.handleHierarchy)
			r.Get("/graph", s.handleGraph)
			r.Get("/resolve", s.handleResolve)
		})
		r.Post("/session", s.handleSession)
	})

	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.Close()
}

// Close releases the server's backends in reverse acquisition order.
func (s *Server) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
