// Package service wires the voicematch subsystems into a running server.
//
// New creates and connects all subsystems, Run serves HTTP and keeps the
// catalog fresh until the context is cancelled, and Shutdown tears everything
// down in order.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/maalaph/voicematch/internal/catalog"
	"github.com/maalaph/voicematch/internal/catalog/elevenlabs"
	"github.com/maalaph/voicematch/internal/catalog/pgstore"
	"github.com/maalaph/voicematch/internal/config"
	"github.com/maalaph/voicematch/internal/health"
	"github.com/maalaph/voicematch/internal/match"
	"github.com/maalaph/voicematch/internal/mcptool"
	"github.com/maalaph/voicematch/internal/observe"
)

// drainTimeout bounds how long Run waits for in-flight HTTP requests after
// the context is cancelled.
const drainTimeout = 10 * time.Second

// Service owns every subsystem of the voicematch server: the catalog store
// and its refresher, the matcher, the MCP tool server, and the operational
// HTTP surface.
type Service struct {
	cfg     *config.Config
	cfgPath string
	level   *slog.LevelVar
	log     *slog.Logger
	metrics *observe.Metrics

	registry  *config.Registry
	provider  catalog.Provider
	store     *catalog.Store
	cache     catalog.Cache
	pool      *pgxpool.Pool
	matcher   atomic.Pointer[match.Matcher]
	refresher *catalog.Refresher
	tools     *mcptool.Server
	httpSrv   *http.Server
	watcher   *config.Watcher

	closers  []func() error
	stopOnce sync.Once
}

// Option customises Service construction, mainly to inject test doubles.
type Option func(*Service)

// WithProvider injects the catalog provider directly, bypassing the registry.
func WithProvider(p catalog.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithCache injects a catalog cache instead of connecting to PostgreSQL.
func WithCache(c catalog.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithRegistry replaces [DefaultRegistry] as the provider factory source.
func WithRegistry(reg *config.Registry) Option {
	return func(s *Service) { s.registry = reg }
}

// WithLogger sets the service logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the metric instruments. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithConfigFile enables hot reloading: the service watches path and applies
// safe changes (log level, matcher tuning) without a restart.
func WithConfigFile(path string) Option {
	return func(s *Service) { s.cfgPath = path }
}

// WithLogLevelVar hands the service the level var behind its log handler so
// a config reload can change verbosity at runtime.
func WithLogLevelVar(lv *slog.LevelVar) Option {
	return func(s *Service) { s.level = lv }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New builds a Service from cfg. The configuration must already have passed
// [config.Validate].
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("service: nil config")
	}

	s := &Service{
		cfg:   cfg,
		store: catalog.NewStore(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	// ── 1. Catalog provider ──────────────────────────────────────────────
	if err := s.initProvider(); err != nil {
		return nil, fmt.Errorf("service: init provider: %w", err)
	}

	// ── 2. Postgres catalog cache ────────────────────────────────────────
	if err := s.initCache(ctx); err != nil {
		return nil, fmt.Errorf("service: init cache: %w", err)
	}

	// ── 3. Matcher ───────────────────────────────────────────────────────
	if err := s.initMatcher(); err != nil {
		return nil, fmt.Errorf("service: init matcher: %w", err)
	}

	// ── 4. Catalog refresher ─────────────────────────────────────────────
	if err := s.initRefresher(); err != nil {
		return nil, fmt.Errorf("service: init refresher: %w", err)
	}

	// ── 5. MCP tool server ───────────────────────────────────────────────
	if err := s.initTools(); err != nil {
		return nil, fmt.Errorf("service: init tools: %w", err)
	}

	// ── 6. HTTP surface ──────────────────────────────────────────────────
	s.initHTTP()

	// ── 7. Config reload watcher ─────────────────────────────────────────
	if err := s.initReload(); err != nil {
		return nil, fmt.Errorf("service: init config reload: %w", err)
	}

	return s, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initProvider resolves the catalog provider from the registry unless one
// was injected.
func (s *Service) initProvider() error {
	if s.provider != nil {
		return nil // injected
	}

	reg := s.registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	p, err := reg.Create(s.cfg.Catalog)
	if err != nil {
		return err
	}
	s.provider = p
	s.log.Info("catalog provider created", "provider", s.cfg.Catalog.Provider)
	return nil
}

// initCache connects the PostgreSQL catalog cache when a DSN is configured.
// Without one the service runs cache-less and a cold start needs a reachable
// provider.
func (s *Service) initCache(ctx context.Context) error {
	if s.cache != nil {
		return nil // injected
	}
	dsn := s.cfg.Catalog.PostgresDSN
	if dsn == "" {
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	store := pgstore.New(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return err
	}

	s.pool = pool
	s.cache = store
	s.closers = append(s.closers, func() error {
		pool.Close()
		return nil
	})
	s.log.Info("catalog cache connected")
	return nil
}

// initMatcher builds the matcher and parks it behind an atomic pointer so a
// config reload can swap it without stopping traffic.
func (s *Service) initMatcher() error {
	m, err := buildMatcher(s.cfg.Matcher, s.log)
	if err != nil {
		return err
	}
	s.matcher.Store(m)
	return nil
}

func (s *Service) initRefresher() error {
	interval, err := s.cfg.Catalog.Interval()
	if err != nil {
		return fmt.Errorf("parse refresh interval: %w", err)
	}
	s.refresher = catalog.NewRefresher(catalog.RefresherConfig{
		Provider: s.provider,
		Store:    s.store,
		Cache:    s.cache,
		Interval: interval,
		Logger:   s.log,
		Metrics:  s.metrics,
	})
	s.closers = append(s.closers, func() error {
		s.refresher.Stop()
		return nil
	})
	return nil
}

// initTools builds the MCP server exposing the search_voices tool.
func (s *Service) initTools() error {
	tools, err := mcptool.New(mcptool.Config{
		Engine:            s,
		Source:            s.store,
		DefaultMaxResults: s.cfg.Matcher.MaxResults,
		Logger:            s.log,
		Metrics:           s.metrics,
	})
	if err != nil {
		return err
	}
	s.tools = tools
	return nil
}

// initHTTP assembles the mux: health probes, Prometheus metrics, and the MCP
// endpoint, all behind the observability middleware.
func (s *Service) initHTTP() {
	checkers := []health.Checker{{
		Name: "catalog",
		Check: func(context.Context) error {
			if !s.store.Ready() {
				return errors.New("no catalog snapshot loaded")
			}
			return nil
		},
	}}
	if s.pool != nil {
		checkers = append(checkers, health.Checker{
			Name:  "postgres",
			Check: s.pool.Ping,
		})
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/mcp", s.tools.Handler())

	// No write timeout: the MCP endpoint streams responses.
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(s.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// initReload starts the config file watcher when hot reload is enabled.
func (s *Service) initReload() error {
	if s.cfgPath == "" {
		return nil
	}
	w, err := config.NewWatcher(s.cfgPath, s.onConfigChange)
	if err != nil {
		return err
	}
	s.watcher = w
	s.closers = append(s.closers, func() error {
		w.Stop()
		return nil
	})
	s.log.Info("config hot reload enabled", "path", s.cfgPath)
	return nil
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run loads the first catalog snapshot, then serves HTTP and refreshes the
// catalog until ctx is cancelled. It returns [context.Canceled] after a clean
// shutdown and the first hard error otherwise.
func (s *Service) Run(ctx context.Context) error {
	// First catalog load before accepting traffic. Failure is not fatal:
	// /readyz stays red and the refresh loop keeps retrying.
	if err := s.refresher.Prime(ctx); err != nil {
		s.log.Error("initial catalog load failed, retrying in the background", "err", err)
	}

	s.refresher.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	// ── HTTP server ──────────────────────────────────────────────────────
	g.Go(func() error {
		s.log.Info("http server listening",
			"addr", s.httpSrv.Addr,
			"tls", s.cfg.Server.TLS != nil)
		var err error
		if tls := s.cfg.Server.TLS; tls != nil {
			err = s.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("service: http server: %w", err)
	})

	// ── Drain on cancellation ────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(drainCtx); err != nil {
			s.log.Warn("http drain error", "err", err)
		}
		return gctx.Err()
	})

	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down subsystems in reverse init order: the config watcher
// first, then the refresher, then the cache pool. It respects the context
// deadline: if ctx expires, remaining closers are skipped and the context
// error is returned.
func (s *Service) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.stopOnce.Do(func() {
		s.log.Info("shutting down", "closers", len(s.closers))

		for i := len(s.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				s.log.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := s.closers[i](); err != nil {
				s.log.Warn("closer error", "index", i, "err", err)
			}
		}

		s.log.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Config reload ───────────────────────────────────────────────────────────

// onConfigChange applies a changed configuration to the running service. Log
// level and matcher tuning take effect immediately; catalog and server
// changes need a restart and are only reported.
func (s *Service) onConfigChange(old, new *config.Config) {
	diff := config.Diff(old, new)
	if !diff.Changed() {
		return
	}

	if diff.LogLevelChanged {
		if s.level != nil {
			s.level.Set(diff.NewLogLevel.Level())
			s.log.Info("log level updated", "level", diff.NewLogLevel)
		} else {
			s.log.Warn("log level changed in config but the handler level is fixed, restart to apply")
		}
	}

	if diff.MatcherChanged {
		m, err := buildMatcher(new.Matcher, s.log)
		if err != nil {
			s.log.Error("matcher rebuild failed, keeping the previous matcher", "err", err)
		} else {
			s.matcher.Store(m)
			s.tools.SetDefaultMaxResults(new.Matcher.MaxResults)
			s.log.Info("matcher rebuilt",
				"strict_gender", new.Matcher.StrictGender,
				"max_results", new.Matcher.MaxResults,
				"vocabulary_file", new.Matcher.VocabularyFile)
		}
	}

	if diff.CatalogChanged || diff.ServerChanged {
		s.log.Warn("catalog or server configuration changed, restart to apply")
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// MatchSnapshot implements [mcptool.Engine] against whichever matcher is
// current, so tool calls pick up config reloads without a new tool server.
func (s *Service) MatchSnapshot(snap *catalog.Snapshot, description string, maxResults int) []match.Result {
	return s.matcher.Load().MatchSnapshot(snap, description, maxResults)
}

// Handler exposes the service mux, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Ready reports whether a catalog snapshot has been loaded.
func (s *Service) Ready() bool {
	return s.store.Ready()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// DefaultRegistry returns a [config.Registry] with the built-in catalog
// providers registered: "elevenlabs" (live API) and "file" (YAML seed).
func DefaultRegistry() *config.Registry {
	reg := config.NewRegistry()

	reg.Register(config.ProviderElevenLabs, func(cc config.CatalogConfig) (catalog.Provider, error) {
		var opts []elevenlabs.Option
		if cc.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(cc.BaseURL))
		}
		return elevenlabs.New(cc.APIKey, opts...)
	})

	reg.Register(config.ProviderFile, func(cc config.CatalogConfig) (catalog.Provider, error) {
		return catalog.NewFileProvider(cc.SeedFile), nil
	})

	return reg
}

// buildMatcher assembles a matcher from the matcher section of the config.
func buildMatcher(mc config.MatcherConfig, log *slog.Logger) (*match.Matcher, error) {
	opts := []match.Option{
		match.WithStrictGender(mc.StrictGender),
		match.WithLogger(log),
	}
	if mc.VocabularyFile != "" {
		vocab, err := match.LoadVocabularyFile(mc.VocabularyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, match.WithVocabulary(vocab))
	}
	return match.New(opts...), nil
}
