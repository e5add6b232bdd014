// Package server exposes the catalog over HTTP: live search on /ws and a
// health report on /healthz. When watching is enabled the catalog is
// reloaded whenever its source file changes and every connected page is
// told to refresh.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/shelfsearch/internal/config"
	"github.com/conneroisu/shelfsearch/internal/debounce"
	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/conneroisu/shelfsearch/internal/livesearch"
	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/conneroisu/shelfsearch/internal/middleware"
	"github.com/conneroisu/shelfsearch/internal/rowfilter"
	"github.com/conneroisu/shelfsearch/internal/source"
	"github.com/conneroisu/shelfsearch/internal/version"
	"github.com/conneroisu/shelfsearch/internal/watcher"
	"github.com/conneroisu/shelfsearch/internal/websocket"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Loader produces a fresh copy of the catalog table.
type Loader func(ctx context.Context) (*rowfilter.Table, error)

// Option configures a Server.
type Option func(*options)

type options struct {
	logger    logging.Logger
	loader    Loader
	scheduler debounce.Scheduler
}

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLoader replaces the configured source.
func WithLoader(l Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithScheduler sets the clock behind every search session.
func WithScheduler(s debounce.Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// Server serves the catalog to browsers.
type Server struct {
	config  *config.Config
	catalog *livesearch.Catalog
	manager *websocket.Manager
	watcher *watcher.FileWatcher
	load    Loader
	logger  logging.Logger
	started time.Time

	httpServer  *http.Server
	listener    net.Listener
	serverMutex sync.RWMutex

	reloadMu      sync.Mutex
	statusMu      sync.Mutex
	lastReload    time.Time
	lastReloadErr error

	shutdownOnce sync.Once
	isShutdown   atomic.Bool
}

// Health is the body of /healthz.
type Health struct {
	Status         string    `json:"status"`
	Version        string    `json:"version"`
	Source         string    `json:"source,omitempty"`
	Rows           int       `json:"rows"`
	Columns        []string  `json:"columns"`
	CatalogVersion uint64    `json:"catalog_version"`
	Clients        int       `json:"clients"`
	Watching       bool      `json:"watching"`
	LastReload     time.Time `json:"last_reload"`
	ReloadError    string    `json:"reload_error,omitempty"`
	Uptime         string    `json:"uptime"`
}

// New loads the catalog and prepares the server. Nothing listens until
// Start or Serve is called.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.NewInvalidArgument("server needs a configuration")
	}

	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	delay, err := cfg.SearchDelay()
	if err != nil {
		return nil, err
	}

	if o.loader == nil {
		srcOpts, err := cfg.SourceOptions()
		if err != nil {
			return nil, err
		}
		o.loader = func(ctx context.Context) (*rowfilter.Table, error) {
			return source.Load(ctx, srcOpts)
		}
	}

	s := &Server{
		config:  cfg,
		load:    o.loader,
		logger:  o.logger.WithComponent("server"),
		started: time.Now(),
	}

	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.catalog = livesearch.NewCatalog(table)
	s.lastReload = time.Now()

	mopts := []websocket.Option{websocket.WithLogger(o.logger)}
	if cfg.Server.MaxConnectionsPerIP > 0 || cfg.Server.MaxMessagesPerMinute > 0 {
		mopts = append(mopts, websocket.WithLimiter(websocket.NewIPLimiter(
			cfg.Server.MaxConnectionsPerIP, cfg.Server.MaxMessagesPerMinute)))
	}
	if o.scheduler != nil {
		mopts = append(mopts, websocket.WithScheduler(o.scheduler))
	}
	s.manager, err = websocket.NewManager(s.catalog, delay,
		websocket.AllowedOrigins(cfg.Server.AllowedOrigins), mopts...)
	if err != nil {
		return nil, err
	}

	if cfg.Watch.Enabled && cfg.Source.Path != "" {
		fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, watcher.WithLogger(o.logger))
		if err != nil {
			_ = s.manager.Shutdown(ctx)
			return nil, errors.NewInternalError(errors.ErrCodeInternalError, "creating file watcher", err)
		}
		fw.AddFilter(watcher.NoEditorTempFilter)
		fw.AddFilter(watcher.NoGitFilter)
		fw.AddHandler(s.handleFileChange)
		if err := fw.Watch(cfg.Source.Path); err != nil {
			_ = fw.Stop()
			_ = s.manager.Shutdown(ctx)
			return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "watching catalog source").
				WithPath(cfg.Source.Path)
		}
		s.watcher = fw
	}

	return s, nil
}

// Catalog returns the catalog being served.
func (s *Server) Catalog() *livesearch.Catalog {
	return s.catalog
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.manager.HandleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)

	return middleware.NewChain(
		middleware.Recover(s.logger),
		middleware.Logging(s.logger),
		middleware.SecurityHeaders(),
		middleware.CORS(websocket.AllowedOrigins(s.config.Server.AllowedOrigins)),
	).Then(mux)
}

// Start listens on the configured address and serves until ctx is done or
// Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapTransport(err, errors.ErrCodeInternalError, "listening on "+addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or Shutdown is called.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.isShutdown.Load() {
		_ = ln.Close()
		return errors.NewTransportError(errors.ErrCodeInternalError, "server is shut down", nil)
	}

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			s.logger.Warn(ctx, err, "file watcher did not start")
		}
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	srv := s.httpServer
	s.serverMutex.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				s.logger.Error(shutdownCtx, err, "shutdown failed")
			}
		case <-done:
		}
	}()

	s.logger.Info(ctx, "serving catalog",
		"addr", ln.Addr().String(),
		"rows", s.catalog.Snapshot().Len(),
		"watching", s.watcher != nil)

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return errors.WrapTransport(err, errors.ErrCodeInternalError, "server error")
	}
	return nil
}

// Addr returns the address being served, or "" before Serve.
func (s *Server) Addr() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Reload reads the source again, swaps the catalog and refreshes every
// client. A failed load leaves the current catalog in place.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	table, err := s.load(ctx)
	s.statusMu.Lock()
	s.lastReload = time.Now()
	s.lastReloadErr = err
	s.statusMu.Unlock()
	if err != nil {
		return err
	}

	s.catalog.Replace(table)
	s.manager.Reload()
	s.logger.Info(ctx, "catalog reloaded",
		"rows", table.Len(),
		"version", s.catalog.Version())
	return nil
}

func (s *Server) handleFileChange(events []watcher.ChangeEvent) error {
	ctx := context.Background()
	for _, ev := range events {
		s.logger.Debug(ctx, "catalog source changed", "path", ev.Path, "type", ev.Type.String())
	}
	if err := s.Reload(ctx); err != nil {
		return fmt.Errorf("reloading catalog: %w", err)
	}
	return nil
}

func (s *Server) health() Health {
	table := s.catalog.Snapshot()

	s.statusMu.Lock()
	last, lastErr := s.lastReload, s.lastReloadErr
	s.statusMu.Unlock()

	h := Health{
		Status:         "ok",
		Version:        version.Short(),
		Source:         s.config.Source.Path,
		Rows:           table.Len(),
		Columns:        table.Columns(),
		CatalogVersion: s.catalog.Version(),
		Clients:        s.manager.ConnectedClients(),
		Watching:       s.watcher != nil,
		LastReload:     last.UTC(),
		Uptime:         time.Since(s.started).Round(time.Second).String(),
	}
	if lastErr != nil {
		h.Status = "degraded"
		h.ReloadError = lastErr.Error()
	}
	if s.isShutdown.Load() {
		h.Status = "shutting_down"
	}
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h := s.health()
	status := http.StatusOK
	if h.Status == "shutting_down" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.logger.Warn(r.Context(), err, "failed to encode health response")
	}
}

// Shutdown stops the watcher, closes every client and stops the HTTP
// server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down")
		s.isShutdown.Store(true)

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Warn(ctx, err, "stopping file watcher")
			}
		}

		if err := s.manager.Shutdown(ctx); err != nil {
			shutdownErr = err
		}

		s.serverMutex.RLock()
		srv := s.httpServer
		s.serverMutex.RUnlock()
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
	})

	return shutdownErr
}
