// Package web provides the HTTP server and handlers for the datatable UI.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/table"
	mw "github.com/JonMunkholm/datatable/internal/web/middleware"
)

// DataSource answers table change requests and persists saved rows.
// *core.Service satisfies it.
type DataSource interface {
	ListTables() []core.TableInfo
	PageSize(def core.TableDefinition) int
	Fetch(ctx context.Context, tableKey string, req table.ChangeRequest) (*core.Page, error)
	Saver(tableKey string) table.SaveFunc
	Validator(tableKey string) (table.ValidateFunc, error)
}

// limited is implemented by data sources that bound concurrent queries.
type limited interface {
	Limiter() *core.QueryLimiter
}

// Server is the HTTP server for the datatable application.
type Server struct {
	source   DataSource
	cfg      *config.Config
	logger   *slog.Logger
	router   *chi.Mux
	server   *http.Server
	sessions *sessionStore
	limiter  *rateLimiter
}

// NewServer wires the router for source. A nil logger means slog.Default.
func NewServer(source DataSource, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		sessions: newSessionStore(cfg.Table.SessionTTL, logger),
	}
	if cfg.Rate.Enabled {
		s.limiter = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
	}
	s.routes()
	return s
}

// routes installs the middleware chain and every endpoint. Order
// matters: the real IP must be resolved before logging and limiting.
func (s *Server) routes() {
	r := s.router
	r.Use(
		middleware.RequestID,
		mw.TrustedRealIP(s.cfg.Security.TrustedProxies),
		mw.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
		middleware.Timeout(s.cfg.Server.RequestTimeout),
		securityHeaders(s.cfg.Security.EnableCSP),
	)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}
	r.Use(clientMetadata)

	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleIndex)

	r.Route("/table/{tableKey}", func(r chi.Router) {
		r.Get("/", s.handleTableView)
		r.Get("/change", s.handleTableChange)
		r.Post("/filter/{dataIndex}", s.handleFilter)
		r.Post("/rows/{rowKey}/{action}", s.handleRowAction)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		r.Get("/tables", s.handleListTables)
		r.Get("/table/{tableKey}", s.handleAPITable)
	})
}

// Start serves until Shutdown. The session janitor and the rate limiter
// sweep run until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	go s.sessions.run(ctx, janitorInterval)
	if s.limiter != nil {
		go s.limiter.run(ctx)
	}

	s.logger.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler, mostly for httptest.
func (s *Server) Router() *chi.Mux {
	return s.router
}
