package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/appid"
	apperrors "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/server/handlers"
	servermw "github.com/stocklens/stocklens/internal/server/middleware"
	"github.com/stocklens/stocklens/internal/session"
	"github.com/stocklens/stocklens/internal/speech"
)

// Options configures a Server. Zero timeouts take the defaults used by New.
type Options struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Identity appid.Identity
	Build    handlers.BuildInfo
	Health   *handlers.HealthManager

	Sessions       *session.Store
	Clips          *speech.ClipStore
	MaxUploadBytes int64

	// AdminToken enables POST /admin/signal when set.
	AdminToken string
}

// Server is the HTTP front end for review sessions.
type Server struct {
	router *chi.Mux
	server *http.Server
	opts   Options
}

// New builds the router and registers all routes.
func New(opts Options) *Server {
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager(opts.Build.Version)
	}
	if opts.Identity.BinaryName == "" {
		opts.Identity = appid.Get()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{router: r, opts: opts}
	handlers.SetHTTPErrorResponder(HandleError)
	s.registerRoutes()
	return s
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)

	// Analyses can take a while; the write timeout must outlast the remote
	// call timeout or clients see a reset instead of the result.
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  durationOr(s.opts.ReadTimeout, 30*time.Second),
		WriteTimeout: durationOr(s.opts.WriteTimeout, 90*time.Second),
		IdleTimeout:  durationOr(s.opts.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", addr))
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.opts.Port
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
