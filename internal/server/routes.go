package server

import (
	"strings"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	hm := s.opts.Health
	s.router.Get("/health", hm.HealthHandler)
	s.router.Get("/health/live", hm.LivenessHandler)
	s.router.Get("/health/ready", hm.ReadinessHandler)
	s.router.Get("/health/startup", hm.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler(s.opts.Identity, s.opts.Build))
	s.router.Get("/metrics", MetricsHandler)

	if s.opts.Sessions != nil {
		(&handlers.SessionHandler{
			Sessions:       s.opts.Sessions,
			Clips:          s.opts.Clips,
			MaxUploadBytes: s.opts.MaxUploadBytes,
		}).Register(s.router)
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes signal delivery (reload, shutdown) over HTTP
// when an admin token is configured.
func (s *Server) registerAdminEndpoint() {
	token := strings.TrimSpace(s.opts.AdminToken)
	logger := observability.ServerLogger
	if token == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + s.opts.Identity.Prefix() + "ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
