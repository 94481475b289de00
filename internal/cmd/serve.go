package cmd

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/ailink/prompt"
	"github.com/stocklens/stocklens/internal/config"
	errwrap "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/server"
	"github.com/stocklens/stocklens/internal/server/handlers"
	"github.com/stocklens/stocklens/internal/session"
	"github.com/stocklens/stocklens/internal/speech"
)

const clipsPath = "/v1/clips/"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the review HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload configuration; new sessions use the reloaded settings`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

// liveServices holds the collaborators handed to new sessions. SIGHUP swaps
// them; sessions already open keep the ones they were created with.
type liveServices struct {
	mu  sync.RWMutex
	svc *services
}

func (l *liveServices) get() *services {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.svc
}

func (l *liveServices) set(svc *services) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.svc = svc
}

func registerHealthChecks(hm *handlers.HealthManager, live *liveServices, metricsEnabled bool) {
	hm.RegisterChecker("prompts", handlers.CheckerFunc(func(ctx context.Context) error {
		_, err := live.get().prompts.Get(prompt.DefaultSlug)
		return err
	}))
	hm.RegisterChecker("credential", handlers.CheckerFunc(func(ctx context.Context) error {
		if !live.get().ai.CredentialConfigured(ailink.RoleReview) {
			return &handlers.DegradedError{Reason: "api credential not configured"}
		}
		return nil
	}))
	hm.RegisterChecker("app_identity", handlers.CheckerFunc(func(ctx context.Context) error {
		return appIdentity.Validate()
	}))
	if metricsEnabled {
		hm.RegisterChecker("telemetry", handlers.CheckerFunc(func(ctx context.Context) error {
			if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
				return errwrap.NewInternalError("telemetry system not initialized")
			}
			return nil
		}))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	namespace := appIdentity.TelemetryNamespace()
	if err := observability.InitServerLogger(appIdentity.BinaryName, cfg.Logging.Level, namespace); err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "logger initialization failed")
	}
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
	}

	svc, err := newServices(cfg)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "prompt loading failed")
	}
	live := &liveServices{svc: svc}

	hm := handlers.NewHealthManager(versionInfo.Version)
	registerHealthChecks(hm, live, cfg.Metrics.Enabled)

	clips := speech.NewClipStore(clipsPath, cfg.Speech.ClipTTL)
	sessions := session.NewStore(func() (session.Analyzer, session.Speaker) {
		current := live.get()
		return current.analyzer("", "", logger), current.orchestrator(clips, "", logger)
	}, cfg.Sessions.IdleTimeout, logger)

	srv := server.New(server.Options{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		Identity:       appIdentity,
		Build:          versionInfo,
		Health:         hm,
		Sessions:       sessions,
		Clips:          clips,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		AdminToken:     cfg.AdminToken,
	})

	logger.Info("Initializing server",
		zap.String("service", appIdentity.BinaryName),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Int("metrics_port", observability.GetMetricsPort()),
		zap.Bool("credential", svc.ai.CredentialConfigured(ailink.RoleReview)))

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go pruneSessions(pruneCtx, sessions, cfg.Sessions.PruneInterval)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: the server stops first, the logger flushes last.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		stopPrune()
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading configuration")
		reloaded, err := config.Load(viper.GetViper(), config.Options{ConfigFile: cfgFile, Identity: appIdentity})
		if err != nil {
			logger.Error("Config reload failed; keeping current settings", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		next, err := newServices(reloaded)
		if err != nil {
			logger.Error("Prompt reload failed; keeping current settings", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "prompt reload failed")
		}
		live.set(next)
		logger.Info("Configuration reloaded",
			zap.String("file", config.ConfigFileUsed(viper.GetViper())),
			zap.Bool("credential", next.ai.CredentialConfigured(ailink.RoleReview)))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		stopPrune()
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

func pruneSessions(ctx context.Context, store *session.Store, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			store.Prune(now)
		}
	}
}
