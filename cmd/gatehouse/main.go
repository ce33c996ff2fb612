package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sacbeh/gatehouse/internal/background"
	"github.com/sacbeh/gatehouse/internal/config"
	"github.com/sacbeh/gatehouse/internal/handlers"
	"github.com/sacbeh/gatehouse/internal/metrics"
	middlewareCustom "github.com/sacbeh/gatehouse/internal/middleware"
	"github.com/sacbeh/gatehouse/internal/models"
	"github.com/sacbeh/gatehouse/internal/routes"
	"github.com/sacbeh/gatehouse/internal/services"
	"github.com/sacbeh/gatehouse/internal/storage"
	_ "github.com/sacbeh/gatehouse/internal/storage/postgres"
	_ "github.com/sacbeh/gatehouse/internal/storage/sqlite"
	pkghttp "github.com/sacbeh/gatehouse/pkg/http"
	pkglogger "github.com/sacbeh/gatehouse/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Rebuild the logger at the configured level
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("driver", cfg.Store.Driver))

	// Open the storage backend
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := storage.Open(ctx, storage.Config{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	}, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer conn.Close()

	// Initialize the engine
	engine := services.NewAuthService(conn, services.Config{
		SessionTTL:        cfg.Auth.SessionTTL,
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		LockoutDuration:   cfg.Auth.LockoutDuration,
		PasswordMinLength: cfg.Auth.PasswordMinLength,
	}, logger.With(slog.String("component", "engine")), pkglogger.NewAuditLogger(logger))

	// Initialize handlers
	trust := pkghttp.NewProxyTrust(cfg.Server.TrustedProxies)
	authHandler := handlers.NewAuthHandler(engine, trust)
	meHandler := handlers.NewMeHandler()
	adminHandler := handlers.NewAdminHandler(engine)
	healthHandler := handlers.NewHealthHandler(conn)

	// Bootstrap the first admin account if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(bootstrapCtx, engine, cfg.Admin, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	bootstrapCancel()

	// Background session sweeper
	sweeper := background.NewSweeper(conn, logger.With(slog.String("component", "sweeper")), cfg.Auth.SweepInterval)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(cfg.Server.Env))
	router.Use(middlewareCustom.CORS(cfg.Server.AllowedOrigins))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(metrics.Middleware)

	// Register routes
	rateLimit := middlewareCustom.RateLimitConfig{
		Requests: cfg.Server.AuthRateLimit,
		Window:   cfg.Server.AuthRateWindow,
	}
	router.Route("/api/v1", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, meHandler, adminHandler, engine, rateLimit)
	})

	router.Get("/health", healthHandler.Health)
	router.Method("GET", "/metrics", metrics.Handler())

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount registers the bootstrap admin when ADMIN_EMAIL and
// ADMIN_PASSWORD are configured. An already registered admin is not an error.
func ensureAdminAccount(ctx context.Context, engine *services.AuthService, cfg config.AdminConfig, logger *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Info("no admin credentials configured, skipping admin bootstrap")
		return nil
	}

	account, err := engine.Register(ctx, cfg.Email, cfg.Password, "Administrator", "admin")
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			logger.Info("admin account already exists")
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created", slog.String("account_id", account.ID))
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
