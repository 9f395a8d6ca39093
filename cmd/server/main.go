package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rentfolio/portal-server-go/internal/config"
	"github.com/rentfolio/portal-server-go/internal/database"
	"github.com/rentfolio/portal-server-go/internal/gateway"
	"github.com/rentfolio/portal-server-go/internal/handler"
	"github.com/rentfolio/portal-server-go/internal/jobs"
	"github.com/rentfolio/portal-server-go/internal/middleware"
	"github.com/rentfolio/portal-server-go/internal/notify"
	redisclient "github.com/rentfolio/portal-server-go/internal/redis"
	"github.com/rentfolio/portal-server-go/internal/session"
	"github.com/rentfolio/portal-server-go/internal/snapshot"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	var redisClient *redisclient.Client
	if cfg.RedisURL != "" {
		redisClient, err = redisclient.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	snapshots, cleanup, err := buildSnapshotStore(cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up snapshot store")
	}
	if cleanup != nil {
		defer cleanup()
	}
	log.Info().Str("backend", cfg.SnapshotBackend).Msg("snapshot store ready")

	broker := notify.NewBroker(redisClient)
	defer broker.Close()

	gw := gateway.NewClient(cfg.APIBaseURL, config.GatewayRequestTimeout, nil)

	manager := session.NewManager(session.Deps{
		Auth:      gw,
		Snapshots: snapshots,
		Notifier:  broker,
		TTL:       cfg.SessionTTL(),
	}, cfg.CookieSecret, isProduction)

	visitorMiddleware := middleware.NewVisitorMiddleware(manager)
	csrfMiddleware := middleware.NewCSRFMiddleware(isProduction)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	authHandler := handler.NewAuthHandler()
	oauthHandler := handler.NewOAuthHandler(cfg, isProduction)
	dashboardHandler := handler.NewDashboardHandler(gw, broker)
	formsHandler := handler.NewFormsHandler(gw, broker)
	eventsHandler := handler.NewEventsHandler(broker)
	opsHandler := handler.NewOpsHandler(cfg.OpsPasswordHash, manager, broker, snapshots)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, session.RouteDashboard, http.StatusFound)
	})

	r.Route("/portal", func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.Use(csrfMiddleware.Handler)
		r.Use(visitorMiddleware.Handler)

		authHandler.Register(r)
		r.Mount("/oauth", oauthHandler.Routes())
		r.Get("/events", eventsHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			dashboardHandler.Register(r)
			formsHandler.Register(r)
		})
	})

	if cfg.OpsPasswordHash != "" {
		r.Route("/ops", func(r chi.Router) {
			r.Use(securityHeadersMiddleware.Handler)
			r.Mount("/", opsHandler.Routes())
		})
	}

	cleanupJob := jobs.NewCleanupJob(snapshots, manager, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func buildSnapshotStore(cfg *config.Config, redisClient *redisclient.Client) (snapshot.Store, func(), error) {
	switch cfg.SnapshotBackend {
	case "redis":
		return snapshot.NewRedisStore(redisClient, cfg.SnapshotKeyPrefix, cfg.EncryptionKey), nil, nil

	case "postgres":
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		err = db.Ping(ctx)
		cancel()
		if err != nil {
			db.Close()
			return nil, nil, err
		}

		store := snapshot.NewPostgresStore(db, cfg.SnapshotKeyPrefix, cfg.EncryptionKey)
		if err := store.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	default:
		store, err := snapshot.NewFileStore(cfg.SnapshotDir, cfg.EncryptionKey)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
