package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/dndboard/dndboard/internal/api"
	"github.com/dndboard/dndboard/internal/api/handler"
	"github.com/dndboard/dndboard/internal/api/metrics"
	"github.com/dndboard/dndboard/internal/core/ports"
	"github.com/dndboard/dndboard/internal/core/service"
	"github.com/dndboard/dndboard/internal/infrastructure/db/memory"
	"github.com/dndboard/dndboard/internal/infrastructure/db/postgres"
	"github.com/dndboard/dndboard/internal/infrastructure/db/redis"
	"github.com/dndboard/dndboard/internal/infrastructure/dnd5e"
	"github.com/dndboard/dndboard/internal/pkg/config"
	"github.com/dndboard/dndboard/internal/web"
	"github.com/dndboard/dndboard/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{})
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "dndboard",
	})

	checks := map[string]handler.Check{}

	store, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer closeStore()

	sessionStore, closeSessions, err := openSessionStore(ctx, cfg, checks)
	if err != nil {
		log.Fatal().Err(err).Msg("open session store")
	}
	defer closeSessions()

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("parse templates")
	}

	catalogue := dnd5e.NewClient(dnd5e.Config{
		BaseURL: cfg.Catalogue.BaseURL,
		Timeout: cfg.Catalogue.Timeout,
	}, log.With().Str("component", "dnd5e").Logger()).WithObserver(metrics.ObserveCatalogue)

	e := api.NewRouter(api.Dependencies{
		Identity:      service.NewIdentityService(store, bcrypt.DefaultCost, log.With().Str("component", "identity").Logger()),
		Catalogue:     catalogue,
		Sessions:      sessionStore,
		Renderer:      renderer,
		Checks:        checks,
		Registerer:    prometheus.DefaultRegisterer,
		Gatherer:      prometheus.DefaultGatherer,
		SecureCookies: cfg.Session.Secure,
		Log:           log,
	})

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		serverErrors <- e.Start(":" + cfg.Port)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("starting graceful shutdown")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := e.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("could not gracefully shutdown the server")
			if err := e.Close(); err != nil {
				log.Error().Err(err).Msg("could not close server")
			}
		}
		log.Info().Msg("server gracefully stopped")
	}
}

// openStore connects to PostgreSQL and applies migrations, or returns the
// in-memory store when DATABASE_URL is memory://.
func openStore(ctx context.Context, cfg *config.Config, checks map[string]handler.Check) (ports.Store, func(), error) {
	if cfg.UsesMemoryStore() {
		return memory.NewStore(), func() {}, nil
	}

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	checks["postgres"] = db.PingContext
	return postgres.NewStore(db), closer(db), nil
}

// openSessionStore returns the Redis-backed store, or a signed cookie store
// when SESSION_BACKEND=cookie.
func openSessionStore(ctx context.Context, cfg *config.Config, checks map[string]handler.Check) (sessions.Store, func(), error) {
	opts := sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.MaxAge.Seconds()),
		Secure:   cfg.Session.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	key := []byte(cfg.SecretKey)

	if cfg.Session.Backend == config.SessionBackendCookie {
		store := sessions.NewCookieStore(key)
		store.Options = &opts
		store.MaxAge(opts.MaxAge)
		return store, func() {}, nil
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}

	checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	return redis.NewSessionStore(rdb, opts, key), closer(rdb), nil
}

func closer[T interface{ Close() error }](c T) func() {
	return func() {
		if err := c.Close(); err != nil {
			log := logger.Get()
			log.Warn().Err(err).Msg("close")
		}
	}
}
