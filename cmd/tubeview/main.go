package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	googleauth "github.com/example/tubeview/internal/auth"
	"github.com/example/tubeview/internal/platform/analytics"
	session "github.com/example/tubeview/internal/platform/auth"
	"github.com/example/tubeview/internal/platform/config"
	"github.com/example/tubeview/internal/platform/db"
	"github.com/example/tubeview/internal/platform/httpserver"
	"github.com/example/tubeview/internal/platform/logging"
	"github.com/example/tubeview/internal/platform/natsconn"
	"github.com/example/tubeview/internal/platform/ratelimit"
	"github.com/example/tubeview/internal/platform/run"
	"github.com/example/tubeview/internal/platform/secrets"
	"github.com/example/tubeview/internal/platform/signing"
	"github.com/example/tubeview/internal/relay"
	"github.com/example/tubeview/internal/watchstate"
	"github.com/example/tubeview/internal/web"
	"github.com/example/tubeview/internal/youtube"
)

const sessionTTL = 30 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	backend, cleanup, err := openBackend(cfg, log)
	if err != nil {
		log.Error("open watch-state backend", zap.Error(err))
		run.Exit(1)
	}
	defer cleanup()
	store := watchstate.New(backend, log)

	sealKey := cfg.SealKey
	if sealKey == "" {
		sealKey = cfg.SessionSecret
	}
	box, err := secrets.NewBox(sealKey)
	if err != nil {
		log.Error("init seal key", zap.Error(err))
		run.Exit(1)
	}
	vault, err := googleauth.NewVault(cfg.DataDir, box)
	if err != nil {
		log.Error("init credential vault", zap.Error(err))
		run.Exit(1)
	}

	sessions := session.NewSessions(cfg.SessionSecret, sessionTTL)
	authSvc := googleauth.NewService(cfg.Google, sessions, signing.New(cfg.SessionSecret), vault, log)

	var cache youtube.Cache
	if cfg.RedisURL != "" {
		rc, err := youtube.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Error("init redis cache", zap.Error(err))
			run.Exit(1)
		}
		cache = rc
	}

	limiter := ratelimit.NewRPS(5)
	defer limiter.Stop()

	yt := youtube.New(youtube.Options{
		APIKey:   cfg.YouTubeAPIKey,
		Region:   cfg.Region,
		Tokens:   authSvc.TokenSource(),
		Limiter:  limiter,
		Cache:    cache,
		CacheTTL: cfg.CacheTTL,
		Logger:   log,
	})

	events := setupAnalytics(cfg, log)

	pages, err := web.NewHandler(store, yt, sessions, log)
	if err != nil {
		log.Error("init web handler", zap.Error(err))
		run.Exit(1)
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)
	authSvc.Routes(r)
	pages.Routes(r)
	relay.NewHandler(store, events, log).Routes(r)

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTP.Addr,
		ServiceName: cfg.ServiceName,
		Logger:      log,
		Router:      r,
	})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start()
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// openBackend picks the watch-state persistence per config. The returned
// cleanup releases whatever the backend holds open.
func openBackend(cfg config.AppConfig, log *zap.Logger) (watchstate.Backend, func(), error) {
	noop := func() {}
	switch cfg.WatchState.Backend {
	case "memory":
		return watchstate.NewMemoryBackend(), noop, nil
	case "redis":
		b, err := watchstate.NewRedisBackend(cfg.RedisURL)
		return b, noop, err
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		b, err := watchstate.NewPostgresBackend(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return b, pool.Close, nil
	default:
		b, err := watchstate.NewFileBackend(cfg.WatchState.Path)
		return b, noop, err
	}
}

// setupAnalytics connects the optional watch-event publisher. A missing or
// unreachable NATS just disables it.
func setupAnalytics(cfg config.AppConfig, log *zap.Logger) *analytics.Publisher {
	if cfg.NATSURL == "" {
		return nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL})
	if err != nil {
		log.Warn("nats unavailable, watch events disabled", zap.Error(err))
		return nil
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Warn("jetstream unavailable, watch events disabled", zap.Error(err))
		return nil
	}
	return analytics.New(js, log)
}
