package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type HTTPConfig struct {
	Addr string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type WatchStateConfig struct {
	// Backend selects where the progress map lives: file, redis, postgres or memory.
	Backend string
	Path    string
}

type AppConfig struct {
	ServiceName string
	LogLevel    string
	BaseURL     string
	DataDir     string
	HTTP        HTTPConfig

	SessionSecret string
	SealKey       string

	YouTubeAPIKey string
	Google        GoogleConfig
	Region        string
	CacheTTL      time.Duration

	WatchState  WatchStateConfig
	RedisURL    string
	DatabaseURL string
	NATSURL     string
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		BaseURL:     strings.TrimSpace(os.Getenv("BASE_URL")),
		DataDir:     strings.TrimSpace(os.Getenv("DATA_DIR")),
		HTTP: HTTPConfig{
			Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		},
		SessionSecret: strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		SealKey:       strings.TrimSpace(os.Getenv("SEAL_KEY")),
		YouTubeAPIKey: strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY")),
		Google: GoogleConfig{
			ClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
			RedirectURL:  strings.TrimSpace(os.Getenv("GOOGLE_REDIRECT_URL")),
		},
		Region:   strings.TrimSpace(os.Getenv("YOUTUBE_REGION")),
		CacheTTL: envDuration("FEED_CACHE_TTL", 5*time.Minute),
		WatchState: WatchStateConfig{
			Backend: strings.TrimSpace(os.Getenv("WATCHSTATE_BACKEND")),
			Path:    strings.TrimSpace(os.Getenv("WATCHSTATE_PATH")),
		},
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		NATSURL:     strings.TrimSpace(os.Getenv("NATS_URL")),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "tubeview"
	}
	if cfg.SessionSecret == "" {
		return AppConfig{}, errors.New("SESSION_SECRET is required")
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.Region == "" {
		cfg.Region = "US"
	}
	if cfg.WatchState.Backend == "" {
		cfg.WatchState.Backend = "file"
	}
	if cfg.WatchState.Path == "" {
		cfg.WatchState.Path = cfg.DataDir + "/watchstate.json"
	}
	if cfg.Google.RedirectURL == "" {
		cfg.Google.RedirectURL = cfg.BaseURL + "/auth/google/callback"
	}
	switch cfg.WatchState.Backend {
	case "file", "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return AppConfig{}, errors.New("REDIS_URL is required for the redis watch-state backend")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return AppConfig{}, errors.New("DATABASE_URL is required for the postgres watch-state backend")
		}
	default:
		return AppConfig{}, errors.New("WATCHSTATE_BACKEND must be one of file, redis, postgres, memory")
	}
	return cfg, nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
