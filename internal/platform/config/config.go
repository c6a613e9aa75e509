package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Storage backends selected by the scheme of DATABASE_URL.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

const defaultDatabaseURL = "mongodb://localhost:27017/rtsp_overlay_db"

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"5000"`
	DatabaseURL string `env:"DATABASE_URL"`
	// MongoURI is read when DATABASE_URL is unset, for deployments that still use the older name.
	MongoURI    string `env:"MONGO_URI"`
	RTSPURL     string `env:"RTSP_URL" default:"rtsp://default-stream-url"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080,http://localhost:3000,http://localhost:8081"`

	WriteRateLimit float64 `env:"WRITE_RATE_LIMIT" default:"20"`
	WriteRateBurst int     `env:"WRITE_RATE_BURST" default:"40"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"1000"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.DatabaseURL = resolveDatabaseURL(cfg.DatabaseURL, cfg.MongoURI)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func resolveDatabaseURL(databaseURL, mongoURI string) string {
	switch {
	case databaseURL != "":
		return databaseURL
	case mongoURI != "":
		return mongoURI
	default:
		return defaultDatabaseURL
	}
}

// StorageBackend maps the DATABASE_URL scheme to one of the Backend* constants.
func (c *Config) StorageBackend() (string, error) {
	return backendForURL(c.DatabaseURL)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func backendForURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return BackendMongo, nil
	case "postgres", "postgresql":
		return BackendPostgres, nil
	case "memory":
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("DATABASE_URL scheme %q is not supported", u.Scheme)
	}
}

func validate(cfg *Config) error {
	backend, err := cfg.StorageBackend()
	if err != nil {
		return err
	}

	if cfg.WriteRateLimit <= 0 {
		return errors.New("WRITE_RATE_LIMIT must be positive")
	}
	if cfg.WriteRateBurst < 1 {
		return errors.New("WRITE_RATE_BURST must be at least 1")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}

	if cfg.IsProduction() && backend == BackendPostgres {
		if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
