package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override, e.g. TRIVIA_REDIS_ADDR.
const EnvPrefix = "TRIVIA_"

// Store backends accepted by store.backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Store    StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	SQLite   SQLiteConfig   `yaml:"sqlite" envPrefix:"SQLITE_"`
	Client   ClientConfig   `yaml:"client" envPrefix:"CLIENT_"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
	// WatchInterval is how often websocket watchers re-read their document.
	WatchInterval string `yaml:"watch_interval" env:"WATCH_INTERVAL"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type StoreConfig struct {
	Backend         string `yaml:"backend" env:"BACKEND"`
	MaxDocumentSize int    `yaml:"max_document_size" env:"MAX_DOCUMENT_SIZE"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	TTL      string `yaml:"ttl" env:"TTL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"URL"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type ClientConfig struct {
	ServerURL    string `yaml:"server_url" env:"SERVER_URL"`
	PollInterval string `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// InviteBase is the page players open from an invite link or QR code.
	InviteBase string `yaml:"invite_base" env:"INVITE_BASE"`
}

// Default returns the configuration used when no file or environment is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080", WatchInterval: "2s"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Store:  StoreConfig{Backend: BackendMemory, MaxDocumentSize: 1_000_000},
		SQLite: SQLiteConfig{Path: "trivia.db"},
		Client: ClientConfig{ServerURL: "http://localhost:8080", PollInterval: "2s", InviteBase: "http://localhost:8080/"},
	}
}

// Load reads YAML config from path on top of the defaults, then applies TRIVIA_*
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.New("redis backend needs redis.addr")
	}
	if c.Store.Backend == BackendPostgres && c.Postgres.URL == "" {
		return errors.New("postgres backend needs postgres.url")
	}
	if c.Store.MaxDocumentSize < 0 {
		return errors.New("store.max_document_size must not be negative")
	}
	return nil
}

// SlogLevel parses log.level, falling back to INFO.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DurationOr parses a duration string or returns the fallback if empty or invalid.
func DurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
