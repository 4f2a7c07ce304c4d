package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Store backends accepted by ACCOUNT_STORE and REFRESH_TOKEN_STORE.
const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL,    default=1h"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL,   default=720h"`
	CookieSecure      bool          `env:"COOKIE_SECURE,       default=true"`
	AccountStore      string        `env:"ACCOUNT_STORE,       default=mongo"`
	RefreshTokenStore string        `env:"REFRESH_TOKEN_STORE, default=mongo"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Hash     HashConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type RedisConfig struct {
	Addr             string        `env:"REDIS_ADDR,              default=localhost:6379"`
	Password         string        `env:"REDIS_PASSWORD"`
	DB               int           `env:"REDIS_DB,                default=0"`
	ExpiredRetention time.Duration `env:"REDIS_EXPIRED_RETENTION, default=24h"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

// HashConfig tunes argon2id. Zero values fall back to the hasher defaults.
type HashConfig struct {
	MemoryKiB   uint32 `env:"HASH_MEMORY_KIB,  default=65536"`
	Iterations  uint32 `env:"HASH_ITERATIONS,  default=3"`
	Parallelism uint8  `env:"HASH_PARALLELISM, default=2"`
}

// Load reads a .env file when one exists, then the process environment.
// Variables already set in the environment win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("config: ACCESS_TOKEN_TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("config: REFRESH_TOKEN_TTL must be positive, got %s", c.RefreshTokenTTL)
	}

	switch c.AccountStore {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: unknown ACCOUNT_STORE %q", c.AccountStore)
	}

	switch c.RefreshTokenStore {
	case StoreMongo, StoreMemory, StoreRedis:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("config: POSTGRES_DSN is required when REFRESH_TOKEN_STORE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown REFRESH_TOKEN_STORE %q", c.RefreshTokenStore)
	}
	return nil
}

// Uses reports whether any store is backed by backend.
func (c *Config) Uses(backend string) bool {
	return c.AccountStore == backend || c.RefreshTokenStore == backend
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
