package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	StoreDriverJSON     = "json"
	StoreDriverMySQL    = "mysql"
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

var (
	ErrMissingSecret = errors.New("auth.jwt_secret (JWT_SECRET) must be set")
	ErrMissingStore  = errors.New("store.location (STORE_LOCATION) must be set")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrInvalidPaging = errors.New("posts.default_limit must be between 0 and posts.max_limit")
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Auth     AuthConfig     `toml:"auth"`
	Store    StoreConfig    `toml:"store"`
	Posts    PostsConfig    `toml:"posts"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
	Log      LogConfig      `toml:"log"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	JWTExpireMinute int    `toml:"jwt_expire_minute"`
	BcryptCost      int    `toml:"bcrypt_cost"`
}

// StoreConfig selects the persistence backend. Location is a directory for
// the json driver, a DSN for mysql/postgres and a URI for mongo.
type StoreConfig struct {
	Driver   string `toml:"driver"`
	Location string `toml:"location"`
	Database string `toml:"database"`
}

type PostsConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// RedisConfig enables the listing cache when Addr is set.
type RedisConfig struct {
	Addr           string `toml:"addr"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	PageTTLSeconds int    `toml:"page_ttl_seconds"`
}

// RabbitMQConfig enables post events and the cache warm-up worker when URL is set.
type RabbitMQConfig struct {
	URL            string `toml:"url"`
	PostEventQueue string `toml:"post_event_queue"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Load() (*Config, error) {
	cfg := Default()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate refuses configurations the server must not start with. There is
// no default signing secret.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return ErrMissingSecret
	}
	if strings.TrimSpace(c.Store.Location) == "" {
		return ErrMissingStore
	}
	switch c.Store.Driver {
	case StoreDriverJSON, StoreDriverMySQL, StoreDriverPostgres, StoreDriverMongo:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}
	if c.Posts.MaxLimit <= 0 || c.Posts.DefaultLimit < 0 || c.Posts.DefaultLimit > c.Posts.MaxLimit {
		return ErrInvalidPaging
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// Default returns the built-in settings before file and env overrides. It does
// not pass Validate: the secret and store location have no defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "anime-api",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8000,
			GinMode: "release",
		},
		Auth: AuthConfig{
			JWTExpireMinute: 30,
			BcryptCost:      10,
		},
		Store: StoreConfig{
			Driver:   StoreDriverJSON,
			Database: "anime",
		},
		Posts: PostsConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Redis: RedisConfig{
			PageTTLSeconds: 30,
		},
		RabbitMQ: RabbitMQConfig{
			PostEventQueue: "posts.created",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTExpireMinute = getEnvAsInt("JWT_EXPIRE_MINUTE", cfg.Auth.JWTExpireMinute)
	cfg.Auth.BcryptCost = getEnvAsInt("BCRYPT_COST", cfg.Auth.BcryptCost)

	cfg.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", cfg.Store.Driver))
	cfg.Store.Location = getEnv("STORE_LOCATION", cfg.Store.Location)
	cfg.Store.Database = getEnv("STORE_DATABASE", cfg.Store.Database)

	cfg.Posts.DefaultLimit = getEnvAsInt("POSTS_DEFAULT_LIMIT", cfg.Posts.DefaultLimit)
	cfg.Posts.MaxLimit = getEnvAsInt("POSTS_MAX_LIMIT", cfg.Posts.MaxLimit)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PageTTLSeconds = getEnvAsInt("REDIS_PAGE_TTL_SECONDS", cfg.Redis.PageTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.PostEventQueue = getEnv("RABBITMQ_POST_EVENT_QUEUE", cfg.RabbitMQ.PostEventQueue)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
