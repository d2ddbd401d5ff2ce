package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boron/funnel-service/internal/storage"
	"github.com/boron/funnel-service/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Sessions  SessionsConfig
	Publish   PublishConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
}

// Backend names the funnel repository implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendMongo  Backend = "mongo"
)

type StorageConfig struct {
	Backend Backend
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type SessionsConfig struct {
	TTL    time.Duration
	Prefix string
	// MaxActive caps editor sessions held in memory per process.
	MaxActive int
}

type PublishConfig struct {
	Enabled bool
	MinIO   storage.MinIOConfig
}

// LoadConfig loads configuration from environment variables and an optional
// .env file (ENV_FILE, default ".env").
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("FUNNEL_STORAGE", string(BackendMemory))
	v.SetDefault("MONGODB_DATABASE", "funnels")
	v.SetDefault("MONGODB_COLLECTION", "funnels")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("SQLITE_PATH", "funnels.db")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("SESSION_TTL_MINUTES", 720)
	v.SetDefault("SESSION_PREFIX", "funnel:session:")
	v.SetDefault("SESSION_MAX_ACTIVE", 10000)
	v.SetDefault("MINIO_BUCKET", "funnel-pages")
	v.SetDefault("MINIO_URL_EXPIRY_MINUTES", 1440)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: v.GetString("LOG_LEVEL")},
		Storage: StorageConfig{
			Backend: Backend(strings.ToLower(v.GetString("FUNNEL_STORAGE"))),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		SQLite: SQLiteConfig{Path: v.GetString("SQLITE_PATH")},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Sessions: SessionsConfig{
			TTL:       time.Duration(v.GetInt("SESSION_TTL_MINUTES")) * time.Minute,
			Prefix:    v.GetString("SESSION_PREFIX"),
			MaxActive: v.GetInt("SESSION_MAX_ACTIVE"),
		},
		Publish: PublishConfig{
			Enabled: v.GetString("MINIO_ENDPOINT") != "",
			MinIO: storage.MinIOConfig{
				Endpoint:      v.GetString("MINIO_ENDPOINT"),
				AccessKey:     v.GetString("MINIO_ACCESS_KEY"),
				SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
				UseSSL:        v.GetBool("MINIO_USE_SSL"),
				Bucket:        v.GetString("MINIO_BUCKET"),
				Prefix:        v.GetString("MINIO_PREFIX"),
				PublicBaseURL: v.GetString("MINIO_PUBLIC_BASE_URL"),
				URLExpiry:     time.Duration(v.GetInt("MINIO_URL_EXPIRY_MINUTES")) * time.Minute,
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimit.UseRedis && cfg.Redis.Host == "" {
		logger.Warn("RATE_LIMIT_USE_REDIS is set but REDIS_HOST is empty; falling back to in-memory limiter")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown FUNNEL_STORAGE %q (want memory, sqlite or mongo)", c.Storage.Backend)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 0) {
		return fmt.Errorf("rate limit needs RATE_LIMIT_RPS > 0 and RATE_LIMIT_BURST >= 0")
	}
	return nil
}
