package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisURL          string
	WorkerConcurrency int

	JWTSecret    string
	JWTExpiresIn time.Duration
	AdminEmails  []string

	OTelServiceName string
	OTelEndpoint    string

	PageSize     int
	MaxPageSize  int
	RecipesLimit int

	StorageBackend string
	MediaRoot      string
	MediaURL       string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 10),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		OTelServiceName:   getEnv("OTEL_SERVICE_NAME", "foodgram-api"),
		OTelEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		PageSize:          getEnvInt("PAGE_SIZE", 6),
		MaxPageSize:       getEnvInt("MAX_PAGE_SIZE", 100),
		RecipesLimit:      getEnvInt("RECIPES_LIMIT", 3),
		StorageBackend:    getEnv("STORAGE_BACKEND", "local"),
		MediaRoot:         getEnv("MEDIA_ROOT", "./media"),
		MediaURL:          getEnv("MEDIA_URL", "/media/"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3PublicURL:       getEnv("S3_PUBLIC_URL", ""),
	}

	expiresIn := getEnv("JWT_EXPIRES_IN", "168h")
	duration, err := time.ParseDuration(expiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
	}
	cfg.JWTExpiresIn = duration
	cfg.AdminEmails = splitList(getEnv("ADMIN_EMAILS", ""))

	lifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	cfg.DBConnMaxLifetime = lifetime

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be positive")
	}
	if c.MaxPageSize < c.PageSize {
		return fmt.Errorf("MAX_PAGE_SIZE must not be smaller than PAGE_SIZE")
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// RedisAddr strips the scheme asynq does not accept.
func (c *Config) RedisAddr() string {
	return strings.TrimPrefix(c.RedisURL, "redis://")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
