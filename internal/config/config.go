package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr      = ":8080"
	defaultDatabaseURL   = "gallery.db"
	defaultJWTSecret     = "change-me-jwt-secret"
	defaultJWTTTL        = "24h"
	defaultReadTimeout   = "30s"
	defaultWriteTimeout  = "60s"
	defaultLogLevel      = "info"
	defaultStorageDriver = "local"
	defaultStorageDir    = "./storage"
	defaultStoragePublic = "/storage"
	defaultMinIOUseSSL   = "false"
	defaultUploadMaxSize = "2MiB"
	defaultAllowedTypes  = "image/jpeg,image/png,image/gif"
	defaultRequireImage  = "true"
)

const (
	StorageDriverLocal = "local"
	StorageDriverMinIO = "minio"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	DatabaseURL  string
	JWTSecret    string
	JWTTTL       time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string
	CORSOrigins  []string
	Storage      StorageConfig
	Upload       UploadConfig
}

type StorageConfig struct {
	Driver         string
	Dir            string
	PublicURL      string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOPrefix    string
	MinIOUseSSL    bool
}

type UploadConfig struct {
	MaxSize      int64
	AllowedTypes []string
	RequireImage bool
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.CORSOrigins = parseListEnv("CORS_ALLOWED_ORIGINS", "")

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout, err = parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout); err != nil {
		return nil, err
	}

	cfg.Storage = StorageConfig{
		Driver:         strings.ToLower(strings.TrimSpace(getEnv("STORAGE_DRIVER", defaultStorageDriver))),
		Dir:            strings.TrimSpace(getEnv("STORAGE_DIR", defaultStorageDir)),
		PublicURL:      strings.TrimSpace(getEnv("STORAGE_PUBLIC_URL", defaultStoragePublic)),
		MinIOEndpoint:  strings.TrimSpace(os.Getenv("MINIO_ENDPOINT")),
		MinIOAccessKey: strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY")),
		MinIOSecretKey: strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY")),
		MinIOBucket:    strings.TrimSpace(os.Getenv("MINIO_BUCKET")),
		MinIOPrefix:    strings.TrimSpace(os.Getenv("MINIO_PREFIX")),
		MinIOUseSSL:    parseBoolEnv("MINIO_USE_SSL", defaultMinIOUseSSL),
	}
	// the local default only makes sense for the local driver
	if cfg.Storage.Driver == StorageDriverMinIO && os.Getenv("STORAGE_PUBLIC_URL") == "" {
		cfg.Storage.PublicURL = ""
	}

	if cfg.Upload.MaxSize, err = parseSizeEnv("UPLOAD_MAX_SIZE", defaultUploadMaxSize); err != nil {
		return nil, err
	}
	cfg.Upload.AllowedTypes = parseListEnv("UPLOAD_ALLOWED_TYPES", defaultAllowedTypes)
	cfg.Upload.RequireImage = parseBoolEnv("UPLOAD_REQUIRE_IMAGE", defaultRequireImage)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProd() bool { return isProdLike(c.AppEnv) }

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be > 0")
	}
	if cfg.Upload.MaxSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be > 0")
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		return fmt.Errorf("UPLOAD_ALLOWED_TYPES must list at least one MIME type")
	}

	switch cfg.Storage.Driver {
	case StorageDriverLocal:
		if cfg.Storage.Dir == "" {
			return fmt.Errorf("STORAGE_DIR must not be empty for the local driver")
		}
	case StorageDriverMinIO:
		if cfg.Storage.MinIOEndpoint == "" || cfg.Storage.MinIOBucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: local, minio")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseSizeEnv(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return int64(n), nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func parseListEnv(name, fallback string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(name, fallback), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
