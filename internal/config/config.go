package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emrgen/panorama/internal/blob"
	"github.com/emrgen/panorama/internal/cache"
	"github.com/emrgen/panorama/internal/compress"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Config struct {
	DBDriver           string
	DBDSN              string
	RedisAddr          string
	RedisDB            int
	CacheCompression   string
	BlobDriver         string
	S3Bucket           string
	AWSRegion          string
	HTTPPort           string
	LinkRepairSchedule string
	LogLevel           string
}

// LoadConfig reads the configuration from the environment, after loading an
// optional .env file.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to load .env: %v", err)
	}

	cfg := &Config{
		DBDriver:           env("DB_DRIVER", "sqlite"),
		DBDSN:              env("DB_DSN", ""),
		RedisAddr:          env("REDIS_ADDR", ""),
		CacheCompression:   env("CACHE_COMPRESSION", "nop"),
		BlobDriver:         env("BLOB_DRIVER", "memory"),
		S3Bucket:           env("S3_BUCKET", ""),
		AWSRegion:          env("AWS_REGION", ""),
		HTTPPort:           env("HTTP_PORT", "4001"),
		LinkRepairSchedule: env("LINK_REPAIR_SCHEDULE", "@every 10m"),
		LogLevel:           env("LOG_LEVEL", "info"),
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			logrus.Warnf("ignoring invalid REDIS_DB %q: %v", raw, err)
		}
		cfg.RedisDB = db
	}

	if cfg.DBDSN == "" && cfg.DBDriver == "sqlite" {
		cfg.DBDSN = ".tmp/db/panorama.db"
	}

	return cfg
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// SetupLogging applies the configured log level.
func SetupLogging(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// OpenDb opens the configured database.
func OpenDb(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), os.ModePerm); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(cfg.DBDSN)
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}

	return gorm.Open(dialector, &gorm.Config{})
}

// GetDb opens the configured database and exits when it cannot.
func GetDb(cfg *Config) *gorm.DB {
	db, err := OpenDb(cfg)
	if err != nil {
		logrus.Fatalf("failed to open %s database: %v", cfg.DBDriver, err)
	}
	return db
}

// NewBlobStore builds the configured blob store.
func NewBlobStore(ctx context.Context, cfg *Config) (blob.Store, error) {
	switch cfg.BlobDriver {
	case "memory":
		logrus.Warnf("using in-memory blob store, images are lost on restart")
		return blob.NewMemoryStore(), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 blob driver")
		}
		return blob.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}

// NewCache builds the panophoto cache. Without a redis address nothing is cached.
func NewCache(ctx context.Context, cfg *Config) (cache.PanophotoCache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewNop(), nil
	}

	encoder, err := compress.New(cfg.CacheCompression)
	if err != nil {
		return nil, err
	}

	redis := cache.NewRedisPanophotoCache(cfg.RedisAddr, cfg.RedisDB, encoder)
	if err := redis.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}

	return redis, nil
}
