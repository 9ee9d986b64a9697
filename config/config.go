// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPort        = "8000"
	DefaultMapsDir     = "maps"
	DefaultAppName     = "SnakeQT"
	DefaultHomepageURL = "https://github.com/DenisD3D/SnakeQT"
)

// Config holds everything main needs to wire the server.
type Config struct {
	Port        string
	MapsDir     string
	AppName     string // expected X-App-Name value on score submissions
	HomepageURL string

	// CatalogStrict fails startup on a broken archive instead of skipping it.
	CatalogStrict bool

	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration

	LogLevel  string
	LogFormat string

	Mirror MirrorConfig
}

// MirrorConfig points at an S3-compatible bucket (R2, MinIO, S3).
// Mirroring is off when Bucket is empty.
type MirrorConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Interval        time.Duration
}

func (m MirrorConfig) Enabled() bool {
	return m.Bucket != ""
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("⚠️  No .env file found, reading environment variables directly")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, so tests can feed a map.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:        stringOr(getenv("PORT"), DefaultPort),
		MapsDir:     stringOr(getenv("MAPS_DIR"), DefaultMapsDir),
		AppName:     stringOr(getenv("APP_NAME"), DefaultAppName),
		HomepageURL: stringOr(getenv("HOMEPAGE_URL"), DefaultHomepageURL),
		DatabaseURL: getenv("DATABASE_URL"),
		LogLevel:    stringOr(getenv("LOG_LEVEL"), "info"),
		LogFormat:   stringOr(getenv("LOG_FORMAT"), "text"),
		Mirror: MirrorConfig{
			Bucket:          getenv("MIRROR_BUCKET"),
			Endpoint:        getenv("MIRROR_ENDPOINT"),
			Region:          stringOr(getenv("MIRROR_REGION"), "auto"),
			AccessKeyID:     getenv("MIRROR_ACCESS_KEY_ID"),
			AccessKeySecret: getenv("MIRROR_ACCESS_KEY_SECRET"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	var err error
	if cfg.CatalogStrict, err = boolOr(getenv, "CATALOG_STRICT", false); err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns, err = intOr(getenv, "DB_MAX_OPEN_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns, err = intOr(getenv, "DB_MAX_IDLE_CONNS", 3); err != nil {
		return nil, err
	}
	if cfg.ConnMaxLifetime, err = durationOr(getenv, "DB_CONN_MAX_LIFETIME", time.Hour); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = durationOr(getenv, "DB_QUERY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Mirror.Interval, err = durationOr(getenv, "MIRROR_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	if cfg.Mirror.Enabled() && (cfg.Mirror.AccessKeyID == "" || cfg.Mirror.AccessKeySecret == "") {
		return nil, fmt.Errorf("MIRROR_BUCKET is set but MIRROR_ACCESS_KEY_ID / MIRROR_ACCESS_KEY_SECRET are missing")
	}

	return cfg, nil
}

// SetupLogging applies LOG_LEVEL and LOG_FORMAT to the global logrus logger.
func (c *Config) SetupLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	logrus.SetLevel(level)

	switch strings.ToLower(c.LogFormat) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (want text or json)", c.LogFormat)
	}
	return nil
}

func stringOr(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func intOr(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

func boolOr(getenv func(string) string, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}

func durationOr(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration like 5s", key, raw)
	}
	return d, nil
}
