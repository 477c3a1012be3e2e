// Package config builds the ingestion service configuration. The value
// is constructed once at entry and threaded through every component
// constructor; nothing reads the environment after Load returns.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fatal configuration errors. Either one short-circuits a run with a
// 500 result before any network call.
var (
	ErrMissingBucket = errors.New("S3_BUCKET is not configured")
	ErrMissingAPIKey = errors.New("OPENAQ_API_KEY is not configured")
)

// Config holds the full service configuration.
type Config struct {
	// S3Bucket is the bronze-layer bucket (required).
	S3Bucket string

	// S3Region is the bucket region. Empty defers to the SDK defaults.
	S3Region string

	// BronzePrefix is the base key prefix; per-source prefixes are
	// derived as {BronzePrefix}{source}/.
	BronzePrefix string

	// OpenAQAPIKey authenticates OpenAQ calls. Required for air-quality
	// runs; the other open-data sources are anonymous.
	OpenAQAPIKey string

	// DateFrom / DateTo bound the measurement window (YYYY-MM-DD).
	// DateTo defaults to today UTC at run time when empty.
	DateFrom string
	DateTo   string

	// Countries optionally restricts the air-quality run to a subset of
	// ISO2 codes. Empty means the full EU27 set.
	Countries []string

	// Port is the HTTP trigger/health port.
	Port string

	// ScheduleEvery enables the built-in scheduler when non-zero.
	ScheduleEvery time.Duration

	// PubSubProject / PubSubSubscription enable the Pub/Sub trigger
	// when both are set.
	PubSubProject      string
	PubSubSubscription string

	// DatabaseURL enables run-history persistence when set.
	DatabaseURL string
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Region:           os.Getenv("S3_REGION"),
		BronzePrefix:       getenvDefault("S3_PREFIX", "bronze/"),
		OpenAQAPIKey:       os.Getenv("OPENAQ_API_KEY"),
		DateFrom:           getenvDefault("DATE_FROM", "2014-01-01"),
		DateTo:             os.Getenv("DATE_TO"),
		Port:               getenvDefault("APP_PORT", "8080"),
		PubSubProject:      os.Getenv("PUBSUB_PROJECT"),
		PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
	}

	if !strings.HasSuffix(cfg.BronzePrefix, "/") {
		cfg.BronzePrefix += "/"
	}

	if raw := os.Getenv("COUNTRIES"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c != "" {
				cfg.Countries = append(cfg.Countries, c)
			}
		}
	}

	if raw := os.Getenv("INGEST_SCHEDULE"); raw != "" {
		every, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid INGEST_SCHEDULE: %w", err)
		}
		cfg.ScheduleEvery = every
	}

	return cfg, nil
}

// PrefixFor derives the bronze key prefix for one source, e.g.
// "bronze/openaq/".
func (c *Config) PrefixFor(source string) string {
	return c.BronzePrefix + source + "/"
}

// Validate checks the fatal configuration requirements for a run of the
// given source. The storage destination is always required; the API
// credential only for sources that need it.
func (c *Config) Validate(source string) error {
	if c.S3Bucket == "" {
		return ErrMissingBucket
	}
	if (source == "openaq" || source == "all") && c.OpenAQAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
