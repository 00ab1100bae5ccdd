package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DBDriver        string
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upload event publishing. Empty brokers disables it.
	KafkaBrokers     []string
	KafkaEventsTopic string

	// Raster persistence. A bucket selects S3, otherwise rasters are copied
	// into RasterLocalDir.
	RasterBucket     string
	RasterPrefix     string
	RasterLocalDir   string
	AWSRegion        string
	RasterS3Endpoint string
	// RasterTile runs raster2pgsql after persisting each raster.
	RasterTile bool

	TimezoneCacheSize int
	FlagsMaxLength    int
	// VariableFiles are YAML vocabulary overrides merged over the built-in one.
	VariableFiles []string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cacheSize, err := positiveInt("TZ_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	flagsMax, err := positiveInt("FLAGS_MAX_LENGTH", 50)
	if err != nil {
		return nil, err
	}

	rasterTile, err := parseBool("RASTER_TILE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBDriver:        strings.ToLower(sharedcfg.EnvOrDefault("DB_DRIVER", "postgres")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:     parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "snowex-uploads"),

		RasterBucket:     os.Getenv("RASTER_BUCKET"),
		RasterPrefix:     sharedcfg.EnvOrDefault("RASTER_PREFIX", "cogs"),
		RasterLocalDir:   sharedcfg.EnvOrDefault("RASTER_LOCAL_DIR", "rasters"),
		AWSRegion:        sharedcfg.EnvOrDefault("AWS_REGION", "us-west-2"),
		RasterS3Endpoint: os.Getenv("RASTER_S3_ENDPOINT"),
		RasterTile:       rasterTile,

		TimezoneCacheSize: cacheSize,
		FlagsMaxLength:    flagsMax,
		VariableFiles:     splitList(os.Getenv("VARIABLE_FILES")),
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: must be postgres or sqlite", cfg.DBDriver)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaEventsTopic == "" {
		return nil, errors.New("KAFKA_EVENTS_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// EventsEnabled reports whether upload events are published.
func (c *Config) EventsEnabled() bool { return len(c.KafkaBrokers) > 0 }

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: must be a boolean", key, s)
	}
	return b, nil
}

func parseBrokers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(s)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
