package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	MongoURI             string
	MongoDatabase        string
	MongoConnectTimeout  time.Duration
	MongoRetryMaxElapsed time.Duration

	KafkaBrokers        []string
	KafkaExtremesTopic  string
	KafkaEnabled        bool
	HTTPAddr            string
	LogLevel            string
	LogFormat           string
	ShutdownTimeout     time.Duration
	BatchSize           int
	MaterializeInterval time.Duration

	// Credential settings. The default key is for local development only.
	EncryptionKey string
	BcryptCost    int

	// SourceTimezone interprets radiosonde epoch seconds as naive local time.
	SourceTimezone   *time.Location
	StationCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	connectTimeout, err := parsePositiveDuration("MONGO_CONNECT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	retryMaxElapsed, err := parsePositiveDuration("MONGO_RETRY_MAX_ELAPSED", "30s")
	if err != nil {
		return nil, err
	}
	materializeInterval, err := parsePositiveDuration("MATERIALIZE_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}

	bcryptCost, err := parseIntInRange("BCRYPT_COST", 10, 4, 31)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntInRange("STATION_CACHE_SIZE", 256, 1, 1<<20)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("SOURCE_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_TIMEZONE: %w", err)
	}

	cfg := &Config{
		MongoURI:             sharedcfg.EnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:        sharedcfg.EnvOrDefault("MONGO_DATABASE", "weather"),
		MongoConnectTimeout:  connectTimeout,
		MongoRetryMaxElapsed: retryMaxElapsed,

		KafkaBrokers:        sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaExtremesTopic:  sharedcfg.EnvOrDefault("KAFKA_EXTREMES_TOPIC", "weather-extremes"),
		KafkaEnabled:        os.Getenv("KAFKA_ENABLED") == "true",
		HTTPAddr:            sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:            sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:     shutdownTimeout,
		BatchSize:           batchSize,
		MaterializeInterval: materializeInterval,

		EncryptionKey: sharedcfg.EnvOrDefault("ENCRYPTION_KEY", "INSECURE_KEY"),
		BcryptCost:    bcryptCost,

		SourceTimezone:   loc,
		StationCacheSize: cacheSize,
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if cfg.MongoDatabase == "" {
		return nil, errors.New("MONGO_DATABASE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaExtremesTopic == "" {
		return nil, errors.New("KAFKA_EXTREMES_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseIntInRange(name string, def, lo, hi int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", name, lo, hi)
	}
	return n, nil
}
