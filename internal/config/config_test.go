package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "weather", cfg.MongoDatabase)
	assert.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.MongoRetryMaxElapsed)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "weather-extremes", cfg.KafkaExtremesTopic)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, time.Hour, cfg.MaterializeInterval)
	assert.Equal(t, "INSECURE_KEY", cfg.EncryptionKey)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, time.Local, cfg.SourceTimezone)
	assert.Equal(t, 256, cfg.StationCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DATABASE", "weather_test")
	t.Setenv("MONGO_CONNECT_TIMEOUT", "2s")
	t.Setenv("MONGO_RETRY_MAX_ELAPSED", "1m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_EXTREMES_TOPIC", "custom-extremes")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("MATERIALIZE_INTERVAL", "15m")
	t.Setenv("ENCRYPTION_KEY", "another-key")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("SOURCE_TIMEZONE", "Europe/London")
	t.Setenv("STATION_CACHE_SIZE", "16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, "weather_test", cfg.MongoDatabase)
	assert.Equal(t, 2*time.Second, cfg.MongoConnectTimeout)
	assert.Equal(t, time.Minute, cfg.MongoRetryMaxElapsed)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-extremes", cfg.KafkaExtremesTopic)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 15*time.Minute, cfg.MaterializeInterval)
	assert.Equal(t, "another-key", cfg.EncryptionKey)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, "Europe/London", cfg.SourceTimezone.String())
	assert.Equal(t, 16, cfg.StationCacheSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, name := range []string{"MONGO_CONNECT_TIMEOUT", "MONGO_RETRY_MAX_ELAPSED", "MATERIALIZE_INTERVAL"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "bad")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
		t.Run(name+" non-positive", func(t *testing.T) {
			t.Setenv(name, "0s")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestLoad_BcryptCostOutOfRange(t *testing.T) {
	for _, v := range []string{"3", "32", "ten"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("BCRYPT_COST", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "BCRYPT_COST")
		})
	}
}

func TestLoad_InvalidStationCacheSize(t *testing.T) {
	t.Setenv("STATION_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATION_CACHE_SIZE")
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("SOURCE_TIMEZONE", "Mars/Olympus_Mons")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_TIMEZONE")
}

func TestLoad_KafkaEnabledOnlyWhenTrue(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "yes")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}
