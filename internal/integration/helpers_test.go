//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/couchcryptid/weather-report-store/internal/account"
	"github.com/couchcryptid/weather-report-store/internal/adapter/cache"
	mongoadapter "github.com/couchcryptid/weather-report-store/internal/adapter/mongo"
	"github.com/couchcryptid/weather-report-store/internal/aggregate"
	"github.com/couchcryptid/weather-report-store/internal/config"
	"github.com/couchcryptid/weather-report-store/internal/credential"
	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/observability"
	"github.com/couchcryptid/weather-report-store/internal/report"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// env is one isolated database with every service wired against it.
type env struct {
	cfg      *config.Config
	store    *mongoadapter.Store
	queries  *aggregate.Queries
	reports  *report.Service
	accounts *account.Service
	stations *cache.CachedStationDirectory
	hasher   *credential.BcryptHasher
	metrics  *observability.Metrics
}

func startMongo(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := mongodb.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start mongodb container")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return uri
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("weather-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func newEnv(ctx context.Context, t *testing.T) *env {
	t.Helper()
	cfg := &config.Config{
		MongoURI:             startMongo(ctx, t),
		MongoDatabase:        fmt.Sprintf("weather_test_%d", time.Now().UnixNano()),
		MongoConnectTimeout:  10 * time.Second,
		MongoRetryMaxElapsed: 30 * time.Second,
		BatchSize:            50,
		StationCacheSize:     16,
		ShutdownTimeout:      5 * time.Second,
	}
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	store, err := mongoadapter.Connect(ctx, cfg, logger, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	require.NoError(t, store.Rebuild(ctx))

	hasher, err := credential.NewBcryptHasher(4)
	require.NoError(t, err)
	cipher, err := credential.NewFieldCipher("integration-key")
	require.NoError(t, err)

	clock := clockwork.NewRealClock()
	queries := aggregate.NewQueries(store, clock, logger, metrics)
	stations := cache.NewCachedStationDirectory(cache.NewStoreDirectory(store), cfg.StationCacheSize, metrics)
	return &env{
		cfg:      cfg,
		store:    store,
		queries:  queries,
		reports:  report.NewService(store, queries, stations, clock, logger, metrics),
		accounts: account.NewService(store, hasher, cipher, logger),
		stations: stations,
		hasher:   hasher,
		metrics:  metrics,
	}
}

var camUni = &domain.Institution{
	ID:              "camUni",
	PasswordHash:    "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
	Name:            "Cambridge University",
	InstitutionType: "University",
	Contact:         "Dr Jones",
	Email:           "weather@cam.ac.uk",
	Telephone:       "01223 000000",
}

// seedStation provisions camUni and one station it owns.
func seedStation(ctx context.Context, t *testing.T, e *env, stationID string) domain.WeatherStation {
	t.Helper()
	require.NoError(t, e.accounts.Provision(ctx, camUni))

	station := domain.WeatherStation{
		ID:       stationID,
		Name:     "Cambridge " + stationID,
		Location: domain.NewPoint(52.2053, 0.1218),
		Owner:    camUni,
		Status:   domain.StatusOnline,
	}
	doc, err := station.StorageDoc()
	require.NoError(t, err)
	_, err = e.store.InsertOne(ctx, domain.CollectionWeatherStations, doc)
	require.NoError(t, err)
	return station
}

func reading(at time.Time, temp float64) domain.StationReading {
	return domain.StationReading{Timestamp: at, SampleDuration: 3600, Temp: temp}
}
