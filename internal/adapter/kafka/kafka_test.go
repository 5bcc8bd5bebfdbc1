package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-report-store/internal/config"
	"github.com/couchcryptid/weather-report-store/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 1, 6, 2, 0, 0, 0, time.UTC)
	cold := "Very Cold"
	rec := domain.ExtremeRecord{
		ID:           "WS-UNI001-20240105",
		Date:         time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		StationID:    "WS-UNI001",
		StationName:  "Cambridge Botanic",
		ExtremeTemp:  &cold,
		TempMin:      -6,
		TempMax:      1.5,
		WindSpeedMax: 5,
		PrecipSum:    2,
	}

	msg, err := serializeToMessage(rec, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("WS-UNI001-20240105"), msg.Key)
	assert.Contains(t, string(msg.Value), `"extreme_temp":"Very Cold"`)
	assert.Contains(t, string(msg.Value), `"extreme_weather":null`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "extreme_temp", msg.Headers[0].Key)
	assert.Equal(t, []byte("Very Cold"), msg.Headers[0].Value)
	assert.Equal(t, "extreme_weather", msg.Headers[1].Key)
	assert.Empty(t, msg.Headers[1].Value)
	assert.Equal(t, "published_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestPublishExtremesEmptyIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaExtremesTopic: "weather-extremes"}
	w := NewWriter(cfg, clockwork.NewRealClock(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer func() { _ = w.Close() }()

	require.NoError(t, w.PublishExtremes(context.Background(), nil))
}
