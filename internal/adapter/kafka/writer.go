package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-report-store/internal/config"
	"github.com/couchcryptid/weather-report-store/internal/domain"
)

// Writer publishes weather extremes to a Kafka topic.
// It implements materialize.ExtremesPublisher.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured extremes topic.
// clock stamps the published_at header.
func NewWriter(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaExtremesTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, clock: clock, logger: logger}
}

// PublishExtremes writes records in a single WriteMessages call, keyed by
// "<station id>-YYYYMMDD" so every update of a station day lands on one
// partition.
func (w *Writer) PublishExtremes(ctx context.Context, records []domain.ExtremeRecord) error {
	if len(records) == 0 {
		return nil
	}
	publishedAt := domain.Now(w.clock)
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d extremes: %w", len(msgs), err)
	}
	w.logger.Debug("extremes published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func label(s *string) []byte {
	if s == nil {
		return nil
	}
	return []byte(*s)
}

// serializeToMessage marshals an ExtremeRecord into a Kafka message.
func serializeToMessage(rec domain.ExtremeRecord, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize extreme %s: %w", rec.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "extreme_temp", Value: label(rec.ExtremeTemp)},
			{Key: "extreme_weather", Value: label(rec.ExtremeWeather)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
