// Package mongo is the document store adapter over the MongoDB driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/couchcryptid/weather-report-store/internal/config"
	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/observability"
)

// Store wraps one database. All methods translate driver errors into the
// domain error taxonomy.
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	batchSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Connect dials the configured server and waits for it to answer a ping,
// retrying with exponential backoff for up to MongoRetryMaxElapsed.
// Authentication failures and a malformed URI are not retried.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(cfg.MongoConnectTimeout).
		SetServerSelectionTimeout(cfg.MongoConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	attempt := 0
	operation := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
		defer cancel()
		err := client.Ping(pingCtx, readpref.Primary())
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if isAuthError(err) {
			return backoff.Permanent(fmt.Errorf("mongo auth: %w", err))
		}
		logger.Warn("store not reachable, retrying", "attempt", attempt, "error", err)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MongoRetryMaxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	logger.Info("connected to store", "database", cfg.MongoDatabase, "attempts", attempt)
	return New(client, cfg.MongoDatabase, cfg.BatchSize, logger, metrics), nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string, batchSize int, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Store{
		client:    client,
		db:        client.Database(database),
		batchSize: batchSize,
		logger:    logger,
		metrics:   metrics,
	}
}

const authenticationFailed = 18

func isAuthError(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == authenticationFailed
}

// mapError classifies driver errors. Context cancellation passes through
// untouched so callers can tell shutdown from outage.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case errors.Is(err, context.Canceled):
		return err
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	default:
		return err
	}
}

func (s *Store) observe(collection, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		outcome = "error"
	}
	s.metrics.StoreOperations.WithLabelValues(collection, op, outcome).Inc()
	s.metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func orEmpty(filter any) any {
	if filter == nil {
		return bson.D{}
	}
	return filter
}

// Database exposes the underlying database handle.
func (s *Store) Database() *mongo.Database { return s.db }

// InsertOne inserts doc and returns its _id.
func (s *Store) InsertOne(ctx context.Context, collection string, doc any) (id any, err error) {
	defer func(start time.Time) { s.observe(collection, "insert_one", start, err) }(time.Now())
	res, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, mapError(err))
	}
	return res.InsertedID, nil
}

// InsertMany inserts docs in order, BatchSize documents per round trip. On
// failure the identifiers of the chunks already committed are returned with
// the error.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []any) (ids []any, err error) {
	defer func(start time.Time) { s.observe(collection, "insert_many", start, err) }(time.Now())
	coll := s.db.Collection(collection)
	ids = make([]any, 0, len(docs))
	for lo := 0; lo < len(docs); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(docs))
		res, err := coll.InsertMany(ctx, docs[lo:hi])
		if err != nil {
			return ids, fmt.Errorf("insert %d documents into %s at offset %d: %w", hi-lo, collection, lo, mapError(err))
		}
		ids = append(ids, res.InsertedIDs...)
	}
	return ids, nil
}

// UpdateOne applies update to the first match and returns the modified count.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter, update any) (n int64, err error) {
	defer func(start time.Time) { s.observe(collection, "update_one", start, err) }(time.Now())
	res, err := s.db.Collection(collection).UpdateOne(ctx, orEmpty(filter), update)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, mapError(err))
	}
	return res.ModifiedCount, nil
}

// UpdateMany applies update to every match and returns the modified count.
func (s *Store) UpdateMany(ctx context.Context, collection string, filter, update any) (n int64, err error) {
	defer func(start time.Time) { s.observe(collection, "update_many", start, err) }(time.Now())
	res, err := s.db.Collection(collection).UpdateMany(ctx, orEmpty(filter), update)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, mapError(err))
	}
	return res.ModifiedCount, nil
}

// DeleteOne deletes the first match.
func (s *Store) DeleteOne(ctx context.Context, collection string, filter any) (n int64, err error) {
	defer func(start time.Time) { s.observe(collection, "delete_one", start, err) }(time.Now())
	res, err := s.db.Collection(collection).DeleteOne(ctx, orEmpty(filter))
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, mapError(err))
	}
	return res.DeletedCount, nil
}

// DeleteMany deletes every match.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter any) (n int64, err error) {
	defer func(start time.Time) { s.observe(collection, "delete_many", start, err) }(time.Now())
	res, err := s.db.Collection(collection).DeleteMany(ctx, orEmpty(filter))
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, mapError(err))
	}
	return res.DeletedCount, nil
}

// CountDocuments counts matches.
func (s *Store) CountDocuments(ctx context.Context, collection string, filter any) (n int64, err error) {
	defer func(start time.Time) { s.observe(collection, "count", start, err) }(time.Now())
	n, err = s.db.Collection(collection).CountDocuments(ctx, orEmpty(filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, mapError(err))
	}
	return n, nil
}

// FindOne decodes the first match, in sort order when sort is non-nil, into
// out. It returns domain.ErrNotFound when nothing matches.
func (s *Store) FindOne(ctx context.Context, collection string, filter, sort, out any) (err error) {
	defer func(start time.Time) { s.observe(collection, "find_one", start, err) }(time.Now())
	opts := options.FindOne()
	if sort != nil {
		opts.SetSort(sort)
	}
	if err := s.db.Collection(collection).FindOne(ctx, orEmpty(filter), opts).Decode(out); err != nil {
		return fmt.Errorf("find in %s: %w", collection, mapError(err))
	}
	return nil
}

// Find decodes every match into out, a pointer to a slice.
func (s *Store) Find(ctx context.Context, collection string, filter, sort, out any) (err error) {
	defer func(start time.Time) { s.observe(collection, "find", start, err) }(time.Now())
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := s.db.Collection(collection).Find(ctx, orEmpty(filter), opts)
	if err != nil {
		return fmt.Errorf("find in %s: %w", collection, mapError(err))
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, mapError(err))
	}
	return nil
}

// Distinct lists the distinct values of field among matches.
func (s *Store) Distinct(ctx context.Context, collection, field string, filter any) (values []any, err error) {
	defer func(start time.Time) { s.observe(collection, "distinct", start, err) }(time.Now())
	values, err = s.db.Collection(collection).Distinct(ctx, field, orEmpty(filter))
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", collection, field, mapError(err))
	}
	return values, nil
}

// Aggregate runs pipeline and decodes every output document into out, a
// pointer to a slice. Failures other than outages and cancellation are
// reported as domain.ErrAggregationFailure.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, out any) (err error) {
	defer func(start time.Time) { s.observe(collection, "aggregate", start, err) }(time.Now())
	cur, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", collection, aggregateError(err))
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("aggregate %s: %w", collection, aggregateError(err))
	}
	return nil
}

func aggregateError(err error) error {
	mapped := mapError(err)
	if errors.Is(mapped, domain.ErrStoreUnavailable) || errors.Is(mapped, context.Canceled) {
		return mapped
	}
	return fmt.Errorf("%w: %w", domain.ErrAggregationFailure, err)
}

// CheckReadiness pings the primary.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return mapError(err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
