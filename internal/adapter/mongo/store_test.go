package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

func TestMapError(t *testing.T) {
	network := mongo.CommandError{Code: 6, Message: "host unreachable", Labels: []string{"NetworkError"}}

	tests := []struct {
		name string
		err  error
		is   []error
		not  []error
	}{
		{name: "no documents", err: mongo.ErrNoDocuments, is: []error{domain.ErrNotFound}},
		{name: "wrapped no documents", err: fmt.Errorf("decode: %w", mongo.ErrNoDocuments), is: []error{domain.ErrNotFound}},
		{name: "deadline", err: context.DeadlineExceeded, is: []error{domain.ErrStoreUnavailable, context.DeadlineExceeded}},
		{name: "network label", err: network, is: []error{domain.ErrStoreUnavailable}},
		{name: "disconnected", err: mongo.ErrClientDisconnected, is: []error{domain.ErrStoreUnavailable}},
		{name: "cancelled", err: context.Canceled, is: []error{context.Canceled}, not: []error{domain.ErrStoreUnavailable}},
		{
			name: "duplicate key",
			err:  mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"},
			not:  []error{domain.ErrStoreUnavailable, domain.ErrNotFound},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			for _, want := range tt.is {
				assert.ErrorIs(t, got, want)
			}
			for _, unwanted := range tt.not {
				assert.NotErrorIs(t, got, unwanted)
			}
		})
	}
	assert.NoError(t, mapError(nil))
}

func TestAggregateError(t *testing.T) {
	badStage := mongo.CommandError{Code: 40324, Message: "Unrecognized pipeline stage name: '$bogus'"}
	assert.ErrorIs(t, aggregateError(badStage), domain.ErrAggregationFailure)

	var cmdErr mongo.CommandError
	assert.True(t, errors.As(aggregateError(badStage), &cmdErr))
	assert.Equal(t, int32(40324), cmdErr.Code)

	assert.ErrorIs(t, aggregateError(context.DeadlineExceeded), domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, aggregateError(context.DeadlineExceeded), domain.ErrAggregationFailure)
	assert.NotErrorIs(t, aggregateError(context.Canceled), domain.ErrAggregationFailure)
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, isAuthError(fmt.Errorf("handshake: %w", mongo.CommandError{Code: 18, Message: "Authentication failed."})))
	assert.False(t, isAuthError(mongo.CommandError{Code: 13, Message: "Unauthorized"}))
	assert.False(t, isAuthError(errors.New("connection refused")))
}

func TestIndexes(t *testing.T) {
	byCollection := map[string][]bson.D{}
	for _, ci := range Indexes() {
		for _, m := range ci.Models {
			byCollection[ci.Collection] = append(byCollection[ci.Collection], m.Keys.(bson.D))
		}
	}

	assert.Len(t, byCollection, 4)
	assert.Contains(t, byCollection[domain.CollectionWeatherReports], bson.D{{Key: "location", Value: "2dsphere"}})
	assert.Contains(t, byCollection[domain.CollectionWeatherReports], bson.D{{Key: "date", Value: -1}})
	assert.Contains(t, byCollection[domain.CollectionWeatherStations], bson.D{{Key: "status", Value: 1}})
	assert.Contains(t, byCollection[domain.CollectionWeatherBalloonReports], bson.D{{Key: "readings.location", Value: "2dsphere"}})
	assert.Contains(t, byCollection[domain.CollectionMaintenanceLogs], bson.D{{Key: "timestamp", Value: -1}})

	// Every collection with a location field is geo-indexed.
	for _, coll := range []string{domain.CollectionWeatherReports, domain.CollectionWeatherStations, domain.CollectionWeatherBalloonReports} {
		assert.Contains(t, byCollection[coll], bson.D{{Key: "location", Value: "2dsphere"}}, coll)
	}
}
