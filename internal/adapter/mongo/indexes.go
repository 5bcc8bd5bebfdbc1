package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

// CollectionIndexes is the index set declared for one collection.
type CollectionIndexes struct {
	Collection string
	Models     []mongo.IndexModel
}

func key(field string, kind any) mongo.IndexModel {
	return mongo.IndexModel{Keys: bson.D{{Key: field, Value: kind}}}
}

// Indexes lists every declared index. Geospatial fields use 2dsphere; time
// fields are descending; identifier, owner type, and status fields ascending.
func Indexes() []CollectionIndexes {
	return []CollectionIndexes{
		{Collection: domain.CollectionWeatherReports, Models: []mongo.IndexModel{
			key("station.station_id", 1),
			key("date", -1),
			key("location", "2dsphere"),
			key("readings.timestamp", -1),
			key("owner.owner_type", 1),
		}},
		{Collection: domain.CollectionWeatherStations, Models: []mongo.IndexModel{
			key("location", "2dsphere"),
			key("owner.owner_type", 1),
			key("status", 1),
		}},
		{Collection: domain.CollectionWeatherBalloonReports, Models: []mongo.IndexModel{
			key("location", "2dsphere"),
			key("readings.location", "2dsphere"),
			key("launch_date", -1),
			key("station.station_id", 1),
		}},
		{Collection: domain.CollectionMaintenanceLogs, Models: []mongo.IndexModel{
			key("timestamp", -1),
			key("tech_id", 1),
		}},
	}
}

// EnsureIndexes creates any missing declared index. Existing indexes with the
// same keys are left in place.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, ci := range Indexes() {
		names, err := s.db.Collection(ci.Collection).Indexes().CreateMany(ctx, ci.Models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", ci.Collection, mapError(err))
		}
		s.logger.Debug("indexes ensured", "collection", ci.Collection, "indexes", names)
	}
	return nil
}

// Rebuild drops the whole database and declares the indexes again.
func (s *Store) Rebuild(ctx context.Context) error {
	if err := s.db.Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", s.db.Name(), mapError(err))
	}
	s.logger.Warn("database dropped", "database", s.db.Name())
	return s.EnsureIndexes(ctx)
}
