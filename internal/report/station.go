package report

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

func stationByID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// UpdateStationStatus sets a station's free-text operational status.
func (s *Service) UpdateStationStatus(ctx context.Context, stationID, status string) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}}
	n, err := s.store.UpdateOne(ctx, domain.CollectionWeatherStations, stationByID(stationID), update)
	if err != nil {
		return fmt.Errorf("update status of %s: %w", stationID, err)
	}
	s.stations.Forget(stationID)
	if n == 0 {
		// Unchanged status and unknown station both modify nothing.
		exists, err := s.store.CountDocuments(ctx, domain.CollectionWeatherStations, stationByID(stationID))
		if err != nil {
			return fmt.Errorf("update status of %s: %w", stationID, err)
		}
		if exists == 0 {
			return fmt.Errorf("update status of %s: %w", stationID, domain.ErrNotFound)
		}
	}
	s.logger.Info("station status updated", "station_id", stationID, "status", status)
	return nil
}

// FindStationsByStatus lists the stations currently in status.
func (s *Service) FindStationsByStatus(ctx context.Context, status string) ([]domain.StationDoc, error) {
	var stations []domain.StationDoc
	filter := bson.D{{Key: "status", Value: status}}
	if err := s.store.Find(ctx, domain.CollectionWeatherStations, filter, bson.D{{Key: "_id", Value: 1}}, &stations); err != nil {
		return nil, fmt.Errorf("stations with status %q: %w", status, err)
	}
	return stations, nil
}

// RecordMaintenance appends a maintenance log item and refreshes the
// station's latest_maintenance copy when the item is the newest seen.
func (s *Service) RecordMaintenance(ctx context.Context, item domain.MaintenanceLogItem) error {
	if _, err := s.stations.Station(ctx, item.StationID); err != nil {
		return fmt.Errorf("record maintenance: %w", err)
	}
	if _, err := s.store.InsertOne(ctx, domain.CollectionMaintenanceLogs, item); err != nil {
		return fmt.Errorf("record maintenance for %s: %w", item.StationID, err)
	}

	filter := bson.D{
		{Key: "_id", Value: item.StationID},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "latest_maintenance", Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: "latest_maintenance.timestamp", Value: bson.D{{Key: "$lt", Value: item.Timestamp}}}},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "latest_maintenance", Value: item.StationSubset()}}}}
	n, err := s.store.UpdateOne(ctx, domain.CollectionWeatherStations, filter, update)
	if err != nil {
		return fmt.Errorf("refresh latest maintenance of %s: %w", item.StationID, err)
	}
	if n > 0 {
		s.stations.Forget(item.StationID)
	}
	s.logger.Debug("maintenance recorded", "station_id", item.StationID, "tech_id", item.TechID, "latest", n > 0)
	return nil
}
