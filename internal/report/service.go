// Package report implements the mutation protocol of weather reports and the
// station operations that accompany it.
//
// Every change to a report's readings, observations, derived summary, or
// embedded owner increments version by exactly one and moves last_modified
// forward in the same single-document update. Updates are not compare-and-swap:
// callers serialize writers per report.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/observability"
)

// Store is the document store surface the service mutates through. Update
// and delete calls return the number of documents changed. FindOne returns
// domain.ErrNotFound when nothing matches.
type Store interface {
	InsertOne(ctx context.Context, collection string, doc any) (any, error)
	UpdateOne(ctx context.Context, collection string, filter, update any) (int64, error)
	UpdateMany(ctx context.Context, collection string, filter, update any) (int64, error)
	DeleteMany(ctx context.Context, collection string, filter any) (int64, error)
	CountDocuments(ctx context.Context, collection string, filter any) (int64, error)
	FindOne(ctx context.Context, collection string, filter, sort, out any) error
	Find(ctx context.Context, collection string, filter, sort, out any) error
	Distinct(ctx context.Context, collection, field string, filter any) ([]any, error)
}

// Summarizer computes a report's day summary from its current readings. A nil
// summary means the report has no readings.
type Summarizer interface {
	DaySummary(ctx context.Context, reportID primitive.ObjectID) (*domain.DaySummary, error)
}

// StationDirectory resolves stored stations, possibly from a cache. Forget and
// Purge drop cached copies after station documents change.
type StationDirectory interface {
	Station(ctx context.Context, id string) (domain.StationDoc, error)
	Forget(id string)
	Purge()
}

// Service applies report and station mutations.
type Service struct {
	store      Store
	summarizer Summarizer
	stations   StationDirectory
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewService creates a Service. clock stamps last_modified on creation,
// renames, and summary refreshes.
func NewService(store Store, summarizer Summarizer, stations StationDirectory, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:      store,
		summarizer: summarizer,
		stations:   stations,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

func byID(id primitive.ObjectID) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// CreateReport stores a new report and returns its identifier.
func (s *Service) CreateReport(ctx context.Context, r domain.WeatherReport) (primitive.ObjectID, error) {
	doc, err := r.StorageDoc()
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("create report: %w", err)
	}
	return s.insertReport(ctx, doc)
}

// CreateStationReport starts an empty report for a station's calendar day,
// copying location, station, and owner from the stored station.
func (s *Service) CreateStationReport(ctx context.Context, stationID string, day time.Time) (primitive.ObjectID, error) {
	station, err := s.stations.Station(ctx, stationID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("create report for station %s: %w", stationID, err)
	}
	ref := station.ReportRef()
	owner := station.Owner.ReportView()
	doc := domain.ReportDoc{
		Date:         domain.DayStart(day),
		Version:      domain.InitialVersion,
		LastModified: domain.Now(s.clock),
		Location:     station.Location,
		Station:      &ref,
		Owner:        &owner,
	}
	return s.insertReport(ctx, doc)
}

func (s *Service) insertReport(ctx context.Context, doc domain.ReportDoc) (primitive.ObjectID, error) {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := s.store.InsertOne(ctx, domain.CollectionWeatherReports, doc); err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert report: %w", err)
	}
	s.logger.Debug("report created", "report_id", doc.ID.Hex(), "date", doc.Date)
	return doc.ID, nil
}

func versionBump() bson.E {
	return bson.E{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}}
}

// lastModifiedAtLeast never moves last_modified backwards when entries arrive
// out of order.
func lastModifiedAtLeast(t time.Time) bson.E {
	return bson.E{Key: "$max", Value: bson.D{{Key: "last_modified", Value: t}}}
}

func (s *Service) mutate(ctx context.Context, op string, reportID primitive.ObjectID, change bson.E, lastModified time.Time) error {
	update := bson.D{change, versionBump(), lastModifiedAtLeast(lastModified)}
	n, err := s.store.UpdateOne(ctx, domain.CollectionWeatherReports, byID(reportID), update)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, reportID.Hex(), err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, reportID.Hex(), domain.ErrNotFound)
	}
	s.metrics.VersionBumps.WithLabelValues(op).Inc()
	return nil
}

// AppendReading appends one reading to the end of the report's sequence.
// last_modified becomes the reading's timestamp unless it is already later.
func (s *Service) AppendReading(ctx context.Context, reportID primitive.ObjectID, reading domain.StationReading) error {
	push := bson.E{Key: "$push", Value: bson.D{{Key: "readings", Value: reading}}}
	return s.mutate(ctx, "append_reading", reportID, push, reading.Timestamp)
}

// AddObservation appends a manual observation under the same versioning rules
// as AppendReading.
func (s *Service) AddObservation(ctx context.Context, reportID primitive.ObjectID, obs domain.Observation) error {
	push := bson.E{Key: "$push", Value: bson.D{{Key: "observations", Value: obs}}}
	return s.mutate(ctx, "add_observation", reportID, push, obs.Timestamp)
}

// RecomputeSummary recomputes day_summary from the full current reading set
// and writes it back. A report without readings is left untouched and nil is
// returned.
func (s *Service) RecomputeSummary(ctx context.Context, reportID primitive.ObjectID) (*domain.DaySummary, error) {
	summary, err := s.summarizer.DaySummary(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("recompute summary %s: %w", reportID.Hex(), err)
	}
	if summary == nil {
		s.logger.Debug("no readings to summarize", "report_id", reportID.Hex())
		return nil, nil
	}
	set := bson.E{Key: "$set", Value: bson.D{{Key: "day_summary", Value: summary}}}
	if err := s.mutate(ctx, "recompute_summary", reportID, set, domain.Now(s.clock)); err != nil {
		return nil, err
	}
	return summary, nil
}

func stationDay(stationID string, day time.Time) bson.D {
	start := domain.DayStart(day)
	return bson.D{
		{Key: "station.station_id", Value: stationID},
		{Key: "date", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lt", Value: start.AddDate(0, 0, 1)}}},
	}
}

// GetReport returns a station's report for the calendar day containing day.
func (s *Service) GetReport(ctx context.Context, stationID string, day time.Time) (domain.ReportDoc, error) {
	var doc domain.ReportDoc
	if err := s.store.FindOne(ctx, domain.CollectionWeatherReports, stationDay(stationID, day), nil, &doc); err != nil {
		return domain.ReportDoc{}, fmt.Errorf("report %s %s: %w", stationID, domain.ReportKeyDate(day), err)
	}
	return doc, nil
}

// LatestOwnerReport returns the most recent report embedding userID as owner.
func (s *Service) LatestOwnerReport(ctx context.Context, userID string) (domain.ReportDoc, error) {
	var doc domain.ReportDoc
	filter := bson.D{{Key: "owner.user_id", Value: userID}}
	sort := bson.D{{Key: "date", Value: -1}}
	if err := s.store.FindOne(ctx, domain.CollectionWeatherReports, filter, sort, &doc); err != nil {
		return domain.ReportDoc{}, fmt.Errorf("latest report of %s: %w", userID, err)
	}
	return doc, nil
}

// CountReports counts a station's reports.
func (s *Service) CountReports(ctx context.Context, stationID string) (int64, error) {
	n, err := s.store.CountDocuments(ctx, domain.CollectionWeatherReports, bson.D{{Key: "station.station_id", Value: stationID}})
	if err != nil {
		return 0, fmt.Errorf("count reports of %s: %w", stationID, err)
	}
	return n, nil
}

// DeleteReports removes a station's reports dated within [start, end].
func (s *Service) DeleteReports(ctx context.Context, stationID string, start, end time.Time) (int64, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("%w: delete window ends before it starts", domain.ErrInvalidArgument)
	}
	filter := bson.D{
		{Key: "station.station_id", Value: stationID},
		{Key: "date", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}},
	}
	n, err := s.store.DeleteMany(ctx, domain.CollectionWeatherReports, filter)
	if err != nil {
		return 0, fmt.Errorf("delete reports of %s: %w", stationID, err)
	}
	s.logger.Info("reports deleted", "station_id", stationID, "count", n)
	return n, nil
}
