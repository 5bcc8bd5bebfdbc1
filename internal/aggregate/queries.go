package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/observability"
)

// Store is the part of the document store the query runner needs. Aggregate
// and Find decode every result document into out, a pointer to a slice.
type Store interface {
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, out any) error
	Find(ctx context.Context, collection string, filter, sort, out any) error
}

// Queries runs the analytical and materializing pipelines.
type Queries struct {
	store   Store
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewQueries creates a query runner over store. Lookback windows are measured
// back from clock.
func NewQueries(store Store, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Queries {
	return &Queries{store: store, clock: clock, logger: logger, metrics: metrics}
}

// run executes p and decodes its rows as T. Failures that are not already
// classified as a store outage or cancellation surface as
// ErrAggregationFailure.
func run[T any](ctx context.Context, q *Queries, p Pipeline) ([]T, error) {
	q.logger.Debug("running pipeline", "pipeline", p.Name, "collection", p.Collection, "stages", p.String())

	start := time.Now()
	var rows []T
	err := q.store.Aggregate(ctx, p.Collection, p.BSON(), &rows)
	q.metrics.AggregationDuration.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		q.metrics.AggregationRuns.WithLabelValues(p.Name, "error").Inc()
		return nil, fmt.Errorf("pipeline %s: %w", p.Name, classify(err))
	}
	q.metrics.AggregationRuns.WithLabelValues(p.Name, "ok").Inc()
	q.metrics.AggregationRows.WithLabelValues(p.Name).Add(float64(len(rows)))
	return rows, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrAggregationFailure),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrAggregationFailure, err)
	}
}

// DaySummary computes the roll-up of a report's current readings. It returns
// nil when the report has no readings.
func (q *Queries) DaySummary(ctx context.Context, reportID primitive.ObjectID) (*domain.DaySummary, error) {
	rows, err := run[domain.DaySummary](ctx, q, DaySummary(reportID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// StationsNear lists the stations within radiusMiles of center.
func (q *Queries) StationsNear(ctx context.Context, center domain.Point, radiusMiles float64) ([]domain.StationDoc, error) {
	filter, err := StationsNearFilter(center, radiusMiles)
	if err != nil {
		return nil, err
	}
	var stations []domain.StationDoc
	if err := q.store.Find(ctx, domain.CollectionWeatherStations, filter, bson.D{{Key: "_id", Value: 1}}, &stations); err != nil {
		return nil, fmt.Errorf("stations near: %w", err)
	}
	return stations, nil
}

// HourlyAverage runs the per-station time-windowed average.
func (q *Queries) HourlyAverage(ctx context.Context, stationID string, w HourWindow) ([]HourlyAverageRow, error) {
	p, err := HourlyAverage(stationID, w)
	if err != nil {
		return nil, err
	}
	return run[HourlyAverageRow](ctx, q, p)
}

// AreaAverage runs the geospatial time-windowed average.
func (q *Queries) AreaAverage(ctx context.Context, aq AreaQuery) ([]AreaAverageRow, error) {
	p, err := AreaAverage(aq)
	if err != nil {
		return nil, err
	}
	return run[AreaAverageRow](ctx, q, p)
}

// OwnerTypeWindSpeeds ranks the wind speeds of stations owned by ownerType.
func (q *Queries) OwnerTypeWindSpeeds(ctx context.Context, ownerType string, start, end time.Time) ([]WindSpeedRow, error) {
	p, err := OwnerTypeWindSpeeds(ownerType, start, end)
	if err != nil {
		return nil, err
	}
	return run[WindSpeedRow](ctx, q, p)
}

// TechnicianActivity summarizes maintenance at a station over the last
// lookbackDays days of the runner's clock.
func (q *Queries) TechnicianActivity(ctx context.Context, stationID string, lookbackDays int) (TechnicianActivityResult, error) {
	if lookbackDays < 1 {
		return TechnicianActivityResult{}, fmt.Errorf("%w: lookback %d days", domain.ErrInvalidArgument, lookbackDays)
	}
	since := domain.Now(q.clock).AddDate(0, 0, -lookbackDays)
	rows, err := run[technicianFacets](ctx, q, TechnicianActivity(stationID, since))
	if err != nil {
		return TechnicianActivityResult{}, err
	}
	res := TechnicianActivityResult{Technicians: []TechnicianCount{}}
	if len(rows) == 0 {
		return res, nil
	}
	if rows[0].TechSummary != nil {
		res.Technicians = rows[0].TechSummary
	}
	if len(rows[0].TotalTechCount) > 0 {
		res.TotalTechnicians = rows[0].TotalTechCount[0].TotalTechs
	}
	return res, nil
}

// BalloonReadings returns one page of a launch's readings.
func (q *Queries) BalloonReadings(ctx context.Context, stationID string, launchDay time.Time, page, pageSize int) ([]BalloonReadingRow, error) {
	p, err := BalloonReadings(stationID, launchDay, page, pageSize)
	if err != nil {
		return nil, err
	}
	return run[BalloonReadingRow](ctx, q, p)
}

// CoolerAfternoons lists the anomaly days of a station in year.
func (q *Queries) CoolerAfternoons(ctx context.Context, stationID string, year int) ([]CoolerAfternoonRow, error) {
	return run[CoolerAfternoonRow](ctx, q, CoolerAfternoons(stationID, year))
}

// TopStorageUsers ranks owners from the last materialized storage report.
func (q *Queries) TopStorageUsers(ctx context.Context) ([]StorageUserRow, error) {
	return run[StorageUserRow](ctx, q, TopStorageUsers())
}

// RefreshStorageReport rebuilds the storage report collection.
func (q *Queries) RefreshStorageReport(ctx context.Context) error {
	_, err := run[bson.Raw](ctx, q, StorageReport())
	return err
}

// RefreshExtremes upserts the extremes of stationID, or of every station when
// stationID is empty.
func (q *Queries) RefreshExtremes(ctx context.Context, stationID string) error {
	_, err := run[bson.Raw](ctx, q, Extremes(stationID))
	return err
}

// StorageReportRows reads the materialized storage report, oldest month first.
func (q *Queries) StorageReportRows(ctx context.Context) ([]StorageReportRow, error) {
	var rows []StorageReportRow
	sort := bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}, {Key: "_id.owner_id", Value: 1}}
	if err := q.store.Find(ctx, domain.CollectionStorageReport, bson.D{}, sort, &rows); err != nil {
		return nil, fmt.Errorf("storage report rows: %w", err)
	}
	return rows, nil
}

// ExtremeRecords reads the materialized extremes of stationID, or all of them
// when stationID is empty, ordered by key.
func (q *Queries) ExtremeRecords(ctx context.Context, stationID string) ([]domain.ExtremeRecord, error) {
	filter := bson.D{}
	if stationID != "" {
		filter = bson.D{{Key: "station_id", Value: stationID}}
	}
	var rows []domain.ExtremeRecord
	if err := q.store.Find(ctx, domain.CollectionWeatherExtremes, filter, bson.D{{Key: "_id", Value: 1}}, &rows); err != nil {
		return nil, fmt.Errorf("extreme records: %w", err)
	}
	return rows, nil
}
