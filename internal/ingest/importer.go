package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/observability"
)

// DocumentWriter is the subset of the store the importer writes through.
// InsertMany is chunked by the store; a failure may leave earlier chunks
// committed.
type DocumentWriter interface {
	InsertOne(ctx context.Context, collection string, doc any) (any, error)
	InsertMany(ctx context.Context, collection string, docs []any) ([]any, error)
}

// UserProvisioner stores a user's storage projection.
type UserProvisioner interface {
	Provision(ctx context.Context, u domain.User) error
}

// PasswordHasher hashes plaintext passwords one way.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Summary counts what an import run wrote.
type Summary struct {
	Users        int
	Technicians  int
	Stations     int
	Reports      int
	Maintenance  int
	Balloons     int
	Observations int
	Failed       int
}

// Importer loads a manifest's sources into the store. Each station, launch,
// and observation is an independent unit: a unit that fails to parse or write
// is logged and skipped without touching units already committed.
type Importer struct {
	store    DocumentWriter
	accounts UserProvisioner
	hasher   PasswordHasher
	sourceTZ *time.Location
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewImporter creates an Importer. sourceTZ is the zone radiosonde epoch
// timestamps are interpreted in.
func NewImporter(store DocumentWriter, accounts UserProvisioner, hasher PasswordHasher, sourceTZ *time.Location, logger *slog.Logger, metrics *observability.Metrics) *Importer {
	return &Importer{
		store:    store,
		accounts: accounts,
		hasher:   hasher,
		sourceTZ: sourceTZ,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run imports everything in m, reading source files from dir. Users and
// technicians are prerequisites: failing to write them aborts the run. Unit
// failures are collected and returned joined after all units are attempted.
func (im *Importer) Run(ctx context.Context, m *Manifest, dir fs.FS) (Summary, error) {
	var sum Summary

	users, err := im.importUsers(ctx, m.Users)
	if err != nil {
		return sum, err
	}
	sum.Users = len(users)

	if len(m.Technicians) > 0 {
		docs := make([]any, len(m.Technicians))
		for i, t := range m.Technicians {
			docs[i] = t
		}
		if _, err := im.store.InsertMany(ctx, domain.CollectionTechnicians, docs); err != nil {
			return sum, fmt.Errorf("insert technicians: %w", err)
		}
		im.imported(domain.CollectionTechnicians, len(docs))
		sum.Technicians = len(docs)
	}

	var gen *MaintenanceGenerator
	var maintStart, maintEnd time.Time
	if m.Maintenance.Start != "" {
		maintStart, maintEnd, err = m.Maintenance.bounds()
		if err != nil {
			return sum, err
		}
		gen = NewMaintenanceGenerator(m.Maintenance.Seed)
	}

	var unitErrs []error
	fail := func(source, unit string, err error) {
		im.logger.Error("import unit failed", "source", source, "unit", unit, "error", err)
		im.metrics.ImportFailures.WithLabelValues(source).Inc()
		unitErrs = append(unitErrs, fmt.Errorf("%s %s: %w", source, unit, err))
		sum.Failed++
	}

	for _, s := range m.Stations {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		var logs []domain.MaintenanceLogItem
		if gen != nil {
			logs = gen.Generate(s.StationID, s.Technicians, maintStart, maintEnd)
		}
		reports, err := im.importStation(ctx, dir, s, users[s.Owner], logs)
		if err != nil {
			fail("station", s.StationID, err)
			continue
		}
		sum.Stations++
		sum.Reports += reports
		sum.Maintenance += len(logs)
	}

	for _, b := range m.Balloons {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := im.importBalloon(ctx, dir, b, users[b.Owner]); err != nil {
			fail("balloon", b.StationID+"@"+b.Launch.Format(time.RFC3339), err)
			continue
		}
		sum.Balloons++
	}

	for i, o := range m.Observations {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := im.importObservation(ctx, dir, o, users[o.Owner]); err != nil {
			fail("observation", fmt.Sprintf("#%d", i), err)
			continue
		}
		sum.Observations++
	}

	im.logger.Info("import complete",
		"users", sum.Users,
		"technicians", sum.Technicians,
		"stations", sum.Stations,
		"reports", sum.Reports,
		"maintenance_logs", sum.Maintenance,
		"balloons", sum.Balloons,
		"observations", sum.Observations,
		"failed", sum.Failed,
	)
	return sum, errors.Join(unitErrs...)
}

func (im *Importer) importUsers(ctx context.Context, entries []UserEntry) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(entries))
	for _, e := range entries {
		hash, err := im.hasher.Hash(e.Password)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", e.ID, err)
		}
		u := e.User(hash)
		if err := im.accounts.Provision(ctx, u); err != nil {
			return nil, fmt.Errorf("provision user %s: %w", e.ID, err)
		}
		users[e.ID] = u
	}
	im.imported(domain.CollectionUsers, len(users))
	return users, nil
}

func (im *Importer) importStation(ctx context.Context, dir fs.FS, e StationEntry, owner domain.User, logs []domain.MaintenanceLogItem) (int, error) {
	f, err := dir.Open(e.File)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	src, err := ParseStationCSV(f)
	if err != nil {
		return 0, err
	}

	station := &domain.WeatherStation{
		ID:       e.StationID,
		Name:     e.Name,
		Location: src.Location,
		Owner:    owner,
		Status:   domain.StatusOnline,
	}
	if len(logs) > 0 {
		latest := logs[len(logs)-1]
		station.LatestMaintenance = &latest
	}

	// Build every document before the first write so a projection error
	// leaves nothing behind for this unit.
	stationDoc, err := station.StorageDoc()
	if err != nil {
		return 0, err
	}
	reports := src.StationReports(station)
	reportDocs := make([]any, 0, len(reports))
	for _, r := range reports {
		doc, err := r.StorageDoc()
		if err != nil {
			return 0, fmt.Errorf("report %s: %w", domain.ReportKeyDate(r.Date), err)
		}
		reportDocs = append(reportDocs, doc)
	}

	if len(reportDocs) > 0 {
		if _, err := im.store.InsertMany(ctx, domain.CollectionWeatherReports, reportDocs); err != nil {
			return 0, fmt.Errorf("insert reports: %w", err)
		}
		im.imported(domain.CollectionWeatherReports, len(reportDocs))
	}
	if _, err := im.store.InsertOne(ctx, domain.CollectionWeatherStations, stationDoc); err != nil {
		return 0, fmt.Errorf("insert station: %w", err)
	}
	im.imported(domain.CollectionWeatherStations, 1)

	if len(logs) > 0 {
		logDocs := make([]any, len(logs))
		for i, l := range logs {
			logDocs[i] = l
		}
		if _, err := im.store.InsertMany(ctx, domain.CollectionMaintenanceLogs, logDocs); err != nil {
			return 0, fmt.Errorf("insert maintenance logs: %w", err)
		}
		im.imported(domain.CollectionMaintenanceLogs, len(logDocs))
	}

	im.logger.Info("station imported", "station_id", e.StationID, "reports", len(reportDocs), "maintenance_logs", len(logs))
	return len(reportDocs), nil
}

func (im *Importer) importBalloon(ctx context.Context, dir fs.FS, e BalloonEntry, owner domain.User) error {
	f, err := dir.Open(e.File)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	sounding, err := ParseRadiosonde(f, im.sourceTZ)
	if err != nil {
		return err
	}
	report := sounding.BalloonReport(e.Launch, domain.GroundStation{ID: e.StationID, Name: e.StationName, Owner: owner})
	doc, err := report.StorageDoc()
	if err != nil {
		return err
	}
	if _, err := im.store.InsertOne(ctx, domain.CollectionWeatherBalloonReports, doc); err != nil {
		return fmt.Errorf("insert balloon report: %w", err)
	}
	im.imported(domain.CollectionWeatherBalloonReports, 1)
	im.logger.Info("balloon imported", "station_id", e.StationID, "launch", e.Launch, "readings", len(doc.Readings))
	return nil
}

func (im *Importer) importObservation(ctx context.Context, dir fs.FS, e ObservationEntry, owner domain.User) error {
	day, err := time.Parse(dailyLayout, e.Date)
	if err != nil {
		return fmt.Errorf("%w: date %q", domain.ErrMalformedSource, e.Date)
	}
	obs := e.Observation
	if e.Photo != "" {
		photo, err := LoadPhoto(dir, e.Photo)
		if err != nil {
			return err
		}
		obs.Photo = photo
	}

	r := domain.NewWeatherReport(day, domain.NewPoint(e.Lat, e.Lon), obs.Timestamp)
	r.Owner = owner
	r.Observations = []domain.Observation{obs}
	doc, err := r.StorageDoc()
	if err != nil {
		return err
	}
	if _, err := im.store.InsertOne(ctx, domain.CollectionWeatherReports, doc); err != nil {
		return fmt.Errorf("insert observation report: %w", err)
	}
	im.imported(domain.CollectionWeatherReports, 1)
	return nil
}

func (im *Importer) imported(collection string, n int) {
	im.metrics.DocumentsImported.WithLabelValues(collection).Add(float64(n))
}
