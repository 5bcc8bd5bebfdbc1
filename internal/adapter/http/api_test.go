package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/weather-report-store/internal/adapter/http"
	"github.com/couchcryptid/weather-report-store/internal/aggregate"
	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueries struct {
	err error

	center    domain.Point
	miles     float64
	stationID string
	window    aggregate.HourWindow
	area      aggregate.AreaQuery
	ownerType string
	start     time.Time
	end       time.Time
	days      int
	day       time.Time
	page      int
	size      int
	year      int

	near    []domain.StationDoc
	hourly  []aggregate.HourlyAverageRow
	cooler  []aggregate.CoolerAfternoonRow
	storage []aggregate.StorageUserRow
}

func (f *fakeQueries) StationsNear(_ context.Context, center domain.Point, miles float64) ([]domain.StationDoc, error) {
	f.center, f.miles = center, miles
	return f.near, f.err
}

func (f *fakeQueries) HourlyAverage(_ context.Context, stationID string, w aggregate.HourWindow) ([]aggregate.HourlyAverageRow, error) {
	f.stationID, f.window = stationID, w
	return f.hourly, f.err
}

func (f *fakeQueries) AreaAverage(_ context.Context, q aggregate.AreaQuery) ([]aggregate.AreaAverageRow, error) {
	f.area = q
	return nil, f.err
}

func (f *fakeQueries) OwnerTypeWindSpeeds(_ context.Context, ownerType string, start, end time.Time) ([]aggregate.WindSpeedRow, error) {
	f.ownerType, f.start, f.end = ownerType, start, end
	return nil, f.err
}

func (f *fakeQueries) TechnicianActivity(_ context.Context, stationID string, days int) (aggregate.TechnicianActivityResult, error) {
	f.stationID, f.days = stationID, days
	return aggregate.TechnicianActivityResult{Technicians: []aggregate.TechnicianCount{}}, f.err
}

func (f *fakeQueries) BalloonReadings(_ context.Context, stationID string, day time.Time, page, size int) ([]aggregate.BalloonReadingRow, error) {
	f.stationID, f.day, f.page, f.size = stationID, day, page, size
	return nil, f.err
}

func (f *fakeQueries) CoolerAfternoons(_ context.Context, stationID string, year int) ([]aggregate.CoolerAfternoonRow, error) {
	f.stationID, f.year = stationID, year
	return f.cooler, f.err
}

func (f *fakeQueries) TopStorageUsers(context.Context) ([]aggregate.StorageUserRow, error) {
	return f.storage, f.err
}

type fakeReports struct {
	err       error
	stationID string
	day       time.Time
	status    string
	doc       domain.ReportDoc
}

func (f *fakeReports) GetReport(_ context.Context, stationID string, day time.Time) (domain.ReportDoc, error) {
	f.stationID, f.day = stationID, day
	return f.doc, f.err
}

func (f *fakeReports) FindStationsByStatus(_ context.Context, status string) ([]domain.StationDoc, error) {
	f.status = status
	return nil, f.err
}

// apiNow is the fake clock reading behind every API test server.
var apiNow = time.Date(2023, 12, 31, 23, 30, 0, 0, time.UTC)

func newAPIServer(q *fakeQueries, r *fakeReports) *httpadapter.Server {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, slog.Default())
	srv.MountAPI(q, r, clockwork.NewFakeClockAt(apiNow))
	return srv
}

func get(t *testing.T, srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestStationsNearParsesCoordinates(t *testing.T) {
	q := &fakeQueries{near: []domain.StationDoc{{ID: "camUni", Name: "Cambridge"}}}
	srv := newAPIServer(q, &fakeReports{})

	rec := get(t, srv, "/api/v1/stations/near?lat=52.2&lon=0.12&miles=10")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.NewPoint(52.2, 0.12), q.center)
	assert.InDelta(t, 10.0, q.miles, 1e-9)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "camUni", body[0]["station_id"])
}

func TestEmptyResultsEncodeAsArray(t *testing.T) {
	srv := newAPIServer(&fakeQueries{}, &fakeReports{})

	rec := get(t, srv, "/api/v1/storage/top")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHourlyAverageWindow(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		want   aggregate.HourWindow
		status int
	}{
		{name: "defaults", query: "", want: aggregate.DefaultHourWindow(), status: http.StatusOK},
		{name: "explicit", query: "?start_hour=6&end_hour=9", want: aggregate.HourWindow{Start: 6, End: 9}, status: http.StatusOK},
		{name: "not a number", query: "?start_hour=six", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueries{}
			srv := newAPIServer(q, &fakeReports{})

			rec := get(t, srv, "/api/v1/stations/camUni/hourly-average"+tt.query)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "camUni", q.stationID)
				assert.Equal(t, tt.want, q.window)
			}
		})
	}
}

func TestReportByDate(t *testing.T) {
	r := &fakeReports{doc: domain.ReportDoc{Version: 3}}
	srv := newAPIServer(&fakeQueries{}, r)

	rec := get(t, srv, "/api/v1/stations/camUni/reports/2024-01-05")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "camUni", r.stationID)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), r.day)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["version"])
}

func TestAreaTemperatureToIsInclusive(t *testing.T) {
	q := &fakeQueries{}
	srv := newAPIServer(q, &fakeReports{})

	rec := get(t, srv, "/api/v1/areas/temperature?lat=52.2&lon=0.12&miles=25&from=2024-01-01&to=2024-01-31")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), q.area.From)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), q.area.To)
	assert.InDelta(t, 25.0, q.area.RadiusMiles, 1e-9)
	assert.Equal(t, aggregate.DefaultHourWindow(), q.area.Hours)
}

func TestBalloonReadingsPaging(t *testing.T) {
	q := &fakeQueries{}
	srv := newAPIServer(q, &fakeReports{})

	rec := get(t, srv, "/api/v1/balloons/rs-01/2024-01-05/readings?page=3&page_size=25")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rs-01", q.stationID)
	assert.Equal(t, 3, q.page)
	assert.Equal(t, 25, q.size)

	rec = get(t, srv, "/api/v1/balloons/rs-01/2024-01-05/readings")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, q.page)
	assert.Equal(t, 10, q.size)

	rec = get(t, srv, "/api/v1/balloons/rs-01/2024-01-05/readings?page_size=5000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTechniciansDefaultLookback(t *testing.T) {
	q := &fakeQueries{}
	srv := newAPIServer(q, &fakeReports{})

	rec := get(t, srv, "/api/v1/stations/camUni/technicians")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 180, q.days)
	assert.JSONEq(t, `{"technicians":[],"total_technicians":0}`, rec.Body.String())
}

func TestMissingRequiredParams(t *testing.T) {
	srv := newAPIServer(&fakeQueries{}, &fakeReports{})

	for _, target := range []string{
		"/api/v1/stations",
		"/api/v1/stations/near?lat=52.2&lon=0.12",
		"/api/v1/areas/temperature?lat=52.2&lon=0.12&miles=25&from=2024-01-01",
		"/api/v1/owners/institution/wind-speeds?from=2024-13-01&to=2024-02-01",
		"/api/v1/stations/camUni/reports/yesterday",
	} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, srv, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: fmt.Errorf("report: %w", domain.ErrNotFound), want: http.StatusNotFound},
		{name: "invalid argument", err: fmt.Errorf("radius: %w", domain.ErrInvalidArgument), want: http.StatusBadRequest},
		{name: "store unavailable", err: domain.ErrStoreUnavailable, want: http.StatusServiceUnavailable},
		{name: "aggregation failure", err: fmt.Errorf("pipeline x: %w", domain.ErrAggregationFailure), want: http.StatusBadGateway},
		{name: "unexpected", err: fmt.Errorf("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAPIServer(&fakeQueries{err: tt.err}, &fakeReports{err: tt.err})

			assert.Equal(t, tt.want, get(t, srv, "/api/v1/stations/camUni/cooler-afternoons?year=2024").Code)
			assert.Equal(t, tt.want, get(t, srv, "/api/v1/stations/camUni/reports/2024-01-05").Code)
		})
	}
}

func TestCoolerAfternoonsYear(t *testing.T) {
	q := &fakeQueries{}
	srv := newAPIServer(q, &fakeReports{})

	require.Equal(t, http.StatusOK, get(t, srv, "/api/v1/stations/camUni/cooler-afternoons").Code)
	assert.Equal(t, "camUni", q.stationID)
	assert.Equal(t, 2023, q.year, "defaults to the clock's year")

	require.Equal(t, http.StatusOK, get(t, srv, "/api/v1/stations/camUni/cooler-afternoons?year=2021").Code)
	assert.Equal(t, 2021, q.year)
}

func TestWindSpeedsPathType(t *testing.T) {
	q := &fakeQueries{}
	srv := newAPIServer(q, &fakeReports{})

	rec := get(t, srv, "/api/v1/owners/institution/wind-speeds?from=2024-01-01&to=2024-02-01")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "institution", q.ownerType)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), q.end)
}
