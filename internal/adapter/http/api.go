package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-report-store/internal/aggregate"
	"github.com/couchcryptid/weather-report-store/internal/domain"
)

// Queries is the read-only analytical surface served under /api/v1.
type Queries interface {
	StationsNear(ctx context.Context, center domain.Point, radiusMiles float64) ([]domain.StationDoc, error)
	HourlyAverage(ctx context.Context, stationID string, w aggregate.HourWindow) ([]aggregate.HourlyAverageRow, error)
	AreaAverage(ctx context.Context, q aggregate.AreaQuery) ([]aggregate.AreaAverageRow, error)
	OwnerTypeWindSpeeds(ctx context.Context, ownerType string, start, end time.Time) ([]aggregate.WindSpeedRow, error)
	TechnicianActivity(ctx context.Context, stationID string, lookbackDays int) (aggregate.TechnicianActivityResult, error)
	BalloonReadings(ctx context.Context, stationID string, launchDay time.Time, page, pageSize int) ([]aggregate.BalloonReadingRow, error)
	CoolerAfternoons(ctx context.Context, stationID string, year int) ([]aggregate.CoolerAfternoonRow, error)
	TopStorageUsers(ctx context.Context) ([]aggregate.StorageUserRow, error)
}

// Reports is the read side of the report service.
type Reports interface {
	GetReport(ctx context.Context, stationID string, day time.Time) (domain.ReportDoc, error)
	FindStationsByStatus(ctx context.Context, status string) ([]domain.StationDoc, error)
}

const (
	dateLayout              = "2006-01-02"
	defaultPageSize         = 10
	defaultTechLookbackDays = 180
	maxPageSize             = 1000
)

// MountAPI registers the /api/v1 routes. clock supplies the default year of
// the cooler-afternoons query.
func (s *Server) MountAPI(q Queries, reports Reports, clock clockwork.Clock) {
	a := &api{queries: q, reports: reports, clock: clock, server: s}
	s.mux.HandleFunc("GET /api/v1/stations", a.stationsByStatus)
	s.mux.HandleFunc("GET /api/v1/stations/near", a.stationsNear)
	s.mux.HandleFunc("GET /api/v1/stations/{id}/reports/{date}", a.report)
	s.mux.HandleFunc("GET /api/v1/stations/{id}/hourly-average", a.hourlyAverage)
	s.mux.HandleFunc("GET /api/v1/stations/{id}/cooler-afternoons", a.coolerAfternoons)
	s.mux.HandleFunc("GET /api/v1/stations/{id}/technicians", a.technicians)
	s.mux.HandleFunc("GET /api/v1/areas/temperature", a.areaTemperature)
	s.mux.HandleFunc("GET /api/v1/owners/{type}/wind-speeds", a.windSpeeds)
	s.mux.HandleFunc("GET /api/v1/storage/top", a.topStorage)
	s.mux.HandleFunc("GET /api/v1/balloons/{station}/{date}/readings", a.balloonReadings)
}

type api struct {
	queries Queries
	reports Reports
	clock   clockwork.Clock
	server  *Server
}

// errBadParam marks a malformed query or path parameter.
var errBadParam = errors.New("bad parameter")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadParam), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAggregationFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.server.logger.Error("query failed", "path", r.URL.Path, "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func respond[T any](a *api, w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, v)
}

// list keeps empty results encoding as [] rather than null.
func list[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

// params reads query parameters, remembering the first failure.
type params struct {
	r   *http.Request
	err error
}

func (p *params) raw(name string) (string, bool) {
	v := strings.TrimSpace(p.r.URL.Query().Get(name))
	return v, v != ""
}

func (p *params) setErr(name, value string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q", errBadParam, name, value)
	}
}

func (p *params) float(name string) float64 {
	v, ok := p.raw(name)
	if !ok {
		p.setErr(name, "")
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.setErr(name, v)
	}
	return f
}

func (p *params) intOr(name string, def int) int {
	v, ok := p.raw(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.setErr(name, v)
	}
	return n
}

func (p *params) date(name string) time.Time {
	v, ok := p.raw(name)
	if !ok {
		p.setErr(name, "")
		return time.Time{}
	}
	return p.parseDate(name, v)
}

func (p *params) parseDate(name, v string) time.Time {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		p.setErr(name, v)
	}
	return t
}

func (p *params) hours() aggregate.HourWindow {
	def := aggregate.DefaultHourWindow()
	return aggregate.HourWindow{
		Start: p.intOr("start_hour", def.Start),
		End:   p.intOr("end_hour", def.End),
	}
}

func (p *params) center() domain.Point {
	return domain.NewPoint(p.float("lat"), p.float("lon"))
}

func (a *api) stationsByStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		a.fail(w, r, fmt.Errorf("%w: status is required", errBadParam))
		return
	}
	rows, err := a.reports.FindStationsByStatus(r.Context(), status)
	respond(a, w, r, list(rows), err)
}

func (a *api) stationsNear(w http.ResponseWriter, r *http.Request) {
	p := &params{r: r}
	center := p.center()
	miles := p.float("miles")
	if p.err != nil {
		a.fail(w, r, p.err)
		return
	}
	rows, err := a.queries.StationsNear(r.Context(), center, miles)
	respond(a, w, r, list(rows), err)
}

func (a *api) report(w http.ResponseWriter, r *http.Request) {
	p := &params{r: r}
	day := p.parseDate("date", r.PathValue("date"))
	if p.err != nil {
		a.fail(w, r, p.err)
		return
	}
	doc, err := a.reports.GetReport(r.Context(), r.PathValue("id"), day)
	respond(a, w, r, doc, err)
}

func (a *api) hourlyAverage(w http.ResponseWriter, r *http.Request) {
	p := &params{r: r}
	window := p.hours()
	if p.err != nil {
		a.fail(w, r, p.err)
		return
	}
	rows, err := a.queries.HourlyAverage(r.Context(), r.PathValue("id"), window)
	respond(a, w, r, list(rows), err)
}

func (a *api) coolerAfternoons(w http.ResponseWriter, r *http.Request) {
	p := &params{r: r}
	year := p.intOr("year", domain.Now(a.clock).Year())
	if p.err != nil {
		a.fail(w, r, p.err)
		return
	}
	rows, err := a.queries.CoolerAfternoons(r.Context(), r.PathValue("id"), year)
	respond(a, w, r, list(rows), err)
}

func (a *api) technicians(w http.ResponseWriter, r *http.Request) {
	p := &params{r: r}
	days := p.intOr("days", defaultTechLookbackDays)
	if p.err != nil {
		a.fail(w, r, p.err)
		return
	}
	res, err := a.queries.TechnicianActivity(r.Context(), r.PathValue("id"), days)
	respond(a, w, r, res, err)
}

func (a *api) areaTemperature(w http.ResponseWriter, r *http.Request) {
	p := &params{r: r}
	q := aggregate.AreaQuery{
		Center:      p.center(),
		RadiusMiles: p.float("miles"),
		From:        p.date("from"),
		Hours:       p.hours(),
	}
	// to is an inclusive calendar day on the wire.
	q.To = p.date("to").AddDate(0, 0, 1)
	if p.err != nil {
		a.fail(w, r, p.err)
		return
	}
	rows, err := a.queries.AreaAverage(r.Context(), q)
	respond(a, w, r, list(rows), err)
}

func (a *api) windSpeeds(w http.ResponseWriter, r *http.Request) {
	p := &params{r: r}
	start := p.date("from")
	end := p.date("to")
	if p.err != nil {
		a.fail(w, r, p.err)
		return
	}
	rows, err := a.queries.OwnerTypeWindSpeeds(r.Context(), r.PathValue("type"), start, end)
	respond(a, w, r, list(rows), err)
}

func (a *api) topStorage(w http.ResponseWriter, r *http.Request) {
	rows, err := a.queries.TopStorageUsers(r.Context())
	respond(a, w, r, list(rows), err)
}

func (a *api) balloonReadings(w http.ResponseWriter, r *http.Request) {
	p := &params{r: r}
	day := p.parseDate("date", r.PathValue("date"))
	page := p.intOr("page", 1)
	size := p.intOr("page_size", defaultPageSize)
	if size > maxPageSize {
		p.setErr("page_size", strconv.Itoa(size))
	}
	if p.err != nil {
		a.fail(w, r, p.err)
		return
	}
	rows, err := a.queries.BalloonReadings(r.Context(), r.PathValue("station"), day, page, size)
	respond(a, w, r, list(rows), err)
}
