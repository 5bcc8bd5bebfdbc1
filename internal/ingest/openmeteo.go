package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

const (
	hourlyLayout = "2006-01-02T15:04"
	dailyLayout  = "2006-01-02"

	// HourlySampleDuration is the sample_duration of every imported hourly reading.
	HourlySampleDuration = 3600
)

var hourlyColumns = []string{
	"time", "temperature_2m", "dew_point_2m", "relative_humidity_2m", "pressure_msl",
	"precipitation", "cloud_cover", "wind_speed_10m", "wind_direction_10m", "sunshine_duration",
	"soil_temperature_0_to_7cm", "soil_moisture_0_to_7cm",
	"soil_temperature_7_to_28cm", "soil_moisture_7_to_28cm",
	"soil_temperature_28_to_100cm", "soil_moisture_28_to_100cm",
	"soil_temperature_100_to_255cm", "soil_moisture_100_to_255cm",
}

var dailyColumns = []string{
	"time", "temperature_2m_mean", "temperature_2m_min", "temperature_2m_max", "dew_point_2m_mean",
	"relative_humidity_2m_mean", "relative_humidity_2m_min", "relative_humidity_2m_max",
	"pressure_msl_mean", "pressure_msl_min", "pressure_msl_max", "precipitation_sum",
	"cloud_cover_mean", "wind_speed_10m_mean", "wind_speed_10m_min", "wind_speed_10m_max",
	"sunshine_duration",
}

// DayReadings groups the hourly readings of one UTC calendar day.
type DayReadings struct {
	Date     time.Time
	Readings []domain.StationReading
}

// StationSource is a parsed three-section station export: the station
// location, hourly readings grouped by day, and the daily summaries.
type StationSource struct {
	Location  domain.Point
	Days      []DayReadings
	Summaries map[time.Time]domain.DaySummary
}

// ParseStationCSV parses a station export made of three blank-line separated
// sections: location header and row, hourly table, daily table.
func ParseStationCSV(r io.Reader) (*StationSource, error) {
	sections, err := splitSections(r)
	if err != nil {
		return nil, err
	}
	if len(sections) < 3 {
		return nil, fmt.Errorf("%w: want 3 sections, found %d", domain.ErrMalformedSource, len(sections))
	}

	loc, err := parseLocationSection(sections[0])
	if err != nil {
		return nil, err
	}
	days, err := parseHourlySection(sections[1])
	if err != nil {
		return nil, err
	}
	summaries, err := parseDailySection(sections[2])
	if err != nil {
		return nil, err
	}

	return &StationSource{Location: loc, Days: days, Summaries: summaries}, nil
}

func splitSections(r io.Reader) ([][]string, error) {
	var sections [][]string
	var current []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				sections = append(sections, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if len(current) > 0 {
		sections = append(sections, current)
	}
	return sections, nil
}

// table is one CSV section with its header resolved to column indexes.
type table struct {
	name    string
	index   map[string]int
	records [][]string
}

func readTable(name string, lines []string, required []string) (*table, error) {
	cr := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s section: %v", domain.ErrMalformedSource, name, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s section has no data rows", domain.ErrMalformedSource, name)
	}

	t := &table{name: name, index: make(map[string]int), records: records[1:]}
	for i, h := range records[0] {
		t.index[columnName(h)] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, fmt.Errorf("%w: %s section missing column %q", domain.ErrMalformedSource, name, col)
		}
	}
	return t, nil
}

// columnName strips the unit suffix from a header such as
// "temperature_2m (Â°C)", so mis-encoded unit text does not matter.
func columnName(header string) string {
	header = strings.TrimPrefix(header, "\ufeff")
	if i := strings.Index(header, " ("); i >= 0 {
		header = header[:i]
	}
	return strings.TrimSpace(header)
}

// rowReader pulls typed fields from one record, remembering the first error.
type rowReader struct {
	t   *table
	row []string
	n   int
	err error
}

func (t *table) row(n int) *rowReader {
	return &rowReader{t: t, row: t.records[n], n: n + 1}
}

func (r *rowReader) str(col string) string {
	if r.err != nil {
		return ""
	}
	i := r.t.index[col]
	if i >= len(r.row) {
		r.err = fmt.Errorf("%w: %s row %d is short field %q", domain.ErrMalformedSource, r.t.name, r.n, col)
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r *rowReader) float(col string) float64 {
	s := r.str(col)
	if r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s row %d field %q: %v", domain.ErrMalformedSource, r.t.name, r.n, col, err)
	}
	return v
}

func (r *rowReader) time(col, layout string) time.Time {
	s := r.str(col)
	if r.err != nil {
		return time.Time{}
	}
	v, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		r.err = fmt.Errorf("%w: %s row %d field %q: %v", domain.ErrMalformedSource, r.t.name, r.n, col, err)
	}
	return v
}

func parseLocationSection(lines []string) (domain.Point, error) {
	t, err := readTable("location", lines, []string{"latitude", "longitude"})
	if err != nil {
		return domain.Point{}, err
	}
	r := t.row(0)
	lat := r.float("latitude")
	lon := r.float("longitude")
	if r.err != nil {
		return domain.Point{}, r.err
	}
	return domain.NewPoint(lat, lon), nil
}

func parseHourlySection(lines []string) ([]DayReadings, error) {
	t, err := readTable("hourly", lines, hourlyColumns)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time][]domain.StationReading)
	for i := range t.records {
		r := t.row(i)
		reading := domain.StationReading{
			Timestamp:      r.time("time", hourlyLayout),
			SampleDuration: HourlySampleDuration,
			Temp:           r.float("temperature_2m"),
			Dewpoint:       r.float("dew_point_2m"),
			Humidity:       r.float("relative_humidity_2m"),
			Pressure:       r.float("pressure_msl"),
			Precip:         r.float("precipitation"),
			CloudCover:     r.float("cloud_cover"),
			WindSpeed:      r.float("wind_speed_10m"),
			WindDirection:  r.float("wind_direction_10m"),
			Sunshine:       r.float("sunshine_duration"),
			Soil: domain.SoilProfile{
				Band0To7:     domain.SoilLayer{Temp: r.float("soil_temperature_0_to_7cm"), Moisture: r.float("soil_moisture_0_to_7cm")},
				Band7To28:    domain.SoilLayer{Temp: r.float("soil_temperature_7_to_28cm"), Moisture: r.float("soil_moisture_7_to_28cm")},
				Band28To100:  domain.SoilLayer{Temp: r.float("soil_temperature_28_to_100cm"), Moisture: r.float("soil_moisture_28_to_100cm")},
				Band100To255: domain.SoilLayer{Temp: r.float("soil_temperature_100_to_255cm"), Moisture: r.float("soil_moisture_100_to_255cm")},
			},
		}
		if r.err != nil {
			return nil, r.err
		}
		day := domain.DayStart(reading.Timestamp)
		byDay[day] = append(byDay[day], reading)
	}

	days := make([]DayReadings, 0, len(byDay))
	for day, readings := range byDay {
		sort.SliceStable(readings, func(i, j int) bool {
			return readings[i].Timestamp.Before(readings[j].Timestamp)
		})
		days = append(days, DayReadings{Date: day, Readings: readings})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func parseDailySection(lines []string) (map[time.Time]domain.DaySummary, error) {
	t, err := readTable("daily", lines, dailyColumns)
	if err != nil {
		return nil, err
	}

	summaries := make(map[time.Time]domain.DaySummary, len(t.records))
	for i := range t.records {
		r := t.row(i)
		day := r.time("time", dailyLayout)
		s := domain.DaySummary{
			TempMean:       r.float("temperature_2m_mean"),
			TempMin:        r.float("temperature_2m_min"),
			TempMax:        r.float("temperature_2m_max"),
			DewpointMean:   r.float("dew_point_2m_mean"),
			HumidityMean:   r.float("relative_humidity_2m_mean"),
			HumidityMin:    r.float("relative_humidity_2m_min"),
			HumidityMax:    r.float("relative_humidity_2m_max"),
			PressureMean:   r.float("pressure_msl_mean"),
			PressureMin:    r.float("pressure_msl_min"),
			PressureMax:    r.float("pressure_msl_max"),
			PrecipSum:      r.float("precipitation_sum"),
			CloudCoverMean: r.float("cloud_cover_mean"),
			WindSpeedMean:  r.float("wind_speed_10m_mean"),
			WindSpeedMin:   r.float("wind_speed_10m_min"),
			WindSpeedMax:   r.float("wind_speed_10m_max"),
			Sunshine:       r.float("sunshine_duration"),
		}
		if r.err != nil {
			return nil, r.err
		}
		summaries[day] = s
	}
	return summaries, nil
}

// StationReports builds one report per day of readings for station. Imported
// reports start at version 1 with last_modified at 23:59:59 of their day.
func (s *StationSource) StationReports(station *domain.WeatherStation) []domain.WeatherReport {
	reports := make([]domain.WeatherReport, 0, len(s.Days))
	for _, day := range s.Days {
		r := domain.NewWeatherReport(day.Date, s.Location, domain.EndOfDay(day.Date))
		r.Station = station
		r.Owner = station.Owner
		r.Readings = day.Readings
		if summary, ok := s.Summaries[day.Date]; ok {
			r.DaySummary = &summary
		}
		reports = append(reports, r)
	}
	return reports
}
