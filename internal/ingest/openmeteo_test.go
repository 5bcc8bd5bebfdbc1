package ingest

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

func parseStationFixture(t *testing.T) *StationSource {
	t.Helper()
	f, err := os.Open("testdata/station.csv")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	src, err := ParseStationCSV(f)
	require.NoError(t, err)
	return src
}

func TestParseStationCSV(t *testing.T) {
	src := parseStationFixture(t)

	assert.Equal(t, domain.NewPoint(52.2, 0.12), src.Location)
	require.Len(t, src.Days, 2)

	day1 := src.Days[0]
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), day1.Date)
	require.Len(t, day1.Readings, 3)

	first := day1.Readings[0]
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, HourlySampleDuration, first.SampleDuration)
	assert.InDelta(t, 6.5, first.Temp, 1e-9)
	assert.InDelta(t, 1012.3, first.Pressure, 1e-9)
	assert.InDelta(t, 210, first.WindDirection, 1e-9)
	assert.InDelta(t, 0.41, first.Soil.Band0To7.Moisture, 1e-9)
	assert.InDelta(t, 9.1, first.Soil.Band100To255.Temp, 1e-9)

	for i := 1; i < len(day1.Readings); i++ {
		assert.True(t, day1.Readings[i-1].Timestamp.Before(day1.Readings[i].Timestamp))
	}

	summary, ok := src.Summaries[day1.Date]
	require.True(t, ok)
	assert.InDelta(t, 5.6, summary.TempMin, 1e-9)
	assert.InDelta(t, 3.9, summary.WindSpeedMax, 1e-9)
	assert.InDelta(t, 0.3, summary.PrecipSum, 1e-9)
}

func TestStationReports(t *testing.T) {
	src := parseStationFixture(t)
	owner := &domain.Institution{ID: "camUni", Name: "Cambridge University", InstitutionType: "University"}
	station := &domain.WeatherStation{ID: "WS-UNI001", Name: "Cambridge", Location: src.Location, Owner: owner, Status: domain.StatusOnline}

	reports := src.StationReports(station)
	require.Len(t, reports, 2)

	r := reports[0]
	assert.Equal(t, domain.InitialVersion, r.Version)
	assert.Equal(t, time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC), r.LastModified)
	assert.Equal(t, src.Location, r.Location)
	assert.Same(t, station, r.Station)
	require.NotNil(t, r.DaySummary)
	assert.InDelta(t, 6.5, r.DaySummary.TempMax, 1e-9)

	doc, err := r.StorageDoc()
	require.NoError(t, err)
	assert.Equal(t, "WS-UNI001", doc.Station.StationID)
	assert.Equal(t, "Cambridge University", doc.Owner.Name)
}

func TestParseStationCSV_Malformed(t *testing.T) {
	fixture, err := os.ReadFile("testdata/station.csv")
	require.NoError(t, err)
	sections := strings.Split(string(fixture), "\n\n")
	require.Len(t, sections, 3)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing daily section", sections[0] + "\n\n" + sections[1]},
		{"missing location column", "lat,lon\n1,2\n\n" + sections[1] + "\n\n" + sections[2]},
		{"location without row", "latitude,longitude\n\n" + sections[1] + "\n\n" + sections[2]},
		{"short hourly row", sections[0] + "\n\n" + strings.SplitN(sections[1], "\n", 2)[0] + "\n2024-01-05T00:00,6.5\n\n" + sections[2]},
		{"bad timestamp", sections[0] + "\n\n" + strings.Replace(sections[1], "2024-01-05T01:00", "2024-01-05 01:00", 1) + "\n\n" + sections[2]},
		{"non-numeric value", sections[0] + "\n\n" + sections[1] + "\n\n" + strings.Replace(sections[2], "6.03", "n/a", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStationCSV(strings.NewReader(tt.input))
			require.ErrorIs(t, err, domain.ErrMalformedSource)
		})
	}
}

func TestColumnName(t *testing.T) {
	tests := map[string]string{
		"temperature_2m (Â°C)":             "temperature_2m",
		"temperature_2m (°C)":              "temperature_2m",
		"soil_moisture_0_to_7cm (mÂ³/mÂ³)": "soil_moisture_0_to_7cm",
		"time":                             "time",
		"\ufefflatitude":                   "latitude",
	}
	for in, want := range tests {
		assert.Equal(t, want, columnName(in), in)
	}
}
