package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func ptr[T any](v T) *T { return &v }

func TestWeatherReportStorageDoc_OmitsAbsentParts(t *testing.T) {
	day := time.Date(2025, 2, 26, 0, 0, 0, 0, time.UTC)
	obs := Observation{
		Timestamp:   time.Date(2025, 2, 26, 14, 12, 0, 0, time.UTC),
		Category:    ptr(CategoryHeavyRain),
		Temp:        ptr(10.0),
		Description: ptr("Heavy rain caused flooding"),
	}
	r := NewWeatherReport(day, NewPoint(52.09332, 1.32042), obs.Timestamp)
	r.Owner = testWatcher()
	r.Observations = []Observation{obs}

	doc, err := r.StorageDoc()
	require.NoError(t, err)

	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	raw := bson.Raw(data)

	for _, absent := range []string{"_id", "station", "readings", "day_summary"} {
		_, err := raw.LookupErr(absent)
		assert.Error(t, err, "field %q should be omitted", absent)
	}
	assert.Equal(t, int32(1), raw.Lookup("version").Int32())
	assert.Equal(t, "Paul S", raw.Lookup("owner", "name").StringValue())
	_, err = raw.LookupErr("owner", "email")
	assert.Error(t, err, "report owner subset carries no contact fields")

	observation := raw.Lookup("observations").Array().Index(0).Value().Document()
	assert.Equal(t, "Heavy rain", observation.Lookup("category").StringValue())
	for _, absent := range []string{"humidity", "precip", "sample_duration", "pressure", "wind_speed", "wind_direction", "photo"} {
		_, err := observation.LookupErr(absent)
		assert.Error(t, err, "observation field %q should be omitted", absent)
	}
}

func TestWeatherReportStorageDoc_StationReport(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	station := &WeatherStation{ID: "WS-CAM001", Name: "Cambridge", Location: NewPoint(52.2, 0.12), Owner: testInstitution(), Status: StatusOnline}
	r := NewWeatherReport(day, station.Location, EndOfDay(day))
	r.Station = station
	r.Owner = station.Owner
	r.Readings = []StationReading{{Timestamp: day, SampleDuration: 3600, Temp: 4.2}}
	r.DaySummary = &DaySummary{TempMean: 4.2, TempMin: 4.2, TempMax: 4.2}

	doc, err := r.StorageDoc()
	require.NoError(t, err)

	want := ReportDoc{
		Date:         day,
		Version:      1,
		LastModified: time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC),
		Location:     station.Location,
		Station:      &StationRef{StationID: "WS-CAM001", Name: "Cambridge"},
		Owner:        &OwnerSubset{OwnerType: "University", UserID: "camUni", Name: "Cambridge University"},
		Readings:     r.Readings,
		DaySummary:   r.DaySummary,
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("StorageDoc() mismatch (-want +got):\n%s", diff)
	}
}

func TestWeatherReportStorageDoc_RejectsZeroVersion(t *testing.T) {
	_, err := WeatherReport{}.StorageDoc()
	require.Error(t, err)
}

func TestWeatherReportStorageDoc_AdministratorOwnerRejected(t *testing.T) {
	r := NewWeatherReport(time.Now(), NewPoint(0, 0), time.Now())
	r.Owner = &Administrator{ID: "admin1"}
	_, err := r.StorageDoc()
	require.ErrorIs(t, err, ErrNotAnOwner)
}

func TestWeatherStationStorageDoc(t *testing.T) {
	logItem := &MaintenanceLogItem{
		Timestamp: time.Date(2025, 4, 7, 11, 20, 0, 0, time.UTC),
		StationID: "WS-GLA001",
		TechID:    "T-003",
		Report:    "Cleaned solar panel.",
	}
	s := WeatherStation{
		ID:                "WS-GLA001",
		Name:              "Glasgow",
		Location:          NewPoint(55.86, -4.25),
		Owner:             &Institution{ID: "metoff1", Name: "Met Office", InstitutionType: "Government", Contact: "Mr Simon Jones", Email: "stations@metoffice.gov.uk", Telephone: "03709000100"},
		Status:            StatusOnline,
		LatestMaintenance: logItem,
	}

	doc, err := s.StorageDoc()
	require.NoError(t, err)
	assert.Equal(t, "WS-GLA001", doc.ID)
	assert.Equal(t, "Mr Simon Jones", doc.Owner.Contact)
	require.NotNil(t, doc.LatestMaintenance)
	assert.Equal(t, MaintenanceSubset{Timestamp: logItem.Timestamp, TechID: "T-003", Report: "Cleaned solar panel."}, *doc.LatestMaintenance)

	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	_, err = bson.Raw(data).LookupErr("latest_maintenance", "station_id")
	assert.Error(t, err, "station subset of a log item drops station_id")
}

func TestBalloonStorageDoc(t *testing.T) {
	launch := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	b := WeatherBalloonReport{
		LaunchDate:         launch,
		Station:            GroundStation{ID: "03743", Name: "Herstmonceux", Owner: &Institution{ID: "metoff1", Name: "Met Office", InstitutionType: "Government"}},
		Location:           NewPoint3D(50.89, 0.32, 52),
		RadiosondeSerial:   "V1234567",
		RadiosondeSoftware: "RS41 2.1",
		LastModified:       launch.Add(90 * time.Minute),
		Version:            InitialVersion,
		Readings:           []RadiosondeReading{{Timestamp: launch, Location: NewPoint3D(50.89, 0.32, 52), GPHeight: 52}},
	}

	doc, err := b.StorageDoc()
	require.NoError(t, err)
	assert.Equal(t, "03743", doc.Station.StationID)
	assert.Equal(t, "Met Office", doc.Station.Owner.Name)
	assert.Equal(t, Radiosonde{Serial: "V1234567", Software: "RS41 2.1"}, doc.Radiosonde)
	assert.Len(t, doc.Readings, 1)
}

func TestParseWeatherCategory(t *testing.T) {
	c, err := ParseWeatherCategory("Sunny intervals")
	require.NoError(t, err)
	assert.Equal(t, CategorySunnyIntervals, c)

	_, err = ParseWeatherCategory("Blizzard")
	require.Error(t, err)
	assert.Len(t, weatherCategories, 24)
}
