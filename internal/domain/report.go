package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InitialVersion is the version of a freshly created report.
const InitialVersion = 1

var errVersion = errors.New("report version must be at least 1")

// WeatherReport is one day of data for a station or a manual observer.
// Station and Owner are optional; a nil Readings slice means no readings.
type WeatherReport struct {
	ID           primitive.ObjectID
	Date         time.Time
	Location     Point
	LastModified time.Time
	Version      int
	Station      *WeatherStation
	Owner        User
	Readings     []StationReading
	Observations []Observation
	DaySummary   *DaySummary
}

// NewWeatherReport returns a report in the created state.
func NewWeatherReport(date time.Time, location Point, lastModified time.Time) WeatherReport {
	return WeatherReport{
		Date:         date,
		Location:     location,
		LastModified: lastModified,
		Version:      InitialVersion,
	}
}

// ReportDoc is the storage projection of a weather report.
type ReportDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Date         time.Time          `bson:"date" json:"date"`
	Version      int                `bson:"version" json:"version"`
	LastModified time.Time          `bson:"last_modified" json:"last_modified"`
	Location     Point              `bson:"location" json:"location"`
	Station      *StationRef        `bson:"station,omitempty" json:"station,omitempty"`
	Owner        *OwnerSubset       `bson:"owner,omitempty" json:"owner,omitempty"`
	Readings     []StationReading   `bson:"readings,omitempty" json:"readings,omitempty"`
	Observations []Observation      `bson:"observations,omitempty" json:"observations,omitempty"`
	DaySummary   *DaySummary        `bson:"day_summary,omitempty" json:"day_summary,omitempty"`
}

// StorageDoc projects the report into its collection document. Optional
// parts are only emitted when present.
func (r WeatherReport) StorageDoc() (ReportDoc, error) {
	if r.Version < InitialVersion {
		return ReportDoc{}, errVersion
	}
	doc := ReportDoc{
		ID:           r.ID,
		Date:         r.Date,
		Version:      r.Version,
		LastModified: r.LastModified,
		Location:     r.Location,
		Readings:     r.Readings,
		Observations: r.Observations,
		DaySummary:   r.DaySummary,
	}
	if r.Station != nil {
		ref := r.Station.ReportRef()
		doc.Station = &ref
	}
	if r.Owner != nil {
		owner, err := ReportOwnerSubset(r.Owner)
		if err != nil {
			return ReportDoc{}, fmt.Errorf("project report owner: %w", err)
		}
		doc.Owner = &owner
	}
	return doc, nil
}

// AsUser rebuilds a minimal owner from an embedded subset so it can be
// projected again, for example when a report is created from a stored station.
func (o OwnerSubset) AsUser() User {
	if o.OwnerType == UserTypePrivate {
		return &WeatherWatcher{ID: o.UserID, DisplayName: o.Name}
	}
	return &Institution{
		ID:              o.UserID,
		Name:            o.Name,
		InstitutionType: o.OwnerType,
		Contact:         o.Contact,
		Email:           o.Email,
		Telephone:       o.Telephone,
	}
}

// WeatherBalloonReport is one radiosonde launch with its full reading set.
type WeatherBalloonReport struct {
	ID                 primitive.ObjectID
	LaunchDate         time.Time
	Station            GroundStation
	Location           Point
	RadiosondeSerial   string
	RadiosondeSoftware string
	LastModified       time.Time
	Version            int
	Readings           []RadiosondeReading
}

// Radiosonde identifies the instrument that produced a sounding.
type Radiosonde struct {
	Serial   string `bson:"serial" json:"serial"`
	Software string `bson:"software" json:"software"`
}

// BalloonDoc is the storage projection of a balloon report.
type BalloonDoc struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	LaunchDate   time.Time           `bson:"launch_date" json:"launch_date"`
	Station      GroundStationRef    `bson:"station" json:"station"`
	Location     Point               `bson:"location" json:"location"`
	Version      int                 `bson:"version" json:"version"`
	LastModified time.Time           `bson:"last_modified" json:"last_modified"`
	Radiosonde   Radiosonde          `bson:"radiosonde" json:"radiosonde"`
	Readings     []RadiosondeReading `bson:"readings,omitempty" json:"readings,omitempty"`
}

// StorageDoc projects the balloon report into its collection document.
func (b WeatherBalloonReport) StorageDoc() (BalloonDoc, error) {
	if b.Version < InitialVersion {
		return BalloonDoc{}, errVersion
	}
	station, err := b.Station.BalloonRef()
	if err != nil {
		return BalloonDoc{}, err
	}
	return BalloonDoc{
		ID:           b.ID,
		LaunchDate:   b.LaunchDate,
		Station:      station,
		Location:     b.Location,
		Version:      b.Version,
		LastModified: b.LastModified,
		Radiosonde:   Radiosonde{Serial: b.RadiosondeSerial, Software: b.RadiosondeSoftware},
		Readings:     b.Readings,
	}, nil
}

// ExtremeRecord is one row of the weather_extremes derived collection, keyed
// by "<station id>-YYYYMMDD".
type ExtremeRecord struct {
	ID             string    `bson:"_id" json:"id"`
	Date           time.Time `bson:"date" json:"date"`
	StationID      string    `bson:"station_id" json:"station_id"`
	StationName    string    `bson:"station_name" json:"station_name"`
	ExtremeTemp    *string   `bson:"extreme_temp" json:"extreme_temp"`
	ExtremeWeather *string   `bson:"extreme_weather" json:"extreme_weather"`
	TempMin        float64   `bson:"temp_min" json:"temp_min"`
	TempMax        float64   `bson:"temp_max" json:"temp_max"`
	WindSpeedMax   float64   `bson:"wind_speed_max" json:"wind_speed_max"`
	PrecipSum      float64   `bson:"precip_sum" json:"precip_sum"`
}

// ExtremeKey builds the derived-collection key of a station day.
func ExtremeKey(stationID string, date time.Time) string {
	return stationID + "-" + ReportKeyDate(date)
}
