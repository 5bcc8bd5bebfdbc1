package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

type featureCollection struct {
	Properties struct {
		SoftwareVersion *string `json:"sonde_swversion"`
		Serial          *string `json:"sonde_serial"`
	} `json:"properties"`
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   *featureGeometry  `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

// featureGeometry defers decoding coordinates until the type is known, since
// lines and polygons nest their coordinate arrays.
type featureGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func (g featureGeometry) point() (domain.Point, error) {
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return domain.Point{}, fmt.Errorf("%w: point coordinates: %v", domain.ErrMalformedGeometry, err)
	}
	return domain.PointFromGeometry(domain.Geometry{Type: g.Type, Coordinates: coords}, 3)
}

type featureProperties struct {
	Time     *float64 `json:"time"`
	GPHeight *float64 `json:"gpheight"`
	Temp     *float64 `json:"temp"`
	Dewpoint *float64 `json:"dewpoint"`
	Pressure *float64 `json:"pressure"`
	WindU    *float64 `json:"wind_u"`
	WindV    *float64 `json:"wind_v"`
}

// Sounding is a parsed radiosonde feature collection.
type Sounding struct {
	Serial          string
	SoftwareVersion string
	// Location is the first Point seen; LastModified the timestamp of the last.
	Location     domain.Point
	LastModified time.Time
	Readings     []domain.RadiosondeReading
}

// ParseRadiosonde decodes a radiosonde GeoJSON feature collection. Features
// whose geometry is not a Point are skipped. Point features must carry three
// coordinates. Epoch timestamps are stored as naive wall-clock time in loc.
func ParseRadiosonde(r io.Reader, loc *time.Location) (*Sounding, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("%w: decode feature collection: %v", domain.ErrMalformedSource, err)
	}
	if fc.Properties.Serial == nil || fc.Properties.SoftwareVersion == nil {
		return nil, fmt.Errorf("%w: missing sonde_serial or sonde_swversion", domain.ErrMalformedSource)
	}

	s := &Sounding{Serial: *fc.Properties.Serial, SoftwareVersion: *fc.Properties.SoftwareVersion}
	for i, f := range fc.Features {
		if f.Geometry == nil || f.Geometry.Type != "Point" {
			continue
		}
		location, err := f.Geometry.point()
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		reading, err := f.Properties.reading(location, loc)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		if len(s.Readings) == 0 {
			s.Location = location
		}
		s.LastModified = reading.Timestamp
		s.Readings = append(s.Readings, reading)
	}
	if len(s.Readings) == 0 {
		return nil, fmt.Errorf("%w: no point features", domain.ErrMalformedSource)
	}
	return s, nil
}

func (p featureProperties) reading(location domain.Point, loc *time.Location) (domain.RadiosondeReading, error) {
	required := []struct {
		name string
		v    *float64
	}{
		{"time", p.Time}, {"gpheight", p.GPHeight}, {"temp", p.Temp}, {"dewpoint", p.Dewpoint},
		{"pressure", p.Pressure}, {"wind_u", p.WindU}, {"wind_v", p.WindV},
	}
	for _, f := range required {
		if f.v == nil {
			return domain.RadiosondeReading{}, fmt.Errorf("%w: missing property %q", domain.ErrMalformedSource, f.name)
		}
	}

	speed, bearing := domain.WindFromComponents(*p.WindU, *p.WindV)
	return domain.RadiosondeReading{
		Timestamp:     domain.NaiveLocal(int64(math.Floor(*p.Time)), loc),
		Location:      location,
		GPHeight:      *p.GPHeight,
		Temp:          domain.KelvinToCelsius(*p.Temp),
		Dewpoint:      domain.KelvinToCelsius(*p.Dewpoint),
		Pressure:      *p.Pressure,
		WindSpeed:     speed,
		WindDirection: bearing,
	}, nil
}

// BalloonReport builds the version 1 balloon report for a launch.
func (s *Sounding) BalloonReport(launch time.Time, station domain.GroundStation) domain.WeatherBalloonReport {
	return domain.WeatherBalloonReport{
		LaunchDate:         launch,
		Station:            station,
		Location:           s.Location,
		RadiosondeSerial:   s.Serial,
		RadiosondeSoftware: s.SoftwareVersion,
		LastModified:       s.LastModified,
		Version:            domain.InitialVersion,
		Readings:           s.Readings,
	}
}
