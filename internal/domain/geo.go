package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
)

const geometryTypePoint = "Point"

// Geometry is the GeoJSON wire shape of a point.
type Geometry struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// Point is a WGS-84 location with an optional altitude in metres.
type Point struct {
	Lat float64
	Lon float64
	Alt *float64
}

// NewPoint returns a 2-D point.
func NewPoint(lat, lon float64) Point {
	return Point{Lat: lat, Lon: lon}
}

// NewPoint3D returns a point carrying an altitude.
func NewPoint3D(lat, lon, alt float64) Point {
	return Point{Lat: lat, Lon: lon, Alt: &alt}
}

// Geometry returns the GeoJSON form with (longitude, latitude[, altitude]) ordering.
func (p Point) Geometry() Geometry {
	coords := []float64{p.Lon, p.Lat}
	if p.Alt != nil {
		coords = append(coords, *p.Alt)
	}
	return Geometry{Type: geometryTypePoint, Coordinates: coords}
}

// PointFromGeometry converts a GeoJSON point back into a Point. arity pins the
// expected coordinate count (2 or 3); pass 0 to accept either.
func PointFromGeometry(g Geometry, arity int) (Point, error) {
	if g.Type != geometryTypePoint {
		return Point{}, fmt.Errorf("%w: unsupported geometry type %q", ErrMalformedGeometry, g.Type)
	}
	n := len(g.Coordinates)
	if n != 2 && n != 3 {
		return Point{}, fmt.Errorf("%w: point has %d coordinates, want 2 or 3", ErrMalformedGeometry, n)
	}
	if arity != 0 && n != arity {
		return Point{}, fmt.Errorf("%w: point has %d coordinates, want %d", ErrMalformedGeometry, n, arity)
	}
	if n == 3 {
		return NewPoint3D(g.Coordinates[1], g.Coordinates[0], g.Coordinates[2]), nil
	}
	return NewPoint(g.Coordinates[1], g.Coordinates[0]), nil
}

func (p Point) MarshalBSON() ([]byte, error) {
	return bson.Marshal(p.Geometry())
}

func (p *Point) UnmarshalBSON(data []byte) error {
	var g Geometry
	if err := bson.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("decode geometry: %w", err)
	}
	pt, err := PointFromGeometry(g, 0)
	if err != nil {
		return err
	}
	*p = pt
	return nil
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Geometry())
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var g Geometry
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("decode geometry: %w", err)
	}
	pt, err := PointFromGeometry(g, 0)
	if err != nil {
		return err
	}
	*p = pt
	return nil
}

// WindFromComponents converts u/v wind components into a speed and a bearing
// in degrees, with the bearing in [0, 360).
func WindFromComponents(u, v float64) (speed, bearing float64) {
	speed = math.Sqrt(u*u + v*v)
	bearing = math.Mod(radToDeg(math.Atan2(v, u))+360, 360)
	return speed, bearing
}

// KelvinToCelsius converts an absolute temperature to degrees Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - 273.15
}

func radToDeg(r float64) float64 {
	return r * 180 / math.Pi
}
