package domain

import (
	"fmt"
	"time"
)

// WeatherCategory is the closed set of conditions a watcher can report.
type WeatherCategory string

const (
	CategoryClear              WeatherCategory = "Clear"
	CategorySunny              WeatherCategory = "Sunny"
	CategorySunnyIntervals     WeatherCategory = "Sunny intervals"
	CategoryLightCloud         WeatherCategory = "Light cloud"
	CategoryHeavyCloud         WeatherCategory = "Heavy cloud"
	CategoryDrizzle            WeatherCategory = "Drizzle"
	CategorySunshineAndShowers WeatherCategory = "Sunshine and showers"
	CategoryLightShowers       WeatherCategory = "Light showers"
	CategoryHeavyShowers       WeatherCategory = "Heavy showers"
	CategoryLightRain          WeatherCategory = "Light rain"
	CategoryHeavyRain          WeatherCategory = "Heavy rain"
	CategoryThunderStorm       WeatherCategory = "Thunder storm"
	CategoryThunderyShowers    WeatherCategory = "Thundery showers"
	CategorySleetShowers       WeatherCategory = "Sleet showers"
	CategorySleet              WeatherCategory = "Sleet"
	CategoryLightSnowShowers   WeatherCategory = "Light snow showers"
	CategoryHeavySnowShowers   WeatherCategory = "Heavy snow showers"
	CategoryLightSnow          WeatherCategory = "Light snow"
	CategoryHeavySnow          WeatherCategory = "Heavy snow"
	CategoryHailShowers        WeatherCategory = "Hail showers"
	CategoryHail               WeatherCategory = "Hail"
	CategoryFog                WeatherCategory = "Fog"
	CategoryHazy               WeatherCategory = "Hazy"
	CategoryMist               WeatherCategory = "Mist"
)

var weatherCategories = map[WeatherCategory]struct{}{
	CategoryClear: {}, CategorySunny: {}, CategorySunnyIntervals: {}, CategoryLightCloud: {},
	CategoryHeavyCloud: {}, CategoryDrizzle: {}, CategorySunshineAndShowers: {}, CategoryLightShowers: {},
	CategoryHeavyShowers: {}, CategoryLightRain: {}, CategoryHeavyRain: {}, CategoryThunderStorm: {},
	CategoryThunderyShowers: {}, CategorySleetShowers: {}, CategorySleet: {}, CategoryLightSnowShowers: {},
	CategoryHeavySnowShowers: {}, CategoryLightSnow: {}, CategoryHeavySnow: {}, CategoryHailShowers: {},
	CategoryHail: {}, CategoryFog: {}, CategoryHazy: {}, CategoryMist: {},
}

// ParseWeatherCategory validates a category label.
func ParseWeatherCategory(s string) (WeatherCategory, error) {
	c := WeatherCategory(s)
	if _, ok := weatherCategories[c]; !ok {
		return "", fmt.Errorf("unknown weather category %q", s)
	}
	return c, nil
}

// Observation is a manual report from a person. Only Timestamp is required;
// absent fields are omitted from the stored document.
type Observation struct {
	Timestamp      time.Time        `bson:"timestamp" json:"timestamp"`
	Category       *WeatherCategory `bson:"category,omitempty" json:"category,omitempty"`
	Temp           *float64         `bson:"temp,omitempty" json:"temp,omitempty"`
	Description    *string          `bson:"description,omitempty" json:"description,omitempty"`
	Humidity       *float64         `bson:"humidity,omitempty" json:"humidity,omitempty"`
	Precip         *float64         `bson:"precip,omitempty" json:"precip,omitempty"`
	SampleDuration *int             `bson:"sample_duration,omitempty" json:"sample_duration,omitempty"`
	Pressure       *float64         `bson:"pressure,omitempty" json:"pressure,omitempty"`
	WindSpeed      *float64         `bson:"wind_speed,omitempty" json:"wind_speed,omitempty"`
	WindDirection  *float64         `bson:"wind_direction,omitempty" json:"wind_direction,omitempty"`
	Photo          []byte           `bson:"photo,omitempty" json:"-"`
}
