package domain

import "time"

// SoilLayer is one depth band of a soil measurement.
type SoilLayer struct {
	Temp     float64 `bson:"temp" json:"temp"`
	Moisture float64 `bson:"moisture" json:"moisture"`
}

// SoilProfile holds the four fixed depth bands reported by a station.
type SoilProfile struct {
	Band0To7     SoilLayer `bson:"0_to_7cm" json:"0_to_7cm"`
	Band7To28    SoilLayer `bson:"7_to_28cm" json:"7_to_28cm"`
	Band28To100  SoilLayer `bson:"28_to_100cm" json:"28_to_100cm"`
	Band100To255 SoilLayer `bson:"100_to_255cm" json:"100_to_255cm"`
}

// StationReading is one hourly measurement embedded in a weather report.
// SampleDuration is in seconds.
type StationReading struct {
	Timestamp      time.Time   `bson:"timestamp" json:"timestamp"`
	SampleDuration int         `bson:"sample_duration" json:"sample_duration"`
	Temp           float64     `bson:"temp" json:"temp"`
	Dewpoint       float64     `bson:"dewpoint" json:"dewpoint"`
	Humidity       float64     `bson:"humidity" json:"humidity"`
	Pressure       float64     `bson:"pressure" json:"pressure"`
	Precip         float64     `bson:"precip" json:"precip"`
	CloudCover     float64     `bson:"cloud_cover" json:"cloud_cover"`
	WindSpeed      float64     `bson:"wind_speed" json:"wind_speed"`
	WindDirection  float64     `bson:"wind_direction" json:"wind_direction"`
	Sunshine       float64     `bson:"sunshine" json:"sunshine"`
	Soil           SoilProfile `bson:"soil" json:"soil"`
}

// DaySummary is the roll-up of one report's readings: means, extremes, and
// sums for precipitation and sunshine.
type DaySummary struct {
	TempMean       float64 `bson:"temp_mean" json:"temp_mean"`
	TempMin        float64 `bson:"temp_min" json:"temp_min"`
	TempMax        float64 `bson:"temp_max" json:"temp_max"`
	DewpointMean   float64 `bson:"dewpoint_mean" json:"dewpoint_mean"`
	HumidityMean   float64 `bson:"humidity_mean" json:"humidity_mean"`
	HumidityMin    float64 `bson:"humidity_min" json:"humidity_min"`
	HumidityMax    float64 `bson:"humidity_max" json:"humidity_max"`
	PressureMean   float64 `bson:"pressure_mean" json:"pressure_mean"`
	PressureMin    float64 `bson:"pressure_min" json:"pressure_min"`
	PressureMax    float64 `bson:"pressure_max" json:"pressure_max"`
	PrecipSum      float64 `bson:"precip_sum" json:"precip_sum"`
	CloudCoverMean float64 `bson:"cloud_cover_mean" json:"cloud_cover_mean"`
	WindSpeedMean  float64 `bson:"wind_speed_mean" json:"wind_speed_mean"`
	WindSpeedMin   float64 `bson:"wind_speed_min" json:"wind_speed_min"`
	WindSpeedMax   float64 `bson:"wind_speed_max" json:"wind_speed_max"`
	Sunshine       float64 `bson:"sunshine" json:"sunshine"`
}

// RadiosondeReading is one altitude sample of a balloon sounding. Temperatures
// are Celsius, wind direction is a bearing in degrees.
type RadiosondeReading struct {
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
	Location      Point     `bson:"location" json:"location"`
	GPHeight      float64   `bson:"gpheight" json:"gpheight"`
	Temp          float64   `bson:"temp" json:"temp"`
	Dewpoint      float64   `bson:"dewpoint" json:"dewpoint"`
	Pressure      float64   `bson:"pressure" json:"pressure"`
	WindSpeed     float64   `bson:"wind_speed" json:"wind_speed"`
	WindDirection float64   `bson:"wind_direction" json:"wind_direction"`
}
