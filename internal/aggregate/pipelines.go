package aggregate

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

// Earth radius and unit conversions used by the geospatial queries.
const (
	EarthRadiusMiles = 3963.2
	MetersPerMile    = 1609.34
	bytesPerMiB      = 1048576
	topStorageUsers  = 5
)

// Thresholds of the extremes classification. Wind and precipitation share the
// units of the imported sources.
const (
	QualifyColdBelow   = -5.0
	VeryColdBelow      = 0.0
	VeryHotAbove       = 28.0
	StrongWindAbove    = 12.0
	HeavyRainAbove     = 15.0
	ExtremeVeryCold    = "Very Cold"
	ExtremeVeryHot     = "Very Hot"
	ExtremeStorm       = "Storm"
	ExtremeStrongWinds = "Strong Winds"
	ExtremeHeavyRain   = "Heavy Rain"
)

// Default hour window of the time-windowed averages.
const (
	DefaultStartHour = 10
	DefaultEndHour   = 15
)

// HourWindow is a half-open hour-of-day range [Start, End).
type HourWindow struct {
	Start int
	End   int
}

// DefaultHourWindow covers late morning to mid afternoon.
func DefaultHourWindow() HourWindow {
	return HourWindow{Start: DefaultStartHour, End: DefaultEndHour}
}

func (w HourWindow) validate() error {
	if w.Start < 0 || w.End > 24 || w.Start >= w.End {
		return fmt.Errorf("%w: hour window [%d, %d)", domain.ErrInvalidArgument, w.Start, w.End)
	}
	return nil
}

func (w HourWindow) match(field string) Stage {
	return Match(bson.D{{Key: field, Value: bson.D{
		{Key: "$gte", Value: w.Start},
		{Key: "$lt", Value: w.End},
	}}})
}

func dayWindow(day time.Time) bson.D {
	start := domain.DayStart(day)
	return bson.D{
		{Key: "$gte", Value: start},
		{Key: "$lt", Value: start.AddDate(0, 0, 1)},
	}
}

func dayString(path string) bson.D {
	return bson.D{{Key: "$dateToString", Value: bson.D{
		{Key: "format", Value: "%Y-%m-%d"},
		{Key: "date", Value: path},
	}}}
}

func op(name string, arg any) bson.D { return bson.D{{Key: name, Value: arg}} }

// DaySummary rolls up the readings of one report. The first row of the result
// is the summary document; no readings yield no rows.
func DaySummary(reportID primitive.ObjectID) Pipeline {
	return Pipeline{
		Name:       "day_summary",
		Collection: domain.CollectionWeatherReports,
		Stages: []Stage{
			Match(bson.D{{Key: "_id", Value: reportID}}),
			Unwind("$readings"),
			Group(bson.D{
				{Key: "_id", Value: "$_id"},
				{Key: "temp_mean", Value: op("$avg", "$readings.temp")},
				{Key: "temp_min", Value: op("$min", "$readings.temp")},
				{Key: "temp_max", Value: op("$max", "$readings.temp")},
				{Key: "dewpoint_mean", Value: op("$avg", "$readings.dewpoint")},
				{Key: "humidity_mean", Value: op("$avg", "$readings.humidity")},
				{Key: "humidity_min", Value: op("$min", "$readings.humidity")},
				{Key: "humidity_max", Value: op("$max", "$readings.humidity")},
				{Key: "pressure_mean", Value: op("$avg", "$readings.pressure")},
				{Key: "pressure_min", Value: op("$min", "$readings.pressure")},
				{Key: "pressure_max", Value: op("$max", "$readings.pressure")},
				{Key: "precip_sum", Value: op("$sum", "$readings.precip")},
				{Key: "cloud_cover_mean", Value: op("$avg", "$readings.cloud_cover")},
				{Key: "wind_speed_mean", Value: op("$avg", "$readings.wind_speed")},
				{Key: "wind_speed_min", Value: op("$min", "$readings.wind_speed")},
				{Key: "wind_speed_max", Value: op("$max", "$readings.wind_speed")},
				{Key: "sunshine", Value: op("$sum", "$readings.sunshine")},
			}),
			Project(bson.D{{Key: "_id", Value: 0}}),
		},
	}
}

// StationsNearFilter selects stations inside a spherical cap of radiusMiles
// around center.
func StationsNearFilter(center domain.Point, radiusMiles float64) (bson.D, error) {
	if radiusMiles <= 0 {
		return nil, fmt.Errorf("%w: radius %v", domain.ErrInvalidArgument, radiusMiles)
	}
	return bson.D{{Key: "location", Value: op("$geoWithin", op("$centerSphere", bson.A{
		bson.A{center.Lon, center.Lat},
		radiusMiles / EarthRadiusMiles,
	}))}}, nil
}

// HourlyAverage averages one station's temperatures within the hour window,
// per calendar day, newest day first.
func HourlyAverage(stationID string, w HourWindow) (Pipeline, error) {
	if err := w.validate(); err != nil {
		return Pipeline{}, err
	}
	return Pipeline{
		Name:       "hourly_average",
		Collection: domain.CollectionWeatherReports,
		Stages: []Stage{
			Match(bson.D{{Key: "station.station_id", Value: stationID}}),
			Unwind("$readings"),
			Project(bson.D{
				{Key: "station_name", Value: "$station.name"},
				{Key: "date", Value: 1},
				{Key: "timestamp", Value: "$readings.timestamp"},
				{Key: "temperature", Value: "$readings.temp"},
				{Key: "hour", Value: op("$hour", "$readings.timestamp")},
			}),
			w.match("hour"),
			Group(bson.D{
				{Key: "_id", Value: bson.D{{Key: "date", Value: dayString("$date")}}},
				{Key: "station_name", Value: op("$first", "$station_name")},
				{Key: "avg_temperature", Value: op("$avg", "$temperature")},
				{Key: "reading_count", Value: op("$sum", 1)},
			}),
			Sort(bson.D{{Key: "_id.date", Value: -1}}),
		},
	}, nil
}

// AreaQuery parameterizes AreaAverage.
type AreaQuery struct {
	Center      domain.Point
	RadiusMiles float64
	From        time.Time
	To          time.Time
	Hours       HourWindow
}

// AreaAverage joins reports within a radius to a time window and hour window,
// then collapses per-day averages into one overall average per station,
// coldest first. From is inclusive and To exclusive.
func AreaAverage(q AreaQuery) (Pipeline, error) {
	if q.RadiusMiles <= 0 {
		return Pipeline{}, fmt.Errorf("%w: radius %v", domain.ErrInvalidArgument, q.RadiusMiles)
	}
	if !q.From.Before(q.To) {
		return Pipeline{}, fmt.Errorf("%w: empty time window", domain.ErrInvalidArgument)
	}
	if err := q.Hours.validate(); err != nil {
		return Pipeline{}, err
	}
	return Pipeline{
		Name:       "area_average",
		Collection: domain.CollectionWeatherReports,
		Stages: []Stage{
			GeoNear(bson.D{
				{Key: "near", Value: bson.D{
					{Key: "type", Value: "Point"},
					{Key: "coordinates", Value: bson.A{q.Center.Lon, q.Center.Lat}},
				}},
				{Key: "distanceField", Value: "distance"},
				{Key: "maxDistance", Value: q.RadiusMiles * MetersPerMile},
				{Key: "spherical", Value: true},
				{Key: "includeLocs", Value: "location"},
			}),
			Unwind("$readings"),
			Project(bson.D{
				{Key: "station_id", Value: "$station.station_id"},
				{Key: "station_name", Value: "$station.name"},
				{Key: "date", Value: 1},
				{Key: "timestamp", Value: "$readings.timestamp"},
				{Key: "temperature", Value: "$readings.temp"},
				{Key: "hour", Value: op("$hour", "$readings.timestamp")},
				{Key: "distance", Value: 1},
			}),
			Match(bson.D{
				{Key: "hour", Value: bson.D{{Key: "$gte", Value: q.Hours.Start}, {Key: "$lt", Value: q.Hours.End}}},
				{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: q.From}, {Key: "$lt", Value: q.To}}},
			}),
			Group(bson.D{
				{Key: "_id", Value: bson.D{
					{Key: "station_id", Value: "$station_id"},
					{Key: "date", Value: dayString("$date")},
				}},
				{Key: "station_name", Value: op("$first", "$station_name")},
				{Key: "distance", Value: op("$first", "$distance")},
				{Key: "avg_temperature", Value: op("$avg", "$temperature")},
				{Key: "reading_count", Value: op("$sum", 1)},
			}),
			Group(bson.D{
				{Key: "_id", Value: "$_id.station_id"},
				{Key: "station_name", Value: op("$first", "$station_name")},
				{Key: "distance", Value: op("$first", "$distance")},
				{Key: "overall_avg_temperature", Value: op("$avg", "$avg_temperature")},
				{Key: "days_with_data", Value: op("$sum", 1)},
			}),
			Sort(bson.D{{Key: "overall_avg_temperature", Value: 1}}),
		},
	}, nil
}

// OwnerTypeWindSpeeds ranks stations of one owner type by their maximum wind
// speed over an inclusive date window.
func OwnerTypeWindSpeeds(ownerType string, start, end time.Time) (Pipeline, error) {
	if end.Before(start) {
		return Pipeline{}, fmt.Errorf("%w: end before start", domain.ErrInvalidArgument)
	}
	return Pipeline{
		Name:       "owner_type_wind_speeds",
		Collection: domain.CollectionWeatherReports,
		Stages: []Stage{
			Match(bson.D{
				{Key: "date", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}},
				{Key: "day_summary.wind_speed_max", Value: op("$exists", true)},
				{Key: "owner.owner_type", Value: ownerType},
			}),
			Project(bson.D{
				{Key: "station_id", Value: "$station.station_id"},
				{Key: "station_name", Value: "$station.name"},
				{Key: "date", Value: 1},
				{Key: "max_wind_speed", Value: "$day_summary.wind_speed_max"},
				{Key: "min_wind_speed", Value: "$day_summary.wind_speed_min"},
				{Key: "mean_wind_speed", Value: "$day_summary.wind_speed_mean"},
			}),
			Group(bson.D{
				{Key: "_id", Value: "$station_id"},
				{Key: "station_name", Value: op("$first", "$station_name")},
				{Key: "overall_max_wind_speed", Value: op("$max", "$max_wind_speed")},
				{Key: "overall_min_wind_speed", Value: op("$min", "$min_wind_speed")},
				{Key: "overall_avg_wind_speed", Value: op("$avg", "$mean_wind_speed")},
				{Key: "days_with_data", Value: op("$sum", 1)},
			}),
			Sort(bson.D{{Key: "overall_max_wind_speed", Value: -1}}),
		},
	}, nil
}

// TechnicianActivity counts one station's maintenance logs per technician
// since the given instant, joined to technician profiles, alongside the
// distinct technician count.
func TechnicianActivity(stationID string, since time.Time) Pipeline {
	return Pipeline{
		Name:       "technician_activity",
		Collection: domain.CollectionMaintenanceLogs,
		Stages: []Stage{
			Match(bson.D{
				{Key: "station_id", Value: stationID},
				{Key: "timestamp", Value: op("$gte", since)},
			}),
			Facet(bson.D{
				{Key: "tech_summary", Value: bson.A{
					Group(bson.D{
						{Key: "_id", Value: "$tech_id"},
						{Key: "log_count", Value: op("$sum", 1)},
					}).BSON(),
					Lookup(domain.CollectionTechnicians, "_id", "_id", "tech_info").BSON(),
					Project(bson.D{
						{Key: "tech_id", Value: "$_id"},
						{Key: "log_count", Value: 1},
						{Key: "name", Value: op("$arrayElemAt", bson.A{"$tech_info.name", 0})},
						{Key: "telephone", Value: op("$arrayElemAt", bson.A{"$tech_info.telephone", 0})},
					}).BSON(),
					Sort(bson.D{{Key: "log_count", Value: -1}}).BSON(),
				}},
				{Key: "total_tech_count", Value: bson.A{
					Group(bson.D{{Key: "_id", Value: "$tech_id"}}).BSON(),
					Count("total_techs").BSON(),
				}},
			}),
		},
	}
}

// BalloonReadings returns one page of a launch's readings ordered by
// geopotential height. Pages start at 1.
func BalloonReadings(stationID string, launchDay time.Time, page, pageSize int) (Pipeline, error) {
	if page < 1 || pageSize < 1 {
		return Pipeline{}, fmt.Errorf("%w: page %d size %d", domain.ErrInvalidArgument, page, pageSize)
	}
	return Pipeline{
		Name:       "balloon_readings",
		Collection: domain.CollectionWeatherBalloonReports,
		Stages: []Stage{
			Match(bson.D{
				{Key: "station.station_id", Value: stationID},
				{Key: "launch_date", Value: dayWindow(launchDay)},
			}),
			Unwind("$readings"),
			Sort(bson.D{{Key: "readings.gpheight", Value: 1}}),
			Skip(int64(page-1) * int64(pageSize)),
			Limit(int64(pageSize)),
			Project(bson.D{
				{Key: "_id", Value: 0},
				{Key: "timestamp", Value: "$readings.timestamp"},
				{Key: "gpheight", Value: "$readings.gpheight"},
				{Key: "temp", Value: "$readings.temp"},
			}),
		},
	}, nil
}

func fahrenheit(path string) bson.D {
	return op("$add", bson.A{op("$multiply", bson.A{path, 1.8}), 32})
}

func round1(expr any) bson.D {
	return op("$round", bson.A{expr, 1})
}

func tempAtHour(hour int) bson.D {
	return op("$max", op("$cond", bson.A{
		op("$eq", bson.A{"$reading_hour", hour}),
		"$readings.temp",
		nil,
	}))
}

// CoolerAfternoons finds the days of a year on which a station's 15:00
// reading was colder than its 09:00 reading. Days missing either reading are
// dropped.
func CoolerAfternoons(stationID string, year int) Pipeline {
	return Pipeline{
		Name:       "cooler_afternoons",
		Collection: domain.CollectionWeatherReports,
		Stages: []Stage{
			Match(bson.D{
				{Key: "station.station_id", Value: stationID},
				{Key: "$expr", Value: op("$eq", bson.A{op("$year", "$date"), year})},
			}),
			Unwind("$readings"),
			AddFields(bson.D{{Key: "reading_hour", Value: op("$hour", "$readings.timestamp")}}),
			Match(bson.D{{Key: "reading_hour", Value: op("$in", bson.A{9, 15})}}),
			Group(bson.D{
				{Key: "_id", Value: "$date"},
				{Key: "station_id", Value: op("$first", "$station.station_id")},
				{Key: "station_name", Value: op("$first", "$station.name")},
				{Key: "temp_9am", Value: tempAtHour(9)},
				{Key: "temp_3pm", Value: tempAtHour(15)},
			}),
			Match(bson.D{
				{Key: "temp_9am", Value: op("$ne", nil)},
				{Key: "temp_3pm", Value: op("$ne", nil)},
			}),
			AddFields(bson.D{
				{Key: "temp_diff", Value: round1(op("$subtract", bson.A{"$temp_3pm", "$temp_9am"}))},
				{Key: "temp_9am_f", Value: round1(fahrenheit("$temp_9am"))},
				{Key: "temp_3pm_f", Value: round1(fahrenheit("$temp_3pm"))},
				{Key: "temp_diff_f", Value: round1(op("$subtract", bson.A{
					fahrenheit("$temp_3pm"),
					fahrenheit("$temp_9am"),
				}))},
			}),
			Match(bson.D{{Key: "$expr", Value: op("$lt", bson.A{"$temp_3pm", "$temp_9am"})}}),
			Sort(bson.D{{Key: "_id", Value: 1}}),
		},
	}
}

// StorageReport materializes serialized report bytes per (year, month, owner)
// into the storage report collection, replacing its previous contents.
func StorageReport() Pipeline {
	return Pipeline{
		Name:       "storage_report",
		Collection: domain.CollectionWeatherReports,
		Stages: []Stage{
			AddFields(bson.D{
				{Key: "doc_size_bytes", Value: op("$bsonSize", "$$ROOT")},
				{Key: "year", Value: op("$year", "$date")},
				{Key: "month", Value: op("$month", "$date")},
				{Key: "owner_id", Value: "$owner.user_id"},
			}),
			Group(bson.D{
				{Key: "_id", Value: bson.D{
					{Key: "year", Value: "$year"},
					{Key: "month", Value: "$month"},
					{Key: "owner_id", Value: "$owner_id"},
				}},
				{Key: "total_storage_bytes", Value: op("$sum", "$doc_size_bytes")},
				{Key: "document_count", Value: op("$sum", 1)},
			}),
			Out(domain.CollectionStorageReport),
		},
	}
}

// TopStorageUsers ranks owners by storage across all months of the storage
// report, in MiB rounded to two decimals.
func TopStorageUsers() Pipeline {
	return Pipeline{
		Name:       "top_storage_users",
		Collection: domain.CollectionStorageReport,
		Stages: []Stage{
			Group(bson.D{
				{Key: "_id", Value: "$_id.owner_id"},
				{Key: "total_bytes", Value: op("$sum", "$total_storage_bytes")},
			}),
			Project(bson.D{
				{Key: "owner_id", Value: "$_id"},
				{Key: "_id", Value: 0},
				{Key: "total_storage_MB", Value: op("$round", bson.A{
					op("$divide", bson.A{"$total_bytes", bytesPerMiB}),
					2,
				})},
			}),
			Sort(bson.D{{Key: "total_storage_MB", Value: -1}}),
			Limit(topStorageUsers),
		},
	}
}

func cond(test any, then, otherwise any) bson.D {
	return op("$cond", bson.A{test, then, otherwise})
}

// Extremes classifies qualifying station days and upserts them into the
// extremes collection keyed by "<station id>-YYYYMMDD". An empty stationID
// classifies every station.
func Extremes(stationID string) Pipeline {
	filter := bson.D{}
	if stationID != "" {
		filter = append(filter, bson.E{Key: "station.station_id", Value: stationID})
	}
	filter = append(filter, bson.E{Key: "$or", Value: bson.A{
		bson.D{{Key: "day_summary.temp_min", Value: op("$lt", QualifyColdBelow)}},
		bson.D{{Key: "day_summary.temp_max", Value: op("$gt", VeryHotAbove)}},
		bson.D{{Key: "day_summary.wind_speed_max", Value: op("$gt", StrongWindAbove)}},
		bson.D{{Key: "day_summary.precip_sum", Value: op("$gt", HeavyRainAbove)}},
	}})

	windy := op("$gt", bson.A{"$day_summary.wind_speed_max", StrongWindAbove})
	wet := op("$gt", bson.A{"$day_summary.precip_sum", HeavyRainAbove})

	return Pipeline{
		Name:       "extremes",
		Collection: domain.CollectionWeatherReports,
		Stages: []Stage{
			Match(filter),
			AddFields(bson.D{
				{Key: "extreme_temp", Value: cond(
					op("$lt", bson.A{"$day_summary.temp_min", VeryColdBelow}),
					ExtremeVeryCold,
					cond(op("$gt", bson.A{"$day_summary.temp_max", VeryHotAbove}), ExtremeVeryHot, nil),
				)},
				{Key: "extreme_weather", Value: cond(
					op("$and", bson.A{windy, wet}),
					ExtremeStorm,
					cond(windy, ExtremeStrongWinds, cond(wet, ExtremeHeavyRain, nil)),
				)},
			}),
			Project(bson.D{
				{Key: "_id", Value: op("$concat", bson.A{
					op("$toString", "$station.station_id"),
					"-",
					op("$dateToString", bson.D{{Key: "format", Value: "%Y%m%d"}, {Key: "date", Value: "$date"}}),
				})},
				{Key: "date", Value: 1},
				{Key: "station_id", Value: "$station.station_id"},
				{Key: "station_name", Value: "$station.name"},
				{Key: "extreme_temp", Value: 1},
				{Key: "extreme_weather", Value: 1},
				{Key: "temp_min", Value: "$day_summary.temp_min"},
				{Key: "temp_max", Value: "$day_summary.temp_max"},
				{Key: "wind_speed_max", Value: "$day_summary.wind_speed_max"},
				{Key: "precip_sum", Value: "$day_summary.precip_sum"},
			}),
			Merge(domain.CollectionWeatherExtremes, "_id"),
		},
	}
}
