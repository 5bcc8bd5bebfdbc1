package aggregate

import "time"

// DayKey is the grouping key of per-day rows.
type DayKey struct {
	Date string `bson:"date" json:"date"`
}

// HourlyAverageRow is one day of a station's windowed temperature average.
type HourlyAverageRow struct {
	Day            DayKey  `bson:"_id" json:"day"`
	StationName    string  `bson:"station_name" json:"station_name"`
	AvgTemperature float64 `bson:"avg_temperature" json:"avg_temperature"`
	ReadingCount   int     `bson:"reading_count" json:"reading_count"`
}

// AreaAverageRow is one station's overall windowed average in an area query.
// Distance is in meters from the query center.
type AreaAverageRow struct {
	StationID             string  `bson:"_id" json:"station_id"`
	StationName           string  `bson:"station_name" json:"station_name"`
	Distance              float64 `bson:"distance" json:"distance"`
	OverallAvgTemperature float64 `bson:"overall_avg_temperature" json:"overall_avg_temperature"`
	DaysWithData          int     `bson:"days_with_data" json:"days_with_data"`
}

// WindSpeedRow summarizes one station's wind speeds over a window.
type WindSpeedRow struct {
	StationID           string  `bson:"_id" json:"station_id"`
	StationName         string  `bson:"station_name" json:"station_name"`
	OverallMaxWindSpeed float64 `bson:"overall_max_wind_speed" json:"overall_max_wind_speed"`
	OverallMinWindSpeed float64 `bson:"overall_min_wind_speed" json:"overall_min_wind_speed"`
	OverallAvgWindSpeed float64 `bson:"overall_avg_wind_speed" json:"overall_avg_wind_speed"`
	DaysWithData        int     `bson:"days_with_data" json:"days_with_data"`
}

// TechnicianCount is one technician's log count with profile details.
// Name and Telephone are empty when the technician has no profile.
type TechnicianCount struct {
	TechID    string `bson:"tech_id" json:"tech_id"`
	LogCount  int    `bson:"log_count" json:"log_count"`
	Name      string `bson:"name" json:"name"`
	Telephone string `bson:"telephone" json:"telephone"`
}

type totalTechs struct {
	TotalTechs int `bson:"total_techs"`
}

type technicianFacets struct {
	TechSummary    []TechnicianCount `bson:"tech_summary"`
	TotalTechCount []totalTechs      `bson:"total_tech_count"`
}

// TechnicianActivityResult holds both branches of the technician activity query.
type TechnicianActivityResult struct {
	Technicians      []TechnicianCount `json:"technicians"`
	TotalTechnicians int               `json:"total_technicians"`
}

// BalloonReadingRow is one projected radiosonde reading.
type BalloonReadingRow struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	GPHeight  float64   `bson:"gpheight" json:"gpheight"`
	Temp      float64   `bson:"temp" json:"temp"`
}

// CoolerAfternoonRow is a day whose 15:00 reading was colder than 09:00.
type CoolerAfternoonRow struct {
	Date        time.Time `bson:"_id" json:"date"`
	StationID   string    `bson:"station_id" json:"station_id"`
	StationName string    `bson:"station_name" json:"station_name"`
	Temp9am     float64   `bson:"temp_9am" json:"temp_9am"`
	Temp3pm     float64   `bson:"temp_3pm" json:"temp_3pm"`
	TempDiff    float64   `bson:"temp_diff" json:"temp_diff"`
	Temp9amF    float64   `bson:"temp_9am_f" json:"temp_9am_f"`
	Temp3pmF    float64   `bson:"temp_3pm_f" json:"temp_3pm_f"`
	TempDiffF   float64   `bson:"temp_diff_f" json:"temp_diff_f"`
}

// StorageKey groups storage accounting rows.
type StorageKey struct {
	Year    int    `bson:"year" json:"year"`
	Month   int    `bson:"month" json:"month"`
	OwnerID string `bson:"owner_id" json:"owner_id"`
}

// StorageReportRow is one materialized storage accounting row.
type StorageReportRow struct {
	Key               StorageKey `bson:"_id" json:"key"`
	TotalStorageBytes int64      `bson:"total_storage_bytes" json:"total_storage_bytes"`
	DocumentCount     int        `bson:"document_count" json:"document_count"`
}

// StorageUserRow is one owner's total storage in MiB.
type StorageUserRow struct {
	OwnerID        string  `bson:"owner_id" json:"owner_id"`
	TotalStorageMB float64 `bson:"total_storage_MB" json:"total_storage_mb"`
}
