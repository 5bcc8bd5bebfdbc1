package domain

// Collection names.
const (
	CollectionUsers                 = "users"
	CollectionTechnicians           = "technicians"
	CollectionWeatherReports        = "weather_reports"
	CollectionWeatherStations       = "weather_stations"
	CollectionMaintenanceLogs       = "maintenance_logs"
	CollectionWeatherBalloonReports = "weather_balloon_reports"
	CollectionStorageReport         = "weather_report_storage_report"
	CollectionWeatherExtremes       = "weather_extremes"
)
