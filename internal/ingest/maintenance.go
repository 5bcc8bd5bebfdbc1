package ingest

import (
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/weather-report-store/internal/domain"
)

var maintenanceReports = []string{
	"No adjustments required",
	"Test log entry added.",
	"Performed full diagnostics.",
	"Calibrated temperature sensor.",
	"Replaced faulty anemometer.",
	"Cleaned solar panel.",
	"Reset communication module.",
	"Battery backup replaced.",
	"Tested humidity sensor.",
	"Checked rain gauge calibration.",
	"Cleared debris from sensor mount.",
	"Verified data transmission.",
	"Firmware updated.",
	"Sensor alignment adjusted.",
	"Power cycle performed.",
	"Secured loose wiring.",
	"Removed bird nesting material.",
	"Cleared obstruction from wind vane.",
	"Checked solar charging circuit.",
	"Repaired housing.",
	"Replaced wiring.",
}

// MaintenanceGenerator produces synthetic, seed-deterministic maintenance logs
// for seeding a database.
type MaintenanceGenerator struct {
	rng *rand.Rand
}

// NewMaintenanceGenerator returns a generator whose output depends only on seed
// and the order of calls.
func NewMaintenanceGenerator(seed uint64) *MaintenanceGenerator {
	return &MaintenanceGenerator{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Generate returns logs for stationID from start to end inclusive, one visit
// every 5 to 10 days between 09:00 and 16:59 UTC, each by a random technician.
// It returns nil when no technicians are given.
func (g *MaintenanceGenerator) Generate(stationID string, techIDs []string, start, end time.Time) []domain.MaintenanceLogItem {
	if len(techIDs) == 0 {
		return nil
	}

	var logs []domain.MaintenanceLogItem
	for day := domain.DayStart(start); !day.After(end); day = day.AddDate(0, 0, 5+g.rng.IntN(6)) {
		tech := techIDs[g.rng.IntN(len(techIDs))]
		hour := 9 + g.rng.IntN(8)
		minute := g.rng.IntN(60)
		logs = append(logs, domain.MaintenanceLogItem{
			Timestamp: day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute),
			StationID: stationID,
			TechID:    tech,
			Report:    maintenanceReports[g.rng.IntN(len(maintenanceReports))],
		})
	}
	return logs
}
