package domain

import "time"

// DayStart truncates t to midnight UTC of its calendar day.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns 23:59:59 on t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// NaiveLocal interprets epoch seconds in loc and keeps only the wall-clock
// reading, labelled UTC. Radiosonde timestamps are stored this way, unlike the
// tabular station sources which are true UTC.
func NaiveLocal(epochSeconds int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t := time.Unix(epochSeconds, 0).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// ReportKeyDate formats a report day the way derived collections key it.
func ReportKeyDate(t time.Time) string {
	return t.UTC().Format("20060102")
}
