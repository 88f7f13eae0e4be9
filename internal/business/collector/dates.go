package collector

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// BuildTargetDates returns n consecutive calendar dates starting today in loc.
func BuildTargetDates(now time.Time, n int, loc *time.Location) []string {
	if n <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	dates := make([]string, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, time.Date(y, m, d+i, 0, 0, 0, 0, loc).Format(dateLayout))
	}
	return dates
}

// AddOneNight returns the departure date of a one-night stay.
func AddOneNight(targetDate string, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, targetDate, loc)
	if err != nil {
		return "", fmt.Errorf("parse target date %q: %w", targetDate, err)
	}
	return t.AddDate(0, 0, 1).Format(dateLayout), nil
}

// ParseTargetDate parses a YYYY-MM-DD date in loc.
func ParseTargetDate(targetDate string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, targetDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse target date %q: %w", targetDate, err)
	}
	return t, nil
}

// FormatRunTsUTC renders the run instant with millisecond precision in UTC.
func FormatRunTsUTC(ts time.Time) string {
	return ts.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// FormatRunTsLocal renders the run instant as wall-clock time in loc.
func FormatRunTsLocal(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(time.RFC3339)
}
