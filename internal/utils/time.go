package contextutils

import (
	"time"
)

// DaysSince returns the number of whole calendar days between then and now,
// computed on UTC day boundaries so a record added late in the evening still
// ages by one day at midnight.
func DaysSince(then, now time.Time) int {
	thenDay := StartOfDayUTC(then)
	nowDay := StartOfDayUTC(now)
	return int(nowDay.Sub(thenDay).Hours() / 24)
}

// StartOfDayUTC truncates a timestamp to 00:00 UTC of the same calendar day.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date string in UTC.
func ParseDate(dateStr string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, WrapError(err, "invalid date format")
	}
	return date, nil
}
