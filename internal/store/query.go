package store

import (
	"strconv"
	"time"
)

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// calendarDate renders at as a DATE literal in at's own location, so the
// day is decided by the application rather than the session time zone.
func calendarDate(at time.Time) string {
	return at.Format(time.DateOnly)
}
