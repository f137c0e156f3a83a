// Package biztime provides time utilities for storage and event payloads.
// All storage and transport use UTC; event timestamps are RFC3339.
package biztime

import (
	"fmt"
	"time"
)

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfDayUTC returns the start of the given time's UTC day. Used for
// "today" windows in dashboard aggregates.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatEventTime formats a time for event payloads using RFC3339.
func FormatEventTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseEventTime parses a timestamp produced by FormatEventTime.
func ParseEventTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format %q: %w", s, err)
	}
	return t, nil
}
