package reminder

import (
	"fmt"
	"strings"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// FormatDelta renders target-now, given in seconds, as a countdown phrase:
// "due in 1 day 3 hours", "overdue by 5 minutes" or "due now".
// Seconds are truncated; anything under a minute either way is "due now".
func FormatDelta(deltaSeconds int64) string {
	abs := deltaSeconds
	if abs < 0 {
		abs = -abs
	}

	days := abs / secondsPerDay
	hours := abs % secondsPerDay / secondsPerHour
	minutes := abs % secondsPerHour / secondsPerMinute

	parts := make([]string, 0, 3)
	parts = appendUnit(parts, days, "day")
	parts = appendUnit(parts, hours, "hour")
	parts = appendUnit(parts, minutes, "minute")

	if len(parts) == 0 {
		return "due now"
	}
	if deltaSeconds < 0 {
		return "overdue by " + strings.Join(parts, " ")
	}
	return "due in " + strings.Join(parts, " ")
}

// Describe formats target relative to now.
func Describe(target, now time.Time) string {
	return FormatDelta(int64(target.Sub(now) / time.Second))
}

func appendUnit(parts []string, n int64, unit string) []string {
	if n == 0 {
		return parts
	}
	if n != 1 {
		unit += "s"
	}
	return append(parts, fmt.Sprintf("%d %s", n, unit))
}
