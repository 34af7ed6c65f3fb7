package normalize

import "time"

// DefaultFreshnessWindow is how old the latest filing may be before the
// data is considered stale.
const DefaultFreshnessWindow = 180 * 24 * time.Hour

// IsDateStale reports whether date is older than window relative to asOf.
// An unknown (zero) date is always stale.
func IsDateStale(date, asOf time.Time, window time.Duration) bool {
	if date.IsZero() {
		return true
	}
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return asOf.Sub(date) > window
}

// daysBetween counts whole days from then to now, floored at zero.
func daysBetween(then, now time.Time) int {
	d := int(now.Sub(then).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
