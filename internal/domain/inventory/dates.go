package inventory

import "time"

// DateOnly truncates a timestamp to its UTC calendar date. FEFO ordering,
// expiry comparison, and snapshot keys all operate on dates, never on clock
// times.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateOnlyPtr truncates an optional timestamp.
func DateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := DateOnly(*t)
	return &d
}

// AddMonthsClamped adds calendar months, clamping to the last day of the
// target month: Jan 31 + 1 month = Feb 28 (or 29), not Mar 3.
func AddMonthsClamped(t time.Time, months int) time.Time {
	t = DateOnly(t)
	day := t.Day()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// absDays returns the absolute difference between two dates in whole days.
func absDays(a, b time.Time) int {
	d := DateOnly(a).Sub(DateOnly(b))
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
