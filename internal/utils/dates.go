package utils

import "time"

const hoursPerDay = 24

// StartOfMonth returns midnight UTC on the first day of t's month
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the start of the month n months after t's month.
// n may be negative.
func AddMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// MonthSpan counts the month starts in [from, to), never less than 1.
func MonthSpan(from, to time.Time) int {
	f, t := StartOfMonth(from), StartOfMonth(to)
	months := (t.Year()-f.Year())*12 + int(t.Month()-f.Month())
	if months < 1 {
		return 1
	}
	return months
}

// DaysSince returns the number of calendar days elapsed from date to reference.
// The date itself is day 0; the result is never negative.
func DaysSince(date, reference time.Time) int {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	r := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, time.UTC)
	days := int(r.Sub(d).Hours() / hoursPerDay)
	if days < 0 {
		return 0
	}
	return days
}

// CalendarDate returns the calendar day of t as observed in loc, expressed as midnight UTC
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a YYYY-MM-DD value as midnight in loc, so CalendarDate(ParseDate(v), loc) yields v
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02", value, loc)
}

// MonthLabel formats the month as "January 2006"
func MonthLabel(t time.Time) string {
	return t.Format("January 2006")
}
