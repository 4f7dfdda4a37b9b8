package almanac

import "time"

// IsSunday reports whether the date falls on a Sunday.
func IsSunday(d Date) bool {
	return d.Weekday() == time.Sunday
}

// IsMonday reports whether the date falls on a Monday.
func IsMonday(d Date) bool {
	return d.Weekday() == time.Monday
}

// WeekStart returns the Monday on or before d.
func WeekStart(d Date) Date {
	// time.Weekday counts Sunday as 0; the game week runs Monday..Sunday.
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// InCurrentWeek reports whether target may be diarized given the current
// date. Weekday targets can be picked from anywhere within the current
// Monday..Sunday week, including retroactively; Sunday targets are valid
// only on the exact current day.
func InCurrentWeek(target, current Date) bool {
	if IsSunday(target) {
		return target.Equal(current.Time)
	}
	start := WeekStart(current)
	end := start.AddDays(6)
	return !target.Before(start.Time) && !target.After(end.Time)
}

// SameMonth reports whether both dates fall in the same calendar month
// of the same year.
func SameMonth(a, b Date) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthName returns the English month name for the date ("January").
func MonthName(d Date) string {
	return d.Month().String()
}

// DaysInMonth returns the number of days in the date's month.
func DaysInMonth(d Date) int {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}
