package core

import "time"

// Next returns d advanced by one interval of f. Month-based intervals clamp
// to the last day of the target month, so Jan 31 + 1 month is Feb 28 (or 29).
func (f Frequency) Next(d Date) Date {
	switch f {
	case Weekly:
		return d.AddDays(7)
	case Biweekly:
		return d.AddDays(14)
	case Monthly:
		return addMonthsClamped(d, 1)
	case Quarterly:
		return addMonthsClamped(d, 3)
	case Yearly:
		return addMonthsClamped(d, 12)
	default:
		return d
	}
}

func addMonthsClamped(d Date, n int) Date {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := daysInMonth(first.Year(), first.Month())
	if day > lastDay {
		day = lastDay
	}
	return Date{Time: time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
