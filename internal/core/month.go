package core

import (
	"fmt"
	"strings"
	"time"
)

// Month is a calendar month, formatted as YYYY-MM.
type Month struct {
	Year  int
	Month time.Month
}

const monthLayout = "2006-01"

func MonthOf(t time.Time) Month {
	y, m, _ := t.UTC().Date()
	return Month{Year: y, Month: m}
}

// ParseMonth accepts YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return Month{}, Invalid("month", "must be formatted as YYYY-MM")
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start is the first day of the month.
func (m Month) Start() Date {
	return Date{Time: time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)}
}

// End is the last day of the month.
func (m Month) End() Date {
	return Date{Time: time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC)}
}

func (m Month) AddMonths(n int) Month {
	return MonthOf(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

func (m Month) Prev() Month {
	return m.AddMonths(-1)
}

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return MonthOf(d.Time) == m
}
