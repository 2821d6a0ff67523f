// Package clock resolves "now", "today" and "tomorrow" in the one fixed
// civil time zone deliveries operate in. Every cutoff and reconciliation
// decision goes through a Zone; host-local time is never consulted.
package clock

import (
	"errors"
	"time"
)

// Clock abstracts wall-clock time so tests can inject a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by the real wall clock.
func System() Clock { return systemClock{} }

const dateLayout = "2006-01-02"

// Date is a civil calendar date (YYYY-MM-DD) in the delivery time zone.
// Lexicographic comparison matches chronological order.
type Date string

var ErrInvalidDate = errors.New("invalid_date")

// ParseDate validates and normalizes a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", ErrInvalidDate
	}
	return Date(t.Format(dateLayout)), nil
}

func (d Date) String() string { return string(d) }

func (d Date) Before(other Date) bool { return d < other }

func (d Date) After(other Date) bool { return d > other }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return d
	}
	return Date(t.AddDate(0, 0, n).Format(dateLayout))
}

// StartIn returns midnight of the date in the given location.
func (d Date) StartIn(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DateOf truncates an instant to its civil date in the given location.
func DateOf(t time.Time, loc *time.Location) Date {
	return Date(t.In(loc).Format(dateLayout))
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
