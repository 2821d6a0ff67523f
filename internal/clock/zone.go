package clock

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPastDateNotAllowed = errors.New("past_date_not_allowed")
	ErrCutoffExceeded     = errors.New("cutoff_exceeded")
)

// CutoffError reports why a calendar date is currently immutable and when it
// becomes editable again.
type CutoffError struct {
	Date       Date
	CutoffHour int
	EditableAt time.Time
}

func (e *CutoffError) Error() string {
	return fmt.Sprintf("cutoff_exceeded: %s is locked after %02d:00", e.Date, e.CutoffHour)
}

func (e *CutoffError) Is(target error) bool { return target == ErrCutoffExceeded }

// Zone binds a Clock to the delivery time zone and the daily cutoff hour.
type Zone struct {
	clock      Clock
	loc        *time.Location
	cutoffHour int
}

// NewZone loads the named time zone. The cutoff hour is the hour of day (in
// that zone) from which tomorrow's deliveries can no longer be changed.
func NewZone(c Clock, tzName string, cutoffHour int) (*Zone, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("load delivery timezone %q: %w", tzName, err)
	}
	if cutoffHour < 0 || cutoffHour > 23 {
		return nil, fmt.Errorf("cutoff hour %d out of range", cutoffHour)
	}
	return &Zone{clock: c, loc: loc, cutoffHour: cutoffHour}, nil
}

// Now returns the current instant in the delivery time zone.
func (z *Zone) Now() time.Time { return z.clock.Now().In(z.loc) }

func (z *Zone) Location() *time.Location { return z.loc }

func (z *Zone) Today() Date { return DateOf(z.clock.Now(), z.loc) }

func (z *Zone) Tomorrow() Date { return z.Today().AddDays(1) }

// HourOfDay returns the current hour (0-23) in the delivery time zone.
func (z *Zone) HourOfDay() int { return z.Now().Hour() }

func (z *Zone) CutoffHour() int { return z.cutoffHour }

// CheckMutable decides whether a calendar date may still be changed.
// Dates before today are immutable. Tomorrow locks at the cutoff hour and
// unlocks at midnight when it becomes today. Today and later dates are
// always mutable.
func (z *Zone) CheckMutable(d Date) error {
	today := z.Today()
	if d.Before(today) {
		return ErrPastDateNotAllowed
	}
	if d == today.AddDays(1) && z.HourOfDay() >= z.cutoffHour {
		return &CutoffError{
			Date:       d,
			CutoffHour: z.cutoffHour,
			EditableAt: d.StartIn(z.loc),
		}
	}
	return nil
}
