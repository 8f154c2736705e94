package rtclog

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDate = errors.New("rtclog: invalid date")

// Date is a wall-clock setting in RTC terms: two-digit year, 1-based weekday.
type Date struct {
	Weekday int // 1 (Sunday) to 7
	Day     int
	Month   int
	Year    int // 0-99, century 2000
	Hour    int // 0-23, or 1-12 when !Clock24
	Minute  int
	Second  int
	Clock24 bool
	PM      bool
}

var maxMonthDays = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Validate checks every field range.
func (d Date) Validate() error {
	switch {
	case d.Weekday < 1 || d.Weekday > 7:
		return fmt.Errorf("%w: weekday %d", ErrInvalidDate, d.Weekday)
	case d.Month < 1 || d.Month > 12:
		return fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	case d.Day < 1 || d.Day > maxMonthDays[d.Month-1]:
		return fmt.Errorf("%w: day %d of month %d", ErrInvalidDate, d.Day, d.Month)
	case d.Year < 0 || d.Year > 99:
		return fmt.Errorf("%w: year %d", ErrInvalidDate, d.Year)
	case d.Clock24 && (d.Hour < 0 || d.Hour > 23):
		return fmt.Errorf("%w: hour %d", ErrInvalidDate, d.Hour)
	case !d.Clock24 && (d.Hour < 1 || d.Hour > 12):
		return fmt.Errorf("%w: hour %d (12h)", ErrInvalidDate, d.Hour)
	case d.Minute < 0 || d.Minute > 59:
		return fmt.Errorf("%w: minute %d", ErrInvalidDate, d.Minute)
	case d.Second < 0 || d.Second > 59:
		return fmt.Errorf("%w: second %d", ErrInvalidDate, d.Second)
	}
	if d.Month == 2 && d.Day == 29 && !leap(2000+d.Year) {
		return fmt.Errorf("%w: 29/02/%02d", ErrInvalidDate, d.Year)
	}
	return nil
}

// Time converts d to UTC. d must be valid.
func (d Date) Time() time.Time {
	h := d.Hour
	if !d.Clock24 {
		h %= 12
		if d.PM {
			h += 12
		}
	}
	return time.Date(2000+d.Year, time.Month(d.Month), d.Day, h, d.Minute, d.Second, 0, time.UTC)
}

// SetDate validates d and writes it to the RTC. The weekday register follows the date.
func (t *Task) SetDate(d Date) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := t.rtc.SetTime(d.Time()); err != nil {
		return fmt.Errorf("rtclog: set rtc: %w", err)
	}
	t.log.Info().Time("time", d.Time()).Msg("rtc set")
	return nil
}

func leap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
