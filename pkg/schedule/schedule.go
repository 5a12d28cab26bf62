package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule computes the next trigger time strictly after from.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type interval struct {
	every time.Duration
}

func (s interval) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s interval) String() string {
	return "every " + s.every.String()
}

type hourly struct {
	minute int
}

func (s hourly) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), s.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	return next
}

func (s hourly) String() string {
	return fmt.Sprintf("hourly at :%02d", s.minute)
}

type daily struct {
	hour   int
	minute int
}

func (s daily) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s daily) String() string {
	return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
}

// Every fires at a fixed interval. Panics if d is not positive.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		panic("schedule: interval must be positive")
	}
	return interval{every: d}
}

// Hourly fires once an hour at the given minute.
func Hourly(minute int) Schedule {
	if minute < 0 || minute > 59 {
		panic("schedule: minute out of range")
	}
	return hourly{minute: minute}
}

// DailyAt fires once a day at hour:minute in the location of the time
// passed to Next.
func DailyAt(hour, minute int) Schedule {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		panic("schedule: time of day out of range")
	}
	return daily{hour: hour, minute: minute}
}

// Parse reads "every <duration>", "hourly@MM" or "daily@HH:MM".
func Parse(s string) (Schedule, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "every "):
		d, err := time.ParseDuration(strings.TrimSpace(strings.TrimPrefix(s, "every ")))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, s)
		}
		return interval{every: d}, nil

	case strings.HasPrefix(s, "hourly@"):
		m, err := strconv.Atoi(strings.TrimPrefix(s, "hourly@"))
		if err != nil || m < 0 || m > 59 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, s)
		}
		return hourly{minute: m}, nil

	case strings.HasPrefix(s, "daily@"):
		t, err := time.Parse("15:04", strings.TrimPrefix(s, "daily@"))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, s)
		}
		return daily{hour: t.Hour(), minute: t.Minute()}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, s)
}

// Period returns the gap between the two triggers following from.
func Period(s Schedule, from time.Time) time.Duration {
	first := s.Next(from)
	return s.Next(first).Sub(first)
}
