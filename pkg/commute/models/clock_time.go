package models

import (
	"fmt"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TwelveHourLayouts are tried in order when reading a class start time.
// "3" accepts both "9" and "09", "03" insists on two digits.
var TwelveHourLayouts = []string{
	"3:04 PM",
	"03:04 PM",
	"3:04 pm",
	"03:04 pm",
}

// InputLayouts additionally accept a 24-hour clock for times typed by the student.
var InputLayouts = append(append([]string{}, TwelveHourLayouts...), "15:04")

// ClockTime is a time of day with one-minute resolution.
type ClockTime struct {
	minutes int
}

// NewClockTime builds a ClockTime from an hour (0-23) and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{minutes: normalizeMinutes(hour*60 + minute)}
}

// ParseClockTime tries each layout in turn and returns the first that parses.
func ParseClockTime(s string, layouts ...string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if len(layouts) == 0 {
		layouts = InputLayouts
	}

	var parseErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return NewClockTime(t.Hour(), t.Minute()), nil
		}
		parseErr = err
	}

	return ClockTime{}, fmt.Errorf("unable to parse time %q: %w", s, parseErr)
}

func normalizeMinutes(m int) int {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return m
}

func (c ClockTime) Hour() int   { return c.minutes / 60 }
func (c ClockTime) Minute() int { return c.minutes % 60 }

// AddMinutes moves the clock forward (or back) and wraps at midnight.
func (c ClockTime) AddMinutes(m int) ClockTime {
	return ClockTime{minutes: normalizeMinutes(c.minutes + m)}
}

// MinutesTo returns the signed number of minutes from c to other within the
// same day. It does not wrap: 23:50 to 00:10 is -1420.
func (c ClockTime) MinutesTo(other ClockTime) int {
	return other.minutes - c.minutes
}

func (c ClockTime) After(other ClockTime) bool { return c.minutes > other.minutes }

// String renders the time as "hh:mm AM".
func (c ClockTime) String() string {
	t := time.Date(2000, time.January, 1, c.Hour(), c.Minute(), 0, 0, time.UTC)
	return t.Format("03:04 PM")
}

// MarshalJSON writes the 12-hour rendering.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", c.String())), nil
}

// UnmarshalJSON accepts any of InputLayouts.
func (c *ClockTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := ParseClockTime(s, InputLayouts...)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
