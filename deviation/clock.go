/*
Package deviation turns clock times into lateness and early-leave minutes.

PURPOSE:
  Pure arithmetic over wall-clock times of a single working day. There is no
  I/O here: callers parse the form input, compute the deviations against the
  schedule, and hand the minute counts to the deduction lookup.

KEY CONCEPTS:
  - ClockTime: minutes since midnight, parsed from "HH:MM"
  - Schedule:  scheduled start and end of the working day (default 09:00-18:00)
  - Grace band: lateness of 5 minutes or less is not penalized
  - Status:    human label composed from the penalized deviations

WRAPAROUND:
  OffsetTime works modulo one day. 23:50 + 20 minutes is 00:10 and
  00:10 - 20 minutes is 23:50. The day component is dropped; attendance is
  recorded per calendar date by the caller.

SEE ALSO:
  - deviation.go: Lateness, EarlyLeave, Classify
  - attendance/recorder.go: Uses Schedule to build records
*/
package deviation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the modulus used by OffsetTime.
const MinutesPerDay = 24 * 60

// ErrInvalidTimeFormat is returned for anything that is not a valid HH:MM time.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// TimeFormatError carries the rejected input.
type TimeFormatError struct {
	Input  string
	Reason string
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("invalid time format %q: %s", e.Input, e.Reason)
}

func (e *TimeFormatError) Unwrap() error {
	return ErrInvalidTimeFormat
}

// =============================================================================
// CLOCK TIME
// =============================================================================

// ClockTime is a time of day in whole minutes since midnight.
type ClockTime int

// NewClockTime builds a ClockTime from hour and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses "HH:MM" (also "H:MM" and "HH:MM:SS", seconds ignored).
func ParseClock(s string) (ClockTime, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, &TimeFormatError{Input: s, Reason: "empty"}
	}

	parts := strings.Split(in, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, &TimeFormatError{Input: s, Reason: "expected HH:MM"}
	}

	hour, err := parseField(parts[0], 23)
	if err != nil {
		return 0, &TimeFormatError{Input: s, Reason: "hour " + err.Error()}
	}
	minute, err := parseField(parts[1], 59)
	if err != nil {
		return 0, &TimeFormatError{Input: s, Reason: "minute " + err.Error()}
	}
	if len(parts) == 3 {
		if _, err := parseField(parts[2], 59); err != nil {
			return 0, &TimeFormatError{Input: s, Reason: "second " + err.Error()}
		}
	}

	return NewClockTime(hour, minute), nil
}

// MustParseClock panics on malformed input. For constants and tests.
func MustParseClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseField(s string, max int) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, errors.New("must be one or two digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("must be numeric")
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, fmt.Errorf("out of range (max %d)", max)
	}
	return v, nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// OffsetTime returns base shifted by a signed number of minutes, wrapped
// into [00:00, 24:00).
func OffsetTime(base ClockTime, offsetMinutes int) ClockTime {
	m := (int(base) + offsetMinutes) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return ClockTime(m)
}

// OffsetString is OffsetTime over a clock string.
func OffsetString(base string, offsetMinutes int) (string, error) {
	c, err := ParseClock(base)
	if err != nil {
		return "", err
	}
	return OffsetTime(c, offsetMinutes).String(), nil
}
