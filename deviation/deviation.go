package deviation

import (
	"fmt"
	"strings"
)

// GraceMinutes is the lateness tolerance. Arriving up to this many minutes
// late carries neither a late flag nor a deduction.
const GraceMinutes = 5

// OnTime is the status label when neither deviation is penalized.
const OnTime = "on time"

// Lateness returns the minutes by which actual arrival exceeds the scheduled
// start, floored at zero.
func Lateness(actual, scheduledStart ClockTime) int {
	return max(0, int(actual)-int(scheduledStart))
}

// EarlyLeave returns the minutes by which actual departure precedes the
// scheduled end, floored at zero.
func EarlyLeave(actual, scheduledEnd ClockTime) int {
	return max(0, int(scheduledEnd)-int(actual))
}

// LatenessString parses both clock strings, then computes Lateness.
func LatenessString(actual, scheduledStart string) (int, error) {
	a, err := ParseClock(actual)
	if err != nil {
		return 0, err
	}
	s, err := ParseClock(scheduledStart)
	if err != nil {
		return 0, err
	}
	return Lateness(a, s), nil
}

// EarlyLeaveString parses both clock strings, then computes EarlyLeave.
func EarlyLeaveString(actual, scheduledEnd string) (int, error) {
	a, err := ParseClock(actual)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(scheduledEnd)
	if err != nil {
		return 0, err
	}
	return EarlyLeave(a, e), nil
}

// PenalizedLate collapses lateness inside the grace band to zero.
func PenalizedLate(raw int) int {
	if raw <= GraceMinutes {
		return 0
	}
	return raw
}

// IsLate reports whether raw lateness is past the grace band.
func IsLate(raw int) bool { return raw > GraceMinutes }

// IsEarly reports whether any early departure happened. No grace applies.
func IsEarly(early int) bool { return early > 0 }

// =============================================================================
// STATUS
// =============================================================================

// Status is the classification of one day's deviations.
type Status struct {
	Late  int // penalized lateness, 0 inside the grace band
	Early int
	Label string
}

func (s Status) OnTime() bool { return s.Late == 0 && s.Early == 0 }

func (s Status) String() string { return s.Label }

// Classify labels a pair of deviations. The label is "on time", or the
// penalized parts joined by ", " ("late 20m", "early leave 15m").
func Classify(lateMinutes, earlyMinutes int) Status {
	st := Status{Late: PenalizedLate(lateMinutes), Early: max(0, earlyMinutes)}

	var parts []string
	if IsLate(lateMinutes) {
		parts = append(parts, fmt.Sprintf("late %dm", lateMinutes))
	}
	if IsEarly(earlyMinutes) {
		parts = append(parts, fmt.Sprintf("early leave %dm", earlyMinutes))
	}

	if len(parts) == 0 {
		st.Label = OnTime
		return st
	}
	st.Label = strings.Join(parts, ", ")
	return st
}

// =============================================================================
// SCHEDULE
// =============================================================================

// Schedule is the working day the deviations are measured against.
type Schedule struct {
	Start ClockTime
	End   ClockTime
}

// DefaultSchedule is 09:00 to 18:00.
func DefaultSchedule() Schedule {
	return Schedule{Start: NewClockTime(9, 0), End: NewClockTime(18, 0)}
}

// ParseSchedule parses start and end clock strings.
func ParseSchedule(start, end string) (Schedule, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Schedule{}, fmt.Errorf("schedule start: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Schedule{}, fmt.Errorf("schedule end: %w", err)
	}
	return Schedule{Start: s, End: e}, nil
}

// Deviations holds raw minute counts for one day.
type Deviations struct {
	Late      int // raw, before the grace band
	Early     int
	Arrival   ClockTime
	Departure ClockTime
}

// Measure computes deviations from arrival and departure strings.
func (s Schedule) Measure(arrival, departure string) (Deviations, error) {
	a, err := ParseClock(arrival)
	if err != nil {
		return Deviations{}, fmt.Errorf("arrival: %w", err)
	}
	d, err := ParseClock(departure)
	if err != nil {
		return Deviations{}, fmt.Errorf("departure: %w", err)
	}
	return Deviations{
		Late:      Lateness(a, s.Start),
		Early:     EarlyLeave(d, s.End),
		Arrival:   a,
		Departure: d,
	}, nil
}

// Derive builds deviations from directly entered minutes. Arrival and
// departure are reconstructed by offsetting the schedule.
func (s Schedule) Derive(late, early int) Deviations {
	late, early = max(0, late), max(0, early)
	return Deviations{
		Late:      late,
		Early:     early,
		Arrival:   OffsetTime(s.Start, late),
		Departure: OffsetTime(s.End, -early),
	}
}

// Status classifies the deviations.
func (d Deviations) Status() Status { return Classify(d.Late, d.Early) }
