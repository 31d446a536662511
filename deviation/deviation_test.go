package deviation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/deviation"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseClock_Valid(t *testing.T) {
	cases := map[string]deviation.ClockTime{
		"09:00":    deviation.NewClockTime(9, 0),
		"9:05":     deviation.NewClockTime(9, 5),
		"00:00":    0,
		"23:59":    deviation.NewClockTime(23, 59),
		" 18:30 ":  deviation.NewClockTime(18, 30),
		"07:15:42": deviation.NewClockTime(7, 15),
	}
	for in, want := range cases {
		got, err := deviation.ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseClock_Invalid(t *testing.T) {
	for _, in := range []string{"", "9", "24:00", "12:60", "ab:cd", "12:5x", "-1:00", "1:2:3:4", "123:00"} {
		_, err := deviation.ParseClock(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, deviation.ErrInvalidTimeFormat, in)

		var tfe *deviation.TimeFormatError
		assert.ErrorAs(t, err, &tfe, in)
	}
}

func TestClockTime_String(t *testing.T) {
	assert.Equal(t, "09:05", deviation.NewClockTime(9, 5).String())
	assert.Equal(t, "00:00", deviation.ClockTime(0).String())
}

// =============================================================================
// LATENESS / EARLY LEAVE
// =============================================================================

func TestLateness_ArrivalAfterStart(t *testing.T) {
	start := deviation.MustParseClock("09:00")
	for m := 0; m <= 120; m++ {
		arrival := deviation.OffsetTime(start, m)
		assert.Equal(t, m, deviation.Lateness(arrival, start))
	}
}

func TestLateness_ArrivalBeforeStartIsZero(t *testing.T) {
	start := deviation.MustParseClock("09:00")
	for m := 1; m <= 120; m++ {
		arrival := deviation.OffsetTime(start, -m)
		assert.Zero(t, deviation.Lateness(arrival, start))
	}
}

func TestEarlyLeave_DepartureBeforeEnd(t *testing.T) {
	end := deviation.MustParseClock("18:00")
	for m := 0; m <= 120; m++ {
		departure := deviation.OffsetTime(end, -m)
		assert.Equal(t, m, deviation.EarlyLeave(departure, end))
	}
}

func TestEarlyLeave_DepartureAfterEndIsZero(t *testing.T) {
	end := deviation.MustParseClock("18:00")
	for m := 1; m <= 120; m++ {
		departure := deviation.OffsetTime(end, m)
		assert.Zero(t, deviation.EarlyLeave(departure, end))
	}
}

// =============================================================================
// CLASSIFY
// =============================================================================

func TestClassify_GraceBandBoundary(t *testing.T) {
	five := deviation.Classify(5, 0)
	assert.True(t, five.OnTime())
	assert.Equal(t, deviation.OnTime, five.Label)
	assert.Zero(t, five.Late)

	six := deviation.Classify(6, 0)
	assert.False(t, six.OnTime())
	assert.Equal(t, 6, six.Late)
	assert.Contains(t, six.Label, "late")
	assert.Contains(t, six.Label, "6")
}

func TestClassify_EarlyLeaveHasNoGrace(t *testing.T) {
	st := deviation.Classify(0, 1)
	assert.False(t, st.OnTime())
	assert.Equal(t, "early leave 1m", st.Label)
}

func TestClassify_Both(t *testing.T) {
	st := deviation.Classify(20, 15)
	assert.Equal(t, "late 20m, early leave 15m", st.Label)
	assert.Equal(t, 20, st.Late)
	assert.Equal(t, 15, st.Early)
}

func TestClassify_GraceLatenessWithEarlyLeave(t *testing.T) {
	st := deviation.Classify(3, 10)
	assert.Equal(t, "early leave 10m", st.Label)
	assert.Zero(t, st.Late)
}

// =============================================================================
// OFFSET
// =============================================================================

func TestOffsetTime_HourBoundary(t *testing.T) {
	assert.Equal(t, "10:05", deviation.OffsetTime(deviation.MustParseClock("09:50"), 15).String())
	assert.Equal(t, "08:50", deviation.OffsetTime(deviation.MustParseClock("09:05"), -15).String())
}

func TestOffsetTime_MidnightWraparound(t *testing.T) {
	assert.Equal(t, "00:10", deviation.OffsetTime(deviation.MustParseClock("23:50"), 20).String())
	assert.Equal(t, "23:50", deviation.OffsetTime(deviation.MustParseClock("00:10"), -20).String())
	assert.Equal(t, "00:00", deviation.OffsetTime(deviation.MustParseClock("23:59"), 1).String())
	assert.Equal(t, "12:00", deviation.OffsetTime(deviation.MustParseClock("12:00"), deviation.MinutesPerDay).String())
}

func TestOffsetString_Invalid(t *testing.T) {
	_, err := deviation.OffsetString("25:00", 5)
	assert.ErrorIs(t, err, deviation.ErrInvalidTimeFormat)
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestSchedule_Measure(t *testing.T) {
	// GIVEN: Default 09:00-18:00 schedule
	s := deviation.DefaultSchedule()

	// WHEN: Arriving 09:20 and leaving 17:45
	d, err := s.Measure("09:20", "17:45")
	require.NoError(t, err)

	// THEN: 20 minutes late, 15 minutes early
	assert.Equal(t, 20, d.Late)
	assert.Equal(t, 15, d.Early)
	assert.Equal(t, "late 20m, early leave 15m", d.Status().Label)
}

func TestSchedule_MeasureWithinGrace(t *testing.T) {
	d, err := deviation.DefaultSchedule().Measure("09:03", "18:00")
	require.NoError(t, err)
	assert.Equal(t, 3, d.Late)
	assert.Zero(t, d.Early)
	assert.True(t, d.Status().OnTime())
}

func TestSchedule_MeasureRejectsMalformed(t *testing.T) {
	_, err := deviation.DefaultSchedule().Measure("9h20", "18:00")
	assert.ErrorIs(t, err, deviation.ErrInvalidTimeFormat)
}

func TestSchedule_Derive(t *testing.T) {
	d := deviation.DefaultSchedule().Derive(25, 30)
	assert.Equal(t, "09:25", d.Arrival.String())
	assert.Equal(t, "17:30", d.Departure.String())
	assert.Equal(t, 25, d.Late)
	assert.Equal(t, 30, d.Early)
}

func TestParseSchedule(t *testing.T) {
	s, err := deviation.ParseSchedule("08:00", "16:30")
	require.NoError(t, err)
	assert.Equal(t, "08:00", s.Start.String())
	assert.Equal(t, "16:30", s.End.String())

	_, err = deviation.ParseSchedule("08:00", "late")
	assert.ErrorIs(t, err, deviation.ErrInvalidTimeFormat)
}

func TestLatenessString(t *testing.T) {
	late, err := deviation.LatenessString("09:20", "09:00")
	require.NoError(t, err)
	assert.Equal(t, 20, late)

	early, err := deviation.EarlyLeaveString("17:45", "18:00")
	require.NoError(t, err)
	assert.Equal(t, 15, early)

	_, err = deviation.LatenessString("9.20", "09:00")
	assert.ErrorIs(t, err, deviation.ErrInvalidTimeFormat)
}
