package timetracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCategorizeWeekdayOvertime(t *testing.T) {
	// Monday
	b := Categorize(at("2024-08-19 08:00"), at("2024-08-19 18:00"), nil, nil, false, DefaultRules())
	assert.Equal(t, 10.0, b.TotalHours)
	assert.Equal(t, 8.0, b.RegularHours)
	assert.Equal(t, 2.0, b.OvertimeHours)
	assert.Equal(t, 0.0, b.NightShiftHours)
	assert.Equal(t, StatusOvertime, StatusFor(b))
}

func TestCategorizeSubtractsBreak(t *testing.T) {
	bs, be := at("2024-08-19 12:00"), at("2024-08-19 12:30")
	b := Categorize(at("2024-08-19 09:00"), at("2024-08-19 17:30"), &bs, &be, false, DefaultRules())
	assert.Equal(t, 8.0, b.TotalHours)
	assert.Equal(t, 8.0, b.RegularHours)
	assert.Equal(t, 0.0, b.OvertimeHours)
	assert.Equal(t, StatusCompleted, StatusFor(b))
}

func TestCategorizeWeekendAndHoliday(t *testing.T) {
	// Saturday
	weekend := Categorize(at("2024-08-24 09:00"), at("2024-08-24 19:00"), nil, nil, false, DefaultRules())
	assert.Equal(t, 10.0, weekend.WeekendHours)
	assert.Equal(t, 0.0, weekend.RegularHours)
	assert.Equal(t, 0.0, weekend.OvertimeHours)

	holiday := Categorize(at("2024-08-24 09:00"), at("2024-08-24 13:00"), nil, nil, true, DefaultRules())
	assert.Equal(t, 4.0, holiday.HolidayHours)
	assert.Equal(t, 0.0, holiday.WeekendHours)
}

func TestCategorizeNightShift(t *testing.T) {
	b := Categorize(at("2024-08-19 22:00"), at("2024-08-20 06:00"), nil, nil, false, DefaultRules())
	assert.Equal(t, 8.0, b.TotalHours)
	assert.Equal(t, 8.0, b.NightShiftHours)
	assert.Equal(t, 8.0, b.RegularHours)

	early := Categorize(at("2024-08-19 04:00"), at("2024-08-19 12:00"), nil, nil, false, DefaultRules())
	assert.Equal(t, 2.0, early.NightShiftHours)

	bs, be := at("2024-08-20 01:00"), at("2024-08-20 02:00")
	withBreak := Categorize(at("2024-08-19 20:00"), at("2024-08-20 04:00"), &bs, &be, false, DefaultRules())
	assert.Equal(t, 7.0, withBreak.TotalHours)
	assert.Equal(t, 5.0, withBreak.NightShiftHours)
}

func TestComputeStats(t *testing.T) {
	now := at("2024-08-21 15:00") // Wednesday
	entries := []Entry{
		{ClockIn: at("2024-08-19 09:00"), Status: StatusCompleted, Buckets: Buckets{TotalHours: 8}},
		{ClockIn: at("2024-08-21 08:00"), Status: StatusOvertime, Buckets: Buckets{TotalHours: 10, OvertimeHours: 2}},
		{ClockIn: at("2024-08-05 09:00"), Status: StatusCompleted, Buckets: Buckets{TotalHours: 6}},
		{ClockIn: at("2024-08-06 00:00"), Status: StatusAbsent},
		{ClockIn: at("2024-08-21 14:00"), Status: StatusActive},
	}
	s := ComputeStats(entries, now)
	assert.Equal(t, 10.0, s.TodayHours)
	assert.Equal(t, 18.0, s.WeekHours)
	assert.Equal(t, 24.0, s.MonthHours)
	assert.Equal(t, 2.0, s.OvertimeHours)
	assert.Equal(t, 3, s.DaysWorked)
	assert.Equal(t, 1, s.Absences)
	assert.Equal(t, 8.0, s.AverageDayHours)
	assert.True(t, s.ClockedIn)
}

func TestStatsWindowStartSpansMonthBoundary(t *testing.T) {
	// Thursday 2024-08-01; week started Monday 2024-07-29.
	assert.Equal(t, at("2024-07-29 00:00"), StatsWindowStart(at("2024-08-01 10:00")))
	assert.Equal(t, at("2024-08-01 00:00"), StatsWindowStart(at("2024-08-21 10:00")))
}
