package timetracking

import (
	"math"
	"time"
)

// Rules configures hour categorisation.
type Rules struct {
	RegularHoursPerDay float64
	NightStartHour     int
	NightEndHour       int
}

func DefaultRules() Rules {
	return Rules{RegularHoursPerDay: 8, NightStartHour: 22, NightEndHour: 6}
}

type interval struct {
	start, end time.Time
}

func (i interval) hours() float64 {
	if !i.end.After(i.start) {
		return 0
	}
	return i.end.Sub(i.start).Hours()
}

func intersect(a, b interval) interval {
	start := a.start
	if b.start.After(start) {
		start = b.start
	}
	end := a.end
	if b.end.Before(end) {
		end = b.end
	}
	if !end.After(start) {
		return interval{start: start, end: start}
	}
	return interval{start: start, end: end}
}

// Categorize splits a shift into hour buckets. Worked time is the span minus the
// break. Holiday shifts put every hour in the holiday bucket, weekend shifts in the
// weekend bucket; otherwise hours beyond the regular allowance are overtime.
// Night-shift hours overlay the other buckets.
func Categorize(clockIn, clockOut time.Time, breakStart, breakEnd *time.Time, holiday bool, rules Rules) Buckets {
	span := interval{start: clockIn, end: clockOut}
	var brk interval
	if breakStart != nil && breakEnd != nil {
		brk = intersect(span, interval{start: *breakStart, end: *breakEnd})
	}
	worked := span.hours() - brk.hours()
	if worked < 0 {
		worked = 0
	}

	b := Buckets{TotalHours: worked}
	switch {
	case holiday:
		b.HolidayHours = worked
	case isWeekend(clockIn):
		b.WeekendHours = worked
	default:
		b.RegularHours = math.Min(worked, rules.RegularHoursPerDay)
		b.OvertimeHours = math.Max(0, worked-rules.RegularHoursPerDay)
	}
	b.NightShiftHours = nightHours(span, brk, rules)
	return roundBuckets(b)
}

// StatusFor is OVERTIME when any overtime accrued.
func StatusFor(b Buckets) string {
	if b.OvertimeHours > 0 {
		return StatusOvertime
	}
	return StatusCompleted
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func nightHours(span, brk interval, rules Rules) float64 {
	if rules.NightStartHour == rules.NightEndHour {
		return 0
	}
	loc := span.start.Location()
	y, m, d := span.start.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, -1)

	total := 0.0
	for day := first; day.Before(span.end); day = day.AddDate(0, 0, 1) {
		start := day.Add(time.Duration(rules.NightStartHour) * time.Hour)
		end := day.Add(time.Duration(rules.NightEndHour) * time.Hour)
		if rules.NightEndHour < rules.NightStartHour {
			end = end.AddDate(0, 0, 1)
		}
		window := interval{start: start, end: end}
		overlap := intersect(span, window)
		total += overlap.hours() - intersect(overlap, brk).hours()
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundBuckets(b Buckets) Buckets {
	return Buckets{
		TotalHours:      round2(b.TotalHours),
		RegularHours:    round2(b.RegularHours),
		OvertimeHours:   round2(b.OvertimeHours),
		WeekendHours:    round2(b.WeekendHours),
		HolidayHours:    round2(b.HolidayHours),
		NightShiftHours: round2(b.NightShiftHours),
	}
}
