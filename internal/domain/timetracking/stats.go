package timetracking

import (
	"time"
)

// ComputeStats summarises entries relative to now. Entries are expected to cover
// at least the current month.
func ComputeStats(entries []Entry, now time.Time) Stats {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	offset := (int(today.Weekday()) + 6) % 7
	weekStart := today.AddDate(0, 0, -offset)
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)

	var s Stats
	worked := map[string]bool{}
	for _, e := range entries {
		in := e.ClockIn.In(loc)
		if e.Status == StatusActive {
			s.ClockedIn = true
			continue
		}
		if in.Before(monthStart) {
			if !in.Before(weekStart) {
				s.WeekHours += e.TotalHours
			}
			continue
		}
		if e.Status == StatusAbsent {
			s.Absences++
			continue
		}
		s.MonthHours += e.TotalHours
		s.OvertimeHours += e.OvertimeHours
		worked[in.Format("2006-01-02")] = true
		if !in.Before(weekStart) {
			s.WeekHours += e.TotalHours
		}
		if !in.Before(today) {
			s.TodayHours += e.TotalHours
		}
	}
	s.DaysWorked = len(worked)
	if s.DaysWorked > 0 {
		s.AverageDayHours = s.MonthHours / float64(s.DaysWorked)
	}
	s.TodayHours = round2(s.TodayHours)
	s.WeekHours = round2(s.WeekHours)
	s.MonthHours = round2(s.MonthHours)
	s.OvertimeHours = round2(s.OvertimeHours)
	s.AverageDayHours = round2(s.AverageDayHours)
	return s
}

// StatsWindowStart is the earliest clock-in ComputeStats needs.
func StatsWindowStart(now time.Time) time.Time {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	if weekStart.Before(monthStart) {
		return weekStart
	}
	return monthStart
}
