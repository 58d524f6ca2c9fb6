package leave

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// MsgEndBeforeStart is the client-facing validation message for inverted ranges.
const MsgEndBeforeStart = "End date must be after start date"

var (
	ErrEndBeforeStart  = errors.New("end date must be after start date")
	ErrInvalidType     = errors.New("invalid leave type")
	ErrNoWorkingDays   = errors.New("selected range contains no working days")
	ErrOverlap         = errors.New("you already have a leave request overlapping these dates")
	ErrInvalidState    = errors.New("leave request is no longer pending")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidDecision = errors.New("status must be APPROVED or REJECTED")
)

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateRange rejects ranges whose end precedes their start.
func ValidateRange(start, end time.Time) error {
	if dateOnly(end).Before(dateOnly(start)) {
		return ErrEndBeforeStart
	}
	return nil
}

// WorkingDays counts weekdays in [start, end] that are not holidays.
func WorkingDays(start, end time.Time, holidays []time.Time) float64 {
	start, end = dateOnly(start), dateOnly(end)
	off := make(map[time.Time]bool, len(holidays))
	for _, h := range holidays {
		off[dateOnly(h)] = true
	}
	days := 0.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday || off[d] {
			continue
		}
		days++
	}
	return days
}

// yearBounds returns the first and last day of year.
func yearBounds(year int) (time.Time, time.Time) {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
}

// WorkingDaysInYear counts the working days of [start, end] falling in year.
// recorded is the stored total and is returned unchanged when the range lies
// wholly inside year.
func WorkingDaysInYear(start, end time.Time, recorded float64, year int, holidays []time.Time) float64 {
	start, end = dateOnly(start), dateOnly(end)
	first, last := yearBounds(year)
	if !start.Before(first) && !end.After(last) {
		return recorded
	}
	if start.Before(first) {
		start = first
	}
	if end.After(last) {
		end = last
	}
	if end.Before(start) {
		return 0
	}
	return WorkingDays(start, end, holidays)
}

// UsageForYear sums approved and pending days per type, counting only the
// part of each request that falls in year.
func UsageForYear(spans []RequestSpan, year int, holidays []time.Time) map[string]Usage {
	out := map[string]Usage{}
	for _, sp := range spans {
		days := WorkingDaysInYear(sp.StartDate, sp.EndDate, sp.WorkingDays, year, holidays)
		u := out[sp.LeaveType]
		switch sp.Status {
		case StatusApproved:
			u.Used += days
		case StatusPending:
			u.Pending += days
		default:
			continue
		}
		out[sp.LeaveType] = u
	}
	return out
}

// HolidaysWithin returns the holidays falling on a weekday inside [start, end].
func HolidaysWithin(start, end time.Time, holidays []Holiday) []Holiday {
	start, end = dateOnly(start), dateOnly(end)
	var out []Holiday
	for _, h := range holidays {
		d := dateOnly(h.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// CoverageSeverity grades the share of a team already away.
func CoverageSeverity(onLeave, teamSize int) string {
	if teamSize <= 0 || onLeave <= 0 {
		return ""
	}
	ratio := float64(onLeave) / float64(teamSize)
	switch {
	case ratio >= 0.5:
		return SeverityHigh
	case ratio >= 0.25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func coverageConflict(c Coverage) (Conflict, bool) {
	severity := CoverageSeverity(len(c.OnLeave), c.TeamSize)
	if severity == "" {
		return Conflict{}, false
	}
	pct := math.Round(float64(len(c.OnLeave)) / float64(c.TeamSize) * 100)
	conflict := Conflict{
		Type:     "team_coverage",
		Severity: severity,
		Message:  fmt.Sprintf("%d of %d team members (%.0f%%) are already on leave during this period", len(c.OnLeave), c.TeamSize, pct),
	}
	switch severity {
	case SeverityHigh:
		conflict.Recommendation = "Consider different dates; team coverage would be critically low"
	case SeverityMedium:
		conflict.Recommendation = "Coordinate with your manager to confirm coverage"
	default:
		conflict.Recommendation = "Minor overlap with teammates; no action needed"
	}
	return conflict, true
}

func severityOrder(s string) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// SortConflicts orders conflicts HIGH first, keeping detection order within a severity.
func SortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		return severityOrder(conflicts[i].Severity) < severityOrder(conflicts[j].Severity)
	})
}

func HasHighSeverity(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// BuildBalance derives the balance for one leave type.
func BuildBalance(leaveType string, ent Entitlement, usage Usage) Balance {
	b := Balance{
		LeaveType:   leaveType,
		Allowance:   ent.Allowance,
		CarriedOver: ent.CarriedOver,
		Used:        usage.Used,
		Pending:     usage.Pending,
	}
	if leaveType == TypeUnpaid {
		b.Unlimited = true
		return b
	}
	total := ent.Allowance + ent.CarriedOver
	remaining := total - usage.Used - usage.Pending
	b.Remaining = &remaining
	if total > 0 {
		b.UtilizationPct = math.Round(usage.Used/total*1000) / 10
	}
	return b
}

// CarryOver is the vacation amount moved into the next year.
func CarryOver(ent Entitlement, used float64) float64 {
	unused := ent.Allowance + ent.CarriedOver - used
	if unused <= 0 {
		return 0
	}
	return math.Min(unused, MaxCarryOver)
}

func entitlementFor(leaveType string, stored map[string]Entitlement) Entitlement {
	if ent, ok := stored[leaveType]; ok {
		return ent
	}
	return Entitlement{Allowance: DefaultAllowances[leaveType]}
}
