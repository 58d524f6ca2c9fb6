package overtime

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	CategoryRegular = "REGULAR_OVERTIME"
	CategoryWeekend = "WEEKEND"
	CategoryHoliday = "HOLIDAY"
	CategoryNight   = "NIGHT_SHIFT"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

var (
	ErrInvalidTime     = errors.New("times must be HH:MM")
	ErrZeroDuration    = errors.New("start and end time must differ")
	ErrInvalidCategory = errors.New("invalid overtime category")
	ErrInvalidDecision = errors.New("status must be APPROVED or REJECTED")
	ErrInvalidState    = errors.New("overtime entry is no longer pending")
	ErrInvalidPeriod   = errors.New("month must be 1-12")
	ErrNotFound        = errors.New("not found")
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryRegular, CategoryWeekend, CategoryHoliday, CategoryNight:
		return true
	}
	return false
}

func parseHHMM(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, ErrInvalidTime
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ShiftDuration is end minus start in hours; an end before the start rolls over
// to the next day.
func ShiftDuration(start, end string) (float64, error) {
	s, err := parseHHMM(start)
	if err != nil {
		return 0, err
	}
	e, err := parseHHMM(end)
	if err != nil {
		return 0, err
	}
	if e == s {
		return 0, ErrZeroDuration
	}
	if e < s {
		e += 24 * 60
	}
	return math.Round(float64(e-s)/60*100) / 100, nil
}

type Entry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	EmployeeName string    `json:"employeeName"`
	Date         time.Time `json:"date"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	Hours        float64   `json:"hours"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedBy    *string   `json:"createdBy,omitempty"`
	ApprovedBy   *string   `json:"approvedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type EntryInput struct {
	UserID      string
	Date        time.Time
	StartTime   string
	EndTime     string
	Category    string
	Description string
}

// EmployeeSummary totals one employee's hours for a month.
type EmployeeSummary struct {
	UserID          string  `json:"userId"`
	EmployeeName    string  `json:"employeeName"`
	EmployeeID      string  `json:"employeeId"`
	Department      string  `json:"department"`
	TotalHours      float64 `json:"totalHours"`
	RegularHours    float64 `json:"regularHours"`
	OvertimeHours   float64 `json:"overtimeHours"`
	WeekendHours    float64 `json:"weekendHours"`
	HolidayHours    float64 `json:"holidayHours"`
	NightShiftHours float64 `json:"nightShiftHours"`
	ManualHours     float64 `json:"manualHours"`
	PendingEntries  int     `json:"pendingEntries"`
}

// AddManual folds an approved manual entry into the bucket named by its category.
func (s *EmployeeSummary) AddManual(e Entry) {
	if e.Status != StatusApproved {
		if e.Status == StatusPending {
			s.PendingEntries++
		}
		return
	}
	s.ManualHours += e.Hours
	s.TotalHours += e.Hours
	switch e.Category {
	case CategoryWeekend:
		s.WeekendHours += e.Hours
	case CategoryHoliday:
		s.HolidayHours += e.Hours
	case CategoryNight:
		s.NightShiftHours += e.Hours
		s.OvertimeHours += e.Hours
	default:
		s.OvertimeHours += e.Hours
	}
}

type MonthReport struct {
	Month     int               `json:"month"`
	Year      int               `json:"year"`
	Employees []EmployeeSummary `json:"employees"`
	Entries   []Entry           `json:"entries"`
	Totals    EmployeeSummary   `json:"totals"`
}

// MonthRange returns [first day, first day of next month).
func MonthRange(month, year int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// BuildReport merges time entry aggregates with manual entries.
func BuildReport(month, year int, clocked []EmployeeSummary, manual []Entry) MonthReport {
	byUser := map[string]*EmployeeSummary{}
	order := []string{}
	for i := range clocked {
		s := clocked[i]
		byUser[s.UserID] = &s
		order = append(order, s.UserID)
	}
	for _, e := range manual {
		s, ok := byUser[e.UserID]
		if !ok {
			s = &EmployeeSummary{UserID: e.UserID, EmployeeName: e.EmployeeName}
			byUser[e.UserID] = s
			order = append(order, e.UserID)
		}
		s.AddManual(e)
	}

	report := MonthReport{Month: month, Year: year, Employees: []EmployeeSummary{}, Entries: manual}
	if report.Entries == nil {
		report.Entries = []Entry{}
	}
	for _, id := range order {
		s := roundSummary(*byUser[id])
		report.Employees = append(report.Employees, s)
		report.Totals.TotalHours += s.TotalHours
		report.Totals.RegularHours += s.RegularHours
		report.Totals.OvertimeHours += s.OvertimeHours
		report.Totals.WeekendHours += s.WeekendHours
		report.Totals.HolidayHours += s.HolidayHours
		report.Totals.NightShiftHours += s.NightShiftHours
		report.Totals.ManualHours += s.ManualHours
		report.Totals.PendingEntries += s.PendingEntries
	}
	report.Totals = roundSummary(report.Totals)
	return report
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundSummary(s EmployeeSummary) EmployeeSummary {
	s.TotalHours = round2(s.TotalHours)
	s.RegularHours = round2(s.RegularHours)
	s.OvertimeHours = round2(s.OvertimeHours)
	s.WeekendHours = round2(s.WeekendHours)
	s.HolidayHours = round2(s.HolidayHours)
	s.NightShiftHours = round2(s.NightShiftHours)
	s.ManualHours = round2(s.ManualHours)
	return s
}

func ExportFilename(month, year int) string {
	return fmt.Sprintf("overtime-%04d-%02d.xlsx", year, month)
}
