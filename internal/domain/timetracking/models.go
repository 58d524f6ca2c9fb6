package timetracking

import "time"

const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusOvertime  = "OVERTIME"
	StatusAbsent    = "ABSENT"
)

const (
	SourceClock     = "CLOCK"
	SourceImport    = "IMPORT"
	SourceManual    = "MANUAL"
	SourceAutoClose = "AUTO_CLOSE"
)

// LocationUnavailable is stored when the client could not capture a position.
const LocationUnavailable = "Location unavailable"

type Entry struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	EmployeeName     string     `json:"employeeName,omitempty"`
	ClockIn          time.Time  `json:"clockIn"`
	ClockOut         *time.Time `json:"clockOut,omitempty"`
	BreakStart       *time.Time `json:"breakStart,omitempty"`
	BreakEnd         *time.Time `json:"breakEnd,omitempty"`
	Location         string     `json:"location"`
	ClockOutLocation string     `json:"clockOutLocation"`
	Notes            string     `json:"notes"`
	Buckets
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// OnBreak reports whether a break has started and not ended.
func (e Entry) OnBreak() bool {
	return e.BreakStart != nil && e.BreakEnd == nil
}

type Buckets struct {
	TotalHours      float64 `json:"totalHours"`
	RegularHours    float64 `json:"regularHours"`
	OvertimeHours   float64 `json:"overtimeHours"`
	WeekendHours    float64 `json:"weekendHours"`
	HolidayHours    float64 `json:"holidayHours"`
	NightShiftHours float64 `json:"nightShiftHours"`
}

func (b Buckets) Add(o Buckets) Buckets {
	return Buckets{
		TotalHours:      b.TotalHours + o.TotalHours,
		RegularHours:    b.RegularHours + o.RegularHours,
		OvertimeHours:   b.OvertimeHours + o.OvertimeHours,
		WeekendHours:    b.WeekendHours + o.WeekendHours,
		HolidayHours:    b.HolidayHours + o.HolidayHours,
		NightShiftHours: b.NightShiftHours + o.NightShiftHours,
	}
}

type EntryFilter struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type Stats struct {
	TodayHours      float64 `json:"todayHours"`
	WeekHours       float64 `json:"weekHours"`
	MonthHours      float64 `json:"monthHours"`
	OvertimeHours   float64 `json:"overtimeHours"`
	DaysWorked      int     `json:"daysWorked"`
	Absences        int     `json:"absences"`
	AverageDayHours float64 `json:"averageDayHours"`
	ClockedIn       bool    `json:"clockedIn"`
}

type ImportRow struct {
	Line         int
	Email        string
	Date         time.Time
	ClockIn      time.Time
	ClockOut     time.Time
	BreakMinutes int
}

type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}
