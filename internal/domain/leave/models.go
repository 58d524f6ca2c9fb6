package leave

import "time"

const (
	TypeVacation    = "VACATION"
	TypeSick        = "SICK"
	TypePersonal    = "PERSONAL"
	TypeEmergency   = "EMERGENCY"
	TypeMaternity   = "MATERNITY"
	TypePaternity   = "PATERNITY"
	TypeBereavement = "BEREAVEMENT"
	TypeStudy       = "STUDY"
	TypeUnpaid      = "UNPAID"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// MaxCarryOver caps unused vacation days moved into the next year.
const MaxCarryOver = 5.0

// DefaultAllowances applies when no entitlement row exists for a user and year.
// UNPAID has no allowance and is never exhausted.
var DefaultAllowances = map[string]float64{
	TypeVacation:    20,
	TypeSick:        10,
	TypePersonal:    3,
	TypeEmergency:   2,
	TypeMaternity:   90,
	TypePaternity:   10,
	TypeBereavement: 5,
	TypeStudy:       5,
}

var allTypes = []string{
	TypeVacation, TypeSick, TypePersonal, TypeEmergency, TypeMaternity,
	TypePaternity, TypeBereavement, TypeStudy, TypeUnpaid,
}

func Types() []string {
	return append([]string(nil), allTypes...)
}

func ValidType(t string) bool {
	for _, v := range allTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Request struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	EmployeeName string     `json:"employeeName"`
	Department   string     `json:"department,omitempty"`
	LeaveType    string     `json:"leaveType"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      time.Time  `json:"endDate"`
	WorkingDays  float64    `json:"workingDays"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	AdminNotes   string     `json:"adminNotes"`
	ReviewedBy   *string    `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type CreateInput struct {
	UserID    string
	LeaveType string
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

type Conflict struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

type Balance struct {
	LeaveType      string   `json:"leaveType"`
	Allowance      float64  `json:"allowance"`
	CarriedOver    float64  `json:"carriedOver"`
	Used           float64  `json:"used"`
	Pending        float64  `json:"pending"`
	Remaining      *float64 `json:"remaining"`
	Unlimited      bool     `json:"unlimited"`
	UtilizationPct float64  `json:"utilizationPercent"`
}

type Entitlement struct {
	Allowance   float64
	CarriedOver float64
}

type Usage struct {
	Used    float64
	Pending float64
}

// RequestSpan is the part of a request needed to attribute its days to a year.
type RequestSpan struct {
	UserID      string
	LeaveType   string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
	WorkingDays float64
}

type CalendarEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	EmployeeName string    `json:"employeeName"`
	LeaveType    string    `json:"leaveType"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Status       string    `json:"status"`
}

type Holiday struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Scope limits which requests a caller may list.
type Scope struct {
	All          bool
	UserID       string
	DepartmentID string
	ManagerID    string
}

type ListFilter struct {
	Scope  Scope
	Status string
	Limit  int
	Offset int
}

type Coverage struct {
	TeamSize int
	OnLeave  []string
}

type RolloverResult struct {
	FromYear       int  `json:"fromYear"`
	ToYear         int  `json:"toYear"`
	UsersProcessed int  `json:"usersProcessed"`
	AlreadyApplied bool `json:"alreadyApplied"`
}
