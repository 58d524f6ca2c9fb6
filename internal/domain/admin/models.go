package admin

import (
	"errors"
	"time"
)

var (
	ErrSelfDelete  = errors.New("cannot delete your own account")
	ErrLastAdmin   = errors.New("cannot delete the last super admin")
	ErrNotFound    = errors.New("not found")
	ErrUserMissing = errors.New("userId is required")
)

const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

const (
	CredentialActive  = "Active"
	CredentialExpired = "Expired"
	CredentialUsed    = "Used"
)

const (
	ActionDelete = "delete"
	ActionUnlink = "unlink"
)

type TableCount struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Action string `json:"action"`
	Count  int    `json:"count"`
}

type CascadePreview struct {
	UserID string       `json:"userId"`
	Email  string       `json:"email"`
	Role   string       `json:"role"`
	Counts []TableCount `json:"counts"`
	Total  int          `json:"total"`
}

type OrphanUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type OrphanFix struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	EmployeeID string `json:"employeeId"`
}

type Counts struct {
	Users             int `json:"users"`
	Employees         int `json:"employees"`
	Departments       int `json:"departments"`
	OrphanedUsers     int `json:"orphanedUsers"`
	InvalidIDs        int `json:"invalidEmployeeIds"`
	ActiveTimeEntries int `json:"activeTimeEntries"`
	PendingLeave      int `json:"pendingLeaveRequests"`
	PendingExpenses   int `json:"pendingExpenses"`
	PendingOvertime   int `json:"pendingOvertime"`
}

type Health struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptimeSeconds"`
	Database      DatabaseHealth `json:"database"`
	Counts        Counts         `json:"counts"`
	Metrics       map[string]any `json:"metrics"`
	Issues        []string       `json:"issues"`
	CheckedAt     time.Time      `json:"checkedAt"`
}

type DatabaseHealth struct {
	Connected bool    `json:"connected"`
	LatencyMs float64 `json:"latencyMs"`
	Error     string  `json:"error,omitempty"`
}

type Credential struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	ExpiresAt time.Time  `json:"expiresAt"`
	IsUsed    bool       `json:"isUsed"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedBy *string    `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Status    string     `json:"status"`
	Password  string     `json:"password,omitempty"`

	PasswordEnc []byte `json:"-"`
}

// CredentialStatus gives a used credential precedence over an expired one.
func CredentialStatus(isUsed bool, expiresAt, now time.Time) string {
	if isUsed {
		return CredentialUsed
	}
	if !expiresAt.After(now) {
		return CredentialExpired
	}
	return CredentialActive
}
