package core

import "time"

const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

type Employee struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	EmployeeID     string     `json:"employeeId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Title          string     `json:"title"`
	DepartmentID   *string    `json:"departmentId,omitempty"`
	DepartmentName string     `json:"departmentName,omitempty"`
	Salary         *float64   `json:"salary,omitempty"`
	HireDate       *time.Time `json:"hireDate,omitempty"`
	ManagerID      *string    `json:"managerId,omitempty"`
	ManagerName    string     `json:"managerName,omitempty"`
	Phone          string     `json:"phone"`
	HasAvatar      bool       `json:"hasAvatar"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return joinName(e.FirstName, e.LastName)
}

type EmployeeInput struct {
	Email        string
	Password     string
	Role         string
	FirstName    string
	LastName     string
	Title        string
	DepartmentID string
	Salary       *float64
	HireDate     *time.Time
	ManagerID    string
	Phone        string
}

// EmployeePatch carries optional changes; nil fields are left untouched.
type EmployeePatch struct {
	FirstName    *string
	LastName     *string
	Title        *string
	DepartmentID *string
	Salary       *float64
	HireDate     *time.Time
	ManagerID    *string
	Phone        *string
	Role         *string
}

type EmployeeFilter struct {
	Search       string
	DepartmentID string
	Status       string
	Limit        int
	Offset       int
}

type Department struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	Description   string    `json:"description"`
	Budget        float64   `json:"budget"`
	Location      string    `json:"location"`
	ManagerIDs    []string  `json:"managerIds"`
	EmployeeCount int       `json:"employeeCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type RosterEntry struct {
	EmployeeRecordID string `json:"id"`
	UserID           string `json:"userId"`
	EmployeeID       string `json:"employeeId"`
	Name             string `json:"name"`
	Title            string `json:"title"`
	Role             string `json:"role"`
	Status           string `json:"status"`
}

type JobTitle struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DepartmentID *string   `json:"departmentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Manager struct {
	UserID       string  `json:"userId"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"departmentId,omitempty"`
}

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	MFAEnabled  bool       `json:"mfaEnabled"`
	HasEmployee bool       `json:"hasEmployee"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
