package finance

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// MsgRequiredFields is the client-facing message for incomplete expenses.
const MsgRequiredFields = "Please fill in all required fields"

var (
	ErrRequiredFields  = errors.New("required expense fields missing")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("expense is no longer pending")
	ErrInvalidDecision = errors.New("status must be APPROVED or REJECTED")
)

type Expense struct {
	ID             string     `json:"id"`
	ExpenseDate    time.Time  `json:"expenseDate"`
	Category       string     `json:"category"`
	Description    string     `json:"description"`
	Amount         float64    `json:"amount"`
	PaymentMethod  string     `json:"paymentMethod"`
	Status         string     `json:"status"`
	DepartmentID   *string    `json:"departmentId,omitempty"`
	DepartmentName string     `json:"departmentName,omitempty"`
	ReceiptRef     string     `json:"receiptRef"`
	Notes          string     `json:"notes"`
	CreatedBy      string     `json:"createdBy"`
	CreatedByName  string     `json:"createdByName"`
	ApprovedBy     *string    `json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type ExpenseInput struct {
	ExpenseDate   time.Time
	Category      string
	Description   string
	Amount        float64
	PaymentMethod string
	DepartmentID  string
	ReceiptRef    string
	Notes         string
}

// Validate enforces the required fields and a positive amount.
func (in *ExpenseInput) Validate() error {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.Amount <= 0 || in.Category == "" || in.Description == "" || in.PaymentMethod == "" {
		return ErrRequiredFields
	}
	if in.ExpenseDate.IsZero() {
		in.ExpenseDate = time.Now().UTC()
	}
	return nil
}

type Filter struct {
	Status       string
	Category     string
	DepartmentID string
	CreatedBy    string
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

type StatusTotal struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Amount   float64 `json:"amount"`
}

type MonthTotal struct {
	Month  int     `json:"month"`
	Amount float64 `json:"amount"`
}

type DepartmentBudget struct {
	DepartmentID   string  `json:"departmentId"`
	Name           string  `json:"name"`
	Budget         float64 `json:"budget"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	UtilizationPct float64 `json:"utilizationPercent"`
}

type Analytics struct {
	Year        int                `json:"year"`
	TotalAmount float64            `json:"totalAmount"`
	ByStatus    []StatusTotal      `json:"byStatus"`
	ByCategory  []CategoryTotal    `json:"byCategory"`
	ByMonth     []MonthTotal       `json:"byMonth"`
	Departments []DepartmentBudget `json:"departments"`
}
