package crm

import (
	"errors"
	"strings"
	"time"
)

const StatusConfirmed = "CONFIRMED"

var (
	ErrInvalidPayment = errors.New("amount, customer name and method are required")
	ErrNotFound       = errors.New("not found")

	ErrIdempotencyConflict = errors.New("idempotency key was already used with a different payload")
)

// IdempotencyKey scopes a client supplied key to the caller and endpoint.
type IdempotencyKey struct {
	UserID      string
	Endpoint    string
	Key         string
	RequestHash string
}

type Payment struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	InvoiceRef    string    `json:"invoiceRef"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	ConfirmedBy   *string   `json:"confirmedBy,omitempty"`
	ConfirmedAt   time.Time `json:"confirmedAt"`
}

type Receipt struct {
	ID       string    `json:"id"`
	Number   string    `json:"number"`
	IssuedAt time.Time `json:"issuedAt"`
	Payment  Payment   `json:"payment"`
}

type PaymentInput struct {
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	InvoiceRef    string  `json:"invoiceRef"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Method        string  `json:"method"`
}

func (in *PaymentInput) Validate() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	in.Method = strings.ToUpper(strings.TrimSpace(in.Method))
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if in.Amount <= 0 || in.CustomerName == "" || in.Method == "" {
		return ErrInvalidPayment
	}
	return nil
}

type ReceiptFilter struct {
	Search string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
