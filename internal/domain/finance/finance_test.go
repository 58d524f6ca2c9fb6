package finance

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
)

func TestValidateRequiresFields(t *testing.T) {
	base := ExpenseInput{Category: "Travel", Description: "Taxi", Amount: 12.5, PaymentMethod: "CARD"}

	zero := base
	zero.Amount = 0
	assert.ErrorIs(t, zero.Validate(), ErrRequiredFields)

	negative := base
	negative.Amount = -3
	assert.ErrorIs(t, negative.Validate(), ErrRequiredFields)

	blank := base
	blank.Description = "   "
	assert.ErrorIs(t, blank.Validate(), ErrRequiredFields)

	noMethod := base
	noMethod.PaymentMethod = ""
	assert.ErrorIs(t, noMethod.Validate(), ErrRequiredFields)

	ok := base
	require.NoError(t, ok.Validate())
	assert.False(t, ok.ExpenseDate.IsZero())
}

func TestFillMonthsAndUtilization(t *testing.T) {
	months := FillMonths(map[int]float64{2: 100.123, 12: 5})
	require.Len(t, months, 12)
	assert.Equal(t, 100.12, months[1].Amount)
	assert.Equal(t, 0.0, months[0].Amount)
	assert.Equal(t, 12, months[11].Month)

	d := Utilization(DepartmentBudget{Budget: 1000, Spent: 250})
	assert.Equal(t, 750.0, d.Remaining)
	assert.Equal(t, 25.0, d.UtilizationPct)

	unbudgeted := Utilization(DepartmentBudget{Spent: 10})
	assert.Equal(t, 0.0, unbudgeted.UtilizationPct)
}

func TestReportPDF(t *testing.T) {
	data, err := ReportPDF("Expense report", []Expense{
		{ExpenseDate: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), Category: "Travel", Description: "Flight", Amount: 420, PaymentMethod: "CARD", Status: StatusApproved, CreatedByName: "Ann"},
	}, time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

type fakeStore struct {
	StoreAPI
	expenses map[string]Expense
	created  int
	lastList Filter
}

func (f *fakeStore) CreateExpense(_ context.Context, in ExpenseInput, by string) (string, error) {
	f.created++
	f.expenses["x"] = Expense{ID: "x", Amount: in.Amount, CreatedBy: by, Status: StatusPending}
	return "x", nil
}

func (f *fakeStore) GetExpense(_ context.Context, id string) (Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) DecideExpense(_ context.Context, id, status, _, _ string) (bool, error) {
	e := f.expenses[id]
	e.Status = status
	f.expenses[id] = e
	return true, nil
}

func (f *fakeStore) ListExpenses(_ context.Context, filter Filter) ([]Expense, int, error) {
	f.lastList = filter
	return nil, 0, nil
}

func TestCreateRejectsZeroAmountWithoutStore(t *testing.T) {
	store := &fakeStore{expenses: map[string]Expense{}}
	_, err := NewService(store, nil).Create(context.Background(), auth.UserContext{UserID: "u1", Role: auth.RoleEmployee},
		ExpenseInput{Category: "Travel", Description: "Taxi", PaymentMethod: "CASH"})
	assert.ErrorIs(t, err, ErrRequiredFields)
	assert.Equal(t, 0, store.created)
}

func TestListScopesEmployeesToOwnExpenses(t *testing.T) {
	store := &fakeStore{expenses: map[string]Expense{}}
	svc := NewService(store, nil)

	_, _, err := svc.List(context.Background(), auth.UserContext{UserID: "u1", Role: auth.RoleEmployee}, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "u1", store.lastList.CreatedBy)

	_, _, err = svc.List(context.Background(), auth.UserContext{UserID: "hr", Role: auth.RoleHRManager}, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "", store.lastList.CreatedBy)
}

func TestDecide(t *testing.T) {
	store := &fakeStore{expenses: map[string]Expense{
		"own":  {ID: "own", CreatedBy: "hr", Status: StatusPending},
		"done": {ID: "done", CreatedBy: "u1", Status: StatusApproved},
		"x":    {ID: "x", CreatedBy: "u1", Status: StatusPending},
	}}
	svc := NewService(store, nil)
	hr := auth.UserContext{UserID: "hr", Role: auth.RoleHRManager}

	_, _, err := svc.Decide(context.Background(), hr, "own", StatusApproved, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = svc.Decide(context.Background(), hr, "done", StatusRejected, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, after, err := svc.Decide(context.Background(), hr, "x", StatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, after.Status)
}
