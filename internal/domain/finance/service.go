package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/domain/notifications"
)

type StoreAPI interface {
	ListExpenses(ctx context.Context, f Filter) ([]Expense, int, error)
	GetExpense(ctx context.Context, id string) (Expense, error)
	CreateExpense(ctx context.Context, in ExpenseInput, createdBy string) (string, error)
	UpdatePendingExpense(ctx context.Context, id string, in ExpenseInput) (bool, error)
	DeletePendingExpense(ctx context.Context, id string) (bool, error)
	DecideExpense(ctx context.Context, id, status, approverID, notes string) (bool, error)
	StatusTotals(ctx context.Context, year int) ([]StatusTotal, error)
	CategoryTotals(ctx context.Context, year int) ([]CategoryTotal, error)
	MonthTotals(ctx context.Context, year int) (map[int]float64, error)
	DepartmentSpend(ctx context.Context, year int) ([]DepartmentBudget, error)
}

type Service struct {
	Store  StoreAPI
	Notify *notifications.Service
	Now    func() time.Time
}

func NewService(store StoreAPI, notify *notifications.Service) *Service {
	return &Service{Store: store, Notify: notify, Now: time.Now}
}

// canSeeAll is true for roles holding the approval permission.
func canSeeAll(user auth.UserContext) bool {
	return auth.HasPermission(user.Role, auth.PermFinanceApprove)
}

func (s *Service) List(ctx context.Context, user auth.UserContext, f Filter) ([]Expense, int, error) {
	if !canSeeAll(user) {
		f.CreatedBy = user.UserID
	}
	return s.Store.ListExpenses(ctx, f)
}

func (s *Service) Get(ctx context.Context, user auth.UserContext, id string) (Expense, error) {
	e, err := s.Store.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.CreatedBy != user.UserID && !canSeeAll(user) {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, user auth.UserContext, in ExpenseInput) (Expense, error) {
	if err := in.Validate(); err != nil {
		return Expense{}, err
	}
	id, err := s.Store.CreateExpense(ctx, in, user.UserID)
	if err != nil {
		return Expense{}, err
	}
	return s.Store.GetExpense(ctx, id)
}

func (s *Service) editable(ctx context.Context, user auth.UserContext, id string) (Expense, error) {
	e, err := s.Get(ctx, user, id)
	if err != nil {
		return Expense{}, err
	}
	if e.CreatedBy != user.UserID && !canSeeAll(user) {
		return Expense{}, ErrForbidden
	}
	if e.Status != StatusPending {
		return Expense{}, ErrInvalidState
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, user auth.UserContext, id string, in ExpenseInput) (Expense, Expense, error) {
	if err := in.Validate(); err != nil {
		return Expense{}, Expense{}, err
	}
	before, err := s.editable(ctx, user, id)
	if err != nil {
		return Expense{}, Expense{}, err
	}
	ok, err := s.Store.UpdatePendingExpense(ctx, id, in)
	if err != nil {
		return Expense{}, Expense{}, err
	}
	if !ok {
		return Expense{}, Expense{}, ErrInvalidState
	}
	after, err := s.Store.GetExpense(ctx, id)
	return before, after, err
}

func (s *Service) Delete(ctx context.Context, user auth.UserContext, id string) (Expense, error) {
	before, err := s.editable(ctx, user, id)
	if err != nil {
		return Expense{}, err
	}
	ok, err := s.Store.DeletePendingExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if !ok {
		return Expense{}, ErrInvalidState
	}
	return before, nil
}

func (s *Service) Decide(ctx context.Context, user auth.UserContext, id, status, notes string) (Expense, Expense, error) {
	if status != StatusApproved && status != StatusRejected {
		return Expense{}, Expense{}, ErrInvalidDecision
	}
	before, err := s.Store.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, Expense{}, err
	}
	if before.CreatedBy == user.UserID && !user.IsExecutive() {
		return Expense{}, Expense{}, ErrForbidden
	}
	if before.Status != StatusPending {
		return Expense{}, Expense{}, ErrInvalidState
	}
	ok, err := s.Store.DecideExpense(ctx, id, status, user.UserID, strings.TrimSpace(notes))
	if err != nil {
		return Expense{}, Expense{}, err
	}
	if !ok {
		return Expense{}, Expense{}, ErrInvalidState
	}
	after, err := s.Store.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, Expense{}, err
	}
	ntype := notifications.TypeExpenseApproved
	if status == StatusRejected {
		ntype = notifications.TypeExpenseRejected
	}
	s.Notify.Notify(ctx, after.CreatedBy, ntype, "Expense "+strings.ToLower(status),
		fmt.Sprintf("Your %s expense of %.2f (%s) was %s.", after.Category, after.Amount, after.Description, strings.ToLower(status)))
	return before, after, nil
}

func (s *Service) Analytics(ctx context.Context, year int) (Analytics, error) {
	statuses, err := s.Store.StatusTotals(ctx, year)
	if err != nil {
		return Analytics{}, err
	}
	categories, err := s.Store.CategoryTotals(ctx, year)
	if err != nil {
		return Analytics{}, err
	}
	months, err := s.Store.MonthTotals(ctx, year)
	if err != nil {
		return Analytics{}, err
	}
	depts, err := s.Store.DepartmentSpend(ctx, year)
	if err != nil {
		return Analytics{}, err
	}
	for i := range depts {
		depts[i] = Utilization(depts[i])
	}
	return Analytics{
		Year:        year,
		TotalAmount: sumStatus(statuses),
		ByStatus:    statuses,
		ByCategory:  categories,
		ByMonth:     FillMonths(months),
		Departments: depts,
	}, nil
}

func (s *Service) Report(ctx context.Context, user auth.UserContext, f Filter) ([]byte, error) {
	f.Limit, f.Offset = 0, 0
	list, _, err := s.List(ctx, user, f)
	if err != nil {
		return nil, err
	}
	title := "Expense report"
	if !f.From.IsZero() || !f.To.IsZero() {
		title += fmt.Sprintf(" %s to %s", formatDay(f.From), formatDay(f.To))
	}
	return ReportPDF(title, list, s.Now())
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "..."
	}
	return t.Format("2006-01-02")
}
