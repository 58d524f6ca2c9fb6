package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrcrm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const expenseSelect = `
    SELECT x.id, x.expense_date, x.category, x.description, x.amount::float8, x.payment_method, x.status,
           x.department_id::text, COALESCE(d.name, ''), x.receipt_ref, x.notes, x.created_by, u.name,
           x.approved_by::text, x.approved_at, x.created_at
    FROM expenses x
    JOIN users u ON u.id = x.created_by
    LEFT JOIN departments d ON d.id = x.department_id`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.ExpenseDate, &e.Category, &e.Description, &e.Amount, &e.PaymentMethod, &e.Status,
		&e.DepartmentID, &e.DepartmentName, &e.ReceiptRef, &e.Notes, &e.CreatedBy, &e.CreatedByName,
		&e.ApprovedBy, &e.ApprovedAt, &e.CreatedAt)
	return e, err
}

func filterWhere(f Filter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if f.Status != "" {
		add(" AND x.status = $%d", f.Status)
	}
	if f.Category != "" {
		add(" AND x.category = $%d", f.Category)
	}
	if f.DepartmentID != "" {
		add(" AND x.department_id = $%d", f.DepartmentID)
	}
	if f.CreatedBy != "" {
		add(" AND x.created_by = $%d", f.CreatedBy)
	}
	if !f.From.IsZero() {
		add(" AND x.expense_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add(" AND x.expense_date <= $%d", f.To)
	}
	return where, args
}

func (s *Store) ListExpenses(ctx context.Context, f Filter) ([]Expense, int, error) {
	where, args := filterWhere(f)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM expenses x"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := expenseSelect + where + " ORDER BY x.expense_date DESC, x.created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) GetExpense(ctx context.Context, id string) (Expense, error) {
	e, err := scanExpense(s.DB.QueryRow(ctx, expenseSelect+" WHERE x.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	return e, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *Store) CreateExpense(ctx context.Context, in ExpenseInput, createdBy string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO expenses (expense_date, category, description, amount, payment_method, department_id, receipt_ref, notes, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, in.ExpenseDate, in.Category, in.Description, in.Amount, in.PaymentMethod, nullable(in.DepartmentID),
		in.ReceiptRef, in.Notes, createdBy).Scan(&id)
	return id, err
}

func (s *Store) UpdatePendingExpense(ctx context.Context, id string, in ExpenseInput) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE expenses
    SET expense_date = $1, category = $2, description = $3, amount = $4, payment_method = $5,
        department_id = $6, receipt_ref = $7, notes = $8, updated_at = now()
    WHERE id = $9 AND status = 'PENDING'
  `, in.ExpenseDate, in.Category, in.Description, in.Amount, in.PaymentMethod, nullable(in.DepartmentID),
		in.ReceiptRef, in.Notes, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) DeletePendingExpense(ctx context.Context, id string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM expenses WHERE id = $1 AND status = 'PENDING'", id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) DecideExpense(ctx context.Context, id, status, approverID, notes string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE expenses
    SET status = $1, approved_by = $2, approved_at = now(),
        notes = CASE WHEN $3 = '' THEN notes ELSE $3 END, updated_at = now()
    WHERE id = $4 AND status = 'PENDING'
  `, status, approverID, notes, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) StatusTotals(ctx context.Context, year int) ([]StatusTotal, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1), COALESCE(SUM(amount), 0)::float8
    FROM expenses
    WHERE EXTRACT(YEAR FROM expense_date) = $1
    GROUP BY status
    ORDER BY status
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StatusTotal{}
	for rows.Next() {
		var r StatusTotal
		if err := rows.Scan(&r.Status, &r.Count, &r.Amount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CategoryTotals(ctx context.Context, year int) ([]CategoryTotal, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT category, COUNT(1), COALESCE(SUM(amount), 0)::float8
    FROM expenses
    WHERE EXTRACT(YEAR FROM expense_date) = $1 AND status <> 'REJECTED'
    GROUP BY category
    ORDER BY 3 DESC
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CategoryTotal{}
	for rows.Next() {
		var r CategoryTotal
		if err := rows.Scan(&r.Category, &r.Count, &r.Amount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MonthTotals(ctx context.Context, year int) (map[int]float64, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT EXTRACT(MONTH FROM expense_date)::int, COALESCE(SUM(amount), 0)::float8
    FROM expenses
    WHERE EXTRACT(YEAR FROM expense_date) = $1 AND status = 'APPROVED'
    GROUP BY 1
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]float64{}
	for rows.Next() {
		var m int
		var amount float64
		if err := rows.Scan(&m, &amount); err != nil {
			return nil, err
		}
		out[m] = amount
	}
	return out, rows.Err()
}

func (s *Store) DepartmentSpend(ctx context.Context, year int) ([]DepartmentBudget, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT d.id, d.name, d.budget::float8,
           COALESCE((SELECT SUM(x.amount) FROM expenses x
                     WHERE x.department_id = d.id AND x.status = 'APPROVED'
                       AND EXTRACT(YEAR FROM x.expense_date) = $1), 0)::float8
    FROM departments d
    ORDER BY d.name
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DepartmentBudget{}
	for rows.Next() {
		var d DepartmentBudget
		if err := rows.Scan(&d.DepartmentID, &d.Name, &d.Budget, &d.Spent); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM expenses WHERE status = 'PENDING'").Scan(&n)
	return n, err
}
