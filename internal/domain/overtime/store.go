package overtime

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"hrcrm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// Scope narrows a report to one user or one department; both empty means everyone.
type Scope struct {
	UserID       string
	DepartmentID string
}

func (s *Store) ClockedSummaries(ctx context.Context, from, to time.Time, scope Scope) ([]EmployeeSummary, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id, u.name, COALESCE(e.employee_id, ''), COALESCE(d.name, ''),
           SUM(t.total_hours), SUM(t.regular_hours), SUM(t.overtime_hours), SUM(t.weekend_hours),
           SUM(t.holiday_hours), SUM(t.night_shift_hours)
    FROM time_entries t
    JOIN users u ON u.id = t.user_id
    LEFT JOIN employees e ON e.user_id = u.id
    LEFT JOIN departments d ON d.id = e.department_id
    WHERE t.clock_in >= $1 AND t.clock_in < $2 AND t.status IN ('COMPLETED','OVERTIME')
      AND ($3 = '' OR u.id::text = $3)
      AND ($4 = '' OR e.department_id::text = $4)
    GROUP BY u.id, u.name, e.employee_id, d.name
    ORDER BY u.name
  `, from, to, scope.UserID, scope.DepartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []EmployeeSummary{}
	for rows.Next() {
		var r EmployeeSummary
		if err := rows.Scan(&r.UserID, &r.EmployeeName, &r.EmployeeID, &r.Department,
			&r.TotalHours, &r.RegularHours, &r.OvertimeHours, &r.WeekendHours, &r.HolidayHours, &r.NightShiftHours); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const entrySelect = `
    SELECT o.id, o.user_id, u.name, o.date, o.start_time, o.end_time, o.hours, o.category, o.description,
           o.status, o.created_by::text, o.approved_by::text, o.created_at
    FROM overtime_entries o
    JOIN users u ON u.id = o.user_id
    LEFT JOIN employees e ON e.user_id = o.user_id`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.UserID, &e.EmployeeName, &e.Date, &e.StartTime, &e.EndTime, &e.Hours, &e.Category,
		&e.Description, &e.Status, &e.CreatedBy, &e.ApprovedBy, &e.CreatedAt)
	return e, err
}

func (s *Store) ListEntries(ctx context.Context, from, to time.Time, scope Scope) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, entrySelect+`
    WHERE o.date >= $1 AND o.date < $2
      AND ($3 = '' OR o.user_id::text = $3)
      AND ($4 = '' OR e.department_id::text = $4)
    ORDER BY o.date, u.name
  `, from, to, scope.UserID, scope.DepartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetEntry(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(s.DB.QueryRow(ctx, entrySelect+" WHERE o.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *Store) CreateEntry(ctx context.Context, in EntryInput, hours float64, createdBy string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO overtime_entries (user_id, date, start_time, end_time, hours, category, description, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, in.UserID, in.Date, in.StartTime, in.EndTime, hours, in.Category, in.Description, createdBy).Scan(&id)
	return id, err
}

func (s *Store) DecideEntry(ctx context.Context, id, status, approverID string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE overtime_entries SET status = $1, approved_by = $2
    WHERE id = $3 AND status = 'PENDING'
  `, status, approverID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) DepartmentOf(ctx context.Context, userID string) (string, error) {
	var dept *string
	err := s.DB.QueryRow(ctx, "SELECT department_id::text FROM employees WHERE user_id = $1", userID).Scan(&dept)
	if errors.Is(err, pgx.ErrNoRows) || dept == nil {
		return "", nil
	}
	return *dept, err
}
