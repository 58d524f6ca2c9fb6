package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrcrm/internal/platform/querier"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

const requestSelect = `
    SELECT lr.id, lr.user_id, u.name, COALESCE(d.name, ''), lr.leave_type, lr.start_date, lr.end_date,
           lr.working_days, lr.reason, lr.status, lr.admin_notes, lr.reviewed_by::text, lr.reviewed_at, lr.created_at
    FROM leave_requests lr
    JOIN users u ON u.id = lr.user_id
    LEFT JOIN employees e ON e.user_id = lr.user_id
    LEFT JOIN departments d ON d.id = e.department_id`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.UserID, &r.EmployeeName, &r.Department, &r.LeaveType, &r.StartDate, &r.EndDate,
		&r.WorkingDays, &r.Reason, &r.Status, &r.AdminNotes, &r.ReviewedBy, &r.ReviewedAt, &r.CreatedAt)
	return r, err
}

func scopeWhere(scope Scope, args []any) (string, []any) {
	if scope.All {
		return "", args
	}
	args = append(args, scope.UserID)
	clause := fmt.Sprintf("lr.user_id = $%d", len(args))
	if scope.DepartmentID != "" {
		args = append(args, scope.DepartmentID)
		clause += fmt.Sprintf(" OR e.department_id = $%d", len(args))
	}
	if scope.ManagerID != "" {
		args = append(args, scope.ManagerID)
		clause += fmt.Sprintf(" OR e.manager_id = $%d", len(args))
	}
	return " AND (" + clause + ")", args
}

func (s *Store) ListRequests(ctx context.Context, filter ListFilter) ([]Request, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	var scopeSQL string
	scopeSQL, args = scopeWhere(filter.Scope, args)
	where += scopeSQL
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND lr.status = $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests lr
    LEFT JOIN employees e ON e.user_id = lr.user_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := requestSelect + where + fmt.Sprintf(" ORDER BY lr.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *Store) GetRequest(ctx context.Context, id string) (Request, error) {
	r, err := scanRequest(s.DB.QueryRow(ctx, requestSelect+" WHERE lr.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return r, err
}

func (s *Store) HasOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE user_id = $1 AND status IN ('PENDING','APPROVED')
        AND start_date <= $3 AND end_date >= $2
    )
  `, userID, start, end).Scan(&exists)
	return exists, err
}

func (s *Store) CreateRequest(ctx context.Context, in CreateInput, workingDays float64) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (user_id, leave_type, start_date, end_date, working_days, reason)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, in.UserID, in.LeaveType, in.StartDate, in.EndDate, workingDays, in.Reason).Scan(&id)
	return id, err
}

// DecideRequest moves a PENDING request to status; false means it was not pending.
func (s *Store) DecideRequest(ctx context.Context, id, status, notes, reviewerID string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $1, admin_notes = $2, reviewed_by = $3, reviewed_at = now(), updated_at = now()
    WHERE id = $4 AND status = 'PENDING'
  `, status, notes, reviewerID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) DeletePendingRequest(ctx context.Context, id string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM leave_requests WHERE id = $1 AND status = 'PENDING'", id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) Holidays(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	return holidaysBetween(ctx, s.DB, from, to)
}

func holidaysBetween(ctx context.Context, q querier.Querier, from, to time.Time) ([]Holiday, error) {
	rows, err := q.Query(ctx, "SELECT id, date, name FROM holidays WHERE date BETWEEN $1 AND $2 ORDER BY date", from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Holiday{}
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) CreateHoliday(ctx context.Context, date time.Time, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "INSERT INTO holidays (date, name) VALUES ($1,$2) RETURNING id", date, name).Scan(&id)
	return id, err
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// UserPlacement returns the user's department and reporting manager, either possibly empty.
func (s *Store) UserPlacement(ctx context.Context, userID string) (string, string, error) {
	var dept, manager *string
	err := s.DB.QueryRow(ctx, "SELECT department_id::text, manager_id::text FROM employees WHERE user_id = $1", userID).Scan(&dept, &manager)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return deref(dept), deref(manager), nil
}

// Coverage counts active department colleagues of userID and names those away in the range.
func (s *Store) Coverage(ctx context.Context, departmentID, userID string, start, end time.Time) (Coverage, error) {
	var c Coverage
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees
    WHERE department_id = $1 AND status = 'ACTIVE' AND user_id <> $2
  `, departmentID, userID).Scan(&c.TeamSize); err != nil {
		return Coverage{}, err
	}
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT lr.user_id, u.name
    FROM leave_requests lr
    JOIN employees e ON e.user_id = lr.user_id
    JOIN users u ON u.id = lr.user_id
    WHERE e.department_id = $1 AND lr.user_id <> $2 AND e.status = 'ACTIVE'
      AND lr.status IN ('PENDING','APPROVED')
      AND lr.start_date <= $4 AND lr.end_date >= $3
    ORDER BY u.name
  `, departmentID, userID, start, end)
	if err != nil {
		return Coverage{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return Coverage{}, err
		}
		c.OnLeave = append(c.OnLeave, name)
	}
	return c, rows.Err()
}

// ManagerAway reports whether managerUserID has approved leave overlapping the range.
func (s *Store) ManagerAway(ctx context.Context, managerUserID string, start, end time.Time) (string, bool, error) {
	var name string
	err := s.DB.QueryRow(ctx, `
    SELECT u.name
    FROM leave_requests lr
    JOIN users u ON u.id = lr.user_id
    WHERE lr.user_id = $1 AND lr.status = 'APPROVED'
      AND lr.start_date <= $3 AND lr.end_date >= $2
    LIMIT 1
  `, managerUserID, start, end).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (s *Store) Entitlements(ctx context.Context, userID string, year int) (map[string]Entitlement, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT leave_type, allowance, carried_over
    FROM leave_entitlements
    WHERE user_id = $1 AND year = $2
  `, userID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]Entitlement{}
	for rows.Next() {
		var t string
		var e Entitlement
		if err := rows.Scan(&t, &e.Allowance, &e.CarriedOver); err != nil {
			return nil, err
		}
		out[t] = e
	}
	return out, rows.Err()
}

// Usage sums approved and pending working days per type falling in year.
// Requests crossing a year boundary are split by the days on each side.
func (s *Store) Usage(ctx context.Context, userID string, year int) (map[string]Usage, error) {
	first, last := yearBounds(year)
	spans, err := requestSpans(ctx, s.DB, `
    SELECT user_id::text, leave_type, status, start_date, end_date, working_days::float8
    FROM leave_requests
    WHERE user_id = $1 AND status IN ('PENDING','APPROVED')
      AND start_date <= $3 AND end_date >= $2
  `, userID, first, last)
	if err != nil {
		return nil, err
	}
	holidays, err := spanHolidays(ctx, s.DB, spans, year)
	if err != nil {
		return nil, err
	}
	return UsageForYear(spans, year, holidays), nil
}

func requestSpans(ctx context.Context, q querier.Querier, query string, args ...any) ([]RequestSpan, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RequestSpan
	for rows.Next() {
		var sp RequestSpan
		if err := rows.Scan(&sp.UserID, &sp.LeaveType, &sp.Status, &sp.StartDate, &sp.EndDate, &sp.WorkingDays); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// spanHolidays loads the year's holidays only when some span crosses the year.
func spanHolidays(ctx context.Context, q querier.Querier, spans []RequestSpan, year int) ([]time.Time, error) {
	first, last := yearBounds(year)
	crosses := false
	for _, sp := range spans {
		if dateOnly(sp.StartDate).Before(first) || dateOnly(sp.EndDate).After(last) {
			crosses = true
			break
		}
	}
	if !crosses {
		return nil, nil
	}
	holidays, err := holidaysBetween(ctx, q, first, last)
	if err != nil {
		return nil, err
	}
	return holidayDates(holidays), nil
}

func (s *Store) UpsertEntitlement(ctx context.Context, userID, leaveType string, year int, allowance float64) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_entitlements (user_id, leave_type, year, allowance)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (user_id, leave_type, year)
    DO UPDATE SET allowance = EXCLUDED.allowance, updated_at = now()
  `, userID, leaveType, year, allowance)
	return err
}

func (s *Store) Calendar(ctx context.Context, from, to time.Time, departmentID string) ([]CalendarEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT lr.id, lr.user_id, u.name, lr.leave_type, lr.start_date, lr.end_date, lr.status
    FROM leave_requests lr
    JOIN users u ON u.id = lr.user_id
    LEFT JOIN employees e ON e.user_id = lr.user_id
    WHERE lr.status IN ('PENDING','APPROVED')
      AND lr.start_date <= $2 AND lr.end_date >= $1
      AND ($3 = '' OR e.department_id::text = $3)
    ORDER BY lr.start_date, u.name
  `, from, to, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CalendarEntry{}
	for rows.Next() {
		var c CalendarEntry
		if err := rows.Scan(&c.ID, &c.UserID, &c.EmployeeName, &c.LeaveType, &c.StartDate, &c.EndDate, &c.Status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ApproverUserIDs lists who should hear about a new request from userID: the
// reporting manager and the managers of the user's department.
func (s *Store) ApproverUserIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.manager_id FROM employees e WHERE e.user_id = $1 AND e.manager_id IS NOT NULL
    UNION
    SELECT dm.user_id FROM department_managers dm
    JOIN employees e ON e.department_id = dm.department_id
    WHERE e.user_id = $1 AND dm.user_id <> $1
  `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Rollover carries unused vacation from fromYear into the following year once.
func (s *Store) Rollover(ctx context.Context, fromYear int) (RolloverResult, error) {
	result := RolloverResult{FromYear: fromYear, ToYear: fromYear + 1}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, "INSERT INTO leave_rollover_runs (year) VALUES ($1) ON CONFLICT DO NOTHING", result.ToYear)
	if err != nil {
		return result, err
	}
	if cmd.RowsAffected() == 0 {
		result.AlreadyApplied = true
		return result, nil
	}

	rows, err := tx.Query(ctx, `
    SELECT u.id::text, COALESCE(le.allowance, $2), COALESCE(le.carried_over, 0)
    FROM users u
    LEFT JOIN leave_entitlements le ON le.user_id = u.id AND le.leave_type = 'VACATION' AND le.year = $1
    WHERE u.status = 'ACTIVE'
  `, fromYear, DefaultAllowances[TypeVacation])
	if err != nil {
		return result, err
	}
	type entitled struct {
		userID string
		ent    Entitlement
	}
	var users []entitled
	for rows.Next() {
		var e entitled
		if err := rows.Scan(&e.userID, &e.ent.Allowance, &e.ent.CarriedOver); err != nil {
			rows.Close()
			return result, err
		}
		users = append(users, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return result, err
	}

	first, last := yearBounds(fromYear)
	spans, err := requestSpans(ctx, tx, `
    SELECT user_id::text, leave_type, status, start_date, end_date, working_days::float8
    FROM leave_requests
    WHERE leave_type = 'VACATION' AND status = 'APPROVED'
      AND start_date <= $2 AND end_date >= $1
  `, first, last)
	if err != nil {
		return result, err
	}
	holidays, err := spanHolidays(ctx, tx, spans, fromYear)
	if err != nil {
		return result, err
	}
	byUser := map[string][]RequestSpan{}
	for _, sp := range spans {
		byUser[sp.UserID] = append(byUser[sp.UserID], sp)
	}

	type carry struct {
		userID string
		days   float64
	}
	carries := make([]carry, 0, len(users))
	for _, u := range users {
		used := UsageForYear(byUser[u.userID], fromYear, holidays)[TypeVacation].Used
		carries = append(carries, carry{userID: u.userID, days: CarryOver(u.ent, used)})
	}

	for _, c := range carries {
		if _, err := tx.Exec(ctx, `
      INSERT INTO leave_entitlements (user_id, leave_type, year, allowance, carried_over)
      VALUES ($1,'VACATION',$2,$3,$4)
      ON CONFLICT (user_id, leave_type, year)
      DO UPDATE SET carried_over = EXCLUDED.carried_over, updated_at = now()
    `, c.userID, result.ToYear, DefaultAllowances[TypeVacation], c.days); err != nil {
			return result, err
		}
	}
	result.UsersProcessed = len(carries)
	if _, err := tx.Exec(ctx, "UPDATE leave_rollover_runs SET users_processed = $1 WHERE year = $2", result.UsersProcessed, result.ToYear); err != nil {
		return result, err
	}
	return result, tx.Commit(ctx)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
