package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const departmentSelect = `
    SELECT d.id, d.name, d.code, d.description, d.budget::float8, d.location, d.created_at,
           (SELECT COUNT(1) FROM employees e WHERE e.department_id = d.id AND e.status = 'ACTIVE'),
           COALESCE((SELECT array_agg(dm.user_id::text ORDER BY dm.user_id) FROM department_managers dm WHERE dm.department_id = d.id), '{}')
    FROM departments d`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.Budget, &d.Location, &d.CreatedAt, &d.EmployeeCount, &d.ManagerIDs)
	return d, err
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, departmentSelect+" ORDER BY d.name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, id string) (Department, error) {
	d, err := scanDepartment(s.DB.QueryRow(ctx, departmentSelect+" WHERE d.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Department{}, ErrNotFound
	}
	return d, err
}

func (s *Store) DepartmentRoster(ctx context.Context, id string) ([]RosterEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, e.user_id, COALESCE(e.employee_id, ''), e.first_name || ' ' || e.last_name, e.title, u.role, e.status
    FROM employees e
    JOIN users u ON u.id = e.user_id
    WHERE e.department_id = $1
    ORDER BY e.last_name, e.first_name
  `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RosterEntry{}
	for rows.Next() {
		var r RosterEntry
		if err := rows.Scan(&r.EmployeeRecordID, &r.UserID, &r.EmployeeID, &r.Name, &r.Title, &r.Role, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, dep Department) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, code, description, budget, location)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, dep.Name, dep.Code, dep.Description, dep.Budget, dep.Location).Scan(&id)
	return id, err
}

func (s *Store) UpdateDepartment(ctx context.Context, id string, dep Department) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE departments
    SET name = $1, code = $2, description = $3, budget = $4, location = $5, updated_at = now()
    WHERE id = $6
  `, dep.Name, dep.Code, dep.Description, dep.Budget, dep.Location, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) DepartmentHasEmployees(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM employees WHERE department_id = $1)", id).Scan(&exists)
	return exists, err
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM departments WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) SetDepartmentManagers(ctx context.Context, id string, userIDs []string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, "DELETE FROM department_managers WHERE department_id = $1", id); err != nil {
		return err
	}
	for _, userID := range userIDs {
		if _, err := tx.Exec(ctx, "INSERT INTO department_managers (department_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING", id, userID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListJobTitles(ctx context.Context) ([]JobTitle, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, name, department_id::text, created_at FROM job_titles ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []JobTitle{}
	for rows.Next() {
		var jt JobTitle
		if err := rows.Scan(&jt.ID, &jt.Name, &jt.DepartmentID, &jt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, jt)
	}
	return out, rows.Err()
}

func (s *Store) CreateJobTitle(ctx context.Context, name, departmentID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "INSERT INTO job_titles (name, department_id) VALUES ($1,$2) RETURNING id", name, nullIfEmpty(departmentID)).Scan(&id)
	return id, err
}

func (s *Store) DeleteJobTitle(ctx context.Context, id string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM job_titles WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// ListManagers returns active users holding one of roles, optionally limited to a department.
func (s *Store) ListManagers(ctx context.Context, roles []string, departmentID string) ([]Manager, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id, u.name, u.email, u.role, e.department_id::text
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    WHERE u.status = 'ACTIVE' AND u.role = ANY($1)
      AND ($2 = '' OR e.department_id::text = $2
           OR EXISTS (SELECT 1 FROM department_managers dm WHERE dm.user_id = u.id AND dm.department_id::text = $2))
    ORDER BY u.name
  `, roles, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Manager{}
	for rows.Next() {
		var m Manager
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.Role, &m.DepartmentID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DepartmentIDForUser returns "" when the user has no department.
func (s *Store) DepartmentIDForUser(ctx context.Context, userID string) (string, error) {
	var dept *string
	err := s.DB.QueryRow(ctx, "SELECT department_id::text FROM employees WHERE user_id = $1", userID).Scan(&dept)
	if errors.Is(err, pgx.ErrNoRows) || dept == nil {
		return "", nil
	}
	return *dept, err
}

// UserIDsWithRoles lists active users holding any of roles.
func (s *Store) UserIDsWithRoles(ctx context.Context, roles []string) ([]string, error) {
	return collectStrings(ctx, s.DB, "SELECT id FROM users WHERE status = 'ACTIVE' AND role = ANY($1)", roles)
}
