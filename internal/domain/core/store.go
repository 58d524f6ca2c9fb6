package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	cryptoutil "hrcrm/internal/platform/crypto"
	"hrcrm/internal/platform/querier"
)

// employeeIDLock serialises employee id allocation across transactions.
const employeeIDLock = 7_100_001

type Store struct {
	DB     querier.TxBeginner
	Crypto *cryptoutil.Service
}

func NewStore(db querier.TxBeginner, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

const employeeSelect = `
    SELECT e.id, e.user_id, COALESCE(e.employee_id, ''), e.first_name, e.last_name, u.email, u.role, e.title,
           e.department_id::text, COALESCE(d.name, ''), e.salary::float8, e.salary_enc, e.hire_date,
           e.manager_id::text, COALESCE(m.name, ''), e.phone, e.avatar IS NOT NULL, e.status, e.created_at, e.updated_at
    FROM employees e
    JOIN users u ON u.id = e.user_id
    LEFT JOIN departments d ON d.id = e.department_id
    LEFT JOIN users m ON m.id = e.manager_id`

func (s *Store) scanEmployee(row pgx.Row) (*Employee, error) {
	var emp Employee
	var salaryPlain *float64
	var salaryEnc []byte
	if err := row.Scan(
		&emp.ID, &emp.UserID, &emp.EmployeeID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Role, &emp.Title,
		&emp.DepartmentID, &emp.DepartmentName, &salaryPlain, &salaryEnc, &emp.HireDate,
		&emp.ManagerID, &emp.ManagerName, &emp.Phone, &emp.HasAvatar, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	emp.Salary = decryptSalary(s.Crypto, salaryEnc, salaryPlain)
	return &emp, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	emp, err := s.scanEmployee(s.DB.QueryRow(ctx, employeeSelect+" WHERE e.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return emp, err
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, userID string) (*Employee, error) {
	emp, err := s.scanEmployee(s.DB.QueryRow(ctx, employeeSelect+" WHERE e.user_id = $1", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return emp, err
}

func employeeWhere(filter EmployeeFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND ((e.first_name || ' ' || e.last_name) ILIKE $%d OR u.email ILIKE $%d OR e.employee_id ILIKE $%d)", n, n, n)
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND e.department_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND e.status = $%d", len(args))
	}
	return where, args
}

func (s *Store) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, int, error) {
	where, args := employeeWhere(filter)

	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees e
    JOIN users u ON u.id = e.user_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := employeeSelect + where + fmt.Sprintf(" ORDER BY e.last_name, e.first_name LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *emp)
	}
	return out, total, rows.Err()
}

// CreateEmployeeWithUser inserts the login and the employee record together and
// allocates the next EMP-NNNN id.
func (s *Store) CreateEmployeeWithUser(ctx context.Context, in EmployeeInput, passwordHash string) (string, error) {
	salaryPlain, salaryEnc, err := encryptSalary(s.Crypto, in.Salary)
	if err != nil {
		return "", err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", employeeIDLock); err != nil {
		return "", err
	}
	ids, err := collectStrings(ctx, tx, "SELECT employee_id FROM employees WHERE employee_id IS NOT NULL")
	if err != nil {
		return "", err
	}

	var userID string
	err = tx.QueryRow(ctx, `
    INSERT INTO users (email, name, password_hash, role, must_change_password)
    VALUES ($1,$2,$3,$4,true)
    RETURNING id
  `, strings.ToLower(strings.TrimSpace(in.Email)), joinName(in.FirstName, in.LastName), passwordHash, in.Role).Scan(&userID)
	if err != nil {
		return "", err
	}

	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_id, first_name, last_name, title, department_id, salary, salary_enc, hire_date, manager_id, phone)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id
  `, userID, NextEmployeeID(ids), in.FirstName, in.LastName, in.Title, nullIfEmpty(in.DepartmentID),
		salaryPlain, salaryEnc, in.HireDate, nullIfEmpty(in.ManagerID), in.Phone).Scan(&id)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, emp Employee) error {
	salaryPlain, salaryEnc, err := encryptSalary(s.Crypto, emp.Salary)
	if err != nil {
		return err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, `
    UPDATE employees
    SET first_name = $1,
        last_name = $2,
        title = $3,
        department_id = $4,
        salary = $5,
        salary_enc = $6,
        hire_date = $7,
        manager_id = $8,
        phone = $9,
        updated_at = now()
    WHERE id = $10
  `, emp.FirstName, emp.LastName, emp.Title, emp.DepartmentID, salaryPlain, salaryEnc, emp.HireDate, emp.ManagerID, emp.Phone, emp.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, "UPDATE users SET name = $1, role = $2, updated_at = now() WHERE id = $3", emp.FullName(), emp.Role, emp.UserID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) SetEmployeeStatus(ctx context.Context, id, status string) error {
	var userID string
	err := s.DB.QueryRow(ctx, "UPDATE employees SET status = $1, updated_at = now() WHERE id = $2 RETURNING user_id", status, id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, "UPDATE users SET status = $1, updated_at = now() WHERE id = $2", status, userID)
	return err
}

func (s *Store) SetAvatar(ctx context.Context, id string, data []byte, contentType string) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE employees SET avatar = $1, avatar_type = $2, updated_at = now() WHERE id = $3", data, contentType, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Avatar(ctx context.Context, id string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := s.DB.QueryRow(ctx, "SELECT avatar, avatar_type FROM employees WHERE id = $1", id).Scan(&data, &contentType)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && len(data) == 0) {
		return nil, "", ErrNotFound
	}
	return data, contentType, err
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))", strings.TrimSpace(email)).Scan(&exists)
	return exists, err
}

// EmployeeIDRecords lists every employee with its current id for repair planning.
func (s *Store) EmployeeIDRecords(ctx context.Context) ([]EmployeeIDRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id, first_name || ' ' || last_name, COALESCE(employee_id, ''), created_at
    FROM employees
    ORDER BY created_at, id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EmployeeIDRecord
	for rows.Next() {
		var r EmployeeIDRecord
		if err := rows.Scan(&r.RecordID, &r.UserID, &r.Name, &r.EmployeeID, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func collectStrings(ctx context.Context, q querier.Querier, sql string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func encryptSalary(crypto *cryptoutil.Service, salary *float64) (any, []byte, error) {
	if salary == nil {
		return nil, nil, nil
	}
	if !crypto.Configured() {
		return *salary, nil, nil
	}
	sealed, err := crypto.EncryptAmount(*salary)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt salary: %w", err)
	}
	return nil, sealed, nil
}

func decryptSalary(crypto *cryptoutil.Service, sealed []byte, plain *float64) *float64 {
	if !crypto.Configured() || len(sealed) == 0 {
		return plain
	}
	value, err := crypto.DecryptAmount(sealed)
	if err != nil {
		return plain
	}
	return &value
}
