package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"hrcrm/internal/domain/core"
	"hrcrm/internal/platform/querier"
)

// employeeIDLock serialises employee number allocation with the core store.
const employeeIDLock = 7_100_001

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

type userRow struct {
	ID     string
	Email  string
	Role   string
	Status string
}

func (s *Store) user(ctx context.Context, q querier.Querier, id string) (userRow, error) {
	var u userRow
	err := q.QueryRow(ctx, "SELECT id, email, role, status FROM users WHERE id = $1", id).Scan(&u.ID, &u.Email, &u.Role, &u.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return userRow{}, ErrNotFound
	}
	return u, err
}

func countReferences(ctx context.Context, q querier.Querier, userID string) ([]TableCount, int, error) {
	out := make([]TableCount, 0, len(userReferences))
	total := 0
	for _, ref := range userReferences {
		var n int
		if err := q.QueryRow(ctx, ref.countSQL(), userID).Scan(&n); err != nil {
			return nil, 0, fmt.Errorf("count %s.%s: %w", ref.Table, ref.Column, err)
		}
		out = append(out, TableCount{Table: ref.Table, Column: ref.Column, Action: ref.Action, Count: n})
		total += n
	}
	return out, total, nil
}

func (s *Store) CascadePreview(ctx context.Context, userID string) (CascadePreview, error) {
	u, err := s.user(ctx, s.DB, userID)
	if err != nil {
		return CascadePreview{}, err
	}
	counts, total, err := countReferences(ctx, s.DB, userID)
	if err != nil {
		return CascadePreview{}, err
	}
	return CascadePreview{UserID: u.ID, Email: u.Email, Role: u.Role, Counts: counts, Total: total}, nil
}

func (s *Store) ActiveSuperAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE role = 'SUPER_ADMIN' AND status = 'ACTIVE'").Scan(&n)
	return n, err
}

func (s *Store) UserRole(ctx context.Context, userID string) (string, error) {
	u, err := s.user(ctx, s.DB, userID)
	return u.Role, err
}

// CascadeDelete removes the user and every row that references it in one transaction.
func (s *Store) CascadeDelete(ctx context.Context, userID string) (CascadePreview, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return CascadePreview{}, err
	}
	defer tx.Rollback(ctx)

	u, err := s.user(ctx, tx, userID)
	if err != nil {
		return CascadePreview{}, err
	}
	counts, total, err := countReferences(ctx, tx, userID)
	if err != nil {
		return CascadePreview{}, err
	}
	for _, ref := range userReferences {
		if _, err := tx.Exec(ctx, ref.applySQL(), userID); err != nil {
			return CascadePreview{}, fmt.Errorf("%s %s.%s: %w", ref.Action, ref.Table, ref.Column, err)
		}
	}
	if _, err := tx.Exec(ctx, "DELETE FROM users WHERE id = $1", userID); err != nil {
		return CascadePreview{}, fmt.Errorf("delete user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return CascadePreview{}, err
	}
	return CascadePreview{UserID: u.ID, Email: u.Email, Role: u.Role, Counts: counts, Total: total}, nil
}

const orphanQuery = `
    SELECT u.id, u.email, u.name, u.role, u.created_at
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    WHERE e.id IS NULL
    ORDER BY u.created_at, u.id`

func listOrphans(ctx context.Context, q querier.Querier) ([]OrphanUser, error) {
	rows, err := q.Query(ctx, orphanQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []OrphanUser{}
	for rows.Next() {
		var o OrphanUser
		if err := rows.Scan(&o.ID, &o.Email, &o.Name, &o.Role, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) OrphanedUsers(ctx context.Context) ([]OrphanUser, error) {
	return listOrphans(ctx, s.DB)
}

// FixOrphanedUsers creates an employee record for every user without one.
func (s *Store) FixOrphanedUsers(ctx context.Context) ([]OrphanFix, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", employeeIDLock); err != nil {
		return nil, err
	}
	orphans, err := listOrphans(ctx, tx)
	if err != nil {
		return nil, err
	}
	ids, err := existingEmployeeIDs(ctx, tx)
	if err != nil {
		return nil, err
	}
	next := core.MaxEmployeeNumber(ids)
	fixes := make([]OrphanFix, 0, len(orphans))
	for _, o := range orphans {
		first, last := SplitName(o.Name, o.Email)
		employeeID := core.FormatEmployeeID(next + 1)
		tag, err := tx.Exec(ctx, `
    INSERT INTO employees (user_id, employee_id, first_name, last_name, hire_date)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (user_id) DO NOTHING
  `, o.ID, employeeID, first, last, o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("create employee for %s: %w", o.Email, err)
		}
		// created elsewhere since the orphan list was read
		if tag.RowsAffected() == 0 {
			continue
		}
		next++
		fixes = append(fixes, OrphanFix{UserID: o.ID, Email: o.Email, EmployeeID: employeeID})
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return fixes, nil
}

func existingEmployeeIDs(ctx context.Context, q querier.Querier) ([]string, error) {
	rows, err := q.Query(ctx, "SELECT employee_id FROM employees WHERE employee_id IS NOT NULL")
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

func employeeIDRecords(ctx context.Context, q querier.Querier) ([]core.EmployeeIDRecord, error) {
	rows, err := q.Query(ctx, `
    SELECT id, user_id, first_name || ' ' || last_name, COALESCE(employee_id, ''), created_at
    FROM employees
    ORDER BY created_at, id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.EmployeeIDRecord
	for rows.Next() {
		var r core.EmployeeIDRecord
		if err := rows.Scan(&r.RecordID, &r.UserID, &r.Name, &r.EmployeeID, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) EmployeeIDIssues(ctx context.Context) ([]core.EmployeeIDIssue, error) {
	records, err := employeeIDRecords(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	return core.PlanEmployeeIDRepairs(records), nil
}

// FixEmployeeIDs re-plans under the allocation lock and applies every proposed id.
func (s *Store) FixEmployeeIDs(ctx context.Context) ([]core.EmployeeIDIssue, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", employeeIDLock); err != nil {
		return nil, err
	}
	records, err := employeeIDRecords(ctx, tx)
	if err != nil {
		return nil, err
	}
	issues := core.PlanEmployeeIDRepairs(records)
	for _, issue := range issues {
		if _, err := tx.Exec(ctx, "UPDATE employees SET employee_id = $1, updated_at = now() WHERE id = $2", issue.Proposed, issue.RecordID); err != nil {
			return nil, fmt.Errorf("renumber %s: %w", issue.RecordID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.DB.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.DB.QueryRow(ctx, `
    SELECT
      (SELECT COUNT(1) FROM users),
      (SELECT COUNT(1) FROM employees),
      (SELECT COUNT(1) FROM departments),
      (SELECT COUNT(1) FROM users u WHERE NOT EXISTS (SELECT 1 FROM employees e WHERE e.user_id = u.id)),
      (SELECT COUNT(1) FROM time_entries WHERE status = 'ACTIVE'),
      (SELECT COUNT(1) FROM leave_requests WHERE status = 'PENDING'),
      (SELECT COUNT(1) FROM expenses WHERE status = 'PENDING'),
      (SELECT COUNT(1) FROM overtime_entries WHERE status = 'PENDING')
  `).Scan(&c.Users, &c.Employees, &c.Departments, &c.OrphanedUsers, &c.ActiveTimeEntries,
		&c.PendingLeave, &c.PendingExpenses, &c.PendingOvertime)
	if err != nil {
		return Counts{}, err
	}
	records, err := employeeIDRecords(ctx, s.DB)
	if err != nil {
		return Counts{}, err
	}
	c.InvalidIDs = len(core.PlanEmployeeIDRepairs(records))
	return c, nil
}

const credentialSelect = `
    SELECT c.id, c.user_id, u.email, u.name, c.password_enc, c.expires_at, c.is_used, c.used_at,
           c.created_by::text, c.created_at
    FROM temporary_credentials c
    JOIN users u ON u.id = c.user_id`

func scanCredential(row pgx.Row) (Credential, error) {
	var c Credential
	err := row.Scan(&c.ID, &c.UserID, &c.Email, &c.Name, &c.PasswordEnc, &c.ExpiresAt, &c.IsUsed, &c.UsedAt,
		&c.CreatedBy, &c.CreatedAt)
	return c, err
}

func (s *Store) ListCredentials(ctx context.Context, userID string) ([]Credential, error) {
	query := credentialSelect
	args := []any{}
	if userID != "" {
		query += " WHERE c.user_id = $1"
		args = append(args, userID)
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY c.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Credential{}
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCredential(ctx context.Context, id string) (Credential, error) {
	c, err := scanCredential(s.DB.QueryRow(ctx, credentialSelect+" WHERE c.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Credential{}, ErrNotFound
	}
	return c, err
}

// IssueCredential resets the user's password and stores the sealed plaintext in one transaction.
// Earlier unused credentials of the user expire at issuedAt, since their password no longer works.
func (s *Store) IssueCredential(ctx context.Context, userID, passwordHash string, passwordEnc []byte, issuedAt, expiresAt time.Time, createdBy string) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "UPDATE users SET password_hash = $1, must_change_password = true, updated_at = now() WHERE id = $2", passwordHash, userID)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return "", ErrNotFound
	}
	if _, err := tx.Exec(ctx, `
    UPDATE temporary_credentials SET expires_at = $2
    WHERE user_id = $1 AND is_used = false AND expires_at > $2
  `, userID, issuedAt); err != nil {
		return "", fmt.Errorf("expire superseded credentials: %w", err)
	}
	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO temporary_credentials (user_id, password_enc, expires_at, created_by)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, userID, passwordEnc, expiresAt, createdBy).Scan(&id); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// RevokeCredential expires an unused credential immediately.
func (s *Store) RevokeCredential(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE temporary_credentials SET expires_at = $1 WHERE id = $2 AND is_used = false AND expires_at > $1", at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SplitName derives first and last names, falling back to the email local part.
func SplitName(name, email string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	first, last, _ := strings.Cut(name, " ")
	last = strings.TrimSpace(last)
	if last == "" {
		last = "-"
	}
	return first, last
}
