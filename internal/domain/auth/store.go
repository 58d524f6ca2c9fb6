package auth

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

type AuthUser struct {
	ID                 string
	Email              string
	Name               string
	Role               string
	Status             string
	PasswordHash       string
	MFAEnabled         bool
	MFASecretEnc       []byte
	MustChangePassword bool
}

type PendingCredential struct {
	ID        string
	ExpiresAt time.Time
}

type Profile struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               string     `json:"role"`
	Status             string     `json:"status"`
	MFAEnabled         bool       `json:"mfaEnabled"`
	MustChangePassword bool       `json:"mustChangePassword"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	EmployeeRecordID   *string    `json:"employeeRecordId,omitempty"`
	EmployeeID         *string    `json:"employeeId,omitempty"`
	DepartmentID       *string    `json:"departmentId,omitempty"`
	Title              *string    `json:"title,omitempty"`
	Permissions        []string   `json:"permissions"`
}

const authUserColumns = `id, email, name, role, status, password_hash, mfa_enabled, mfa_secret_enc, must_change_password`

func scanAuthUser(row pgx.Row) (AuthUser, error) {
	var out AuthUser
	err := row.Scan(&out.ID, &out.Email, &out.Name, &out.Role, &out.Status, &out.PasswordHash, &out.MFAEnabled, &out.MFASecretEnc, &out.MustChangePassword)
	return out, err
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	return scanAuthUser(s.DB.QueryRow(ctx, "SELECT "+authUserColumns+" FROM users WHERE lower(email) = $1", NormalizeEmail(email)))
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (AuthUser, error) {
	return scanAuthUser(s.DB.QueryRow(ctx, "SELECT "+authUserColumns+" FROM users WHERE id = $1", userID))
}

// PendingCredential returns the newest unused temporary credential for the user.
func (s *Store) PendingCredential(ctx context.Context, userID string) (PendingCredential, bool, error) {
	var out PendingCredential
	err := s.DB.QueryRow(ctx, `
    SELECT id, expires_at
    FROM temporary_credentials
    WHERE user_id = $1 AND is_used = false
    ORDER BY created_at DESC
    LIMIT 1
  `, userID).Scan(&out.ID, &out.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PendingCredential{}, false, nil
	}
	if err != nil {
		return PendingCredential{}, false, err
	}
	return out, true, nil
}

func (s *Store) MarkCredentialUsed(ctx context.Context, credentialID, userID string) error {
	if _, err := s.DB.Exec(ctx, "UPDATE temporary_credentials SET is_used = true, used_at = now() WHERE id = $1", credentialID); err != nil {
		return err
	}
	_, err := s.DB.Exec(ctx, "UPDATE users SET must_change_password = true, updated_at = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

// UpdatePassword sets a new hash and consumes every outstanding temporary
// credential in the same statement, so a later expiry cannot block login.
func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, `
    WITH consumed AS (
      UPDATE temporary_credentials SET is_used = true, used_at = now()
      WHERE user_id = $2 AND is_used = false
    )
    UPDATE users SET password_hash = $1, must_change_password = false, updated_at = now()
    WHERE id = $2
  `, hash, userID)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2", secretEnc, userID)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) Profile(ctx context.Context, userID string) (Profile, error) {
	var out Profile
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.email, u.name, u.role, u.status, u.mfa_enabled, u.must_change_password, u.last_login,
           e.id::text, e.employee_id, e.department_id::text, e.title
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    WHERE u.id = $1
  `, userID).Scan(&out.ID, &out.Email, &out.Name, &out.Role, &out.Status, &out.MFAEnabled, &out.MustChangePassword, &out.LastLogin,
		&out.EmployeeRecordID, &out.EmployeeID, &out.DepartmentID, &out.Title)
	if err != nil {
		return Profile{}, err
	}
	out.Permissions = RolePermissions[out.Role]
	return out, nil
}
