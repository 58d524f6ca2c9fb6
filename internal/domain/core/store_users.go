package core

import (
	"context"
	"fmt"
	"strings"
)

func (s *Store) ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	where := ""
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		where = " WHERE u.email ILIKE $1 OR u.name ILIKE $1"
	}
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users u"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
    SELECT u.id, u.email, u.name, u.role, u.status, u.mfa_enabled,
           EXISTS (SELECT 1 FROM employees e WHERE e.user_id = u.id), u.last_login, u.created_at
    FROM users u` + where + fmt.Sprintf(" ORDER BY u.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &u.MFAEnabled, &u.HasEmployee, &u.LastLogin, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.email, u.name, u.role, u.status, u.mfa_enabled,
           EXISTS (SELECT 1 FROM employees e WHERE e.user_id = u.id), u.last_login, u.created_at
    FROM users u WHERE u.id = $1
  `, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &u.MFAEnabled, &u.HasEmployee, &u.LastLogin, &u.CreatedAt)
	if err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash, role string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, name, password_hash, role, must_change_password)
    VALUES ($1,$2,$3,$4,true)
    RETURNING id
  `, strings.ToLower(strings.TrimSpace(email)), name, passwordHash, role).Scan(&id)
	return id, err
}

func (s *Store) UpdateUserAccess(ctx context.Context, id, role, status string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, "UPDATE users SET role = $1, status = $2, updated_at = now() WHERE id = $3", role, status, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) CountActiveWithRole(ctx context.Context, role string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE role = $1 AND status = 'ACTIVE'", role).Scan(&n)
	return n, err
}
