package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrcrm/internal/domain/auth"
	"hrcrm/internal/platform/config"
)

// Seed creates the bootstrap SUPER_ADMIN account when it does not exist yet.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	email := auth.NormalizeEmail(cfg.SeedAdminEmail)
	if email == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		slog.Info("seed admin not configured, skipping")
		return nil
	}
	return ensureAdminUser(ctx, pool, email, cfg.SeedAdminPassword)
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE lower(email) = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
    INSERT INTO users (email, name, password_hash, role)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, email, "System Administrator", hash, auth.RoleSuperAdmin).Scan(&id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO employees (user_id, employee_id, first_name, last_name, title)
    VALUES ($1,'EMP-0001','System','Administrator','Administrator')
    ON CONFLICT DO NOTHING
  `, id); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	slog.Info("seeded super admin", "email", email)
	return nil
}
