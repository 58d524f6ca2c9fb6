// Package dbtest opens the Postgres database used by store tests. Every
// helper skips the calling test when TEST_DATABASE_URL is not set.
package dbtest

import (
	"context"
	"math/rand"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/platform/config"
	"hrcrm/internal/platform/db"
	"hrcrm/migrations"
)

// Open connects to TEST_DATABASE_URL and applies the embedded migrations.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := db.Connect(ctx, config.Config{DatabaseURL: dbURL})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool, migrations.Files))
	return pool
}

// CreateUser inserts an ACTIVE user with a unique email and returns its id.
func CreateUser(t *testing.T, pool *pgxpool.Pool, role, name string) string {
	t.Helper()
	var id string
	email := "user-" + uuid.NewString() + "@test.local"
	err := pool.QueryRow(context.Background(), `
    INSERT INTO users (email, name, password_hash, role) VALUES ($1, $2, 'x', $3) RETURNING id
  `, email, name, role).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateDepartment inserts a department with a unique code and returns its id.
func CreateDepartment(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	var id string
	code := "T" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	err := pool.QueryRow(context.Background(), `
    INSERT INTO departments (name, code) VALUES ($1, $2) RETURNING id
  `, "Dept "+code, code).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateEmployee inserts or takes over the employee record for userID. Empty
// departmentID or employeeID are stored as NULL.
func CreateEmployee(t *testing.T, pool *pgxpool.Pool, userID, departmentID, employeeID string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
    INSERT INTO employees (user_id, department_id, employee_id, first_name, last_name)
    VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, ''), 'Test', 'Employee')
    ON CONFLICT (user_id) DO UPDATE
    SET department_id = EXCLUDED.department_id, employee_id = EXCLUDED.employee_id
    RETURNING id
  `, userID, departmentID, employeeID).Scan(&id)
	require.NoError(t, err)
	return id
}

// Year returns a far future year so rows keyed by year or date do not collide
// with earlier runs against the same database.
func Year() int {
	return 3000 + rand.Intn(5000)
}
