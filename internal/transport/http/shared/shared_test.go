package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestValidatorIssuesSorted(t *testing.T) {
	v := NewValidator()
	v.Required("reason", " ", "is required")
	v.Enum("type", "holiday", []string{"VACATION", "SICK"}, "must be a known leave type")
	v.Required("employeeId", "", "is required")

	issues := v.Issues()
	assert.Len(t, issues, 3)
	assert.Equal(t, "employeeId", issues[0].Field)
	assert.Equal(t, "type", issues[2].Field)
}

func TestValidatorEnumIsCaseInsensitive(t *testing.T) {
	v := NewValidator()
	v.Enum("type", "vacation", []string{"VACATION"}, "bad")
	assert.False(t, v.HasIssues())
}

func TestValidatorDateOrder(t *testing.T) {
	v := NewValidator()
	start, ok := v.Date("startDate", "2024-08-20")
	assert.True(t, ok)
	end, ok := v.Date("endDate", "2024-08-19")
	assert.True(t, ok)
	v.DateOrder("startDate", start, "endDate", end)
	assert.Len(t, v.Issues(), 2)
}

func TestParsePaginationClamps(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=500&offset=-3", nil)
	p := ParsePagination(r, 50, 200)
	assert.Equal(t, 200, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.168.1.5:4000"
	assert.Equal(t, "192.168.1.5", ClientIP(r))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}
