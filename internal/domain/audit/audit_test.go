package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildBaseQueryNumbersPlaceholders(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{Action: ActionDelete, ActorUser: "u1", Since: since})

	assert.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE 1=1 AND action = $1 AND actor_user_id = $2 AND created_at >= $3", query)
	assert.Equal(t, []any{ActionDelete, "u1", since}, args)
}

func TestBuildBaseQueryWithoutFilters(t *testing.T) {
	query, args := buildBaseQuery("SELECT id", Filter{})
	assert.Equal(t, "SELECT id FROM audit_events WHERE 1=1", query)
	assert.Empty(t, args)
}

func TestMarshalOptional(t *testing.T) {
	out, err := marshalOptional(nil)
	assert.NoError(t, err)
	assert.Nil(t, out)

	out, err = marshalOptional(map[string]string{"status": "APPROVED"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":"APPROVED"}`, string(out))
}
