package leave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcrm/internal/domain/auth"
)

type fakeStore struct {
	StoreAPI
	calls     int
	overlap   bool
	dept      string
	manager   string
	coverage  Coverage
	requests  map[string]Request
	created   []CreateInput
	decided   map[string]string
	holidays  []Holiday
	approvers []string
}

func (f *fakeStore) Holidays(context.Context, time.Time, time.Time) ([]Holiday, error) {
	f.calls++
	return f.holidays, nil
}

func (f *fakeStore) HasOverlap(context.Context, string, time.Time, time.Time) (bool, error) {
	f.calls++
	return f.overlap, nil
}

func (f *fakeStore) UserPlacement(_ context.Context, userID string) (string, string, error) {
	if userID == "mgr" {
		return f.dept, "", nil
	}
	return f.dept, f.manager, nil
}

func (f *fakeStore) Coverage(context.Context, string, string, time.Time, time.Time) (Coverage, error) {
	return f.coverage, nil
}

func (f *fakeStore) ManagerAway(context.Context, string, time.Time, time.Time) (string, bool, error) {
	return "", false, nil
}

func (f *fakeStore) Entitlements(context.Context, string, int) (map[string]Entitlement, error) {
	return map[string]Entitlement{}, nil
}

func (f *fakeStore) Usage(context.Context, string, int) (map[string]Usage, error) {
	return map[string]Usage{TypeVacation: {Used: 18}}, nil
}

func (f *fakeStore) CreateRequest(_ context.Context, in CreateInput, days float64) (string, error) {
	f.created = append(f.created, in)
	f.requests["new"] = Request{ID: "new", UserID: in.UserID, LeaveType: in.LeaveType, StartDate: in.StartDate, EndDate: in.EndDate, WorkingDays: days, Status: StatusPending}
	return "new", nil
}

func (f *fakeStore) GetRequest(_ context.Context, id string) (Request, error) {
	r, ok := f.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ApproverUserIDs(context.Context, string) ([]string, error) {
	return f.approvers, nil
}

func (f *fakeStore) DecideRequest(_ context.Context, id, status, notes, _ string) (bool, error) {
	r := f.requests[id]
	if r.Status != StatusPending {
		return false, nil
	}
	r.Status = status
	r.AdminNotes = notes
	f.requests[id] = r
	if f.decided == nil {
		f.decided = map[string]string{}
	}
	f.decided[id] = status
	return true, nil
}

func newFake() *fakeStore {
	return &fakeStore{requests: map[string]Request{}}
}

func TestCreateRejectsInvertedRangeWithoutStoreCalls(t *testing.T) {
	store := newFake()
	svc := NewService(store, nil)
	_, err := svc.Create(context.Background(), CreateInput{
		UserID: "u1", LeaveType: TypeVacation, StartDate: day("2024-08-20"), EndDate: day("2024-08-19"),
	})
	assert.ErrorIs(t, err, ErrEndBeforeStart)
	assert.Equal(t, 0, store.calls)
	assert.Empty(t, store.created)
}

func TestCreateRejectsWeekendOnly(t *testing.T) {
	svc := NewService(newFake(), nil)
	_, err := svc.Create(context.Background(), CreateInput{
		UserID: "u1", LeaveType: TypeVacation, StartDate: day("2024-08-24"), EndDate: day("2024-08-25"),
	})
	assert.ErrorIs(t, err, ErrNoWorkingDays)
}

func TestCreateRejectsOwnOverlap(t *testing.T) {
	store := newFake()
	store.overlap = true
	_, err := NewService(store, nil).Create(context.Background(), CreateInput{
		UserID: "u1", LeaveType: TypeSick, StartDate: day("2024-08-19"), EndDate: day("2024-08-20"),
	})
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestCreateAllowsHighSeverityTeamConflict(t *testing.T) {
	store := newFake()
	store.dept = "d1"
	store.coverage = Coverage{TeamSize: 2, OnLeave: []string{"Bo"}}

	res, err := NewService(store, nil).Create(context.Background(), CreateInput{
		UserID: "u1", LeaveType: TypeVacation, StartDate: day("2024-08-19"), EndDate: day("2024-08-23"),
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Request.WorkingDays)
	require.NotEmpty(t, res.Conflicts)
	assert.Equal(t, SeverityHigh, res.Conflicts[0].Severity)
	assert.True(t, HasHighSeverity(res.Conflicts))
}

func TestConflictsFlagsInsufficientBalance(t *testing.T) {
	store := newFake()
	conflicts, err := NewService(store, nil).Conflicts(context.Background(), "u1", TypeVacation, day("2024-08-19"), day("2024-08-23"))
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "insufficient_balance", conflicts[0].Type)
}

func TestDecideOnlyFromPending(t *testing.T) {
	store := newFake()
	store.requests["r1"] = Request{ID: "r1", UserID: "u1", Status: StatusPending}
	store.requests["r2"] = Request{ID: "r2", UserID: "u1", Status: StatusApproved}
	svc := NewService(store, nil)
	hr := auth.UserContext{UserID: "hr", Role: auth.RoleHRManager}

	_, after, err := svc.Decide(context.Background(), hr, "r1", StatusApproved, " ok ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, after.Status)
	assert.Equal(t, "ok", after.AdminNotes)

	_, _, err = svc.Decide(context.Background(), hr, "r2", StatusRejected, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = svc.Decide(context.Background(), hr, "r1", "MAYBE", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestDecideRequiresManagingRelationship(t *testing.T) {
	store := newFake()
	store.requests["r1"] = Request{ID: "r1", UserID: "u1", Status: StatusPending}
	store.dept = ""
	store.manager = "someone-else"
	sup := auth.UserContext{UserID: "mgr", Role: auth.RoleSupervisor}

	_, _, err := NewService(store, nil).Decide(context.Background(), sup, "r1", StatusApproved, "")
	assert.ErrorIs(t, err, ErrForbidden)

	store.manager = "mgr"
	_, _, err = NewService(store, nil).Decide(context.Background(), sup, "r1", StatusApproved, "")
	assert.NoError(t, err)
}
