package leave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidateRange(t *testing.T) {
	err := ValidateRange(day("2024-08-20"), day("2024-08-19"))
	assert.ErrorIs(t, err, ErrEndBeforeStart)
	assert.NoError(t, ValidateRange(day("2024-08-20"), day("2024-08-20")))
}

func TestWorkingDaysSkipsWeekendsAndHolidays(t *testing.T) {
	// Mon 2024-08-19 .. Sun 2024-08-25
	assert.Equal(t, 5.0, WorkingDays(day("2024-08-19"), day("2024-08-25"), nil))
	assert.Equal(t, 4.0, WorkingDays(day("2024-08-19"), day("2024-08-25"), []time.Time{day("2024-08-21")}))
	assert.Equal(t, 0.0, WorkingDays(day("2024-08-24"), day("2024-08-25"), nil))
}

func TestCoverageSeverity(t *testing.T) {
	assert.Equal(t, "", CoverageSeverity(0, 4))
	assert.Equal(t, SeverityLow, CoverageSeverity(1, 5))
	assert.Equal(t, SeverityMedium, CoverageSeverity(1, 4))
	assert.Equal(t, SeverityHigh, CoverageSeverity(2, 4))
	assert.Equal(t, "", CoverageSeverity(1, 0))
}

func TestSortConflicts(t *testing.T) {
	conflicts := []Conflict{
		{Type: "a", Severity: SeverityLow},
		{Type: "b", Severity: SeverityHigh},
		{Type: "c", Severity: SeverityMedium},
		{Type: "d", Severity: SeverityHigh},
	}
	SortConflicts(conflicts)
	var order []string
	for _, c := range conflicts {
		order = append(order, c.Type)
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, order)
	assert.True(t, HasHighSeverity(conflicts))
}

func TestBuildBalance(t *testing.T) {
	b := BuildBalance(TypeVacation, Entitlement{Allowance: 20, CarriedOver: 5}, Usage{Used: 10, Pending: 2})
	require.NotNil(t, b.Remaining)
	assert.Equal(t, 13.0, *b.Remaining)
	assert.Equal(t, 40.0, b.UtilizationPct)

	unpaid := BuildBalance(TypeUnpaid, Entitlement{}, Usage{Used: 3})
	assert.True(t, unpaid.Unlimited)
	assert.Nil(t, unpaid.Remaining)
}

func TestCarryOverCapped(t *testing.T) {
	assert.Equal(t, 5.0, CarryOver(Entitlement{Allowance: 20}, 5))
	assert.Equal(t, 2.0, CarryOver(Entitlement{Allowance: 20}, 18))
	assert.Equal(t, 0.0, CarryOver(Entitlement{Allowance: 20}, 25))
}

func TestValidType(t *testing.T) {
	assert.Len(t, Types(), 9)
	assert.True(t, ValidType(TypeBereavement))
	assert.False(t, ValidType("HOLIDAY"))
}

func TestWorkingDaysInYearSplitsAcrossNewYear(t *testing.T) {
	// Mon 2024-12-30 .. Fri 2025-01-03, 5 working days recorded at submission.
	start, end := day("2024-12-30"), day("2025-01-03")
	newYear := []time.Time{day("2025-01-01")}

	assert.Equal(t, 2.0, WorkingDaysInYear(start, end, 4, 2024, nil))
	assert.Equal(t, 2.0, WorkingDaysInYear(start, end, 4, 2025, newYear))
	assert.Equal(t, 0.0, WorkingDaysInYear(start, end, 4, 2026, nil))
	assert.Equal(t, 3.5, WorkingDaysInYear(day("2024-08-19"), day("2024-08-23"), 3.5, 2024, nil))
}

func TestUsageForYearCountsOnlyDaysInYear(t *testing.T) {
	spans := []RequestSpan{
		{LeaveType: TypeVacation, Status: StatusApproved, StartDate: day("2024-12-30"), EndDate: day("2025-01-03"), WorkingDays: 5},
		{LeaveType: TypeVacation, Status: StatusPending, StartDate: day("2025-02-03"), EndDate: day("2025-02-04"), WorkingDays: 2},
		{LeaveType: TypeVacation, Status: "REJECTED", StartDate: day("2025-03-03"), EndDate: day("2025-03-07"), WorkingDays: 5},
	}

	u2024 := UsageForYear(spans[:1], 2024, nil)
	assert.Equal(t, 2.0, u2024[TypeVacation].Used)

	u2025 := UsageForYear(spans, 2025, nil)
	require.Contains(t, u2025, TypeVacation)
	assert.Equal(t, 3.0, u2025[TypeVacation].Used)
	assert.Equal(t, 2.0, u2025[TypeVacation].Pending)
}
