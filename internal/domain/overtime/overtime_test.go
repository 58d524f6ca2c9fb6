package overtime

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestShiftDuration(t *testing.T) {
	cases := map[[2]string]float64{
		{"09:00", "17:00"}: 8.0,
		{"22:00", "06:00"}: 8.0,
		{"08:30", "12:45"}: 4.25,
		{"23:30", "00:15"}: 0.75,
	}
	for in, want := range cases {
		got, err := ShiftDuration(in[0], in[1])
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestShiftDurationInvalid(t *testing.T) {
	_, err := ShiftDuration("9am", "17:00")
	assert.ErrorIs(t, err, ErrInvalidTime)
	_, err = ShiftDuration("09:00", "09:00")
	assert.ErrorIs(t, err, ErrZeroDuration)
}

func TestMonthRange(t *testing.T) {
	from, to, err := MonthRange(12, 2024)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = MonthRange(13, 2024)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestBuildReportMergesManualEntries(t *testing.T) {
	clocked := []EmployeeSummary{{UserID: "u1", EmployeeName: "Ann", TotalHours: 168, RegularHours: 160, OvertimeHours: 8}}
	manual := []Entry{
		{UserID: "u1", Hours: 2, Category: CategoryRegular, Status: StatusApproved},
		{UserID: "u1", Hours: 3, Category: CategoryWeekend, Status: StatusPending},
		{UserID: "u2", EmployeeName: "Bo", Hours: 8, Category: CategoryNight, Status: StatusApproved},
		{UserID: "u2", Hours: 4, Category: CategoryHoliday, Status: StatusRejected},
	}
	report := BuildReport(8, 2024, clocked, manual)
	require.Len(t, report.Employees, 2)

	ann := report.Employees[0]
	assert.Equal(t, 170.0, ann.TotalHours)
	assert.Equal(t, 10.0, ann.OvertimeHours)
	assert.Equal(t, 1, ann.PendingEntries)

	bo := report.Employees[1]
	assert.Equal(t, "Bo", bo.EmployeeName)
	assert.Equal(t, 8.0, bo.NightShiftHours)
	assert.Equal(t, 8.0, bo.ManualHours)

	assert.Equal(t, 178.0, report.Totals.TotalHours)
	assert.Equal(t, 18.0, report.Totals.OvertimeHours)
}

func TestExportXLSX(t *testing.T) {
	report := BuildReport(8, 2024, []EmployeeSummary{{UserID: "u1", EmployeeName: "Ann", TotalHours: 9, RegularHours: 8, OvertimeHours: 1}}, nil)
	data, err := ExportXLSX(report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Summary", "Manual entries"}, f.GetSheetList())
	name, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Ann", name)
	total, err := f.GetCellValue("Summary", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
	assert.Equal(t, "overtime-2024-08.xlsx", ExportFilename(8, 2024))
}
