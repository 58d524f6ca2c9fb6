package overtime

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var summaryHeader = []any{
	"Employee", "Employee ID", "Department", "Total", "Regular", "Overtime",
	"Weekend", "Holiday", "Night shift", "Manual", "Pending entries",
}

var entryHeader = []any{"Employee", "Date", "Start", "End", "Hours", "Category", "Status", "Description"}

// ExportXLSX renders the month report as a two-sheet workbook.
func ExportXLSX(report MonthReport) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const summary = "Summary"
	if err := f.SetSheetName(f.GetSheetName(0), summary); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(summary, "A1", &summaryHeader); err != nil {
		return nil, err
	}
	row := 2
	for _, s := range report.Employees {
		values := []any{
			s.EmployeeName, s.EmployeeID, s.Department, s.TotalHours, s.RegularHours, s.OvertimeHours,
			s.WeekendHours, s.HolidayHours, s.NightShiftHours, s.ManualHours, s.PendingEntries,
		}
		if err := f.SetSheetRow(summary, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		row++
	}
	t := report.Totals
	totals := []any{"Total", "", "", t.TotalHours, t.RegularHours, t.OvertimeHours, t.WeekendHours, t.HolidayHours, t.NightShiftHours, t.ManualHours, t.PendingEntries}
	if err := f.SetSheetRow(summary, fmt.Sprintf("A%d", row), &totals); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(summary, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(summary, row, row, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summary, "A", "A", 28); err != nil {
		return nil, err
	}

	const entries = "Manual entries"
	if _, err := f.NewSheet(entries); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(entries, "A1", &entryHeader); err != nil {
		return nil, err
	}
	for i, e := range report.Entries {
		values := []any{e.EmployeeName, e.Date.Format("2006-01-02"), e.StartTime, e.EndTime, e.Hours, e.Category, e.Status, e.Description}
		if err := f.SetSheetRow(entries, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, err
		}
	}
	if err := f.SetRowStyle(entries, 1, 1, bold); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
