package timetracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseImportRows(t *testing.T) {
	rows := [][]string{
		{"Email", "Date", "Clock In", "Clock Out", "Break Minutes"},
		{"Ann@Example.com", "2024-08-19", "09:00", "17:30", "30"},
		{"bob@example.com", "2024-08-19", "22:00", "06:00", ""},
		{"", "", "", "", ""},
		{"nope", "2024-08-19", "09:00", "17:00", ""},
		{"cat@example.com", "yesterday", "09:00", "17:00", ""},
		{"dan@example.com", "2024-08-19", "09:00", "10:00", "90"},
	}
	parsed, problems, err := ParseImportRows(rows, time.UTC)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, "ann@example.com", parsed[0].Email)
	assert.Equal(t, 30, parsed[0].BreakMinutes)
	assert.Equal(t, at("2024-08-19 17:30"), parsed[0].ClockOut)

	assert.Equal(t, at("2024-08-20 06:00"), parsed[1].ClockOut)

	require.Len(t, problems, 3)
	assert.Equal(t, 5, problems[0].Line)
	assert.Equal(t, "invalid email", problems[0].Message)
	assert.Equal(t, "invalid date", problems[1].Message)
	assert.Equal(t, "break is longer than the shift", problems[2].Message)
}

func TestParseImportRowsRequiresHeader(t *testing.T) {
	_, _, err := ParseImportRows([][]string{{"name", "hours"}}, time.UTC)
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestParseClockFormats(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"09:30":    9*time.Hour + 30*time.Minute,
		"17:00:00": 17 * time.Hour,
		"5:15 pm":  17*time.Hour + 15*time.Minute,
		"0.5":      12 * time.Hour,
	} {
		got, err := parseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestReadSheetRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"email", "date", "clock in", "clock out"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"ann@example.com", "2024-08-19", "09:00", "17:00"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadSheetRows("punches.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ann@example.com", rows[1][0])
}
