package timetracking

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const maxImportRows = 10000

var (
	ErrEmptySheet     = errors.New("worksheet is empty")
	ErrMissingColumns = errors.New("sheet must have email, date, clock in and clock out columns")
	ErrUnreadable     = errors.New("file is not a readable xls or xlsx workbook")
)

// ReadSheetRows loads the first worksheet of an .xls or .xlsx upload as strings.
func ReadSheetRows(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		if workbook.NumSheets() == 0 {
			return nil, ErrEmptySheet
		}
		rows := workbook.ReadAllCells(maxImportRows)
		if len(rows) == 0 {
			return nil, ErrEmptySheet
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		defer func() { _ = file.Close() }()
		sheet := file.GetSheetName(0)
		if sheet == "" {
			return nil, ErrEmptySheet
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrEmptySheet
		}
		return rows, nil
	}
}

type columns struct {
	email, date, in, out, brk int
}

func headerIndex(header []string) (columns, error) {
	cols := columns{email: -1, date: -1, in: -1, out: -1, brk: -1}
	for i, h := range header {
		switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), "_", " ") {
		case "email", "employee email":
			cols.email = i
		case "date", "work date":
			cols.date = i
		case "clock in", "clockin", "start", "in":
			cols.in = i
		case "clock out", "clockout", "end", "out":
			cols.out = i
		case "break minutes", "break", "break mins":
			cols.brk = i
		}
	}
	if cols.email < 0 || cols.date < 0 || cols.in < 0 || cols.out < 0 {
		return cols, ErrMissingColumns
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseImportRows validates rows after the header. Clock times are interpreted in
// loc; a clock out earlier than the clock in rolls over to the next day.
func ParseImportRows(rows [][]string, loc *time.Location) ([]ImportRow, []ImportError, error) {
	if len(rows) == 0 {
		return nil, nil, ErrEmptySheet
	}
	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var out []ImportRow
	var problems []ImportError
	for i, row := range rows[1:] {
		line := i + 2
		email := strings.ToLower(cell(row, cols.email))
		if email == "" && cell(row, cols.date) == "" {
			continue
		}
		fail := func(msg string) { problems = append(problems, ImportError{Line: line, Message: msg}) }
		if !strings.Contains(email, "@") {
			fail("invalid email")
			continue
		}
		date, err := parseSheetDate(cell(row, cols.date), loc)
		if err != nil {
			fail("invalid date")
			continue
		}
		in, err := parseClock(cell(row, cols.in))
		if err != nil {
			fail("invalid clock in")
			continue
		}
		outTime, err := parseClock(cell(row, cols.out))
		if err != nil {
			fail("invalid clock out")
			continue
		}
		breakMinutes := 0
		if raw := cell(row, cols.brk); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				fail("invalid break minutes")
				continue
			}
			breakMinutes = v
		}

		clockIn := date.Add(in)
		clockOut := date.Add(outTime)
		if !clockOut.After(clockIn) {
			clockOut = clockOut.AddDate(0, 0, 1)
		}
		if float64(breakMinutes) >= clockOut.Sub(clockIn).Minutes() {
			fail("break is longer than the shift")
			continue
		}
		out = append(out, ImportRow{Line: line, Email: email, Date: date, ClockIn: clockIn, ClockOut: clockOut, BreakMinutes: breakMinutes})
	}
	return out, problems, nil
}

var sheetDateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006", "2006/01/02", "02.01.2006", "Jan 2, 2006"}

func parseSheetDate(value string, loc *time.Location) (time.Time, error) {
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 20000 && serial < 80000 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	for _, layout := range sheetDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// parseClock returns the offset from midnight for HH:MM, HH:MM:SS, 3:04 PM or an
// Excel day fraction.
func parseClock(value string) (time.Duration, error) {
	if frac, err := strconv.ParseFloat(value, 64); err == nil && frac >= 0 && frac < 1 {
		return time.Duration(frac * 24 * float64(time.Hour)).Round(time.Minute), nil
	}
	for _, layout := range []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "03:04 PM"} {
		if t, err := time.Parse(layout, strings.ToUpper(value)); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("unrecognised time %q", value)
}
