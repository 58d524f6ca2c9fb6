package finance

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReportPDF renders an expense listing with per-status totals.
func ReportPDF(title string, expenses []Expense, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Generated "+generated.Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	widths := []float64{24, 40, 90, 28, 32, 26, 37}
	headers := []string{"Date", "Category", "Description", "Amount", "Method", "Status", "Submitted by"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	totals := map[string]float64{}
	for _, e := range expenses {
		cells := []string{
			e.ExpenseDate.Format("2006-01-02"),
			truncate(e.Category, 22),
			truncate(e.Description, 55),
			fmt.Sprintf("%.2f", e.Amount),
			truncate(e.PaymentMethod, 18),
			e.Status,
			truncate(e.CreatedByName, 20),
		}
		for i, c := range cells {
			align := "L"
			if i == 3 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
		totals[e.Status] += e.Amount
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	for _, status := range []string{StatusApproved, StatusPending, StatusRejected} {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %.2f", status, totals[status]))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
