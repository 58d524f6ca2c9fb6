package crm

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/oklog/ulid"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewReceiptNumber returns a sortable receipt number such as RCT-01J9Z3....
func NewReceiptNumber(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "RCT-" + ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

func ReceiptFilename(r Receipt, ext string) string {
	return fmt.Sprintf("receipt-%s.%s", r.Number, ext)
}

var receiptHTML = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Receipt {{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
table { border-collapse: collapse; width: 100%; margin-top: 24px; }
td { padding: 8px; border-bottom: 1px solid #ddd; }
td.label { color: #666; width: 30%; }
.total { font-size: 1.4em; font-weight: bold; }
</style>
</head>
<body>
<h1>Payment receipt</h1>
<p>Receipt <strong>{{.Number}}</strong> issued {{.IssuedAt.Format "2006-01-02 15:04 MST"}}</p>
<table>
<tr><td class="label">Customer</td><td>{{.Payment.CustomerName}}</td></tr>
{{if .Payment.CustomerEmail}}<tr><td class="label">Email</td><td>{{.Payment.CustomerEmail}}</td></tr>{{end}}
{{if .Payment.InvoiceRef}}<tr><td class="label">Invoice</td><td>{{.Payment.InvoiceRef}}</td></tr>{{end}}
{{if .Payment.Description}}<tr><td class="label">Description</td><td>{{.Payment.Description}}</td></tr>{{end}}
<tr><td class="label">Method</td><td>{{.Payment.Method}}</td></tr>
<tr><td class="label">Status</td><td>{{.Payment.Status}}</td></tr>
<tr><td class="label">Amount</td><td class="total">{{printf "%.2f" .Payment.Amount}} {{.Payment.Currency}}</td></tr>
</table>
</body>
</html>
`))

func RenderHTML(r Receipt) ([]byte, error) {
	var buf bytes.Buffer
	if err := receiptHTML.Execute(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func RenderPDF(r Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt "+r.Number, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Payment receipt")
	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Receipt "+r.Number)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Issued "+r.IssuedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(12)

	rows := [][2]string{
		{"Customer", r.Payment.CustomerName},
		{"Email", r.Payment.CustomerEmail},
		{"Invoice", r.Payment.InvoiceRef},
		{"Description", r.Payment.Description},
		{"Method", r.Payment.Method},
		{"Status", r.Payment.Status},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, row[0], "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(130, 8, row[1], "B", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(50, 10, "Amount", "", 0, "L", false, 0, "")
	pdf.CellFormat(130, 10, fmt.Sprintf("%.2f %s", r.Payment.Amount, r.Payment.Currency), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
