package payments

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"writehub/order-portal/order-portal-backend/internal/orders"
)

// RenderInvoice renders a one-page settlement invoice.
func RenderInvoice(order *orders.Order, invoice *Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(68, 114, 196)
	pdf.Cell(0, 10, "WriteHub Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 6, fmt.Sprintf("Invoice %s", invoice.ID))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Order %s", order.OrderCode))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Issued %s", time.Now().Format("2006-01-02")))
	pdf.Ln(12)

	rows := []struct {
		label  string
		amount float64
	}{
		{"Order total", invoice.Amount},
		{"Freelancer payout", invoice.FreelancerAmount},
		{"Manager earnings", invoice.ManagerAmount},
		{"Platform commission", invoice.AdminCommission},
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(120, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 8, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for i, row := range rows {
		fill := i%2 == 1
		pdf.SetFillColor(242, 242, 242)
		pdf.CellFormat(120, 8, row.label, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(60, 8, fmt.Sprintf("%.2f", row.amount), "1", 1, "R", fill, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice PDF: %w", err)
	}
	return buf.Bytes(), nil
}
