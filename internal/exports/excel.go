package exports

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"writehub/order-portal/order-portal-backend/internal/orders"
)

var orderBookColumns = []string{
	"Order Code", "Status", "Title", "Client ID", "Freelancer ID",
	"Pages", "Slides", "Amount", "Effective CPP", "Manager Earnings",
	"Deadline", "Freelancer Deadline", "Created At",
}

// WriteOrderBookXLSX renders the order book as a styled XLSX workbook.
func WriteOrderBookXLSX(w io.Writer, list []orders.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range orderBookColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	for i, order := range list {
		row := i + 2
		for j, value := range orderBookRow(order) {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, value)
		}
	}

	lastCell, _ := excelize.CoordinatesToCellName(len(orderBookColumns), len(list)+1)
	f.AutoFilter(sheet, "A1:"+lastCell, nil)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func orderBookRow(o orders.Order) []interface{} {
	freelancer := ""
	if o.AssignedFreelancerID != nil {
		freelancer = o.AssignedFreelancerID.String()
	}
	return []interface{}{
		o.OrderCode,
		o.Status,
		o.Title,
		o.ClientID.String(),
		freelancer,
		intOrZero(o.Pages),
		intOrZero(o.Slides),
		o.Amount,
		o.EffectiveCpp,
		o.ManagerEarnings,
		o.ActualDeadline.Format(time.RFC3339),
		o.FreelancerDeadline.Format(time.RFC3339),
		o.CreatedAt.Format(time.RFC3339),
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
