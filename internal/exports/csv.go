package exports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"writehub/order-portal/order-portal-backend/internal/orders"
)

// WriteOrderBookCSV streams the order book as CSV.
func WriteOrderBookCSV(w io.Writer, list []orders.Order) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(orderBookColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, order := range list {
		record := make([]string, 0, len(orderBookColumns))
		for _, value := range orderBookRow(order) {
			record = append(record, formatCSVValue(value))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", order.OrderCode, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCSVValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', 2, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
