package exports

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/orders"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

type Handler struct {
	orders orders.Repository
}

func NewHandler(orderRepo orders.Repository) *Handler {
	return &Handler{orders: orderRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders/export", h.ExportOrders)
}

// ExportOrders streams the full order book. Admin only; format defaults to
// xlsx.
func (h *Handler) ExportOrders(c *gin.Context) {
	filter := orders.Filter{Status: c.Query("status")}
	if filter.Status != "" && !workflows.IsKnownStatus(filter.Status) {
		apperr.Respond(c, apperr.Validation("unknown status %q", filter.Status))
		return
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperr.Respond(c, apperr.Validation("invalid client_id"))
			return
		}
		filter.ClientID = &id
	}

	list, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	name := fmt.Sprintf("orders-%s", time.Now().Format("20060102-150405"))
	switch c.DefaultQuery("format", "xlsx") {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
		c.Header("Content-Type", "text/csv")
		err = WriteOrderBookCSV(c.Writer, list)
	case "xlsx":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", name))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = WriteOrderBookXLSX(c.Writer, list)
	default:
		apperr.Respond(c, apperr.Validation("format must be xlsx or csv"))
		return
	}
	if err != nil {
		apperr.Respond(c, err)
	}
}
