package payments

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders/:id/payments", h.Submit)
	pays := rg.Group("/payments")
	{
		pays.PATCH("/:id/confirm", h.Confirm)
		pays.GET("/:id/invoice", h.Invoice)
	}
}

type submitRequest struct {
	Amount    float64 `json:"amount" binding:"required"`
	Reference string  `json:"reference"`
}

func (h *Handler) Submit(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid payment payload: %v", err))
		return
	}

	payment, err := h.service.Submit(c.Request.Context(), orderID, auth.ActorID(c), auth.ActorRole(c), req.Amount, req.Reference)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

type confirmRequest struct {
	Confirmed *bool `json:"confirmed" binding:"required"`
}

func (h *Handler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid payment id"))
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid confirmation payload: %v", err))
		return
	}

	var payment *Payment
	if *req.Confirmed {
		payment, err = h.service.Confirm(c.Request.Context(), id, auth.ActorID(c), auth.ActorRole(c))
	} else {
		payment, err = h.service.Reject(c.Request.Context(), id, auth.ActorID(c), auth.ActorRole(c))
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) Invoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid payment id"))
		return
	}

	invoice, err := h.service.Invoice(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
