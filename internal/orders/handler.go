package orders

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/auth"
	"writehub/order-portal/order-portal-backend/pkg/workflows"
)

type Handler struct {
	service    *Service
	executor   *Executor
	assignment *AssignmentManager
}

func NewHandler(service *Service, executor *Executor, assignment *AssignmentManager) *Handler {
	return &Handler{service: service, executor: executor, assignment: assignment}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	ords := rg.Group("/orders")
	{
		ords.POST("", h.Create)
		ords.GET("", h.List)
		ords.GET("/:id", h.Get)
		ords.GET("/:id/history", h.History)
		ords.PATCH("/:id/status", h.UpdateStatus)
		ords.PATCH("/:id/assign", h.Assign)
		ords.PATCH("/:id/editor", h.AssignEditor)
		ords.POST("/:id/hold", h.Hold)
		ords.POST("/:id/resume", h.Resume)
	}
}

type createOrderRequest struct {
	Title          string    `json:"title" binding:"required"`
	Instructions   string    `json:"instructions"`
	Pages          *int      `json:"pages"`
	Slides         *int      `json:"slides"`
	SingleSpaced   bool      `json:"single_spaced"`
	Amount         float64   `json:"amount" binding:"required"`
	BaseCpp        float64   `json:"base_cpp" binding:"required"`
	Deadline       time.Time `json:"deadline"`
	ActualDeadline time.Time `json:"actual_deadline" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	if auth.ActorRole(c) != workflows.RoleClient {
		apperr.Respond(c, apperr.Forbidden("only clients create orders"))
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid order payload: %v", err))
		return
	}

	order, err := h.service.Create(c.Request.Context(), CreateRequest{
		ClientID:       auth.ActorID(c),
		Title:          req.Title,
		Instructions:   req.Instructions,
		Pages:          req.Pages,
		Slides:         req.Slides,
		SingleSpaced:   req.SingleSpaced,
		Amount:         req.Amount,
		BaseCpp:        req.BaseCpp,
		Deadline:       req.Deadline,
		ActualDeadline: req.ActualDeadline,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) List(c *gin.Context) {
	orders, err := h.service.List(c.Request.Context(), auth.ActorID(c), auth.ActorRole(c), c.Query("status"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	order, err := h.service.Get(c.Request.Context(), id, auth.ActorID(c), auth.ActorRole(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	logs, err := h.service.History(c.Request.Context(), id, auth.ActorID(c), auth.ActorRole(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid status payload: %v", err))
		return
	}

	order, err := h.executor.ApplyTransition(c.Request.Context(), id, req.Status, auth.ActorID(c), auth.ActorRole(c), req.Note)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type assignRequest struct {
	FreelancerID *uuid.UUID `json:"freelancer_id"`
}

// Assign attaches or, with a null freelancer_id, detaches a freelancer.
func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid assignment payload: %v", err))
		return
	}

	var order *Order
	if req.FreelancerID == nil {
		order, err = h.assignment.Unassign(c.Request.Context(), id, auth.ActorID(c), auth.ActorRole(c))
	} else {
		order, err = h.assignment.Assign(c.Request.Context(), id, *req.FreelancerID, auth.ActorID(c), auth.ActorRole(c))
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type assignEditorRequest struct {
	EditorID *uuid.UUID `json:"editor_id"`
}

// AssignEditor attaches or, with a null editor_id, detaches the reviewing
// editor.
func (h *Handler) AssignEditor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	var req assignEditorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid editor payload: %v", err))
		return
	}

	order, err := h.assignment.AssignEditor(c.Request.Context(), id, req.EditorID, auth.ActorID(c), auth.ActorRole(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type holdRequest struct {
	Note string `json:"note"`
}

func (h *Handler) Hold(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	var req holdRequest
	_ = c.ShouldBindJSON(&req)

	order, err := h.executor.ApplyTransition(c.Request.Context(), id, workflows.StatusOnHold, auth.ActorID(c), auth.ActorRole(c), req.Note)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) Resume(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	order, err := h.executor.Resume(c.Request.Context(), id, auth.ActorID(c), auth.ActorRole(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
